// Package decision maps a verdict and a strategy profile onto a risk tier and
// a recommended action.
package decision

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/blocksafe/internal/classifier"
	"github.com/MikeSquared-Agency/blocksafe/internal/fingerprint"
)

// Mode selects how the service responds to a detected scam.
type Mode int

const (
	ModeShield Mode = iota
	ModeHoneypot
)

func (m Mode) String() string {
	switch m {
	case ModeShield:
		return "shield"
	case ModeHoneypot:
		return "honeypot"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts "shield" or "honeypot", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shield":
		return ModeShield, nil
	case "honeypot":
		return ModeHoneypot, nil
	default:
		return ModeShield, fmt.Errorf("invalid mode %q", s)
	}
}

func (m Mode) MarshalJSON() ([]byte, error) { return json.Marshal(m.String()) }

func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Tier buckets classifier confidence.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierLow:
		return "LOW"
	case TierMedium:
		return "MEDIUM"
	case TierHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

func (t Tier) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }

// TierFor maps a confidence score onto a Tier.
func TierFor(confidence float64) Tier {
	switch {
	case confidence >= 0.85:
		return TierHigh
	case confidence >= 0.6:
		return TierMedium
	default:
		return TierLow
	}
}

// Recommended actions.
const (
	ActionNone   = "No action required. Message appears legitimate."
	ActionBlock  = "Block/ignore message. Do not respond or click any links."
	ActionEngage = "Honeypot engagement initiated for intelligence extraction."
	ActionFlag   = "Message flagged as suspicious. Recommend user verification through official channels."
)

const (
	riskNone       = "No significant risk detected."
	riskSuspicious = "Low-level suspicious activity detected."
)

// DefaultThreshold is the minimum confidence for honeypot engagement.
const DefaultThreshold = 0.85

type Decision struct {
	ShouldEngage      bool   `json:"should_engage_honeypot"`
	ConfidenceTier    Tier   `json:"confidence_level"`
	RiskAssessment    string `json:"risk_assessment"`
	RecommendedAction string `json:"recommended_action"`
}

// Engine is stateless apart from its engagement threshold.
type Engine struct {
	threshold float64
}

func NewEngine(threshold float64) *Engine {
	return &Engine{threshold: threshold}
}

// Evaluate is a pure function of its inputs.
func (e *Engine) Evaluate(v classifier.Verdict, p fingerprint.Profile, mode Mode) Decision {
	engage := mode == ModeHoneypot && v.IsScam && v.Confidence >= e.threshold
	return Decision{
		ShouldEngage:      engage,
		ConfidenceTier:    TierFor(v.Confidence),
		RiskAssessment:    assessRisk(v, p),
		RecommendedAction: recommend(v, mode, engage),
	}
}

func assessRisk(v classifier.Verdict, p fingerprint.Profile) string {
	if !v.IsScam {
		return riskNone
	}

	var factors []string
	switch {
	case v.Confidence >= 0.9:
		factors = append(factors, "Very high confidence scam detection")
	case v.Confidence >= 0.7:
		factors = append(factors, "High confidence scam detection")
	}
	if p.UrgencyScore >= fingerprint.HighUrgency {
		factors = append(factors, "High-pressure tactics detected")
	}
	if len(p.AuthorityClaims) > 0 {
		names := make([]string, len(p.AuthorityClaims))
		for i, a := range p.AuthorityClaims {
			names[i] = a.String()
		}
		factors = append(factors, "Impersonating: "+strings.Join(names, ", "))
	}
	if p.PaymentEscalation {
		factors = append(factors, "Payment demands present")
	}
	if v.ScamType != classifier.ScamTypeNone {
		factors = append(factors, "Scam type: "+v.ScamType.String())
	}

	if len(factors) == 0 {
		return riskSuspicious
	}
	return strings.Join(factors, " | ")
}

func recommend(v classifier.Verdict, mode Mode, engage bool) string {
	switch {
	case !v.IsScam:
		return ActionNone
	case mode == ModeShield:
		return ActionBlock
	case engage:
		return ActionEngage
	default:
		return ActionFlag
	}
}
