package behavior

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/MikeSquared-Agency/blocksafe/internal/fingerprint"
)

// RiskLevel grades how manipulative a message is.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "LOW"
	case RiskMedium:
		return "MEDIUM"
	case RiskHigh:
		return "HIGH"
	case RiskCritical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("RiskLevel(%d)", int(r))
	}
}

func (r RiskLevel) MarshalJSON() ([]byte, error) { return json.Marshal(r.String()) }

type technique struct {
	name    string
	phrases []string
}

var pressureTactics = []technique{
	{"time_pressure", []string{"immediately", "right now", "urgent", "expire", "deadline"}},
	{"authority_pressure", []string{"police", "government", "bank", "official", "rbi"}},
	{"fear_appeal", []string{"blocked", "suspended", "arrest", "legal action", "court"}},
	{"scarcity", []string{"limited", "only", "last chance", "final"}},
	{"social_proof", []string{"everyone", "others have", "many people"}},
}

var socialEngineering = []technique{
	{"pretexting", []string{"we noticed", "our records show", "according to"}},
	{"baiting", []string{"free", "prize", "winner", "reward", "cashback"}},
	{"quid_pro_quo", []string{"in exchange", "if you", "once you"}},
	{"impersonation", []string{"this is", "i am from", "calling from"}},
}

// Profile summarizes the manipulation techniques found in a message.
type Profile struct {
	ManipulationScore float64   `json:"manipulation_score"`
	PressureTactics   []string  `json:"pressure_tactics"`
	SEIndicators      []string  `json:"social_engineering_indicators"`
	RiskLevel         RiskLevel `json:"risk_level"`
}

// Analyze builds a Profile from the text, its surface signals and optional
// voice signals.
func Analyze(text string, signals TextSignals, voice *fingerprint.VoiceSignals) Profile {
	lower := strings.ToLower(text)
	tactics := detect(lower, pressureTactics)
	indicators := detect(lower, socialEngineering)
	score := manipulationScore(len(tactics), len(indicators), signals, voice)
	return Profile{
		ManipulationScore: round(score, 2),
		PressureTactics:   tactics,
		SEIndicators:      indicators,
		RiskLevel:         riskLevel(score, len(tactics)),
	}
}

func detect(lower string, catalog []technique) []string {
	found := []string{}
	for _, t := range catalog {
		for _, p := range t.phrases {
			if strings.Contains(lower, p) {
				found = append(found, t.name)
				break
			}
		}
	}
	return found
}

// manipulationScore weighs techniques first, then delivery cues:
// tactics up to 0.4, social engineering up to 0.3, shouting and fast or
// repetitive speech up to 0.35 more. Capped at 1.
func manipulationScore(tactics, indicators int, s TextSignals, voice *fingerprint.VoiceSignals) float64 {
	score := math.Min(float64(tactics)/3, 1)*0.4 + math.Min(float64(indicators)/2, 1)*0.3
	if s.ExclamationCount > 3 {
		score += 0.1
	}
	if s.CapsRatio > 0.3 {
		score += 0.1
	}
	if voice != nil {
		if voice.SpeechRate > 180 {
			score += 0.1
		}
		if voice.RepetitionDetected {
			score += 0.05
		}
	}
	return math.Min(score, 1)
}

func riskLevel(score float64, tactics int) RiskLevel {
	switch {
	case score >= 0.8 || tactics >= 4:
		return RiskCritical
	case score >= 0.6 || tactics >= 3:
		return RiskHigh
	case score >= 0.3 || tactics >= 2:
		return RiskMedium
	default:
		return RiskLow
	}
}
