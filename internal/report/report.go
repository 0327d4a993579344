// Package report assembles the final analysis record returned to callers and
// persisted downstream.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/blocksafe/internal/behavior"
	"github.com/MikeSquared-Agency/blocksafe/internal/classifier"
	"github.com/MikeSquared-Agency/blocksafe/internal/decision"
	"github.com/MikeSquared-Agency/blocksafe/internal/entities"
	"github.com/MikeSquared-Agency/blocksafe/internal/fingerprint"
	"github.com/MikeSquared-Agency/blocksafe/internal/honeypot"
)

// EvidenceLevel grades how strong the case against a message is.
type EvidenceLevel int

const (
	EvidenceNone EvidenceLevel = iota
	EvidenceLow
	EvidenceMedium
	EvidenceHigh
)

func (e EvidenceLevel) String() string {
	switch e {
	case EvidenceNone:
		return "NONE"
	case EvidenceLow:
		return "LOW"
	case EvidenceMedium:
		return "MEDIUM"
	case EvidenceHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("EvidenceLevel(%d)", int(e))
	}
}

func (e EvidenceLevel) MarshalJSON() ([]byte, error) { return json.Marshal(e.String()) }

func (e *EvidenceLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, l := range []EvidenceLevel{EvidenceNone, EvidenceLow, EvidenceMedium, EvidenceHigh} {
		if l.String() == s {
			*e = l
			return nil
		}
	}
	return fmt.Errorf("unknown evidence level %q", s)
}

// Input gathers everything one analysis produced.
type Input struct {
	RequestID   string
	SessionID   string
	Timestamp   time.Time
	Message     string
	Mode        decision.Mode
	Verdict     classifier.Verdict
	Profile     fingerprint.Profile
	Decision    decision.Decision
	Voice       *fingerprint.VoiceSignals
	TextSignals *behavior.TextSignals
	Behavior    *behavior.Profile
	Engagement  *honeypot.Result
}

// Record is the immutable outcome of one analysis.
type Record struct {
	RequestID       string                    `json:"request_id"`
	SessionID       string                    `json:"session_id"`
	Timestamp       time.Time                 `json:"timestamp"`
	IsScam          bool                      `json:"is_scam"`
	Confidence      float64                   `json:"confidence"`
	ScamType        classifier.ScamType       `json:"scam_type"`
	Reasoning       string                    `json:"reasoning"`
	OriginalMessage string                    `json:"original_message"`
	Entities        entities.Set              `json:"extracted_entities"`
	Profile         fingerprint.Profile       `json:"ssf_profile"`
	Voice           *fingerprint.VoiceSignals `json:"voice_analysis,omitempty"`
	TextSignals     *behavior.TextSignals     `json:"text_signals,omitempty"`
	Behavior        *behavior.Profile         `json:"behavior_profile,omitempty"`
	Honeypot        *honeypot.Result          `json:"honeypot_result,omitempty"`
	Decision        decision.Decision         `json:"decision"`
	AgentSummary    string                    `json:"agent_summary"`
	EvidenceLevel   EvidenceLevel             `json:"evidence_level"`
	Mode            decision.Mode             `json:"operation_mode"`
}

// Build merges the outputs of one analysis into a Record. The record holds
// copies of every slice it receives.
func Build(in Input) *Record {
	if in.RequestID == "" {
		in.RequestID = uuid.NewString()
	}
	if in.SessionID == "" {
		in.SessionID = uuid.NewString()
	}
	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now().UTC()
	}

	engaged := in.Engagement != nil && in.Engagement.Engaged
	merged := in.Verdict.Entities
	if engaged {
		merged = in.Engagement.Entities
	}

	rec := &Record{
		RequestID:       in.RequestID,
		SessionID:       in.SessionID,
		Timestamp:       in.Timestamp,
		IsScam:          in.Verdict.IsScam,
		Confidence:      round2(in.Verdict.Confidence),
		ScamType:        in.Verdict.ScamType,
		Reasoning:       in.Verdict.Reasoning,
		OriginalMessage: in.Message,
		Entities:        merged.Clone(),
		Profile:         cloneProfile(in.Profile),
		Decision:        in.Decision,
		AgentSummary:    Summary(in.Verdict, in.Profile, in.Engagement, in.Mode),
		EvidenceLevel:   Evidence(in.Verdict, in.Profile, in.Engagement),
		Mode:            in.Mode,
	}
	if in.Voice != nil {
		v := *in.Voice
		v.UrgencyIndicators = append([]string{}, in.Voice.UrgencyIndicators...)
		rec.Voice = &v
	}
	if in.TextSignals != nil {
		s := *in.TextSignals
		s.SuspiciousKeywords = append([]string{}, in.TextSignals.SuspiciousKeywords...)
		rec.TextSignals = &s
	}
	if in.Behavior != nil {
		b := *in.Behavior
		b.PressureTactics = append([]string{}, in.Behavior.PressureTactics...)
		b.SEIndicators = append([]string{}, in.Behavior.SEIndicators...)
		rec.Behavior = &b
	}
	if in.Engagement != nil {
		rec.Honeypot = cloneEngagement(in.Engagement)
	}
	return rec
}

// Evidence grades the case. A benign verdict is NONE or LOW depending only
// on whether identifiers were found.
func Evidence(v classifier.Verdict, p fingerprint.Profile, e *honeypot.Result) EvidenceLevel {
	engaged := e != nil && e.Engaged
	count := v.Entities.Count()
	if engaged {
		count = e.Entities.Count()
	}

	if !v.IsScam {
		if count > 0 {
			return EvidenceLow
		}
		return EvidenceNone
	}

	score := 0
	switch {
	case v.Confidence >= 0.9:
		score += 3
	case v.Confidence >= 0.7:
		score += 2
	case v.Confidence >= 0.5:
		score++
	}
	switch {
	case count >= 3:
		score += 2
	case count >= 1:
		score++
	}
	if p.UrgencyScore >= fingerprint.HighUrgency {
		score++
	}
	if len(p.AuthorityClaims) > 0 {
		score++
	}
	if p.PaymentEscalation {
		score++
	}
	if engaged {
		score++
	}

	switch {
	case v.Confidence >= 0.8:
		return EvidenceHigh
	case score >= 3:
		return EvidenceMedium
	default:
		return EvidenceLow
	}
}

// Summary renders the one-paragraph agent summary.
func Summary(v classifier.Verdict, p fingerprint.Profile, e *honeypot.Result, mode decision.Mode) string {
	if !v.IsScam {
		return "No scam indicators detected. Message appears legitimate with low risk signals."
	}

	level := "Low"
	switch {
	case v.Confidence >= 0.8:
		level = "High"
	case v.Confidence >= 0.5:
		level = "Moderate"
	}

	kind := "scam"
	if v.ScamType != classifier.ScamTypeNone {
		kind = strings.ReplaceAll(v.ScamType.String(), "_", " ")
	}
	parts := []string{fmt.Sprintf("%s-confidence %s detected.", level, kind)}

	if p.StrategySummary != "" && !fingerprint.IsGenericSummary(p.StrategySummary) {
		parts = append(parts, p.StrategySummary)
	}

	switch {
	case e != nil && e.Engaged:
		parts = append(parts, fmt.Sprintf("Honeypot extracted %d entities in %d turn(s).", e.Entities.Count(), e.TurnsCompleted))
	case mode == decision.ModeShield:
		parts = append(parts, "Shield mode active: user protected without engagement.")
	}
	return strings.Join(parts, " ")
}

func cloneProfile(p fingerprint.Profile) fingerprint.Profile {
	p.AuthorityClaims = append([]fingerprint.Authority{}, p.AuthorityClaims...)
	p.UrgencyPhrases = append([]string{}, p.UrgencyPhrases...)
	return p
}

func cloneEngagement(e *honeypot.Result) *honeypot.Result {
	out := *e
	out.Entities = e.Entities.Clone()
	out.Turns = make([]honeypot.Turn, len(e.Turns))
	for i, t := range e.Turns {
		t.Entities = t.Entities.Clone()
		out.Turns[i] = t
	}
	return &out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
