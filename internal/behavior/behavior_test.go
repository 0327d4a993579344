package behavior

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"github.com/MikeSquared-Agency/blocksafe/internal/fingerprint"
)

const shieldExample = "URGENT! Your account is blocked. Pay to scam@upi now. Call 9876543210."

func TestAnalyzeText(t *testing.T) {
	s := AnalyzeText(shieldExample)

	if s.WordCount != 11 {
		t.Errorf("WordCount = %d, want 11", s.WordCount)
	}
	if s.SentenceCount != 4 {
		t.Errorf("SentenceCount = %d, want 4", s.SentenceCount)
	}
	if s.AvgSentenceLength != 2.75 {
		t.Errorf("AvgSentenceLength = %v, want 2.75", s.AvgSentenceLength)
	}
	if s.ExclamationCount != 1 || s.QuestionCount != 0 {
		t.Errorf("punctuation = %d/%d, want 1/0", s.ExclamationCount, s.QuestionCount)
	}
	if s.CapsRatio != 0.2 {
		t.Errorf("CapsRatio = %v, want 0.2", s.CapsRatio)
	}
	wantKeywords := []string{"urgent", "pay", "upi", "account", "call", "blocked"}
	if !reflect.DeepEqual(s.SuspiciousKeywords, wantKeywords) {
		t.Errorf("SuspiciousKeywords = %v, want %v", s.SuspiciousKeywords, wantKeywords)
	}
	if math.Abs(s.ScamLikelihood-0.5) > 0.001 {
		t.Errorf("ScamLikelihood = %v, want 0.5", s.ScamLikelihood)
	}
}

func TestAnalyzeText_Empty(t *testing.T) {
	s := AnalyzeText("")
	if s.WordCount != 0 || s.SentenceCount != 0 || s.AvgSentenceLength != 0 || s.CapsRatio != 0 {
		t.Errorf("unexpected signals for empty text: %+v", s)
	}
	if s.SuspiciousKeywords == nil {
		t.Error("SuspiciousKeywords should be an empty slice, not nil")
	}
}

func TestScamLikelihood(t *testing.T) {
	tests := []struct {
		name string
		in   TextSignals
		want float64
	}{
		{"nothing", TextSignals{}, 0},
		{"keywords capped", TextSignals{SuspiciousKeywords: make([]string, 9)}, 0.4},
		{"shouting", TextSignals{ExclamationCount: 3, CapsRatio: 0.5}, 0.2},
		{"short commands", TextSignals{AvgSentenceLength: 3, SentenceCount: 3}, 0.1},
		{"two sentences are not commands", TextSignals{AvgSentenceLength: 3, SentenceCount: 2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := scamLikelihood(tt.in); math.Abs(got-tt.want) > 0.001 {
				t.Errorf("scamLikelihood() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		voice      *fingerprint.VoiceSignals
		wantScore  float64
		wantRisk   RiskLevel
		wantTactic []string
		wantSE     []string
	}{
		{
			name:       "benign",
			text:       "See you at lunch tomorrow",
			wantScore:  0,
			wantRisk:   RiskLow,
			wantTactic: []string{},
			wantSE:     []string{},
		},
		{
			name:       "shield example",
			text:       shieldExample,
			wantScore:  0.27,
			wantRisk:   RiskMedium,
			wantTactic: []string{"time_pressure", "fear_appeal"},
			wantSE:     []string{},
		},
		{
			name:       "four tactics is critical",
			text:       "Police will arrest you. Bank account blocked. Last chance, act immediately. We noticed fraud, this is official.",
			wantScore:  0.7,
			wantRisk:   RiskCritical,
			wantTactic: []string{"time_pressure", "authority_pressure", "fear_appeal", "scarcity"},
			wantSE:     []string{"pretexting", "impersonation"},
		},
		{
			name:       "voice cues",
			text:       "hello there",
			voice:      &fingerprint.VoiceSignals{SpeechRate: 200, RepetitionDetected: true},
			wantScore:  0.15,
			wantRisk:   RiskLow,
			wantTactic: []string{},
			wantSE:     []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Analyze(tt.text, AnalyzeText(tt.text), tt.voice)
			if math.Abs(p.ManipulationScore-tt.wantScore) > 0.001 {
				t.Errorf("ManipulationScore = %v, want %v", p.ManipulationScore, tt.wantScore)
			}
			if p.RiskLevel != tt.wantRisk {
				t.Errorf("RiskLevel = %v, want %v", p.RiskLevel, tt.wantRisk)
			}
			if !reflect.DeepEqual(p.PressureTactics, tt.wantTactic) {
				t.Errorf("PressureTactics = %v, want %v", p.PressureTactics, tt.wantTactic)
			}
			if !reflect.DeepEqual(p.SEIndicators, tt.wantSE) {
				t.Errorf("SEIndicators = %v, want %v", p.SEIndicators, tt.wantSE)
			}
		})
	}
}

func TestRiskLevel(t *testing.T) {
	tests := []struct {
		score   float64
		tactics int
		want    RiskLevel
	}{
		{0.8, 0, RiskCritical},
		{0.1, 4, RiskCritical},
		{0.6, 0, RiskHigh},
		{0.1, 3, RiskHigh},
		{0.3, 0, RiskMedium},
		{0.1, 2, RiskMedium},
		{0.29, 1, RiskLow},
	}
	for _, tt := range tests {
		if got := riskLevel(tt.score, tt.tactics); got != tt.want {
			t.Errorf("riskLevel(%v, %d) = %v, want %v", tt.score, tt.tactics, got, tt.want)
		}
	}
}

func TestProfileJSON(t *testing.T) {
	data, err := json.Marshal(Profile{RiskLevel: RiskHigh})
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out["risk_level"] != "HIGH" {
		t.Errorf("risk_level = %v, want HIGH", out["risk_level"])
	}
}
