package classifier

import (
	"encoding/json"

	"github.com/MikeSquared-Agency/blocksafe/internal/entities"
)

// ScamType is the closed set of scam categories the oracle may report.
type ScamType string

const (
	ScamTypeNone                    ScamType = ""
	ScamTypeCardFraud               ScamType = "card_fraud"
	ScamTypeBankImpersonation       ScamType = "bank_impersonation"
	ScamTypeUPIFraud                ScamType = "upi_fraud"
	ScamTypePhishing                ScamType = "phishing"
	ScamTypeLottery                 ScamType = "lottery_scam"
	ScamTypeTechSupport             ScamType = "tech_support_scam"
	ScamTypeInvestment              ScamType = "investment_scam"
	ScamTypeRomance                 ScamType = "romance_scam"
	ScamTypeJob                     ScamType = "job_scam"
	ScamTypeGovernmentImpersonation ScamType = "government_impersonation"
)

var knownScamTypes = map[ScamType]bool{
	ScamTypeCardFraud:               true,
	ScamTypeBankImpersonation:       true,
	ScamTypeUPIFraud:                true,
	ScamTypePhishing:                true,
	ScamTypeLottery:                 true,
	ScamTypeTechSupport:             true,
	ScamTypeInvestment:              true,
	ScamTypeRomance:                 true,
	ScamTypeJob:                     true,
	ScamTypeGovernmentImpersonation: true,
}

// ParseScamType maps s onto a known category. Unknown values yield ScamTypeNone.
func ParseScamType(s string) ScamType {
	t := ScamType(s)
	if knownScamTypes[t] {
		return t
	}
	return ScamTypeNone
}

func (t ScamType) String() string { return string(t) }

// MarshalJSON encodes ScamTypeNone as null.
func (t ScamType) MarshalJSON() ([]byte, error) {
	if t == ScamTypeNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(t))
}

func (t *ScamType) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = ScamTypeNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseScamType(s)
	return nil
}

// Verdict is the outcome of classifying one message.
type Verdict struct {
	IsScam     bool         `json:"is_scam"`
	Confidence float64      `json:"confidence"`
	ScamType   ScamType     `json:"scam_type"`
	Reasoning  string       `json:"reasoning"`
	Entities   entities.Set `json:"extracted_entities"`
}

// Clone returns a deep copy of v.
func (v Verdict) Clone() Verdict {
	v.Entities = v.Entities.Clone()
	return v
}
