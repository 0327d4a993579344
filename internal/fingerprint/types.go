package fingerprint

import (
	"encoding/json"
	"fmt"
)

// Authority is an institution a scammer claims to represent.
type Authority int

const (
	AuthorityRBI Authority = iota + 1
	AuthorityPolice
	AuthorityBank
	AuthorityGovernment
	AuthorityTelecom
	AuthorityTechCompany
	AuthorityCustoms
)

func (a Authority) String() string {
	switch a {
	case AuthorityRBI:
		return "RBI"
	case AuthorityPolice:
		return "Police"
	case AuthorityBank:
		return "Bank"
	case AuthorityGovernment:
		return "Government"
	case AuthorityTelecom:
		return "Telecom"
	case AuthorityTechCompany:
		return "Tech Company"
	case AuthorityCustoms:
		return "Customs"
	default:
		return fmt.Sprintf("Authority(%d)", int(a))
	}
}

func (a Authority) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *Authority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, c := range authorityCatalog {
		if c.authority.String() == s {
			*a = c.authority
			return nil
		}
	}
	return fmt.Errorf("unknown authority %q", s)
}

// Channel is an out-of-band channel a scammer tries to move the victim to.
// The zero value means no redirect was detected.
type Channel int

const (
	ChannelNone Channel = iota
	ChannelWhatsApp
	ChannelTelegram
	ChannelDirectCall
	ChannelEmail
	ChannelWebsite
)

func (c Channel) String() string {
	switch c {
	case ChannelNone:
		return ""
	case ChannelWhatsApp:
		return "WhatsApp"
	case ChannelTelegram:
		return "Telegram"
	case ChannelDirectCall:
		return "Direct Call"
	case ChannelEmail:
		return "Email"
	case ChannelWebsite:
		return "Website"
	default:
		return fmt.Sprintf("Channel(%d)", int(c))
	}
}

func (c Channel) MarshalJSON() ([]byte, error) {
	if c == ChannelNone {
		return []byte("null"), nil
	}
	return json.Marshal(c.String())
}

func (c *Channel) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = ChannelNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, cc := range channelCatalog {
		if cc.channel.String() == s {
			*c = cc.channel
			return nil
		}
	}
	return fmt.Errorf("unknown channel %q", s)
}

// VoiceSignals are acoustic features computed upstream from a call recording.
type VoiceSignals struct {
	SpeechRate         float64  `json:"speech_rate"`
	UrgencyIndicators  []string `json:"urgency_indicators"`
	RepetitionDetected bool     `json:"repetition_detected"`
}

// Profile is the strategy fingerprint of a single message.
type Profile struct {
	UrgencyScore        float64     `json:"urgency_score"`
	AuthorityClaims     []Authority `json:"authority_claims"`
	PaymentEscalation   bool        `json:"payment_escalation"`
	ChannelSwitchIntent Channel     `json:"channel_switch_intent"`
	UrgencyPhrases      []string    `json:"urgency_phrases"`
	StrategySummary     string      `json:"strategy_summary"`
}

// HighUrgency is the urgency score at which pressure counts as a risk factor.
const HighUrgency = 0.7
