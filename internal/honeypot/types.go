package honeypot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/MikeSquared-Agency/blocksafe/internal/entities"
)

// Reason records why an engagement stopped. It is set exactly once.
type Reason int

const (
	ReasonMaxTurns Reason = iota + 1
	ReasonNoNewEntities
	ReasonRepeatedPattern
	ReasonSufficientIntelligence
	ReasonError
	ReasonShieldMode
	ReasonScammerStopped
)

func (r Reason) String() string {
	switch r {
	case ReasonMaxTurns:
		return "max_turns_reached"
	case ReasonNoNewEntities:
		return "no_new_entities_in_last_turns"
	case ReasonRepeatedPattern:
		return "repeated_scammer_pattern"
	case ReasonSufficientIntelligence:
		return "sufficient_intelligence_gathered"
	case ReasonError:
		return "error_during_engagement"
	case ReasonShieldMode:
		return "shield_mode_no_engagement"
	case ReasonScammerStopped:
		return "scammer_stopped_responding"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

func (r Reason) MarshalJSON() ([]byte, error) { return json.Marshal(r.String()) }

// Turn is one inbound/outbound exchange. Turn numbers start at 1.
type Turn struct {
	Number   int          `json:"turn_number"`
	Inbound  string       `json:"scammer_message"`
	Outbound string       `json:"agent_response"`
	Entities entities.Set `json:"entities_extracted"`
}

// Result is the finalized outcome of one engagement.
type Result struct {
	Engaged        bool         `json:"engaged"`
	TurnsCompleted int          `json:"turns_completed"`
	Reason         Reason       `json:"termination_reason"`
	Entities       entities.Set `json:"all_entities"`
	Summary        string       `json:"conversation_summary"`
	Turns          []Turn       `json:"conversation_history"`
	// Response is the deflection reply returned to the user in shield mode.
	Response string `json:"response,omitempty"`
}

// Conversation supplies the scammer's messages after the opening one.
// Next returns ok=false once the scammer has nothing more to say.
type Conversation interface {
	Next(ctx context.Context) (msg string, ok bool, err error)
}

// Script is a Conversation backed by a fixed list of messages.
type Script struct {
	msgs []string
	pos  int
}

func NewScript(msgs ...string) *Script {
	return &Script{msgs: msgs}
}

func (s *Script) Next(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if s == nil || s.pos >= len(s.msgs) {
		return "", false, nil
	}
	msg := s.msgs[s.pos]
	s.pos++
	return msg, true, nil
}
