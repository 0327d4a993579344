// Package honeypot runs a bounded, oracle-driven conversation with a
// suspected scammer to draw out payment identifiers.
package honeypot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/MikeSquared-Agency/blocksafe/internal/decision"
	"github.com/MikeSquared-Agency/blocksafe/internal/entities"
	"github.com/MikeSquared-Agency/blocksafe/internal/oracle"
)

var tracer = otel.Tracer("blocksafe.internal.honeypot")

const (
	// SufficientEntities ends an engagement once this many identifiers are known.
	SufficientEntities = 5

	// RecentWindow is how many past inbound messages the repetition check sees.
	RecentWindow = 3

	historyTurns  = 3
	replyTokens   = 256
	overlapCutoff = 0.8
)

// Observer records finished engagements. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveEngagement(reason string, turns int)
}

// Config bounds an engagement.
type Config struct {
	MaxTurns        int
	NoProgressTurns int
}

type Agent struct {
	oracle   oracle.Oracle
	cfg      Config
	logger   *slog.Logger
	observer Observer
}

// Engagement is the input to one honeypot run.
type Engagement struct {
	RequestID string
	// Opening is the scammer message that triggered the engagement.
	Opening string
	Mode    decision.Mode
	// Seed holds identifiers already extracted by classification.
	Seed entities.Set
	// Recent is the session's prior inbound messages, oldest first.
	Recent []string
	// Conversation yields later scammer messages. Nil means none.
	Conversation Conversation
}

// NewAgent creates an agent. o is expected to carry its own deadline (see
// oracle.Bounded). Non-positive limits fall back to 5 turns and 2
// no-progress turns.
func NewAgent(o oracle.Oracle, cfg Config, logger *slog.Logger, observer Observer) *Agent {
	if cfg.MaxTurns < 1 {
		cfg.MaxTurns = 5
	}
	if cfg.NoProgressTurns < 1 {
		cfg.NoProgressTurns = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{oracle: o, cfg: cfg, logger: logger, observer: observer}
}

// Engage runs the engagement to termination and returns its finalized result.
func (a *Agent) Engage(ctx context.Context, e Engagement) Result {
	ctx, span := tracer.Start(ctx, "honeypot.engage")
	defer span.End()

	var res Result
	if e.Mode != decision.ModeHoneypot {
		res = Result{
			Reason:   ReasonShieldMode,
			Entities: e.Seed.Clone(),
			Summary:  shieldSummary,
			Turns:    []Turn{},
			Response: ShieldResponse,
		}
	} else {
		res = a.run(ctx, e)
	}

	span.SetAttributes(
		attribute.String("honeypot.termination_reason", res.Reason.String()),
		attribute.Int("honeypot.turns", res.TurnsCompleted),
	)
	if a.observer != nil {
		a.observer.ObserveEngagement(res.Reason.String(), res.TurnsCompleted)
	}
	a.logger.Info("honeypot engagement finished",
		"request_id", e.RequestID,
		"turns", res.TurnsCompleted,
		"reason", res.Reason.String(),
		"entities", res.Entities.Count(),
	)
	return res
}

func (a *Agent) run(ctx context.Context, e Engagement) Result {
	var (
		turns      []Turn
		all        = e.Seed.Clone()
		prevCount  = all.Count()
		noProgress int
		window     = lastN(e.Recent, RecentWindow)
		inbound    = e.Opening
	)

	for turn := 1; turn <= a.cfg.MaxTurns; turn++ {
		if isRepeated(inbound, window) {
			return finish(turns, all, ReasonRepeatedPattern)
		}
		window = lastN(append(window, inbound), RecentWindow)

		reply, err := a.reply(ctx, inbound, turns)
		if err != nil {
			a.logger.Error("honeypot turn failed",
				"request_id", e.RequestID,
				"turn", turn,
				"error", err,
			)
			return finish(turns, all, ReasonError)
		}

		found := entities.Extract(inbound + " " + reply)
		all = entities.Merge(all, found)
		turns = append(turns, Turn{
			Number:   turn,
			Inbound:  inbound,
			Outbound: reply,
			Entities: found,
		})

		count := all.Count()
		if count == prevCount {
			noProgress++
		} else {
			noProgress = 0
			prevCount = count
		}
		if noProgress >= a.cfg.NoProgressTurns {
			return finish(turns, all, ReasonNoNewEntities)
		}
		if count >= SufficientEntities {
			return finish(turns, all, ReasonSufficientIntelligence)
		}
		if turn == a.cfg.MaxTurns {
			break
		}

		next, ok, err := a.next(ctx, e.Conversation)
		if err != nil {
			a.logger.Error("honeypot conversation failed",
				"request_id", e.RequestID,
				"turn", turn,
				"error", err,
			)
			return finish(turns, all, ReasonError)
		}
		if !ok {
			return finish(turns, all, ReasonScammerStopped)
		}
		inbound = next
	}

	return finish(turns, all, ReasonMaxTurns)
}

func (a *Agent) reply(ctx context.Context, inbound string, turns []Turn) (string, error) {
	text, err := a.oracle.Complete(ctx, oracle.Request{
		System:      personaSystemPrompt,
		Prompt:      fmt.Sprintf(engagementPrompt, inbound, formatHistory(turns)),
		MaxTokens:   replyTokens,
		Temperature: 0.7,
		TopP:        0.95,
	})
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (a *Agent) next(ctx context.Context, c Conversation) (string, bool, error) {
	if c == nil {
		return "", false, nil
	}
	msg, ok, err := c.Next(ctx)
	if err != nil {
		return "", false, fmt.Errorf("next inbound message: %w", err)
	}
	return msg, ok, nil
}

func finish(turns []Turn, all entities.Set, reason Reason) Result {
	if turns == nil {
		turns = []Turn{}
	}
	return Result{
		Engaged:        len(turns) > 0,
		TurnsCompleted: len(turns),
		Reason:         reason,
		Entities:       all,
		Summary:        Summarize(turns, all, reason),
		Turns:          turns,
	}
}

func formatHistory(turns []Turn) string {
	if len(turns) == 0 {
		return noHistory
	}
	if len(turns) > historyTurns {
		turns = turns[len(turns)-historyTurns:]
	}
	lines := make([]string, 0, 2*len(turns))
	for _, t := range turns {
		lines = append(lines, "Scammer: "+t.Inbound, "You: "+t.Outbound)
	}
	return strings.Join(lines, "\n")
}

// isRepeated reports whether msg matches any message in window after case
// folding, or shares more than 80% of its distinct words with one.
func isRepeated(msg string, window []string) bool {
	cur := strings.ToLower(strings.TrimSpace(msg))
	curWords := wordSet(cur)
	for _, prev := range window {
		p := strings.ToLower(strings.TrimSpace(prev))
		if cur == p {
			return true
		}
		prevWords := wordSet(p)
		if len(curWords) == 0 || len(prevWords) == 0 {
			continue
		}
		shared := 0
		for w := range curWords {
			if prevWords[w] {
				shared++
			}
		}
		if float64(shared)/float64(max(len(curWords), len(prevWords))) > overlapCutoff {
			return true
		}
	}
	return false
}

func wordSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}

func lastN(msgs []string, n int) []string {
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]string, len(msgs))
	copy(out, msgs)
	return out
}

// Summarize renders the human-readable account of an engagement.
func Summarize(turns []Turn, all entities.Set, reason Reason) string {
	if len(turns) == 0 {
		return "No engagement performed. Reason: " + reason.String()
	}
	parts := []string{
		fmt.Sprintf("Honeypot engaged for %d turn(s).", len(turns)),
		fmt.Sprintf("Extracted %d total entities.", all.Count()),
		fmt.Sprintf("Termination: %s.", reason),
	}
	if len(all.PaymentHandles) > 0 {
		parts = append(parts, "UPI IDs found: "+strings.Join(all.PaymentHandles, ", "))
	}
	if len(all.BankAccounts) > 0 {
		parts = append(parts, "Bank accounts found: "+strings.Join(all.BankAccounts, ", "))
	}
	if len(all.URLs) > 0 {
		parts = append(parts, "URLs found: "+strings.Join(all.URLs, ", "))
	}
	return strings.Join(parts, " ")
}
