// Package pipeline runs one message through classification, fingerprinting,
// the decision engine and, when warranted, the honeypot, then fans the
// resulting record out to storage, the event bus and alerting.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/blocksafe/internal/behavior"
	"github.com/MikeSquared-Agency/blocksafe/internal/classifier"
	"github.com/MikeSquared-Agency/blocksafe/internal/decision"
	"github.com/MikeSquared-Agency/blocksafe/internal/entities"
	"github.com/MikeSquared-Agency/blocksafe/internal/fingerprint"
	"github.com/MikeSquared-Agency/blocksafe/internal/hermes"
	"github.com/MikeSquared-Agency/blocksafe/internal/honeypot"
	"github.com/MikeSquared-Agency/blocksafe/internal/report"
	"github.com/MikeSquared-Agency/blocksafe/internal/session"
)

var tracer = otel.Tracer("blocksafe.internal.pipeline")

// ErrEmptyMessage is returned for input with no visible content.
var ErrEmptyMessage = errors.New("message is empty")

type Classifier interface {
	Classify(ctx context.Context, text string) classifier.Verdict
}

type Engager interface {
	Engage(ctx context.Context, e honeypot.Engagement) honeypot.Result
}

type Publisher interface {
	Publish(subject string, data any) error
}

type RecordStore interface {
	SaveRecord(ctx context.Context, rec *report.Record) error
}

type Alerter interface {
	Alert(ctx context.Context, rec *report.Record) error
}

// Observer records finished analyses. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveAnalysis(mode string, isScam bool, tier string, seconds float64)
}

// Deps wires a Pipeline. Classifier, Engine and Honeypot are required;
// every sink may be nil.
type Deps struct {
	Classifier Classifier
	Engine     *decision.Engine
	Honeypot   Engager
	Sessions   session.Log
	Store      RecordStore
	Publisher  Publisher
	Alerter    Alerter
	Metrics    Observer
	Logger     *slog.Logger
}

type Pipeline struct {
	classifier Classifier
	engine     *decision.Engine
	honeypot   Engager
	sessions   session.Log
	store      RecordStore
	publisher  Publisher
	alerter    Alerter
	metrics    Observer
	logger     *slog.Logger
}

func New(d Deps) *Pipeline {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Engine == nil {
		d.Engine = decision.NewEngine(decision.DefaultThreshold)
	}
	return &Pipeline{
		classifier: d.Classifier,
		engine:     d.Engine,
		honeypot:   d.Honeypot,
		sessions:   d.Sessions,
		store:      d.Store,
		publisher:  d.Publisher,
		alerter:    d.Alerter,
		metrics:    d.Metrics,
		logger:     d.Logger,
	}
}

// Input is one message to analyse.
type Input struct {
	Message   string
	Mode      decision.Mode
	SessionID string
	Voice     *fingerprint.VoiceSignals
	// FollowUps are later scammer messages, fed to the honeypot in order.
	FollowUps []string
}

// Analyze produces the record for one message. Downstream failures degrade
// and are logged. It fails only with ErrEmptyMessage, or with the context's
// error when the caller gives up mid-analysis; an abandoned analysis leaves
// no trace in the session log or any sink.
func (p *Pipeline) Analyze(ctx context.Context, in Input) (*report.Record, error) {
	text := entities.Sanitize(in.Message)
	if entities.IsBlank(text) {
		return nil, ErrEmptyMessage
	}

	start := time.Now()
	requestID := uuid.NewString()
	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ctx, span := tracer.Start(ctx, "pipeline.analyze")
	defer span.End()
	span.SetAttributes(
		attribute.String("blocksafe.request_id", requestID),
		attribute.String("blocksafe.mode", in.Mode.String()),
	)

	// Recent must be read before this message is appended, otherwise the
	// opening would always match itself.
	recent := p.recent(ctx, sessionID)
	voice := fingerprint.NormalizeVoice(in.Voice, text)
	followUps := sanitizeAll(in.FollowUps)

	var (
		verdict classifier.Verdict
		profile fingerprint.Profile
		signals behavior.TextSignals
		conduct behavior.Profile
	)
	// Neither stage fails: the classifier degrades to a local verdict, so
	// the group only joins them.
	var g errgroup.Group
	g.Go(func() error {
		verdict = p.classifier.Classify(ctx, text)
		return nil
	})
	g.Go(func() error {
		profile = fingerprint.Analyze(text, voice)
		signals = behavior.AnalyzeText(text)
		conduct = behavior.Analyze(text, signals, voice)
		return nil
	})
	_ = g.Wait()
	if err := p.abandoned(ctx, requestID, "classify"); err != nil {
		return nil, err
	}

	dec := p.engine.Evaluate(verdict, profile, in.Mode)

	var engagement *honeypot.Result
	if verdict.IsScam && (in.Mode == decision.ModeShield || dec.ShouldEngage) {
		res := p.honeypot.Engage(ctx, honeypot.Engagement{
			RequestID:    requestID,
			Opening:      text,
			Mode:         in.Mode,
			Seed:         verdict.Entities,
			Recent:       recent,
			Conversation: honeypot.NewScript(followUps...),
		})
		engagement = &res
	}
	if err := p.abandoned(ctx, requestID, "engage"); err != nil {
		return nil, err
	}

	if p.sessions != nil {
		if err := p.sessions.Append(ctx, sessionID, text); err != nil {
			p.logger.Warn("session append failed", "session_id", sessionID, "error", err)
		}
	}

	rec := report.Build(report.Input{
		RequestID:   requestID,
		SessionID:   sessionID,
		Message:     text,
		Mode:        in.Mode,
		Verdict:     verdict,
		Profile:     profile,
		Decision:    dec,
		Voice:       voice,
		TextSignals: &signals,
		Behavior:    &conduct,
		Engagement:  engagement,
	})

	span.SetAttributes(
		attribute.Bool("blocksafe.is_scam", rec.IsScam),
		attribute.String("blocksafe.evidence_level", rec.EvidenceLevel.String()),
	)

	// Completed analyses are delivered even if the caller leaves now.
	p.deliver(context.WithoutCancel(ctx), rec)

	elapsed := time.Since(start).Seconds()
	if p.metrics != nil {
		p.metrics.ObserveAnalysis(in.Mode.String(), rec.IsScam, dec.ConfidenceTier.String(), elapsed)
	}
	p.logger.Info("analysis complete",
		"request_id", rec.RequestID,
		"session_id", rec.SessionID,
		"mode", in.Mode.String(),
		"is_scam", rec.IsScam,
		"confidence", rec.Confidence,
		"evidence_level", rec.EvidenceLevel.String(),
		"entities", rec.Entities.Count(),
		"preview", entities.Mask(text),
		"duration_ms", int64(elapsed*1000),
	)
	return rec, nil
}

// abandoned reports the context error once the caller has gone. Results
// computed under a cancelled context are partial and are dropped.
func (p *Pipeline) abandoned(ctx context.Context, requestID, stage string) error {
	if err := ctx.Err(); err != nil {
		p.logger.Warn("analysis abandoned", "request_id", requestID, "stage", stage, "error", err)
		return fmt.Errorf("analysis abandoned during %s: %w", stage, err)
	}
	return nil
}

// sanitizeAll cleans follow-up messages the same way as the opening and
// drops the blank ones.
func sanitizeAll(msgs []string) []string {
	var out []string
	for _, m := range msgs {
		m = entities.Sanitize(m)
		if !entities.IsBlank(m) {
			out = append(out, m)
		}
	}
	return out
}

func (p *Pipeline) recent(ctx context.Context, sessionID string) []string {
	if p.sessions == nil {
		return nil
	}
	recent, err := p.sessions.Recent(ctx, sessionID)
	if err != nil {
		p.logger.Warn("session lookup failed", "session_id", sessionID, "error", err)
		return nil
	}
	return recent
}

// deliver hands the record to every configured sink. Sink failures are
// logged and never reach the caller.
func (p *Pipeline) deliver(ctx context.Context, rec *report.Record) {
	if p.store != nil {
		if err := p.store.SaveRecord(ctx, rec); err != nil {
			p.logger.Error("failed to persist record", "request_id", rec.RequestID, "error", err)
		}
	}

	if p.publisher != nil {
		evt := hermes.AnalysisCompleted{
			RequestID:     rec.RequestID,
			SessionID:     rec.SessionID,
			Timestamp:     rec.Timestamp,
			IsScam:        rec.IsScam,
			Confidence:    rec.Confidence,
			ScamType:      rec.ScamType.String(),
			EvidenceLevel: rec.EvidenceLevel.String(),
			Mode:          rec.Mode.String(),
			EntityCount:   rec.Entities.Count(),
		}
		if err := p.publisher.Publish(hermes.SubjectAnalysisCompleted, evt); err != nil {
			p.logger.Error("failed to publish analysis", "request_id", rec.RequestID, "error", err)
		}

		if h := rec.Honeypot; h != nil && h.Reason != honeypot.ReasonShieldMode {
			if err := p.publisher.Publish(hermes.SubjectHoneypotTerminated, hermes.HoneypotTerminated{
				RequestID:         rec.RequestID,
				SessionID:         rec.SessionID,
				TurnsCompleted:    h.TurnsCompleted,
				TerminationReason: h.Reason.String(),
				Entities:          h.Entities,
			}); err != nil {
				p.logger.Error("failed to publish honeypot result", "request_id", rec.RequestID, "error", err)
			}
		}
	}

	if p.alerter != nil && rec.IsScam && rec.EvidenceLevel == report.EvidenceHigh {
		if err := p.alerter.Alert(ctx, rec); err != nil {
			p.logger.Error("alert failed", "request_id", rec.RequestID, "error", err)
		}
	}
}

// HandleTranscriptReady is the NATS handler for blocksafe.transcript.ready.
func (p *Pipeline) HandleTranscriptReady(subject string, data []byte) {
	ctx := context.Background()

	var evt hermes.TranscriptReady
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse transcript event", "subject", subject, "error", err)
		return
	}

	mode := decision.ModeShield
	if evt.Mode != "" {
		m, err := decision.ParseMode(evt.Mode)
		if err != nil {
			p.logger.Error("invalid transcript mode", "session_id", evt.SessionID, "error", err)
			return
		}
		mode = m
	}

	rec, err := p.Analyze(ctx, Input{
		Message:   evt.Transcript,
		Mode:      mode,
		SessionID: evt.SessionID,
		Voice:     evt.Voice,
		FollowUps: evt.FollowUps,
	})
	if err != nil {
		p.logger.Warn("transcript skipped", "session_id", evt.SessionID, "error", err)
		return
	}
	p.logger.Info("transcript analysed",
		"session_id", rec.SessionID,
		"request_id", rec.RequestID,
		"evidence_level", rec.EvidenceLevel.String(),
	)
}
