// Package classifier turns a message into a scam verdict using a language
// model, local entity extraction and a short-lived verdict cache.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/blocksafe/internal/cache"
	"github.com/MikeSquared-Agency/blocksafe/internal/entities"
	"github.com/MikeSquared-Agency/blocksafe/internal/oracle"
)

var tracer = otel.Tracer("blocksafe.internal.classifier")

const (
	maxTokens         = 512
	parseFailedReason = "Response parsing failed, using fallback classification"
	fallbackCap       = 0.3
)

// CacheObserver records verdict cache lookups. *metrics.Metrics satisfies it.
type CacheObserver interface {
	ObserveCache(hit bool)
}

type Classifier struct {
	oracle   oracle.Oracle
	cache    *cache.TTL[string, Verdict]
	logger   *slog.Logger
	observer CacheObserver
}

// NewCache builds a verdict cache that hands out deep copies.
func NewCache(size int, ttl time.Duration) *cache.TTL[string, Verdict] {
	return cache.NewTTL[string, Verdict](size, ttl, cache.WithCopy[string, Verdict](Verdict.Clone))
}

// New creates a classifier. o is expected to carry its own deadline (see
// oracle.Bounded). verdicts and observer may be nil.
func New(o oracle.Oracle, verdicts *cache.TTL[string, Verdict], logger *slog.Logger, observer CacheObserver) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		oracle:   o,
		cache:    verdicts,
		logger:   logger,
		observer: observer,
	}
}

type oracleAnswer struct {
	IsScam     bool    `json:"is_scam"`
	Confidence float64 `json:"confidence"`
	ScamType   *string `json:"scam_type"`
	Reasoning  string  `json:"reasoning"`
}

// Classify never fails: oracle errors and malformed answers degrade to a
// conservative local verdict.
func (c *Classifier) Classify(ctx context.Context, text string) Verdict {
	ctx, span := tracer.Start(ctx, "classifier.classify")
	defer span.End()

	if v, ok := c.lookup(text); ok {
		span.SetAttributes(attribute.Bool("classifier.cache_hit", true))
		return v
	}
	span.SetAttributes(attribute.Bool("classifier.cache_hit", false))

	var (
		found entities.Set
		raw   string
		g     errgroup.Group
	)
	g.Go(func() error {
		found = entities.Extract(text)
		return nil
	})
	g.Go(func() error {
		var err error
		raw, err = c.oracle.Complete(ctx, oracle.Request{
			System:      systemPrompt,
			Prompt:      fmt.Sprintf(classificationPrompt, text),
			MaxTokens:   maxTokens,
			Temperature: 0,
			TopP:        0.95,
		})
		return err
	})
	// A plain Group waits for extraction even when the oracle fails, so
	// the degraded verdict still carries the entities.
	if oracleErr := g.Wait(); oracleErr != nil {
		c.logger.Error("classification failed",
			"error", oracleErr,
			"preview", entities.Mask(text),
		)
		span.RecordError(oracleErr)
		return errorVerdict(oracleErr, found)
	}

	v, err := parseAnswer(raw)
	if err != nil {
		c.logger.Warn("failed to parse classification response",
			"error", err,
			"raw_len", len(raw),
		)
		v = heuristicVerdict(raw, found.Count())
	}
	v.Entities = found
	v = calibrate(v)

	span.SetAttributes(
		attribute.Bool("classifier.is_scam", v.IsScam),
		attribute.Float64("classifier.confidence", v.Confidence),
	)

	if c.cache != nil {
		c.cache.Set(text, v)
	}
	return v
}

func (c *Classifier) lookup(text string) (Verdict, bool) {
	if c.cache == nil {
		return Verdict{}, false
	}
	v, ok := c.cache.Get(text)
	if c.observer != nil {
		c.observer.ObserveCache(ok)
	}
	if ok {
		c.logger.Debug("classification cache hit")
	}
	return v, ok
}

func parseAnswer(raw string) (Verdict, error) {
	var ans oracleAnswer
	if err := json.Unmarshal([]byte(stripFences(raw)), &ans); err != nil {
		return Verdict{}, fmt.Errorf("parse classification: %w", err)
	}
	v := Verdict{
		IsScam:     ans.IsScam,
		Confidence: clamp(ans.Confidence),
		Reasoning:  ans.Reasoning,
	}
	if ans.ScamType != nil {
		v.ScamType = ParseScamType(strings.TrimSpace(*ans.ScamType))
	}
	return v, nil
}

// stripFences removes markdown code fence lines around a JSON answer.
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if !strings.HasPrefix(strings.TrimSpace(l), "```") {
			kept = append(kept, l)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func heuristicVerdict(raw string, entityCount int) Verdict {
	lower := strings.ToLower(raw)
	isScam := strings.Contains(lower, "is_scam") && strings.Contains(lower, "true")
	base := 0.05
	if isScam {
		base = 0.15
	}
	return Verdict{
		IsScam:     isScam,
		Confidence: round2(math.Min(base+0.05*float64(entityCount), fallbackCap)),
		Reasoning:  parseFailedReason,
	}
}

func errorVerdict(err error, found entities.Set) Verdict {
	n := len(found.PhoneNumbers) + len(found.PaymentHandles) + len(found.URLs)
	return Verdict{
		IsScam:     false,
		Confidence: round2(math.Min(0.1*float64(n), fallbackCap)),
		Reasoning:  "Classification error: " + err.Error(),
		Entities:   found,
	}
}

// calibrate lifts a zero-confidence benign verdict when financial
// identifiers are present.
func calibrate(v Verdict) Verdict {
	n := v.Entities.Count()
	if !v.IsScam && v.Confidence == 0 && n > 0 {
		v.Confidence = round2(math.Min(0.1+0.05*float64(n), fallbackCap))
	}
	return v
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
