package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/blocksafe/internal/decision"
	"github.com/MikeSquared-Agency/blocksafe/internal/pipeline"
	"github.com/MikeSquared-Agency/blocksafe/internal/report"
)

type Analyzer interface {
	Analyze(ctx context.Context, in pipeline.Input) (*report.Record, error)
}

// Config holds the batch command configuration.
type Config struct {
	InputPath string
	StatePath string
	// DefaultMode applies to items without a mode.
	DefaultMode decision.Mode
	// BatchSize items are analysed between state saves and pauses.
	BatchSize int
	Pause     time.Duration
}

// Runner orchestrates a batch run.
type Runner struct {
	cfg      Config
	analyzer Analyzer
	results  io.Writer
	logger   *slog.Logger
}

// NewRunner creates a runner. Records are written to results as JSONL when
// it is not nil.
func NewRunner(cfg Config, a Analyzer, results io.Writer, logger *slog.Logger) *Runner {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 25
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, analyzer: a, results: results, logger: logger}
}

// Run analyses every unprocessed item and returns the final state.
func (r *Runner) Run(ctx context.Context) (*State, error) {
	state, err := LoadState(r.cfg.StatePath)
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}

	items, bad, err := ReadItems(r.cfg.InputPath)
	if err != nil {
		return nil, fmt.Errorf("read items: %w", err)
	}
	for _, e := range bad {
		r.logger.Warn("skipping malformed line", "error", e)
		state.AddError(e.Error())
	}

	var pending []Item
	for _, it := range items {
		if !state.IsProcessed(it.ID) {
			pending = append(pending, it)
		}
	}
	state.Remaining = len(pending)
	r.logger.Info("items to process", "total", len(items), "pending", len(pending))

	var enc *json.Encoder
	if r.results != nil {
		enc = json.NewEncoder(r.results)
	}

	inBatch := 0
	for _, it := range pending {
		if err := ctx.Err(); err != nil {
			r.logger.Info("batch interrupted, saving state")
			_ = state.Save()
			return state, err
		}

		rec, err := r.analyse(ctx, it)
		if ctx.Err() != nil {
			// The item was abandoned mid-analysis; leave it for the next run.
			r.logger.Info("batch interrupted, saving state", "id", it.ID)
			_ = state.Save()
			return state, ctx.Err()
		}
		switch {
		case errors.Is(err, pipeline.ErrEmptyMessage):
			state.Skipped++
		case err != nil:
			r.logger.Error("analysis failed", "id", it.ID, "error", err)
			state.AddError(fmt.Sprintf("%s: %v", it.ID, err))
		default:
			state.Analysed++
			state.Evidence[rec.EvidenceLevel.String()]++
			if rec.IsScam {
				state.ScamsFound++
			}
			if enc != nil {
				if err := enc.Encode(rec); err != nil {
					return state, fmt.Errorf("write result: %w", err)
				}
			}
			r.logger.Info("item analysed",
				"id", it.ID,
				"request_id", rec.RequestID,
				"is_scam", rec.IsScam,
				"evidence_level", rec.EvidenceLevel.String(),
			)
		}

		state.MarkProcessed(it.ID)
		state.Remaining--
		inBatch++

		if inBatch >= r.cfg.BatchSize {
			inBatch = 0
			if err := state.Save(); err != nil {
				r.logger.Warn("failed to save state", "error", err)
			}
			if r.cfg.Pause > 0 {
				select {
				case <-ctx.Done():
					_ = state.Save()
					return state, ctx.Err()
				case <-time.After(r.cfg.Pause):
				}
			}
		}
	}

	if err := state.Save(); err != nil {
		return state, fmt.Errorf("save state: %w", err)
	}
	r.logger.Info("batch complete",
		"analysed", state.Analysed,
		"skipped", state.Skipped,
		"scams_found", state.ScamsFound,
		"errors", len(state.Errors),
	)
	return state, nil
}

func (r *Runner) analyse(ctx context.Context, it Item) (*report.Record, error) {
	mode := r.cfg.DefaultMode
	if it.Mode != "" {
		m, err := decision.ParseMode(it.Mode)
		if err != nil {
			return nil, err
		}
		mode = m
	}
	return r.analyzer.Analyze(ctx, pipeline.Input{
		Message:   it.Message,
		Mode:      mode,
		SessionID: it.SessionID,
		Voice:     it.Voice,
		FollowUps: it.FollowUps,
	})
}

// FormatSummary renders a run's totals for the terminal.
func FormatSummary(s *State) string {
	var sb strings.Builder
	sb.WriteString("\n=== Batch Summary ===\n")
	fmt.Fprintf(&sb, "Analysed: %d\n", s.Analysed)
	fmt.Fprintf(&sb, "Skipped (empty): %d\n", s.Skipped)
	fmt.Fprintf(&sb, "Scams found: %d\n", s.ScamsFound)

	levels := make([]string, 0, len(s.Evidence))
	for l := range s.Evidence {
		levels = append(levels, l)
	}
	sort.Strings(levels)
	for _, l := range levels {
		fmt.Fprintf(&sb, "  %s: %d\n", l, s.Evidence[l])
	}

	fmt.Fprintf(&sb, "Errors: %d\n", len(s.Errors))
	fmt.Fprintf(&sb, "State file: %s\n", s.path)
	return sb.String()
}
