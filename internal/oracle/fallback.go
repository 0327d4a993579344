package oracle

import (
	"context"
	"log/slog"
	"time"
)

// Fallback wraps a primary oracle with a secondary provider. If the primary
// fails, the request is retried once against the fallback.
type Fallback struct {
	primary  Oracle
	fallback Oracle
	logger   *slog.Logger
}

// NewFallback creates a fallback-enabled oracle. A nil fallback means only
// the primary is used.
func NewFallback(primary, fallback Oracle, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// NewBoundedFallback bounds primary and fallback separately, so a primary
// that times out still leaves the fallback its full deadline. A nil fallback
// means only the primary is used.
func NewBoundedFallback(primary, fallback Oracle, operation string, timeout time.Duration, observer Observer, logger *slog.Logger) *Fallback {
	var secondary Oracle
	if fallback != nil {
		secondary = NewBounded(fallback, operation, timeout, observer)
	}
	return NewFallback(NewBounded(primary, operation, timeout, observer), secondary, logger)
}

func (f *Fallback) Complete(ctx context.Context, req Request) (string, error) {
	text, err := f.primary.Complete(ctx, req)
	if err == nil {
		return text, nil
	}

	f.logger.Warn("primary oracle failed, attempting fallback",
		"error", err.Error(),
		"fallback_available", f.fallback != nil,
	)

	if f.fallback == nil {
		return "", err
	}
	// The caller's own context is done; report the primary cause.
	if ctx.Err() != nil {
		return "", err
	}

	text, fbErr := f.fallback.Complete(ctx, req)
	if fbErr != nil {
		f.logger.Error("fallback oracle also failed",
			"primary_error", err.Error(),
			"fallback_error", fbErr.Error(),
		)
		return "", fbErr
	}

	f.logger.Info("fallback oracle succeeded after primary failure")
	return text, nil
}
