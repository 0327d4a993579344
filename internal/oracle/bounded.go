package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("blocksafe.internal.oracle")

// Observer records oracle call outcomes. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveOracle(operation, status string, seconds float64)
}

// Bounded applies a per-call deadline to an oracle and records latency,
// outcome and a trace span for every call.
type Bounded struct {
	next      Oracle
	operation string
	timeout   time.Duration
	observer  Observer
}

// NewBounded wraps next. timeout must be positive; observer may be nil.
func NewBounded(next Oracle, operation string, timeout time.Duration, observer Observer) *Bounded {
	return &Bounded{
		next:      next,
		operation: operation,
		timeout:   timeout,
		observer:  observer,
	}
}

func (b *Bounded) Complete(ctx context.Context, req Request) (string, error) {
	ctx, span := tracer.Start(ctx, "oracle."+b.operation)
	defer span.End()
	span.SetAttributes(
		attribute.String("oracle.operation", b.operation),
		attribute.Int("oracle.prompt_len", len(req.Prompt)),
	)

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	text, err := b.next.Complete(ctx, req)
	elapsed := time.Since(start).Seconds()

	status := "ok"
	switch {
	case err == nil && text == "":
		err = ErrEmptyResponse
		status = "empty"
	case errors.Is(err, context.DeadlineExceeded) || (err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded)):
		err = fmt.Errorf("oracle %s timed out after %s: %w", b.operation, b.timeout, err)
		status = "timeout"
	case err != nil:
		status = "error"
	}

	if b.observer != nil {
		b.observer.ObserveOracle(b.operation, status, elapsed)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		return "", err
	}
	return text, nil
}
