package oracle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingObserver struct {
	calls []string
}

func (r *recordingObserver) ObserveOracle(operation, status string, _ float64) {
	r.calls = append(r.calls, operation+":"+status)
}

func static(text string, err error) Func {
	return func(ctx context.Context, req Request) (string, error) {
		return text, err
	}
}

func TestFallback_PrimarySucceeds(t *testing.T) {
	fallbackCalled := false
	fb := NewFallback(static("primary", nil), Func(func(ctx context.Context, req Request) (string, error) {
		fallbackCalled = true
		return "fallback", nil
	}), discardLogger())

	got, err := fb.Complete(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "primary", got)
	assert.False(t, fallbackCalled)
}

func TestFallback_UsesFallbackOnError(t *testing.T) {
	fb := NewFallback(static("", errors.New("boom")), static("fallback", nil), discardLogger())

	got, err := fb.Complete(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)
}

func TestFallback_BothFail(t *testing.T) {
	fb := NewFallback(static("", errors.New("primary down")), static("", errors.New("fallback down")), discardLogger())

	_, err := fb.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback down")
}

func TestFallback_NoFallbackConfigured(t *testing.T) {
	fb := NewFallback(static("", errors.New("primary down")), nil, nil)

	_, err := fb.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary down")
}

func TestBoundedFallback_PrimaryTimeoutLeavesFallbackBudget(t *testing.T) {
	slow := Func(func(ctx context.Context, req Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	secondaryCalled := false
	fast := Func(func(ctx context.Context, req Request) (string, error) {
		secondaryCalled = true
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "from fallback", nil
	})
	obs := &recordingObserver{}
	fb := NewBoundedFallback(slow, fast, "classify", 30*time.Millisecond, obs, discardLogger())

	got, err := fb.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.True(t, secondaryCalled)
	assert.Equal(t, "from fallback", got)
	assert.Equal(t, []string{"classify:timeout", "classify:ok"}, obs.calls)
}

func TestBoundedFallback_CallerCancelledSkipsFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	secondaryCalled := false
	primary := Func(func(context.Context, Request) (string, error) {
		cancel()
		return "", errors.New("primary down")
	})
	fallback := Func(func(context.Context, Request) (string, error) {
		secondaryCalled = true
		return "late", nil
	})

	_, err := NewBoundedFallback(primary, fallback, "engage", time.Second, nil, discardLogger()).Complete(ctx, Request{})
	require.Error(t, err)
	assert.False(t, secondaryCalled)
}

func TestBoundedFallback_NoFallback(t *testing.T) {
	fb := NewBoundedFallback(static("only", nil), nil, "engage", time.Second, nil, discardLogger())
	got, err := fb.Complete(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "only", got)
}

func TestBounded_TimesOut(t *testing.T) {
	slow := Func(func(ctx context.Context, req Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	obs := &recordingObserver{}
	b := NewBounded(slow, "classify", 20*time.Millisecond, obs)

	start := time.Now()
	_, err := b.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, []string{"classify:timeout"}, obs.calls)
}

func TestBounded_EmptyResponseIsAnError(t *testing.T) {
	obs := &recordingObserver{}
	b := NewBounded(static("", nil), "engage", time.Second, obs)

	_, err := b.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, []string{"engage:empty"}, obs.calls)
}

func TestBounded_Success(t *testing.T) {
	obs := &recordingObserver{}
	b := NewBounded(static("hello", nil), "engage", time.Second, obs)

	got, err := b.Complete(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, []string{"engage:ok"}, obs.calls)
}

func TestBounded_NilObserver(t *testing.T) {
	b := NewBounded(static("", errors.New("down")), "classify", time.Second, nil)
	_, err := b.Complete(context.Background(), Request{})
	require.Error(t, err)
}
