// Package oracle defines the language-model capability used for scam
// classification and honeypot replies.
package oracle

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a backend answers with no text.
var ErrEmptyResponse = errors.New("oracle: empty response")

// Request is a single prompt sent to a language model.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// Oracle turns a prompt into free text. Implementations must honour ctx
// cancellation and deadlines.
type Oracle interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Func adapts a plain function to the Oracle interface.
type Func func(ctx context.Context, req Request) (string, error)

func (f Func) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
