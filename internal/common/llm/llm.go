// Package llm is the boundary to the hosted language models that read
// probate documents.
package llm

import (
	"context"
	"errors"
	"fmt"

	"probate-workers/internal/common/config"
)

var (
	// ErrTimeout is returned when the context expires before a reply.
	ErrTimeout = errors.New("LLM_TIMEOUT")
	// ErrRequestFailed covers transport errors and non-2xx replies that
	// survived the retries.
	ErrRequestFailed = errors.New("LLM_REQUEST_FAILED")
	// ErrEmptyResponse is returned when the model produced no text.
	ErrEmptyResponse = errors.New("LLM_EMPTY_RESPONSE")
)

// Client completes a single-turn prompt.
type Client interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// New builds the provider selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "", "anthropic":
		return NewAnthropicClient(cfg), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

// wrapContextErr maps an expired context to ErrTimeout and anything else to
// ErrRequestFailed.
func wrapContextErr(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrRequestFailed, err)
}
