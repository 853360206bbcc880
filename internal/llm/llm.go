// Package llm defines the completion and embedding provider boundary.
//
// The core never talks to a provider SDK directly: it consumes these
// interfaces so tests can run against fakes with no network calls.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Typed provider failures. Callers distinguish "not configured" (hide the
// feature) from transient failures (offer a retry).
var (
	// ErrNotConfigured means no provider is configured at all.
	ErrNotConfigured = errors.New("llm provider not configured")

	// ErrTimeout means a provider call exceeded its deadline.
	ErrTimeout = errors.New("llm provider call timed out")

	// ErrRateLimited means the provider rejected the call with a rate limit.
	ErrRateLimited = errors.New("llm provider rate limited")
)

// ProviderError wraps a non-2xx provider response
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("llm provider error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("llm provider error (status %d)", e.StatusCode)
}

// CompletionClient produces a plain-text completion for a prompt
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// EmbeddingClient produces an embedding vector for a text.
// The same model always yields the same dimensionality.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}
