package llm

import (
	"fmt"
	"time"

	"github.com/erikwj/sre-platform/internal/database"
)

// Factory hands out provider clients for the current configuration.
// Reading settings per call means an operator can configure or rotate the
// provider at runtime without a restart.
type Factory interface {
	Completions() (CompletionClient, error)
	Embeddings() (EmbeddingClient, error)
}

// SettingsFactory builds OpenAI-compatible clients from the stored
// provider settings. It returns ErrNotConfigured when no active provider
// exists, which callers surface as "unavailable" rather than an error.
type SettingsFactory struct {
	CompletionTimeout time.Duration
	EmbeddingTimeout  time.Duration
}

// Completions returns a completion client for the active provider
func (f *SettingsFactory) Completions() (CompletionClient, error) {
	settings, err := database.GetLLMSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load LLM settings: %w", err)
	}
	return NewOpenAIClient(settings, f.CompletionTimeout)
}

// Embeddings returns an embedding client for the active provider
func (f *SettingsFactory) Embeddings() (EmbeddingClient, error) {
	settings, err := database.GetLLMSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load LLM settings: %w", err)
	}
	return NewOpenAIClient(settings, f.EmbeddingTimeout)
}
