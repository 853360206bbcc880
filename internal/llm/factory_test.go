package llm

import (
	"errors"
	"testing"
	"time"

	"github.com/erikwj/sre-platform/internal/testhelpers"
)

func TestSettingsFactory(t *testing.T) {
	db := testhelpers.SetupTestDB(t)
	factory := &SettingsFactory{CompletionTimeout: time.Minute, EmbeddingTimeout: 30 * time.Second}

	settings := testhelpers.NewLLMSettingsBuilder().Build()
	if err := db.Create(&settings).Error; err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	if _, err := factory.Completions(); err != nil {
		t.Errorf("Completions() error = %v with active settings", err)
	}
	if _, err := factory.Embeddings(); err != nil {
		t.Errorf("Embeddings() error = %v with active settings", err)
	}

	// Disabling the provider takes effect on the next call, no restart.
	if err := db.Model(&settings).Update("enabled", false).Error; err != nil {
		t.Fatalf("disable settings: %v", err)
	}
	if _, err := factory.Completions(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Completions() error = %v, want ErrNotConfigured after disabling", err)
	}
}

func TestSettingsFactory_NoSettingsRow(t *testing.T) {
	testhelpers.SetupTestDB(t)
	factory := &SettingsFactory{}

	if _, err := factory.Completions(); err == nil {
		t.Error("Completions() = nil error with no settings row")
	}
}
