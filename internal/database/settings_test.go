package database

import (
	"testing"
)

// useGlobalDB installs a test database as the package global for the
// settings accessors, restoring the previous one on cleanup.
func useGlobalDB(t *testing.T) {
	t.Helper()
	previous := DB
	DB = openTestDB(t)
	t.Cleanup(func() { DB = previous })
}

func TestLLMSettings_Activation(t *testing.T) {
	cases := []struct {
		name       string
		settings   LLMSettings
		configured bool
		active     bool
	}{
		{"enabled with key", LLMSettings{APIKey: "sk-test", Enabled: true}, true, true},
		{"enabled without key", LLMSettings{Enabled: true}, false, false},
		{"disabled with key", LLMSettings{APIKey: "sk-test"}, true, false},
		{"empty", LLMSettings{}, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.settings.IsConfigured(); got != tc.configured {
				t.Errorf("IsConfigured() = %v, want %v", got, tc.configured)
			}
			if got := tc.settings.IsActive(); got != tc.active {
				t.Errorf("IsActive() = %v, want %v", got, tc.active)
			}
		})
	}
}

func TestSlackSettings_Activation(t *testing.T) {
	cases := []struct {
		name     string
		settings SlackSettings
		active   bool
	}{
		{"enabled and configured", SlackSettings{BotToken: "xoxb-1", Channel: "#inc", Enabled: true}, true},
		{"missing channel", SlackSettings{BotToken: "xoxb-1", Enabled: true}, false},
		{"missing token", SlackSettings{Channel: "#inc", Enabled: true}, false},
		{"disabled", SlackSettings{BotToken: "xoxb-1", Channel: "#inc"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.settings.IsActive(); got != tc.active {
				t.Errorf("IsActive() = %v, want %v", got, tc.active)
			}
		})
	}
}

func TestInitializeDefaults(t *testing.T) {
	useGlobalDB(t)

	if err := InitializeDefaults(); err != nil {
		t.Fatalf("InitializeDefaults: %v", err)
	}

	llm, err := GetLLMSettings()
	if err != nil {
		t.Fatalf("GetLLMSettings: %v", err)
	}
	if llm.Enabled {
		t.Error("default LLM settings enabled, want disabled until configured")
	}
	if llm.CompletionModel == "" || llm.EmbeddingModel == "" {
		t.Errorf("default models missing: %+v", llm)
	}

	slack, err := GetSlackSettings()
	if err != nil {
		t.Fatalf("GetSlackSettings: %v", err)
	}
	if slack.Enabled {
		t.Error("default Slack settings enabled")
	}

	// Idempotent: running again does not duplicate rows.
	if err := InitializeDefaults(); err != nil {
		t.Fatalf("second InitializeDefaults: %v", err)
	}
	var count int64
	DB.Model(&LLMSettings{}).Count(&count)
	if count != 1 {
		t.Errorf("LLM settings rows = %d, want 1", count)
	}
}

func TestUpdateLLMSettings(t *testing.T) {
	useGlobalDB(t)
	if err := InitializeDefaults(); err != nil {
		t.Fatalf("InitializeDefaults: %v", err)
	}

	settings, err := GetLLMSettings()
	if err != nil {
		t.Fatalf("GetLLMSettings: %v", err)
	}
	settings.APIKey = "sk-rotated"
	settings.Enabled = true
	if err := UpdateLLMSettings(settings); err != nil {
		t.Fatalf("UpdateLLMSettings: %v", err)
	}

	loaded, err := GetLLMSettings()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.APIKey != "sk-rotated" || !loaded.Enabled {
		t.Errorf("settings not persisted: %+v", loaded)
	}
}
