package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("HTTP_PORT", "")
	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("POLICY_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPPort != 3000 {
		t.Errorf("HTTPPort = %d, want 3000", cfg.HTTPPort)
	}
	if cfg.AdminUsername != "admin" {
		t.Errorf("AdminUsername = %q, want admin", cfg.AdminUsername)
	}
	if cfg.JWTSecret != "test-secret" {
		t.Errorf("JWTSecret = %q, want env override", cfg.JWTSecret)
	}
	if cfg.JWTExpiryHours != 24 {
		t.Errorf("JWTExpiryHours = %d, want 24", cfg.JWTExpiryHours)
	}
	if cfg.Policy != DefaultPolicy() {
		t.Errorf("Policy = %+v, want defaults", cfg.Policy)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("HTTP_PORT", "8088")
	t.Setenv("ADMIN_USERNAME", "operator")
	t.Setenv("JWT_EXPIRY_HOURS", "8")
	t.Setenv("POLICY_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPPort != 8088 {
		t.Errorf("HTTPPort = %d, want 8088", cfg.HTTPPort)
	}
	if cfg.AdminUsername != "operator" {
		t.Errorf("AdminUsername = %q, want operator", cfg.AdminUsername)
	}
	if cfg.JWTExpiryHours != 8 {
		t.Errorf("JWTExpiryHours = %d, want 8", cfg.JWTExpiryHours)
	}
}

func TestLoad_PolicyFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	content := []byte("freshness_minutes: 30\ntop_n: 3\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write policy file: %v", err)
	}

	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("POLICY_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Policy.FreshnessMinutes != 30 {
		t.Errorf("FreshnessMinutes = %d, want 30", cfg.Policy.FreshnessMinutes)
	}
	if cfg.Policy.TopN != 3 {
		t.Errorf("TopN = %d, want 3", cfg.Policy.TopN)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Policy.StageTimeoutSeconds != DefaultPolicy().StageTimeoutSeconds {
		t.Errorf("StageTimeoutSeconds = %d, want default", cfg.Policy.StageTimeoutSeconds)
	}
	if cfg.Policy.GenerationMaxTokens != DefaultPolicy().GenerationMaxTokens {
		t.Errorf("GenerationMaxTokens = %d, want default", cfg.Policy.GenerationMaxTokens)
	}
}

func TestLoad_PolicyFileMissing(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("POLICY_FILE", filepath.Join(t.TempDir(), "does-not-exist.yaml"))

	if _, err := Load(); err == nil {
		t.Error("Load() = nil error for missing policy file")
	}
}

func TestRecommendationPolicy_Durations(t *testing.T) {
	p := RecommendationPolicy{
		FreshnessMinutes:        15,
		StageTimeoutSeconds:     120,
		EmbedTimeoutSeconds:     30,
		SynthesisTimeoutSeconds: 60,
	}
	if p.Freshness() != 15*time.Minute {
		t.Errorf("Freshness() = %v", p.Freshness())
	}
	if p.StageTimeout() != 2*time.Minute {
		t.Errorf("StageTimeout() = %v", p.StageTimeout())
	}
	if p.EmbedTimeout() != 30*time.Second {
		t.Errorf("EmbedTimeout() = %v", p.EmbedTimeout())
	}
	if p.SynthesisTimeout() != time.Minute {
		t.Errorf("SynthesisTimeout() = %v", p.SynthesisTimeout())
	}
}

func TestLoadOrGenerateJWTSecret_FilePersistence(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	path := filepath.Join(t.TempDir(), "secret")

	first := loadOrGenerateJWTSecret(path)
	if first == "" {
		t.Fatal("generated secret is empty")
	}
	second := loadOrGenerateJWTSecret(path)
	if second != first {
		t.Errorf("secret not stable across loads: %q then %q", first, second)
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	t.Setenv("TEST_INT_VALUE", "not-a-number")
	if got := getEnvAsIntOrDefault("TEST_INT_VALUE", 7); got != 7 {
		t.Errorf("got %d, want default on parse failure", got)
	}
	t.Setenv("TEST_INT_VALUE", "42")
	if got := getEnvAsIntOrDefault("TEST_INT_VALUE", 7); got != 42 {
		t.Errorf("got %d, want 42", got)
	}
}
