package testhelpers

import (
	"testing"
	"time"

	"github.com/erikwj/sre-platform/internal/database"
)

func TestIncidentBuilder_Defaults(t *testing.T) {
	incident := NewIncidentBuilder().Build()

	if incident.UUID == "" {
		t.Error("expected non-empty UUID")
	}
	if incident.Number == "" {
		t.Error("expected non-empty Number")
	}
	if incident.Severity != database.IncidentSeverityMedium {
		t.Errorf("Severity = %q, want medium", incident.Severity)
	}
	if incident.Status != database.IncidentStatusOpen {
		t.Errorf("Status = %q, want open", incident.Status)
	}
}

func TestIncidentBuilder_Customization(t *testing.T) {
	detected := time.Now().Add(-time.Hour)
	incident := NewIncidentBuilder().
		WithNumber("INC-7").
		WithTitle("DB connection pool exhausted").
		WithSeverity(database.IncidentSeverityCritical).
		WithStatus(database.IncidentStatusResolved).
		WithAffectedServices("orders", "payments").
		WithDetectedAt(detected).
		Build()

	if incident.Number != "INC-7" {
		t.Errorf("Number = %q, want INC-7", incident.Number)
	}
	if incident.Severity != database.IncidentSeverityCritical {
		t.Errorf("Severity = %q, want critical", incident.Severity)
	}
	if len(incident.AffectedServices) != 2 {
		t.Errorf("AffectedServices = %v, want 2 entries", incident.AffectedServices)
	}
	if incident.DetectedAt == nil || !incident.DetectedAt.Equal(detected) {
		t.Errorf("DetectedAt = %v, want %v", incident.DetectedAt, detected)
	}
}

func TestPostmortemBuilder(t *testing.T) {
	start := time.Now().Add(-90 * time.Minute)
	end := time.Now().Add(-30 * time.Minute)

	pm := NewPostmortemBuilder().
		WithIncidentID(12).
		Published().
		WithBusinessImpact("Checkout unavailable").
		WithImpactWindow(start, end).
		WithMitigation("Rolled back the release").
		WithCausalFactor("deploy", "Unvalidated config change", "A config flag flipped without review").
		Build()

	if pm.IncidentID != 12 {
		t.Errorf("IncidentID = %d, want 12", pm.IncidentID)
	}
	if pm.Status != database.PostmortemStatusPublished {
		t.Errorf("Status = %q, want published", pm.Status)
	}
	if pm.PublishedAt == nil {
		t.Error("expected PublishedAt to be set")
	}
	if len(pm.CausalAnalysis) != 1 || !pm.CausalAnalysis[0].IsValid() {
		t.Errorf("CausalAnalysis = %v, want one valid factor", pm.CausalAnalysis)
	}
}

func TestLLMSettingsBuilder(t *testing.T) {
	active := NewLLMSettingsBuilder().Build()
	if !active.IsActive() {
		t.Error("expected default builder settings to be active")
	}

	disabled := NewLLMSettingsBuilder().Disabled().Build()
	if disabled.IsActive() {
		t.Error("expected disabled settings to be inactive")
	}

	unconfigured := NewLLMSettingsBuilder().Unconfigured().Build()
	if unconfigured.IsConfigured() {
		t.Error("expected unconfigured settings to report not configured")
	}
}

func TestSlackSettingsBuilder(t *testing.T) {
	active := NewSlackSettingsBuilder().Build()
	if !active.IsActive() {
		t.Error("expected default builder settings to be active")
	}

	unconfigured := NewSlackSettingsBuilder().Unconfigured().Build()
	if unconfigured.IsConfigured() {
		t.Error("expected unconfigured settings to report not configured")
	}
}

func TestSetupTestDB(t *testing.T) {
	db := SetupTestDB(t)

	incident := SeedIncident(t, db, NewIncidentBuilder().WithNumber("INC-100").Build())
	if incident.ID == 0 {
		t.Fatal("expected seeded incident to get an ID")
	}

	pm := SeedPostmortem(t, db, NewPostmortemBuilder().WithIncidentID(incident.ID).Build())
	if pm.ID == 0 {
		t.Fatal("expected seeded postmortem to get an ID")
	}

	loaded, err := database.GetIncidentByUUID(db, incident.UUID)
	if err != nil {
		t.Fatalf("GetIncidentByUUID failed: %v", err)
	}
	if loaded.Number != "INC-100" {
		t.Errorf("Number = %q, want INC-100", loaded.Number)
	}
}
