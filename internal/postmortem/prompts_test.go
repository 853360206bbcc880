package postmortem

import (
	"strings"
	"testing"
	"time"

	"github.com/erikwj/sre-platform/internal/database"
)

func TestBuildStagePrompt(t *testing.T) {
	detected := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	incident := &database.Incident{
		Number:           "INC-2001",
		Title:            "Database failover loop",
		Severity:         database.IncidentSeverityCritical,
		Status:           database.IncidentStatusResolved,
		AffectedServices: database.StringList{"orders-db"},
		DetectedAt:       &detected,
		Description:      "Primary kept flapping.",
	}

	cases := []struct {
		stage  Stage
		marker string
	}{
		{StageBusinessImpact, markerBusinessImpact},
		{StageMitigation, markerMitigation},
		{StageCausalAnalysis, markerCausalAnalysis},
	}
	for _, tc := range cases {
		t.Run(string(tc.stage), func(t *testing.T) {
			prompt := BuildStagePrompt(tc.stage, incident)
			if !strings.Contains(prompt, tc.marker) {
				t.Errorf("prompt does not instruct the %s marker", tc.marker)
			}
			for _, field := range []string{"INC-2001", "Database failover loop", "critical", "orders-db", "2025-03-10T14:00:00Z", "Primary kept flapping."} {
				if !strings.Contains(prompt, field) {
					t.Errorf("prompt missing incident context %q", field)
				}
			}
		})
	}
}

func TestFormatIncidentContext_OmitsEmptyFields(t *testing.T) {
	incident := &database.Incident{Number: "INC-1", Title: "t", Severity: database.IncidentSeverityLow, Status: database.IncidentStatusOpen}
	ctx := formatIncidentContext(incident)
	for _, label := range []string{"Detected At:", "Resolved At:", "Affected Services:", "Description:", "Problem Statement:", "Steps To Resolve:"} {
		if strings.Contains(ctx, label) {
			t.Errorf("context includes %q for an incident without that field", label)
		}
	}
}

func TestTruncateForPrompt(t *testing.T) {
	long := strings.Repeat("x", 5000)
	got := truncateForPrompt(long, 4000)
	if len(got) != 4000 {
		t.Errorf("len = %d, want 4000", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("truncated text missing ellipsis")
	}
	if short := truncateForPrompt("short", 4000); short != "short" {
		t.Errorf("short input changed: %q", short)
	}
}
