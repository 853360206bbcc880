package postmortem

import (
	"fmt"
	"strings"
	"time"

	"github.com/erikwj/sre-platform/internal/database"
)

// Each stage prompt embeds the full incident context so the three
// completions stay consistent with each other despite being separate calls.

const businessImpactInstructions = `Write the business impact section of a postmortem for the incident below.

Respond in EXACTLY this format, starting with the marker line:

[BUSINESS_IMPACT]
Application: <primary affected application or service>
Start Time: <impact start, RFC3339, e.g. 2024-01-01T00:00:00Z>
End Time: <impact end, RFC3339>
Description: <2-4 sentences describing the customer and business impact>
Affected Countries: <JSON array of ISO country codes, e.g. ["US","UK"], or []>
Regulatory Reporting: <true or false>
Regulatory Entity: <entity name if reporting is required, otherwise N/A>

Only state facts present in the incident context. Use N/A when unknown.`

const mitigationInstructions = `Write the mitigation section of a postmortem for the incident below.

Respond in EXACTLY this format, starting with the marker line:

[MITIGATION]
<3-6 sentences describing how the incident was mitigated: immediate actions, rollbacks or failovers, and how service was restored>

Only state facts present in the incident context.`

const causalAnalysisInstructions = `Write the causal analysis section of a postmortem for the incident below.

Respond in EXACTLY this format, starting with the marker line:

[CAUSAL_ANALYSIS]
<a JSON array of causal factor objects>

Each object must have these fields:
- "interceptionLayer": one of "define", "design", "build", "test", "release", "deploy", "operate", "response"
- "cause": short cause category
- "subCause": optional refinement of the cause
- "description": 1-2 sentences explaining this factor
- "actionItems": array of {"description": "...", "priority": "high"|"medium"|"low"}

Return ONLY the marker line followed by the JSON array. No markdown, no commentary.`

// stageInstructions maps each generation stage to its prompt preamble
var stageInstructions = map[Stage]string{
	StageBusinessImpact: businessImpactInstructions,
	StageMitigation:     mitigationInstructions,
	StageCausalAnalysis: causalAnalysisInstructions,
}

// BuildStagePrompt assembles the full prompt for one generation stage
func BuildStagePrompt(stage Stage, incident *database.Incident) string {
	var b strings.Builder
	b.WriteString(stageInstructions[stage])
	b.WriteString("\n\n## Incident Context\n\n")
	b.WriteString(formatIncidentContext(incident))
	return b.String()
}

// formatIncidentContext renders the incident record as prompt context
func formatIncidentContext(incident *database.Incident) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Incident: %s\n", incident.Number)
	fmt.Fprintf(&b, "Title: %s\n", incident.Title)
	fmt.Fprintf(&b, "Severity: %s\n", incident.Severity)
	fmt.Fprintf(&b, "Status: %s\n", incident.Status)
	if incident.DetectedAt != nil {
		fmt.Fprintf(&b, "Detected At: %s\n", incident.DetectedAt.UTC().Format(time.RFC3339))
	}
	if incident.ResolvedAt != nil {
		fmt.Fprintf(&b, "Resolved At: %s\n", incident.ResolvedAt.UTC().Format(time.RFC3339))
	}
	if len(incident.AffectedServices) > 0 {
		fmt.Fprintf(&b, "Affected Services: %s\n", strings.Join(incident.AffectedServices, ", "))
	}
	if incident.Description != "" {
		fmt.Fprintf(&b, "\nDescription:\n%s\n", truncateForPrompt(incident.Description, 4000))
	}
	if incident.ProblemStatement != "" {
		fmt.Fprintf(&b, "\nProblem Statement:\n%s\n", truncateForPrompt(incident.ProblemStatement, 4000))
	}
	if incident.Impact != "" {
		fmt.Fprintf(&b, "\nImpact:\n%s\n", truncateForPrompt(incident.Impact, 4000))
	}
	if incident.StepsToResolve != "" {
		fmt.Fprintf(&b, "\nSteps To Resolve:\n%s\n", truncateForPrompt(incident.StepsToResolve, 6000))
	}
	if incident.Causes != "" {
		fmt.Fprintf(&b, "\nIdentified Causes:\n%s\n", truncateForPrompt(incident.Causes, 4000))
	}
	return b.String()
}

// truncateForPrompt truncates a string to fit in the prompt
func truncateForPrompt(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
