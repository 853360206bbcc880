// Package postmortem builds structured postmortem records from LLM output.
//
// Completion text is only probabilistically well-formed, so every field is
// parsed in layers: a strict line-anchored pattern first, then a looser
// match, then a safe default. A single malformed line never discards an
// otherwise usable generation; parse problems surface as logged warnings,
// not errors.
package postmortem

import (
	"encoding/json"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/erikwj/sre-platform/internal/database"
)

// Section markers emitted by the generation prompts
const (
	markerBusinessImpact = "[BUSINESS_IMPACT]"
	markerMitigation     = "[MITIGATION]"
	markerCausalAnalysis = "[CAUSAL_ANALYSIS]"
)

var sectionMarkerPattern = regexp.MustCompile(`\[(BUSINESS_IMPACT|MITIGATION|CAUSAL_ANALYSIS)\]`)

// Line-anchored field patterns for the business impact section
var (
	applicationPattern  = regexp.MustCompile(`(?mi)^\s*Application:\s*(.+?)\s*$`)
	startTimePattern    = regexp.MustCompile(`(?mi)^\s*Start Time:\s*(.+?)\s*$`)
	endTimePattern      = regexp.MustCompile(`(?mi)^\s*End Time:\s*(.+?)\s*$`)
	countriesPattern    = regexp.MustCompile(`(?mi)^\s*Affected Countries:\s*(.+?)\s*$`)
	regReportingPattern = regexp.MustCompile(`(?mi)^\s*Regulatory Reporting:\s*(.+?)\s*$`)
	regEntityPattern    = regexp.MustCompile(`(?mi)^\s*Regulatory Entity:\s*(.+?)\s*$`)

	// Description runs from its label to the next known label or section end
	descriptionPattern = regexp.MustCompile(`(?msi)^\s*Description:\s*(.*?)(?:^\s*(?:Application|Start Time|End Time|Affected Countries|Regulatory Reporting|Regulatory Entity):|\z)`)

	codeFencePattern = regexp.MustCompile("(?i)```(?:json)?")

	// Loose last-resort match for a bracketed block
	looseArrayPattern = regexp.MustCompile(`(?s)\[.*\]`)
)

// Timestamp layouts accepted from completions, tried in order
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// BusinessImpact holds the extracted business impact section
type BusinessImpact struct {
	Application         string
	Start               *time.Time
	End                 *time.Time
	DurationMinutes     *int
	Description         string
	AffectedCountries   []string
	RegulatoryReporting bool
	RegulatoryEntity    string
}

// Extraction is the best-effort structured result for a full completion
type Extraction struct {
	BusinessImpact BusinessImpact
	Mitigation     string
	CausalAnalysis []database.CausalFactor
}

// Extract parses a complete multi-section completion. Sections that are
// missing or malformed degrade to their defaults; Extract never fails.
func Extract(text string, incident *database.Incident) *Extraction {
	sections := splitSections(text)
	return &Extraction{
		BusinessImpact: ExtractBusinessImpact(sections[markerBusinessImpact], incident),
		Mitigation:     ExtractMitigation(sections[markerMitigation]),
		CausalAnalysis: ExtractCausalAnalysis(sections[markerCausalAnalysis]),
	}
}

// splitSections maps each known marker to the text between it and the next
// marker (or end of text). Absent markers simply have no entry.
func splitSections(text string) map[string]string {
	sections := make(map[string]string)
	matches := sectionMarkerPattern.FindAllStringIndex(text, -1)
	for i, m := range matches {
		marker := text[m[0]:m[1]]
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		if _, seen := sections[marker]; !seen {
			sections[marker] = text[m[1]:end]
		}
	}
	return sections
}

// ExtractBusinessImpact parses the labeled fields of a business impact
// section, falling back to the incident record for anything missing.
func ExtractBusinessImpact(section string, incident *database.Incident) BusinessImpact {
	impact := BusinessImpact{
		Application:       fallbackApplication(incident),
		AffectedCountries: []string{},
	}
	if incident != nil {
		impact.Start = incident.DetectedAt
		impact.End = incident.ResolvedAt
	}

	if m := applicationPattern.FindStringSubmatch(section); m != nil && m[1] != "" {
		impact.Application = m[1]
	}
	if m := startTimePattern.FindStringSubmatch(section); m != nil {
		if t, ok := parseTimestamp(m[1]); ok {
			impact.Start = &t
		}
	}
	if m := endTimePattern.FindStringSubmatch(section); m != nil {
		if t, ok := parseTimestamp(m[1]); ok {
			impact.End = &t
		}
	}
	if m := descriptionPattern.FindStringSubmatch(section); m != nil {
		impact.Description = strings.TrimSpace(m[1])
	}
	if m := countriesPattern.FindStringSubmatch(section); m != nil {
		impact.AffectedCountries = parseCountries(m[1])
	}
	if m := regReportingPattern.FindStringSubmatch(section); m != nil {
		impact.RegulatoryReporting = parseBool(m[1])
	}
	// The entity is only meaningful when regulatory reporting applies,
	// and the literal "N/A" means no entity.
	if impact.RegulatoryReporting {
		if m := regEntityPattern.FindStringSubmatch(section); m != nil {
			entity := strings.TrimSpace(m[1])
			if !strings.EqualFold(entity, "n/a") {
				impact.RegulatoryEntity = entity
			}
		}
	}

	if impact.Start != nil && impact.End != nil {
		minutes := int(impact.End.Sub(*impact.Start).Minutes())
		if minutes < 0 {
			minutes = 0
		}
		impact.DurationMinutes = &minutes
	}

	return impact
}

// ExtractMitigation returns the trimmed section body verbatim
func ExtractMitigation(section string) string {
	return strings.TrimSpace(section)
}

// rawCausalFactor matches the JSON shape the generation prompt asks for
type rawCausalFactor struct {
	InterceptionLayer string `json:"interceptionLayer"`
	Cause             string `json:"cause"`
	SubCause          string `json:"subCause"`
	Description       string `json:"description"`
	ActionItems       []struct {
		Description string `json:"description"`
		Priority    string `json:"priority"`
	} `json:"actionItems"`
}

// ExtractCausalAnalysis locates and parses the causal factor array in a
// section body. Factors missing a required field are dropped whole. Returns
// an empty slice when no parseable array exists.
func ExtractCausalAnalysis(section string) []database.CausalFactor {
	candidate := ExtractJSONArray(section)
	if candidate == "" {
		return []database.CausalFactor{}
	}

	var raw []rawCausalFactor
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		log.Printf("Extractor: causal analysis array did not parse: %v", err)
		return []database.CausalFactor{}
	}

	factors := make([]database.CausalFactor, 0, len(raw))
	for _, r := range raw {
		factor := database.CausalFactor{
			InterceptionLayer: strings.TrimSpace(r.InterceptionLayer),
			Cause:             strings.TrimSpace(r.Cause),
			SubCause:          strings.TrimSpace(r.SubCause),
			Description:       strings.TrimSpace(r.Description),
		}
		for _, a := range r.ActionItems {
			if strings.TrimSpace(a.Description) == "" {
				continue
			}
			priority := strings.ToLower(strings.TrimSpace(a.Priority))
			switch priority {
			case "high", "medium", "low":
			default:
				priority = "medium"
			}
			factor.ActionItems = append(factor.ActionItems, database.ActionItem{
				Description: strings.TrimSpace(a.Description),
				Priority:    priority,
			})
		}
		if !factor.IsValid() {
			log.Printf("Extractor: dropping causal factor missing required fields: %+v", factor)
			continue
		}
		factors = append(factors, factor)
	}
	return factors
}

// ExtractJSONArray finds the best candidate JSON array literal in free text.
// It strips markdown code fences, then scans for the first balanced array;
// if bracket balancing fails it falls back to the loosest first-to-last
// bracket match. Returns "" when nothing array-shaped exists.
func ExtractJSONArray(text string) string {
	cleaned := codeFencePattern.ReplaceAllString(text, "")

	if candidate := findBalancedArray(cleaned); candidate != "" {
		return candidate
	}
	if m := looseArrayPattern.FindString(cleaned); m != "" {
		return m
	}
	return ""
}

// findBalancedArray returns the first complete bracket-balanced array,
// honoring string literals and escapes so brackets inside values don't
// terminate the scan.
func findBalancedArray(text string) string {
	start := strings.Index(text, "[")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// fallbackApplication implements the application default chain:
// first affected service, else incident title, else a fixed placeholder.
func fallbackApplication(incident *database.Incident) string {
	if incident != nil {
		if len(incident.AffectedServices) > 0 && incident.AffectedServices[0] != "" {
			return incident.AffectedServices[0]
		}
		if incident.Title != "" {
			return incident.Title
		}
	}
	return "Unknown Application"
}

func parseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "unknown") || strings.EqualFold(value, "n/a") {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseCountries requires a syntactically valid JSON array literal;
// anything else yields an empty set rather than aborting the extraction.
func parseCountries(value string) []string {
	var countries []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(value)), &countries); err != nil {
		log.Printf("Extractor: affected countries value did not parse as array: %q", value)
		return []string{}
	}
	return countries
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "y", "1":
		return true
	default:
		return false
	}
}
