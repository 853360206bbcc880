package api

import (
	"time"

	"github.com/erikwj/sre-platform/internal/database"
)

// ========== Incident Types ==========

// CreateIncidentRequest is the request body for POST /api/incidents.
type CreateIncidentRequest struct {
	Number           string     `json:"number" validate:"required,min=1,max=32"`
	Title            string     `json:"title" validate:"required,min=1,max=255"`
	Description      string     `json:"description"`
	Severity         string     `json:"severity" validate:"omitempty,oneof=critical high medium low"`
	ProblemStatement string     `json:"problem_statement"`
	Impact           string     `json:"impact"`
	Causes           string     `json:"causes"`
	StepsToResolve   string     `json:"steps_to_resolve"`
	AffectedServices []string   `json:"affected_services"`
	DetectedAt       *time.Time `json:"detected_at"`
}

// UpdateIncidentRequest is the request body for PUT /api/incidents/:uuid.
// Pointer fields distinguish "not sent" from "set to empty".
type UpdateIncidentRequest struct {
	Title            *string    `json:"title" validate:"omitempty,min=1,max=255"`
	Description      *string    `json:"description"`
	Severity         *string    `json:"severity" validate:"omitempty,oneof=critical high medium low"`
	Status           *string    `json:"status" validate:"omitempty,oneof=open investigating resolved closed"`
	ProblemStatement *string    `json:"problem_statement"`
	Impact           *string    `json:"impact"`
	Causes           *string    `json:"causes"`
	StepsToResolve   *string    `json:"steps_to_resolve"`
	AffectedServices *[]string  `json:"affected_services"`
	DetectedAt       *time.Time `json:"detected_at"`
	ResolvedAt       *time.Time `json:"resolved_at"`
}

// IncidentListItem is a compact incident representation for list endpoints.
// It omits the large text fields to reduce response size.
type IncidentListItem struct {
	ID               uint                      `json:"id"`
	UUID             string                    `json:"uuid"`
	Number           string                    `json:"number"`
	Title            string                    `json:"title"`
	Severity         database.IncidentSeverity `json:"severity"`
	Status           database.IncidentStatus   `json:"status"`
	AffectedServices database.StringList       `json:"affected_services"`
	DetectedAt       *time.Time                `json:"detected_at,omitempty"`
	ResolvedAt       *time.Time                `json:"resolved_at,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
}

// ========== Postmortem Types ==========

// UpdatePostmortemRequest is the request body for PATCH /api/incidents/:uuid/postmortem.
// Every field is optional; only the fields present in the request are written.
type UpdatePostmortemRequest struct {
	BusinessImpactApplication *string                  `json:"business_impact_application" validate:"omitempty,max=255"`
	BusinessImpactStart       *time.Time               `json:"business_impact_start"`
	BusinessImpactEnd         *time.Time               `json:"business_impact_end"`
	BusinessImpactDescription *string                  `json:"business_impact_description"`
	AffectedCountries         *[]string                `json:"affected_countries"`
	RegulatoryReporting       *bool                    `json:"regulatory_reporting"`
	RegulatoryEntity          *string                  `json:"regulatory_entity" validate:"omitempty,max=255"`
	MitigationDescription     *string                  `json:"mitigation_description"`
	CausalAnalysis            *[]database.CausalFactor `json:"causal_analysis"`
}

// GenerationStatusResponse reports the progress of a postmortem generation run.
type GenerationStatusResponse struct {
	IncidentUUID    string   `json:"incident_uuid"`
	Running         bool     `json:"running"`
	Stage           string   `json:"stage,omitempty"`
	CompletedStages []string `json:"completed_stages"`
	LastError       string   `json:"last_error,omitempty"`
}

// ========== Pagination Types ==========

// PaginationMeta describes the pagination state of a list response.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PaginatedResponse wraps list data with pagination metadata.
type PaginatedResponse struct {
	Data       interface{}    `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

// ========== Settings Types ==========

// UpdateLLMSettingsRequest is the request body for PUT /api/settings/llm.
type UpdateLLMSettingsRequest struct {
	APIKey          *string `json:"api_key"`
	BaseURL         *string `json:"base_url" validate:"omitempty,url"`
	CompletionModel *string `json:"completion_model" validate:"omitempty,max=128"`
	EmbeddingModel  *string `json:"embedding_model" validate:"omitempty,max=128"`
	Enabled         *bool   `json:"enabled"`
}

// UpdateSlackSettingsRequest is the request body for PUT /api/settings/slack.
type UpdateSlackSettingsRequest struct {
	BotToken *string `json:"bot_token"`
	Channel  *string `json:"channel" validate:"omitempty,max=128"`
	Enabled  *bool   `json:"enabled"`
}
