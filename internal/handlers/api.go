package handlers

import (
	"net/http"

	"github.com/erikwj/sre-platform/internal/api"
	"github.com/erikwj/sre-platform/internal/database"
	"github.com/erikwj/sre-platform/internal/knowledge"
	"github.com/erikwj/sre-platform/internal/notify"
	"github.com/erikwj/sre-platform/internal/postmortem"
	"github.com/erikwj/sre-platform/internal/utils"
)

// APIHandler handles API endpoints for the UI
type APIHandler struct {
	generator   *postmortem.Generator
	indexer     *knowledge.Indexer
	recommender *knowledge.Recommender
	notifier    *notify.Notifier
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(generator *postmortem.Generator, indexer *knowledge.Indexer, recommender *knowledge.Recommender, notifier *notify.Notifier) *APIHandler {
	return &APIHandler{
		generator:   generator,
		indexer:     indexer,
		recommender: recommender,
		notifier:    notifier,
	}
}

// SetupRoutes sets up all API routes
func (h *APIHandler) SetupRoutes(mux *http.ServeMux) {
	// Incidents
	mux.HandleFunc("/api/incidents", h.handleIncidents)
	mux.HandleFunc("GET /api/incidents/{uuid}", h.handleGetIncident)
	mux.HandleFunc("PUT /api/incidents/{uuid}", h.handleUpdateIncident)
	mux.HandleFunc("DELETE /api/incidents/{uuid}", h.handleDeleteIncident)

	// Postmortems
	mux.HandleFunc("GET /api/incidents/{uuid}/postmortem", h.handleGetPostmortem)
	mux.HandleFunc("PATCH /api/incidents/{uuid}/postmortem", h.handleUpdatePostmortem)
	mux.HandleFunc("POST /api/incidents/{uuid}/postmortem/generate", h.handleGeneratePostmortem)
	mux.HandleFunc("GET /api/incidents/{uuid}/postmortem/generate/status", h.handleGenerationStatus)
	mux.HandleFunc("POST /api/incidents/{uuid}/postmortem/publish", h.handlePublishPostmortem)
	mux.HandleFunc("POST /api/incidents/{uuid}/postmortem/reindex", h.handleReindexPostmortem)

	// Recommendations
	mux.HandleFunc("GET /api/incidents/{uuid}/recommendations", h.handleGetRecommendations)

	// Slack settings
	mux.HandleFunc("/api/settings/slack", h.handleSlackSettings)

	// LLM settings
	mux.HandleFunc("/api/settings/llm", h.handleLLMSettings)
}

// loadIncident resolves the {uuid} path value to an incident, writing a 404
// response on failure. The bool result reports whether to continue.
func (h *APIHandler) loadIncident(w http.ResponseWriter, r *http.Request) (*database.Incident, bool) {
	incidentUUID := r.PathValue("uuid")
	if err := utils.ValidateIncidentUUID(incidentUUID); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	incident, err := database.GetIncidentByUUID(database.GetDB(), incidentUUID)
	if err != nil {
		api.RespondError(w, http.StatusNotFound, "Incident not found")
		return nil, false
	}
	return incident, true
}
