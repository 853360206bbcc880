package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"gorm.io/gorm"

	"github.com/erikwj/sre-platform/internal/api"
	"github.com/erikwj/sre-platform/internal/database"
	"github.com/erikwj/sre-platform/internal/llm"
	"github.com/erikwj/sre-platform/internal/postmortem"
)

// handleGetPostmortem handles GET /api/incidents/{uuid}/postmortem
func (h *APIHandler) handleGetPostmortem(w http.ResponseWriter, r *http.Request) {
	incident, ok := h.loadIncident(w, r)
	if !ok {
		return
	}

	pm, err := database.GetPostmortemByIncidentID(database.GetDB(), incident.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "No postmortem exists for this incident")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to load postmortem")
		return
	}
	api.RespondJSON(w, http.StatusOK, pm)
}

// handleUpdatePostmortem handles PATCH /api/incidents/{uuid}/postmortem.
// Manual edits patch single fields; absent fields are left untouched.
// The duration is recomputed whenever an impact boundary changes.
func (h *APIHandler) handleUpdatePostmortem(w http.ResponseWriter, r *http.Request) {
	incident, ok := h.loadIncident(w, r)
	if !ok {
		return
	}
	db := database.GetDB()

	pm, err := database.GetPostmortemByIncidentID(db, incident.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "No postmortem exists for this incident")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to load postmortem")
		return
	}

	var req api.UpdatePostmortemRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	if req.BusinessImpactApplication != nil {
		pm.BusinessImpactApplication = *req.BusinessImpactApplication
	}
	if req.BusinessImpactStart != nil {
		pm.BusinessImpactStart = req.BusinessImpactStart
	}
	if req.BusinessImpactEnd != nil {
		pm.BusinessImpactEnd = req.BusinessImpactEnd
	}
	if req.BusinessImpactDescription != nil {
		pm.BusinessImpactDescription = *req.BusinessImpactDescription
	}
	if req.AffectedCountries != nil {
		pm.AffectedCountries = database.StringList(*req.AffectedCountries)
	}
	if req.RegulatoryReporting != nil {
		pm.RegulatoryReporting = *req.RegulatoryReporting
	}
	if req.RegulatoryEntity != nil {
		pm.RegulatoryEntity = *req.RegulatoryEntity
	}
	if req.MitigationDescription != nil {
		pm.MitigationDescription = *req.MitigationDescription
	}
	if req.CausalAnalysis != nil {
		factors := make(database.CausalFactors, 0, len(*req.CausalAnalysis))
		for _, factor := range *req.CausalAnalysis {
			if !factor.IsValid() {
				api.RespondError(w, http.StatusUnprocessableEntity, "Causal factors require interception_layer, cause, and description")
				return
			}
			factors = append(factors, factor)
		}
		pm.CausalAnalysis = factors
	}

	if err := database.SavePostmortem(db, pm); err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to save postmortem")
		return
	}
	api.RespondJSON(w, http.StatusOK, pm)
}

// handleGeneratePostmortem handles POST /api/incidents/{uuid}/postmortem/generate.
// Generation runs in the background; progress is polled via the status
// endpoint. One run per incident: a request while a run is in flight gets 409.
func (h *APIHandler) handleGeneratePostmortem(w http.ResponseWriter, r *http.Request) {
	incident, ok := h.loadIncident(w, r)
	if !ok {
		return
	}

	settings, err := database.GetLLMSettings()
	if err != nil || !settings.IsActive() {
		api.RespondErrorWithCode(w, http.StatusServiceUnavailable, "llm_not_configured", "No AI provider is configured")
		return
	}

	if h.generator.Status(incident.ID).Running {
		api.RespondErrorWithCode(w, http.StatusConflict, "generation_in_progress", "Postmortem generation is already running for this incident")
		return
	}

	incidentID := incident.ID
	number := incident.Number
	go func() {
		if _, err := h.generator.Generate(context.Background(), incidentID); err != nil {
			if errors.Is(err, postmortem.ErrGenerationInProgress) {
				return
			}
			log.Printf("Postmortem generation for incident %s failed: %v", number, err)
		}
	}()

	api.RespondJSON(w, http.StatusAccepted, map[string]string{
		"status": "started",
	})
}

// handleGenerationStatus handles GET /api/incidents/{uuid}/postmortem/generate/status
func (h *APIHandler) handleGenerationStatus(w http.ResponseWriter, r *http.Request) {
	incident, ok := h.loadIncident(w, r)
	if !ok {
		return
	}

	state := h.generator.Status(incident.ID)
	completed := make([]string, 0, len(state.CompletedStages))
	for _, stage := range state.CompletedStages {
		completed = append(completed, string(stage))
	}

	resp := api.GenerationStatusResponse{
		IncidentUUID:    incident.UUID,
		Running:         state.Running,
		CompletedStages: completed,
		LastError:       state.LastError,
	}
	if state.Running {
		resp.Stage = string(state.Stage)
	}
	api.RespondJSON(w, http.StatusOK, resp)
}

// handlePublishPostmortem handles POST /api/incidents/{uuid}/postmortem/publish.
// Publishing is synchronous; indexing and the Slack announcement run
// afterwards in the background so provider or Slack trouble never blocks it.
func (h *APIHandler) handlePublishPostmortem(w http.ResponseWriter, r *http.Request) {
	incident, ok := h.loadIncident(w, r)
	if !ok {
		return
	}

	pm, err := database.PublishPostmortem(database.GetDB(), incident.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			api.RespondError(w, http.StatusNotFound, "No postmortem exists for this incident")
			return
		}
		api.RespondError(w, http.StatusInternalServerError, "Failed to publish postmortem")
		return
	}

	incidentID := incident.ID
	incidentCopy := *incident
	pmCopy := *pm
	go func() {
		if _, err := h.indexer.IndexPostmortem(context.Background(), incidentID); err != nil {
			log.Printf("Indexing after publish failed for incident %s: %v", incidentCopy.Number, err)
		}
		h.notifier.PostmortemPublished(context.Background(), &incidentCopy, &pmCopy)
	}()

	api.RespondJSON(w, http.StatusOK, pm)
}

// handleReindexPostmortem handles POST /api/incidents/{uuid}/postmortem/reindex.
// Unlike the publish hook this is synchronous, so an operator can see the
// provider error when a background index attempt keeps failing.
func (h *APIHandler) handleReindexPostmortem(w http.ResponseWriter, r *http.Request) {
	incident, ok := h.loadIncident(w, r)
	if !ok {
		return
	}
	db := database.GetDB()

	pm, err := database.GetPostmortemByIncidentID(db, incident.ID)
	if err != nil {
		api.RespondError(w, http.StatusNotFound, "No postmortem exists for this incident")
		return
	}
	if pm.Status != database.PostmortemStatusPublished {
		api.RespondErrorWithCode(w, http.StatusConflict, "not_published", "Only published postmortems can be indexed")
		return
	}

	emb, err := h.indexer.IndexPostmortem(r.Context(), incident.ID)
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			api.RespondErrorWithCode(w, http.StatusServiceUnavailable, "llm_not_configured", "No AI provider is configured")
			return
		}
		log.Printf("Reindex failed for incident %s: %v", incident.Number, err)
		api.RespondError(w, http.StatusBadGateway, "Failed to index postmortem")
		return
	}

	api.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"postmortem_id": emb.PostmortemID,
		"version":       emb.Version,
		"dimensions":    len(emb.Vector),
	})
}
