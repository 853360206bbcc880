package handlers

import (
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/erikwj/sre-platform/internal/api"
	"github.com/erikwj/sre-platform/internal/database"
)

// handleIncidents handles GET /api/incidents and POST /api/incidents
func (h *APIHandler) handleIncidents(w http.ResponseWriter, r *http.Request) {
	db := database.GetDB()

	switch r.Method {
	case http.MethodGet:
		query := db.Model(&database.Incident{}).Order("created_at DESC")
		countQuery := db.Model(&database.Incident{})

		if status := r.URL.Query().Get("status"); status != "" {
			query = query.Where("status = ?", status)
			countQuery = countQuery.Where("status = ?", status)
		}
		if severity := r.URL.Query().Get("severity"); severity != "" {
			query = query.Where("severity = ?", severity)
			countQuery = countQuery.Where("severity = ?", severity)
		}

		params := api.ParsePagination(r)

		var total int64
		if err := countQuery.Count(&total).Error; err != nil {
			api.RespondError(w, http.StatusInternalServerError, "Failed to count incidents")
			return
		}

		var incidents []database.Incident
		if err := query.Offset(params.Offset()).Limit(params.PerPage).Find(&incidents).Error; err != nil {
			api.RespondError(w, http.StatusInternalServerError, "Failed to get incidents")
			return
		}

		api.RespondJSON(w, http.StatusOK, api.PaginatedResponse{
			Data: api.IncidentsToListItems(incidents),
			Pagination: api.PaginationMeta{
				Page:       params.Page,
				PerPage:    params.PerPage,
				Total:      total,
				TotalPages: params.TotalPages(total),
			},
		})

	case http.MethodPost:
		var req api.CreateIncidentRequest
		if err := api.DecodeJSON(r, &req); err != nil {
			api.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if fieldErrors := api.Validate(req); fieldErrors != nil {
			api.RespondValidationError(w, fieldErrors)
			return
		}

		severity := database.IncidentSeverityMedium
		if req.Severity != "" {
			severity = database.IncidentSeverity(req.Severity)
		}

		incident := database.Incident{
			UUID:             uuid.NewString(),
			Number:           req.Number,
			Title:            req.Title,
			Description:      req.Description,
			Severity:         severity,
			Status:           database.IncidentStatusOpen,
			ProblemStatement: req.ProblemStatement,
			Impact:           req.Impact,
			Causes:           req.Causes,
			StepsToResolve:   req.StepsToResolve,
			AffectedServices: req.AffectedServices,
			DetectedAt:       req.DetectedAt,
		}

		if err := db.Create(&incident).Error; err != nil {
			log.Printf("Failed to create incident %s: %v", req.Number, err)
			api.RespondError(w, http.StatusConflict, "Failed to create incident (duplicate number?)")
			return
		}

		log.Printf("Created incident %s (%s)", incident.Number, incident.UUID)
		api.RespondJSON(w, http.StatusCreated, incident)

	default:
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleGetIncident handles GET /api/incidents/{uuid}
func (h *APIHandler) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	incident, ok := h.loadIncident(w, r)
	if !ok {
		return
	}
	api.RespondJSON(w, http.StatusOK, incident)
}

// handleUpdateIncident handles PUT /api/incidents/{uuid}
func (h *APIHandler) handleUpdateIncident(w http.ResponseWriter, r *http.Request) {
	incident, ok := h.loadIncident(w, r)
	if !ok {
		return
	}

	var req api.UpdateIncidentRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Severity != nil {
		updates["severity"] = *req.Severity
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.ProblemStatement != nil {
		updates["problem_statement"] = *req.ProblemStatement
	}
	if req.Impact != nil {
		updates["impact"] = *req.Impact
	}
	if req.Causes != nil {
		updates["causes"] = *req.Causes
	}
	if req.StepsToResolve != nil {
		updates["steps_to_resolve"] = *req.StepsToResolve
	}
	if req.AffectedServices != nil {
		updates["affected_services"] = database.StringList(*req.AffectedServices)
	}
	if req.DetectedAt != nil {
		updates["detected_at"] = req.DetectedAt
	}
	if req.ResolvedAt != nil {
		updates["resolved_at"] = req.ResolvedAt
	}

	db := database.GetDB()
	if len(updates) > 0 {
		if err := db.Model(incident).Updates(updates).Error; err != nil {
			api.RespondError(w, http.StatusInternalServerError, "Failed to update incident")
			return
		}
	}

	db.First(incident, incident.ID)
	api.RespondJSON(w, http.StatusOK, incident)
}

// handleDeleteIncident handles DELETE /api/incidents/{uuid}.
// Deleting an incident removes its postmortem, embedding, and any
// recommendation cache rows referencing it.
func (h *APIHandler) handleDeleteIncident(w http.ResponseWriter, r *http.Request) {
	incident, ok := h.loadIncident(w, r)
	if !ok {
		return
	}

	if err := database.DeleteIncident(database.GetDB(), incident.ID); err != nil {
		log.Printf("Failed to delete incident %s: %v", incident.Number, err)
		api.RespondError(w, http.StatusInternalServerError, "Failed to delete incident")
		return
	}

	log.Printf("Deleted incident %s (%s)", incident.Number, incident.UUID)
	api.RespondNoContent(w)
}
