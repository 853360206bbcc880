package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/erikwj/sre-platform/internal/api"
	"github.com/erikwj/sre-platform/internal/knowledge"
)

// handleGetRecommendations handles GET /api/incidents/{uuid}/recommendations.
// The refresh=true query parameter bypasses the freshness window and forces
// a recompute.
func (h *APIHandler) handleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	incident, ok := h.loadIncident(w, r)
	if !ok {
		return
	}

	forceRefresh := r.URL.Query().Get("refresh") == "true"

	result, err := h.recommender.GetRecommendations(r.Context(), incident.ID, forceRefresh)
	if err != nil {
		if errors.Is(err, knowledge.ErrVectorLength) {
			log.Printf("Recommendation retrieval for incident %s hit an embedding dimension mismatch: %v", incident.Number, err)
			api.RespondErrorWithCode(w, http.StatusInternalServerError, "index_dimension_mismatch", "Embedding index is inconsistent; reindex the published postmortems")
			return
		}
		log.Printf("Recommendations for incident %s failed: %v", incident.Number, err)
		api.RespondError(w, http.StatusBadGateway, "Failed to compute recommendations")
		return
	}

	api.RespondJSON(w, http.StatusOK, result)
}
