package handlers

import (
	"log"
	"net/http"

	"github.com/erikwj/sre-platform/internal/api"
	"github.com/erikwj/sre-platform/internal/database"
)

// handleSlackSettings handles GET /api/settings/slack and PUT /api/settings/slack
func (h *APIHandler) handleSlackSettings(w http.ResponseWriter, r *http.Request) {
	db := database.GetDB()

	switch r.Method {
	case http.MethodGet:
		var settings database.SlackSettings
		if err := db.First(&settings).Error; err != nil {
			api.RespondError(w, http.StatusNotFound, "Settings not found")
			return
		}
		api.RespondJSON(w, http.StatusOK, slackSettingsResponse(&settings))

	case http.MethodPut:
		var req api.UpdateSlackSettingsRequest
		if err := api.DecodeJSON(r, &req); err != nil {
			api.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if fieldErrors := api.Validate(req); fieldErrors != nil {
			api.RespondValidationError(w, fieldErrors)
			return
		}

		var settings database.SlackSettings
		if err := db.First(&settings).Error; err != nil {
			api.RespondError(w, http.StatusNotFound, "Settings not found")
			return
		}

		updates := make(map[string]interface{})
		if req.BotToken != nil {
			updates["bot_token"] = *req.BotToken
		}
		if req.Channel != nil {
			updates["channel"] = *req.Channel
		}
		if req.Enabled != nil {
			updates["enabled"] = *req.Enabled
		}

		if err := db.Model(&settings).Updates(updates).Error; err != nil {
			api.RespondError(w, http.StatusInternalServerError, "Failed to update settings")
			return
		}

		log.Printf("Slack settings updated")
		db.First(&settings)
		api.RespondJSON(w, http.StatusOK, slackSettingsResponse(&settings))

	default:
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleLLMSettings handles GET /api/settings/llm and PUT /api/settings/llm
func (h *APIHandler) handleLLMSettings(w http.ResponseWriter, r *http.Request) {
	db := database.GetDB()

	switch r.Method {
	case http.MethodGet:
		var settings database.LLMSettings
		if err := db.First(&settings).Error; err != nil {
			api.RespondError(w, http.StatusNotFound, "Settings not found")
			return
		}
		api.RespondJSON(w, http.StatusOK, llmSettingsResponse(&settings))

	case http.MethodPut:
		var req api.UpdateLLMSettingsRequest
		if err := api.DecodeJSON(r, &req); err != nil {
			api.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if fieldErrors := api.Validate(req); fieldErrors != nil {
			api.RespondValidationError(w, fieldErrors)
			return
		}

		var settings database.LLMSettings
		if err := db.First(&settings).Error; err != nil {
			api.RespondError(w, http.StatusNotFound, "Settings not found")
			return
		}

		updates := make(map[string]interface{})
		if req.APIKey != nil {
			updates["api_key"] = *req.APIKey
		}
		if req.BaseURL != nil {
			updates["base_url"] = *req.BaseURL
		}
		if req.CompletionModel != nil {
			updates["completion_model"] = *req.CompletionModel
		}
		if req.EmbeddingModel != nil {
			updates["embedding_model"] = *req.EmbeddingModel
		}
		if req.Enabled != nil {
			updates["enabled"] = *req.Enabled
		}

		if err := db.Model(&settings).Updates(updates).Error; err != nil {
			api.RespondError(w, http.StatusInternalServerError, "Failed to update settings")
			return
		}

		log.Printf("LLM settings updated")
		db.First(&settings)
		api.RespondJSON(w, http.StatusOK, llmSettingsResponse(&settings))

	default:
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// slackSettingsResponse renders Slack settings with the token masked
func slackSettingsResponse(settings *database.SlackSettings) map[string]interface{} {
	return map[string]interface{}{
		"id":            settings.ID,
		"bot_token":     maskToken(settings.BotToken),
		"channel":       settings.Channel,
		"enabled":       settings.Enabled,
		"is_configured": settings.IsConfigured(),
		"created_at":    settings.CreatedAt,
		"updated_at":    settings.UpdatedAt,
	}
}

// llmSettingsResponse renders LLM settings with the API key masked
func llmSettingsResponse(settings *database.LLMSettings) map[string]interface{} {
	return map[string]interface{}{
		"id":               settings.ID,
		"api_key":          maskToken(settings.APIKey),
		"base_url":         settings.BaseURL,
		"completion_model": settings.CompletionModel,
		"embedding_model":  settings.EmbeddingModel,
		"enabled":          settings.Enabled,
		"is_configured":    settings.IsConfigured(),
		"created_at":       settings.CreatedAt,
		"updated_at":       settings.UpdatedAt,
	}
}

// maskToken masks a token for display, showing only last 4 characters
func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
