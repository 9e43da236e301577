package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/carebridge/clinconsult/internal/application/services"
	"github.com/carebridge/clinconsult/internal/domain/entities"
)

// PromptHandler handles prompt template HTTP requests.
type PromptHandler struct {
	promptService *services.PromptService
}

// NewPromptHandler creates a new prompt handler.
func NewPromptHandler(promptService *services.PromptService) *PromptHandler {
	return &PromptHandler{promptService: promptService}
}

// GetPrompt handles GET /api/prompts/{id}
func (h *PromptHandler) GetPrompt(w http.ResponseWriter, r *http.Request) {
	prompt, err := h.promptService.GetPrompt(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, prompt)
}

// ListPrompts handles GET /api/prompts
func (h *PromptHandler) ListPrompts(w http.ResponseWriter, r *http.Request) {
	prompts, err := h.promptService.ListPrompts(r.Context())
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"prompts": prompts,
		"count":   len(prompts),
	})
}

// CreatePrompt handles POST /api/prompts
func (h *PromptHandler) CreatePrompt(w http.ResponseWriter, r *http.Request) {
	var prompt entities.Prompt
	if err := json.NewDecoder(r.Body).Decode(&prompt); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.promptService.CreatePrompt(r.Context(), &prompt)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

// UpdatePrompt handles PUT /api/prompts/{id}
func (h *PromptHandler) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	var prompt entities.Prompt
	if err := json.NewDecoder(r.Body).Decode(&prompt); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	prompt.ID = r.PathValue("id")

	updated, err := h.promptService.UpdatePrompt(r.Context(), &prompt)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

// DeletePrompt handles DELETE /api/prompts/{id}
func (h *PromptHandler) DeletePrompt(w http.ResponseWriter, r *http.Request) {
	if err := h.promptService.DeletePrompt(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
