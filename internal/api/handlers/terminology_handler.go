package handlers

import (
	"net/http"
	"strconv"

	"github.com/carebridge/clinconsult/internal/application/services"
)

// TerminologyHandler handles clinical code HTTP requests.
type TerminologyHandler struct {
	terminologyService *services.TerminologyService
}

// NewTerminologyHandler creates a new terminology handler.
func NewTerminologyHandler(terminologyService *services.TerminologyService) *TerminologyHandler {
	return &TerminologyHandler{terminologyService: terminologyService}
}

// Lookup handles GET /api/terminology/lookup?system=&code=
func (h *TerminologyHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	result, err := h.terminologyService.Lookup(r.Context(), query.Get("system"), query.Get("code"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// Validate handles GET /api/terminology/validate?system=&code=&display=
func (h *TerminologyHandler) Validate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	result, err := h.terminologyService.ValidateCode(r.Context(), query.Get("system"), query.Get("code"), query.Get("display"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// Expand handles GET /api/terminology/expand?url=&filter=&count=
func (h *TerminologyHandler) Expand(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	count := 20
	if parsed, err := strconv.Atoi(query.Get("count")); err == nil && parsed > 0 {
		count = parsed
	}

	result, err := h.terminologyService.Expand(r.Context(), query.Get("url"), query.Get("filter"), count)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// Translate handles GET /api/terminology/translate?system=&code=&target=
func (h *TerminologyHandler) Translate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	result, err := h.terminologyService.Translate(r.Context(), query.Get("system"), query.Get("code"), query.Get("target"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}
