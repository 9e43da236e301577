package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "github.com/carebridge/clinconsult/pkg/errors"
)

// Helper functions shared by all handlers.

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps the error taxonomy to HTTP statuses.
func respondWithAppError(w http.ResponseWriter, err error) {
	respondWithError(w, apperrors.HTTPStatus(err), apperrors.Message(err))
}

// sseWriter serializes SSE frames onto a response writer.
type sseWriter struct {
	w http.ResponseWriter
}

func (s *sseWriter) send(event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload)
}
