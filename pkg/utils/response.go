package utils

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/prestonty/timelens-be/internal/apperr"
)

// RespondJSON writes payload as JSON with the given status.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError writes {"error": message}.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, map[string]string{"error": message})
}

// RespondFailure maps err onto a status and writes the client-facing error.
func RespondFailure(w http.ResponseWriter, err error) {
	status, message := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[http] request failed: %v", err)
	}
	RespondError(w, status, message)
}
