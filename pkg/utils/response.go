package utils

import (
	"encoding/json"
	"log"
	"net/http"
)

// RespondJSON writes a JSON response body with the given status.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// RespondError writes the {error, message} body every non-200 response
// carries: a machine-readable tag plus free text. Stack traces never cross
// this boundary.
func RespondError(w http.ResponseWriter, status int, errTag, message string) {
	RespondJSON(w, status, map[string]string{
		"error":   errTag,
		"message": message,
	})
}
