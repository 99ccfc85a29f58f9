package httpext

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// ErrorResponse represents a standardised JSON error response
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
}

// JsonError writes a JSON error response with the specified status code
func JsonError(w http.ResponseWriter, message string, code int) {
	JsonErrorWithDetails(w, code, ErrorResponse{Error: message})
}

// JsonErrorWithDetails writes a detailed JSON error response with optional description and URI
func JsonErrorWithDetails(w http.ResponseWriter, code int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Str("component", "HANDLER").Err(err).Msg("Failed to encode error response")
		return
	}
}

// JsonResponse writes v as a JSON body with the specified status code
func JsonResponse(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Str("component", "HANDLER").Err(err).Msg("Failed to encode response")
	}
}
