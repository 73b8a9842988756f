package util

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// WriteJSON writes v as a 200 JSON response.
func WriteJSON(w http.ResponseWriter, v any) {
	WriteJSONStatus(w, http.StatusOK, v)
}

// WriteJSONStatus writes v as a JSON response with the given status.
func WriteJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode JSON response")
	}
}

// ErrorBody is the JSON shape of API errors.
type ErrorBody struct {
	Error string `json:"error" example:"no firmware selected"`
}

// WriteError writes msg as a JSON error with the given status.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSONStatus(w, status, ErrorBody{Error: msg})
}
