package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/tribes/internal/service"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps a service error to its HTTP status.
func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrGameNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidAction):
		writeInvalidAction(w, strings.TrimPrefix(err.Error(), service.ErrInvalidAction.Error()+": "))
		return
	case errors.Is(err, service.ErrGameFinished), errors.Is(err, service.ErrGameBusy):
		status = http.StatusConflict
	case errors.Is(err, service.ErrNotYourSeat):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrInvalidSeat), errors.Is(err, service.ErrInvalidMap):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	writeError(w, status, err.Error())
}

// writeInvalidAction writes a 422 carrying the rejection reason.
func writeInvalidAction(w http.ResponseWriter, reason string) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
		"error":  service.ErrInvalidAction.Error(),
		"reason": reason,
	})
}

// decodeJSON reads and decodes JSON from a request body.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
