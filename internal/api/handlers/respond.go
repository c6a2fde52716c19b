package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/dvrmln/taskdeck-be/internal/services"
)

// writeJSON writes v with the given status. Every payload in this API
// carries the {success, message, ...} envelope.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// fail writes an error envelope with the given status and message.
func fail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// serviceError maps a service-layer error onto the HTTP taxonomy.
// Unexpected errors are logged and collapsed into a generic 500 so
// internal detail never reaches the client.
func serviceError(w http.ResponseWriter, err error) {
	var vErr *services.ValidationError
	switch {
	case errors.As(err, &vErr):
		fail(w, http.StatusBadRequest, vErr.Message)
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrInvalidCredentials):
		fail(w, http.StatusBadRequest, clientMessage(err))
	case errors.Is(err, services.ErrTaskNotFound):
		fail(w, http.StatusNotFound, "Task not found.")
	case errors.Is(err, services.ErrUserNotFound):
		fail(w, http.StatusNotFound, "User not found.")
	default:
		log.Error().Err(err).Msg("Unexpected service error")
		fail(w, http.StatusInternalServerError, "An unexpected server error occurred.")
	}
}

func clientMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrEmailTaken):
		return "A user with this email already exists."
	case errors.Is(err, services.ErrInvalidCredentials):
		return "Invalid email or password."
	}
	return err.Error()
}
