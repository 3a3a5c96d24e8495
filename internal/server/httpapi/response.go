// Package httpapi exposes the calendar backend over HTTP: JSON endpoints for
// auth, events, permissions, and history, plus the WebSocket notification
// endpoint. Handlers translate between wire DTOs and the service layer; all
// policy lives in the services.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"eventcal-backend/internal/common"
)

// errorBody is the uniform error response shape.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

// writeError maps the service error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "invalid_argument", Message: "invalid request"})
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenRevoked):
		writeJSON(w, http.StatusUnauthorized, errorBody{Code: "unauthorized", Message: "authentication required"})
	case errors.Is(err, common.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Code: "forbidden", Message: "insufficient permissions"})
	case errors.Is(err, common.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Code: "not_found", Message: "resource not found"})
	case errors.Is(err, common.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody{Code: "conflict", Message: "conflicting state"})
	case errors.Is(err, common.ErrServiceUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Code: "service_unavailable", Message: "service temporarily unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: "internal", Message: "internal error"})
	}
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return common.ErrInvalidArgument
	}
	return nil
}
