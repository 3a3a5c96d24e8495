package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"eventcal-backend/internal/common"
)

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, common.ErrUnauthorized)
		return
	}
	rows, err := s.history.List(r.Context(), user.ID, chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistoryResponses(rows))
}

func (s *Server) handleHistoryGetVersion(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, common.ErrUnauthorized)
		return
	}
	row, err := s.history.GetVersion(r.Context(), user.ID, chi.URLParam(r, "eventID"), chi.URLParam(r, "versionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistoryResponse(row))
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, common.ErrUnauthorized)
		return
	}
	event, err := s.history.Rollback(r.Context(), user.ID, chi.URLParam(r, "eventID"), chi.URLParam(r, "versionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(event))
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, common.ErrUnauthorized)
		return
	}
	diff, err := s.history.Diff(r.Context(), user.ID, chi.URLParam(r, "eventID"), chi.URLParam(r, "fromID"), chi.URLParam(r, "toID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, diff)
}
