package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"eventcal-backend/internal/common"
)

func (s *Server) handleEventCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, common.ErrUnauthorized)
		return
	}
	var req eventCreateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	event, err := s.events.Create(r.Context(), user.ID, req.toInput())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventResponse(event))
}

func (s *Server) handleEventCreateBatch(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, common.ErrUnauthorized)
		return
	}
	var req struct {
		Events []eventCreateRequest `json:"events"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	created, err := s.events.CreateBatch(r.Context(), user.ID, toInputs(req.Events))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventResponses(created))
}

func (s *Server) handleEventList(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, common.ErrUnauthorized)
		return
	}
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 0)
	events, err := s.events.List(r.Context(), user.ID, skip, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponses(events))
}

func (s *Server) handleEventGet(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, common.ErrUnauthorized)
		return
	}
	event, err := s.events.Get(r.Context(), user.ID, chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(event))
}

func (s *Server) handleEventUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, common.ErrUnauthorized)
		return
	}
	var req eventUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	event, err := s.events.Update(r.Context(), user.ID, chi.URLParam(r, "eventID"), req.toUpdate())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(event))
}

func (s *Server) handleEventDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, common.ErrUnauthorized)
		return
	}
	if err := s.events.Delete(r.Context(), user.ID, chi.URLParam(r, "eventID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
