package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"eventcal-backend/internal/common"
	"eventcal-backend/internal/server/models"
)

// handleShare grants permissions to a batch of users. The body is a JSON
// array of {user_id, role} entries; the batch is all-or-nothing.
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, common.ErrUnauthorized)
		return
	}
	var items []permissionGrantRequest
	if err := decodeBody(r, &items); err != nil {
		writeError(w, err)
		return
	}
	grants, err := toGrants(items)
	if err != nil {
		writeError(w, err)
		return
	}
	created, err := s.permissions.Grant(r.Context(), user.ID, chi.URLParam(r, "eventID"), grants)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPermissionResponses(created))
}

func (s *Server) handlePermissionList(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, common.ErrUnauthorized)
		return
	}
	perms, err := s.permissions.List(r.Context(), user.ID, chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPermissionResponses(perms))
}

func (s *Server) handlePermissionUpdate(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, common.ErrUnauthorized)
		return
	}
	var req struct {
		Role string `json:"role"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	eventID := chi.URLParam(r, "eventID")
	granteeID := chi.URLParam(r, "userID")
	if err := s.permissions.Update(r.Context(), user.ID, eventID, granteeID, models.PermissionRole(req.Role)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, permissionResponse{EventID: eventID, UserID: granteeID, Role: req.Role})
}

func (s *Server) handlePermissionDelete(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, common.ErrUnauthorized)
		return
	}
	if err := s.permissions.Delete(r.Context(), user.ID, chi.URLParam(r, "eventID"), chi.URLParam(r, "userID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
