package httpapi

import (
	"time"

	"eventcal-backend/internal/common"
	"eventcal-backend/internal/server/models"
	"eventcal-backend/internal/server/services"
)

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Role: string(u.Role)}
}

type permissionResponse struct {
	ID      string `json:"id"`
	EventID string `json:"event_id"`
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
}

func toPermissionResponses(perms []*models.Permission) []permissionResponse {
	out := make([]permissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, permissionResponse{ID: p.ID, EventID: p.EventID, UserID: p.UserID, Role: string(p.Role)})
	}
	return out
}

type eventResponse struct {
	ID                string               `json:"id"`
	Title             string               `json:"title"`
	Description       string               `json:"description,omitempty"`
	StartTime         time.Time            `json:"start_time"`
	EndTime           time.Time            `json:"end_time"`
	Location          string               `json:"location,omitempty"`
	IsRecurring       bool                 `json:"is_recurring"`
	RecurrencePattern string               `json:"recurrence_pattern,omitempty"`
	OwnerID           string               `json:"owner_id"`
	Permissions       []permissionResponse `json:"permissions,omitempty"`
}

func toEventResponse(e *models.Event) eventResponse {
	return eventResponse{
		ID:                e.ID,
		Title:             e.Title,
		Description:       e.Description,
		StartTime:         e.StartTime,
		EndTime:           e.EndTime,
		Location:          e.Location,
		IsRecurring:       e.IsRecurring,
		RecurrencePattern: e.RecurrencePattern,
		OwnerID:           e.OwnerID,
		Permissions:       toPermissionResponses(e.Permissions),
	}
}

func toEventResponses(events []*models.Event) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResponse(e))
	}
	return out
}

type historyResponse struct {
	ID        string          `json:"id"`
	EventID   string          `json:"event_id"`
	Version   int64           `json:"version"`
	Data      models.Snapshot `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	ChangedBy *string         `json:"changed_by"`
}

func toHistoryResponse(h *models.History) historyResponse {
	return historyResponse{
		ID:        h.ID,
		EventID:   h.EventID,
		Version:   h.Version,
		Data:      h.Data,
		Timestamp: h.Timestamp,
		ChangedBy: h.ChangedBy,
	}
}

func toHistoryResponses(rows []*models.History) []historyResponse {
	out := make([]historyResponse, 0, len(rows))
	for _, h := range rows {
		out = append(out, toHistoryResponse(h))
	}
	return out
}

type eventCreateRequest struct {
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	Location          string    `json:"location"`
	IsRecurring       bool      `json:"is_recurring"`
	RecurrencePattern string    `json:"recurrence_pattern"`
}

func (r eventCreateRequest) toInput() services.EventInput {
	return services.EventInput{
		Title:             r.Title,
		Description:       r.Description,
		StartTime:         r.StartTime,
		EndTime:           r.EndTime,
		Location:          r.Location,
		IsRecurring:       r.IsRecurring,
		RecurrencePattern: r.RecurrencePattern,
	}
}

func toInputs(items []eventCreateRequest) []services.EventInput {
	out := make([]services.EventInput, 0, len(items))
	for _, item := range items {
		out = append(out, item.toInput())
	}
	return out
}

type eventUpdateRequest struct {
	Title             *string    `json:"title"`
	Description       *string    `json:"description"`
	StartTime         *time.Time `json:"start_time"`
	EndTime           *time.Time `json:"end_time"`
	Location          *string    `json:"location"`
	IsRecurring       *bool      `json:"is_recurring"`
	RecurrencePattern *string    `json:"recurrence_pattern"`
}

func (r eventUpdateRequest) toUpdate() services.EventUpdate {
	return services.EventUpdate{
		Title:             r.Title,
		Description:       r.Description,
		StartTime:         r.StartTime,
		EndTime:           r.EndTime,
		Location:          r.Location,
		IsRecurring:       r.IsRecurring,
		RecurrencePattern: r.RecurrencePattern,
	}
}

type permissionGrantRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func toGrants(items []permissionGrantRequest) ([]services.PermissionGrant, error) {
	grants := make([]services.PermissionGrant, 0, len(items))
	for _, item := range items {
		if item.UserID == "" {
			return nil, common.ErrInvalidArgument
		}
		grants = append(grants, services.PermissionGrant{
			UserID: item.UserID,
			Role:   models.PermissionRole(item.Role),
		})
	}
	return grants, nil
}
