package events

import (
	"context"
	"time"

	"eventcal-backend/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, event *models.Event) (*models.Event, error)
	GetByID(ctx context.Context, id string) (*models.Event, error)
	// GetByIDForUpdate locks the event row for the duration of the enclosing
	// transaction, serializing concurrent writers of the same event. Must be
	// called on a transactional DBTX.
	GetByIDForUpdate(ctx context.Context, id string) (*models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id string) error
	// ListForUser returns events the user holds any permission on, ordered
	// by start time ascending, paginated by offset/limit.
	ListForUser(ctx context.Context, userID string, skip, limit int) ([]*models.Event, error)
	// AnyOverlapping reports whether the owner already has an event whose
	// [start,end) interval overlaps the candidate one, optionally excluding
	// one event id (for updates).
	AnyOverlapping(ctx context.Context, ownerID string, start, end time.Time, excludeEventID string) (bool, error)
}
