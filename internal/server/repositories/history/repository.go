package history

import (
	"context"

	"eventcal-backend/internal/server/models"
)

type Repository interface {
	// NextVersion computes max(version)+1 for the event, defaulting to 1.
	// Must be called inside the same transaction as the mutation it
	// accompanies, after the event row has been locked.
	NextVersion(ctx context.Context, eventID string) (int64, error)
	Create(ctx context.Context, h *models.History) (*models.History, error)
	ListByEvent(ctx context.Context, eventID string) ([]*models.History, error)
	GetByID(ctx context.Context, id string) (*models.History, error)
}
