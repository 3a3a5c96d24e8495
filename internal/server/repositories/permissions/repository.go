package permissions

import (
	"context"

	"eventcal-backend/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, eventID, userID string) (*models.Permission, error)
	Create(ctx context.Context, perm *models.Permission) (*models.Permission, error)
	ListByEvent(ctx context.Context, eventID string) ([]*models.Permission, error)
	UpdateRole(ctx context.Context, eventID, userID string, role models.PermissionRole) error
	Delete(ctx context.Context, eventID, userID string) error
	// ParticipantIDs returns the ids of all users holding any permission on
	// the event, used to compute notification target sets.
	ParticipantIDs(ctx context.Context, eventID string) ([]string, error)
}
