package users

import (
	"context"

	"eventcal-backend/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByLogin looks a user up by username or email (the same credential
	// field serves both at login).
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	// FindByUsernameOrEmail returns a user matching either value, used for
	// uniqueness checks at registration.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
}
