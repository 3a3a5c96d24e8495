package repomanager

import (
	"context"
	"database/sql"

	"eventcal-backend/internal/dbx"
	"eventcal-backend/internal/server/repositories/events"
	"eventcal-backend/internal/server/repositories/history"
	"eventcal-backend/internal/server/repositories/permissions"
	"eventcal-backend/internal/server/repositories/users"
)

// RepositoryManager hands out per-entity repositories bound to a DBTX, so
// services can run the same repository code against the pool or inside a
// transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Events(db dbx.DBTX) events.Repository
	Permissions(db dbx.DBTX) permissions.Repository
	History(db dbx.DBTX) history.Repository
}
