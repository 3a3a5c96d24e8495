// Package events provides the PostgreSQL-backed repository for calendar
// events, including the interval-overlap conflict query.
package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"eventcal-backend/internal/common"
	"eventcal-backend/internal/dbx"
	"eventcal-backend/internal/server/models"
)

// PostgresRepository implements event storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const eventColumns = `id, title, description, start_time, end_time, location, is_recurring, recurrence_pattern, owner_id`

func (r *PostgresRepository) Create(ctx context.Context, event *models.Event) (*models.Event, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	query := `
		INSERT INTO events (id, title, description, start_time, end_time, location, is_recurring, recurrence_pattern, owner_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := r.db.ExecContext(ctx, query,
		event.ID, event.Title, event.Description, event.StartTime, event.EndTime,
		event.Location, event.IsRecurring, event.RecurrencePattern, event.OwnerID); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return event, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return scanEvent(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByIDForUpdate(ctx context.Context, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	return scanEvent(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) Update(ctx context.Context, event *models.Event) error {
	query := `
		UPDATE events
		SET title = $2, description = $3, start_time = $4, end_time = $5,
		    location = $6, is_recurring = $7, recurrence_pattern = $8
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query,
		event.ID, event.Title, event.Description, event.StartTime, event.EndTime,
		event.Location, event.IsRecurring, event.RecurrencePattern)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// Delete removes the event row. Permission and history rows follow via the
// ON DELETE CASCADE constraints in the schema.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListForUser(ctx context.Context, userID string, skip, limit int) ([]*models.Event, error) {
	query := `
		SELECT e.id, e.title, e.description, e.start_time, e.end_time, e.location, e.is_recurring, e.recurrence_pattern, e.owner_id
		FROM events e
		JOIN permissions p ON p.event_id = e.id
		WHERE p.user_id = $1
		ORDER BY e.start_time
		OFFSET $2 LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, userID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.StartTime, &e.EndTime,
			&e.Location, &e.IsRecurring, &e.RecurrencePattern, &e.OwnerID); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// AnyOverlapping uses the half-open interval test: an existing event
// conflicts when existing.start < candidate.end AND existing.end >
// candidate.start. Back-to-back events sharing a boundary do not conflict.
func (r *PostgresRepository) AnyOverlapping(ctx context.Context, ownerID string, start, end time.Time, excludeEventID string) (bool, error) {
	var (
		row *sql.Row
	)
	if excludeEventID == "" {
		query := `
			SELECT EXISTS (
				SELECT 1 FROM events
				WHERE owner_id = $1 AND start_time < $3 AND end_time > $2
			)
		`
		row = r.db.QueryRowContext(ctx, query, ownerID, start, end)
	} else {
		query := `
			SELECT EXISTS (
				SELECT 1 FROM events
				WHERE owner_id = $1 AND id <> $4 AND start_time < $3 AND end_time > $2
			)
		`
		row = r.db.QueryRowContext(ctx, query, ownerID, start, end, excludeEventID)
	}

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func scanEvent(row *sql.Row) (*models.Event, error) {
	e := &models.Event{}
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.StartTime, &e.EndTime,
		&e.Location, &e.IsRecurring, &e.RecurrencePattern, &e.OwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}
