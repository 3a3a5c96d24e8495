// Package permissions provides the PostgreSQL-backed repository for per-event
// sharing permissions.
package permissions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"eventcal-backend/internal/common"
	"eventcal-backend/internal/dbx"
	"eventcal-backend/internal/server/models"
)

// PostgresRepository implements permission storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, eventID, userID string) (*models.Permission, error) {
	query := `
		SELECT id, event_id, user_id, role FROM permissions
		WHERE event_id = $1 AND user_id = $2
	`
	p := &models.Permission{}
	err := r.db.QueryRowContext(ctx, query, eventID, userID).Scan(&p.ID, &p.EventID, &p.UserID, &p.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, perm *models.Permission) (*models.Permission, error) {
	if perm.ID == "" {
		perm.ID = uuid.NewString()
	}

	query := `
		INSERT INTO permissions (id, event_id, user_id, role)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query, perm.ID, perm.EventID, perm.UserID, perm.Role); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return perm, nil
}

func (r *PostgresRepository) ListByEvent(ctx context.Context, eventID string) ([]*models.Permission, error) {
	query := `
		SELECT id, event_id, user_id, role FROM permissions
		WHERE event_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Permission
	for rows.Next() {
		var p models.Permission
		if err := rows.Scan(&p.ID, &p.EventID, &p.UserID, &p.Role); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) UpdateRole(ctx context.Context, eventID, userID string, role models.PermissionRole) error {
	query := `
		UPDATE permissions SET role = $3
		WHERE event_id = $1 AND user_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, eventID, userID, role)
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

func (r *PostgresRepository) Delete(ctx context.Context, eventID, userID string) error {
	query := `
		DELETE FROM permissions
		WHERE event_id = $1 AND user_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, eventID, userID)
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

func (r *PostgresRepository) ParticipantIDs(ctx context.Context, eventID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM permissions WHERE event_id = $1`, eventID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return ids, nil
}
