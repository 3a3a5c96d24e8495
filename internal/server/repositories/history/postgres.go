// Package history provides the PostgreSQL-backed repository for the
// append-only versioned snapshot log. Rows are immutable once written; the
// only deletions happen via the event cascade.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"eventcal-backend/internal/common"
	"eventcal-backend/internal/dbx"
	"eventcal-backend/internal/server/models"
)

// PostgresRepository implements history storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) NextVersion(ctx context.Context, eventID string) (int64, error) {
	query := `SELECT COALESCE(MAX(version), 0) + 1 FROM histories WHERE event_id = $1`

	var next int64
	if err := r.db.QueryRowContext(ctx, query, eventID).Scan(&next); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return next, nil
}

func (r *PostgresRepository) Create(ctx context.Context, h *models.History) (*models.History, error) {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}

	data, err := json.Marshal(h.Data)
	if err != nil {
		return nil, fmt.Errorf("snapshot marshal error: %w", err)
	}

	query := `
		INSERT INTO histories (id, event_id, version, data, created_at, changed_by)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query,
		h.ID, h.EventID, h.Version, data, h.Timestamp, h.ChangedBy); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return h, nil
}

func (r *PostgresRepository) ListByEvent(ctx context.Context, eventID string) ([]*models.History, error) {
	query := `
		SELECT id, event_id, version, data, created_at, changed_by FROM histories
		WHERE event_id = $1
		ORDER BY version
	`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.History
	for rows.Next() {
		h, err := scanHistory(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.History, error) {
	query := `
		SELECT id, event_id, version, data, created_at, changed_by FROM histories
		WHERE id = $1
	`
	h, err := scanHistory(r.db.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return h, nil
}

func scanHistory(scan func(dest ...any) error) (*models.History, error) {
	h := &models.History{}
	var data []byte
	if err := scan(&h.ID, &h.EventID, &h.Version, &data, &h.Timestamp, &h.ChangedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := json.Unmarshal(data, &h.Data); err != nil {
		return nil, fmt.Errorf("snapshot unmarshal error: %w", err)
	}
	return h, nil
}
