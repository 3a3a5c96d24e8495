package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eventcal-backend/internal/common"
	"eventcal-backend/internal/dbx"
	"eventcal-backend/internal/logging"
	"eventcal-backend/internal/server/models"
	"eventcal-backend/internal/server/repositories/repomanager"
)

// HistoryService exposes the versioned history of an event: the ordered
// snapshot log, point reads, rollback, and structural diff between two
// versions. Rollback follows the same snapshot-before-mutation protocol as
// every other write, so rollbacks are themselves revertible.
type HistoryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewHistoryService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *HistoryService {
	return &HistoryService{db: db, repomanager: m, logger: logger}
}

// List returns the event's history rows in ascending version order. The
// actor must hold any role on the event.
func (s *HistoryService) List(ctx context.Context, actorID, eventID string) ([]*models.History, error) {
	if err := s.requireAccess(ctx, eventID, actorID); err != nil {
		return nil, mapError(ctx, s.logger, "history.list", err)
	}
	rows, err := s.repomanager.History(s.db).ListByEvent(ctx, eventID)
	if err != nil {
		return nil, mapError(ctx, s.logger, "history.list", err)
	}
	return rows, nil
}

// GetVersion returns one history row by id. A row belonging to a different
// event is treated as absent.
func (s *HistoryService) GetVersion(ctx context.Context, actorID, eventID, versionID string) (*models.History, error) {
	if err := s.requireAccess(ctx, eventID, actorID); err != nil {
		return nil, mapError(ctx, s.logger, "history.get_version", err)
	}
	row, err := s.repomanager.History(s.db).GetByID(ctx, versionID)
	if err != nil {
		return nil, mapError(ctx, s.logger, "history.get_version", err)
	}
	if row.EventID != eventID {
		return nil, common.ErrNotFound
	}
	return row, nil
}

// Rollback restores the event's mutable fields from the target snapshot.
// The pre-rollback state is appended to history first, inside the same
// transaction, so the rollback itself shows up as a version. Owner or Editor
// required; the owner field is never rewritten.
func (s *HistoryService) Rollback(ctx context.Context, actorID, eventID, versionID string) (*models.Event, error) {
	var event *models.Event
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		event, err = s.repomanager.Events(tx).GetByIDForUpdate(ctx, eventID)
		if err != nil {
			return err
		}

		perm, err := s.repomanager.Permissions(tx).Get(ctx, eventID, actorID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.ErrForbidden
			}
			return err
		}
		if !perm.Role.CanEdit() {
			return common.ErrForbidden
		}

		repo := s.repomanager.History(tx)
		target, err := repo.GetByID(ctx, versionID)
		if err != nil {
			return err
		}
		if target.EventID != eventID {
			return common.ErrNotFound
		}

		version, err := repo.NextVersion(ctx, eventID)
		if err != nil {
			return err
		}
		if _, err := repo.Create(ctx, &models.History{
			EventID:   eventID,
			Version:   version,
			Data:      models.SnapshotOf(event),
			Timestamp: time.Now().UTC(),
			ChangedBy: &actorID,
		}); err != nil {
			return err
		}

		if err := target.Data.Apply(event); err != nil {
			return fmt.Errorf("corrupt snapshot %s: %w", versionID, err)
		}
		if err := s.repomanager.Events(tx).Update(ctx, event); err != nil {
			return err
		}

		perms, err := s.repomanager.Permissions(tx).ListByEvent(ctx, eventID)
		if err != nil {
			return err
		}
		event.Permissions = perms
		return nil
	})
	if err != nil {
		return nil, mapError(ctx, s.logger, "history.rollback", err)
	}
	return event, nil
}

// Diff compares two history versions of the event structurally. Comparing a
// version with itself yields an empty diff.
func (s *HistoryService) Diff(ctx context.Context, actorID, eventID, fromID, toID string) (*models.SnapshotDiff, error) {
	if err := s.requireAccess(ctx, eventID, actorID); err != nil {
		return nil, mapError(ctx, s.logger, "history.diff", err)
	}

	repo := s.repomanager.History(s.db)
	from, err := repo.GetByID(ctx, fromID)
	if err != nil {
		return nil, mapError(ctx, s.logger, "history.diff", err)
	}
	to, err := repo.GetByID(ctx, toID)
	if err != nil {
		return nil, mapError(ctx, s.logger, "history.diff", err)
	}
	if from.EventID != eventID || to.EventID != eventID {
		return nil, common.ErrNotFound
	}

	return models.DiffSnapshots(from.Data, to.Data), nil
}

// requireAccess checks the event exists and the actor holds any role on it.
func (s *HistoryService) requireAccess(ctx context.Context, eventID, actorID string) error {
	if _, err := s.repomanager.Events(s.db).GetByID(ctx, eventID); err != nil {
		return err
	}
	if _, err := s.repomanager.Permissions(s.db).Get(ctx, eventID, actorID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrForbidden
		}
		return err
	}
	return nil
}
