package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	"eventcal-backend/internal/common"
	"eventcal-backend/internal/dbx"
	"eventcal-backend/internal/logging"
	"eventcal-backend/internal/server/models"
	"eventcal-backend/internal/server/notify"
	"eventcal-backend/internal/server/repositories/repomanager"
)

const defaultListLimit = 100

// EventInput carries the mutable fields for creating an event.
type EventInput struct {
	Title             string
	Description       string
	StartTime         time.Time
	EndTime           time.Time
	Location          string
	IsRecurring       bool
	RecurrencePattern string
}

// EventUpdate carries a partial update; nil fields are left unchanged.
type EventUpdate struct {
	Title             *string
	Description       *string
	StartTime         *time.Time
	EndTime           *time.Time
	Location          *string
	IsRecurring       *bool
	RecurrencePattern *string
}

// EventService implements event CRUD with permission checks, owner-interval
// conflict detection, and the snapshot-before-mutation history protocol.
// Every mutating operation runs in one transaction and locks the event row
// before computing the next history version.
type EventService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	publisher   notify.Publisher
	logger      logging.Logger
}

func NewEventService(db *sql.DB, m repomanager.RepositoryManager, pub notify.Publisher, logger logging.Logger) *EventService {
	return &EventService{db: db, repomanager: m, publisher: pub, logger: logger}
}

// Create inserts the event, its Owner permission, and the version-1 history
// snapshot in one transaction. An interval overlap with another event of the
// same owner fails with ErrConflict; nothing is written.
func (s *EventService) Create(ctx context.Context, ownerID string, in EventInput) (*models.Event, error) {
	if err := validateEventInput(in); err != nil {
		return nil, err
	}

	var event *models.Event
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		event, err = s.createInTx(ctx, tx, ownerID, in)
		return err
	})
	if err != nil {
		return nil, mapError(ctx, s.logger, "event.create", err)
	}
	return event, nil
}

// CreateBatch inserts several events atomically. Each event is checked for
// overlap against the owner's existing events and against the earlier events
// of the same batch; any conflict rolls the whole batch back.
func (s *EventService) CreateBatch(ctx context.Context, ownerID string, inputs []EventInput) ([]*models.Event, error) {
	if len(inputs) == 0 {
		return nil, common.ErrInvalidArgument
	}
	for _, in := range inputs {
		if err := validateEventInput(in); err != nil {
			return nil, err
		}
	}

	var created []*models.Event
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, in := range inputs {
			event, err := s.createInTx(ctx, tx, ownerID, in)
			if err != nil {
				return err
			}
			created = append(created, event)
		}
		return nil
	})
	if err != nil {
		return nil, mapError(ctx, s.logger, "event.create_batch", err)
	}
	return created, nil
}

// Get returns the event with its permissions loaded. The actor must hold any
// role on the event; otherwise ErrForbidden.
func (s *EventService) Get(ctx context.Context, actorID, eventID string) (*models.Event, error) {
	event, err := s.repomanager.Events(s.db).GetByID(ctx, eventID)
	if err != nil {
		return nil, mapError(ctx, s.logger, "event.get", err)
	}
	if _, err := s.requireRole(ctx, s.db, eventID, actorID); err != nil {
		return nil, mapError(ctx, s.logger, "event.get", err)
	}
	if err := s.loadPermissions(ctx, s.db, event); err != nil {
		return nil, mapError(ctx, s.logger, "event.get", err)
	}
	return event, nil
}

// List returns the events the actor holds any permission on, ordered by
// start time, paginated by skip/limit.
func (s *EventService) List(ctx context.Context, actorID string, skip, limit int) ([]*models.Event, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	events, err := s.repomanager.Events(s.db).ListForUser(ctx, actorID, skip, limit)
	if err != nil {
		return nil, mapError(ctx, s.logger, "event.list", err)
	}
	return events, nil
}

// Update applies a partial update. The actor needs Owner or Editor. The
// event's current state is snapshotted into history before the change is
// written; when the interval moves, the overlap check runs against the
// owner's other events first.
func (s *EventService) Update(ctx context.Context, actorID, eventID string, upd EventUpdate) (*models.Event, error) {
	var event *models.Event
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		event, err = s.repomanager.Events(tx).GetByIDForUpdate(ctx, eventID)
		if err != nil {
			return err
		}

		perm, err := s.requireRole(ctx, tx, eventID, actorID)
		if err != nil {
			return err
		}
		if !perm.Role.CanEdit() {
			return common.ErrForbidden
		}

		start, end := event.StartTime, event.EndTime
		if upd.StartTime != nil {
			start = *upd.StartTime
		}
		if upd.EndTime != nil {
			end = *upd.EndTime
		}
		if !end.After(start) {
			return common.ErrInvalidArgument
		}
		if upd.RecurrencePattern != nil && *upd.RecurrencePattern != "" {
			if _, err := rrule.StrToRRule(*upd.RecurrencePattern); err != nil {
				return common.ErrInvalidArgument
			}
		}
		if upd.StartTime != nil || upd.EndTime != nil {
			overlaps, err := s.repomanager.Events(tx).AnyOverlapping(ctx, event.OwnerID, start, end, eventID)
			if err != nil {
				return err
			}
			if overlaps {
				return common.ErrConflict
			}
		}

		if err := s.appendSnapshot(ctx, tx, event, actorID); err != nil {
			return err
		}

		applyUpdate(event, upd)
		if err := s.repomanager.Events(tx).Update(ctx, event); err != nil {
			return err
		}
		return s.loadPermissions(ctx, tx, event)
	})
	if err != nil {
		return nil, mapError(ctx, s.logger, "event.update", err)
	}
	return event, nil
}

// Delete removes the event; permission and history rows go with it via the
// schema cascade. Owner only. On success an "event_deleted" notification is
// published to every other participant; publish failures are logged and do
// not affect the result.
func (s *EventService) Delete(ctx context.Context, actorID, eventID string) error {
	var (
		participants []string
		title        string
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		event, err := s.repomanager.Events(tx).GetByIDForUpdate(ctx, eventID)
		if err != nil {
			return err
		}
		title = event.Title

		perm, err := s.requireRole(ctx, tx, eventID, actorID)
		if err != nil {
			return err
		}
		if perm.Role != models.RoleOwner {
			return common.ErrForbidden
		}

		// The target set must be read before the delete cascades the
		// permission rows away.
		participants, err = s.repomanager.Permissions(tx).ParticipantIDs(ctx, eventID)
		if err != nil {
			return err
		}

		return s.repomanager.Events(tx).Delete(ctx, eventID)
	})
	if err != nil {
		return mapError(ctx, s.logger, "event.delete", err)
	}

	s.publish(ctx, withoutUser(participants, actorID), notify.Notification{
		"type":     "event_deleted",
		"event_id": eventID,
		"title":    title,
	})
	return nil
}

// createInTx runs the shared creation protocol on the transaction handle:
// overlap check, event row, Owner permission, version-1 snapshot.
func (s *EventService) createInTx(ctx context.Context, tx dbx.DBTX, ownerID string, in EventInput) (*models.Event, error) {
	overlaps, err := s.repomanager.Events(tx).AnyOverlapping(ctx, ownerID, in.StartTime, in.EndTime, "")
	if err != nil {
		return nil, err
	}
	if overlaps {
		return nil, common.ErrConflict
	}

	event, err := s.repomanager.Events(tx).Create(ctx, &models.Event{
		Title:             in.Title,
		Description:       in.Description,
		StartTime:         in.StartTime,
		EndTime:           in.EndTime,
		Location:          in.Location,
		IsRecurring:       in.IsRecurring,
		RecurrencePattern: in.RecurrencePattern,
		OwnerID:           ownerID,
	})
	if err != nil {
		return nil, err
	}

	owner, err := s.repomanager.Permissions(tx).Create(ctx, &models.Permission{
		EventID: event.ID,
		UserID:  ownerID,
		Role:    models.RoleOwner,
	})
	if err != nil {
		return nil, err
	}
	event.Permissions = []*models.Permission{owner}

	if err := s.appendSnapshot(ctx, tx, event, ownerID); err != nil {
		return nil, err
	}
	return event, nil
}

// appendSnapshot writes a history row capturing the event's current state,
// attributed to the actor. Must run inside the mutation's transaction after
// the event row is locked.
func (s *EventService) appendSnapshot(ctx context.Context, tx dbx.DBTX, event *models.Event, actorID string) error {
	repo := s.repomanager.History(tx)
	version, err := repo.NextVersion(ctx, event.ID)
	if err != nil {
		return err
	}
	_, err = repo.Create(ctx, &models.History{
		EventID:   event.ID,
		Version:   version,
		Data:      models.SnapshotOf(event),
		Timestamp: time.Now().UTC(),
		ChangedBy: &actorID,
	})
	return err
}

// requireRole returns the actor's permission on the event. A missing
// permission maps to ErrForbidden: the event exists but the actor has no
// access to it.
func (s *EventService) requireRole(ctx context.Context, db dbx.DBTX, eventID, actorID string) (*models.Permission, error) {
	perm, err := s.repomanager.Permissions(db).Get(ctx, eventID, actorID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrForbidden
		}
		return nil, err
	}
	return perm, nil
}

func (s *EventService) loadPermissions(ctx context.Context, db dbx.DBTX, event *models.Event) error {
	perms, err := s.repomanager.Permissions(db).ListByEvent(ctx, event.ID)
	if err != nil {
		return err
	}
	event.Permissions = perms
	return nil
}

func (s *EventService) publish(ctx context.Context, userIDs []string, n notify.Notification) {
	if err := s.publisher.Publish(ctx, userIDs, n); err != nil {
		s.logger.Warn(ctx, "notification publish failed", "type", n["type"], "error", err)
	}
}

func validateEventInput(in EventInput) error {
	if in.Title == "" {
		return common.ErrInvalidArgument
	}
	if !in.EndTime.After(in.StartTime) {
		return common.ErrInvalidArgument
	}
	if in.RecurrencePattern != "" {
		if _, err := rrule.StrToRRule(in.RecurrencePattern); err != nil {
			return common.ErrInvalidArgument
		}
	}
	return nil
}

func applyUpdate(event *models.Event, upd EventUpdate) {
	if upd.Title != nil {
		event.Title = *upd.Title
	}
	if upd.Description != nil {
		event.Description = *upd.Description
	}
	if upd.StartTime != nil {
		event.StartTime = *upd.StartTime
	}
	if upd.EndTime != nil {
		event.EndTime = *upd.EndTime
	}
	if upd.Location != nil {
		event.Location = *upd.Location
	}
	if upd.IsRecurring != nil {
		event.IsRecurring = *upd.IsRecurring
	}
	if upd.RecurrencePattern != nil {
		event.RecurrencePattern = *upd.RecurrencePattern
	}
}
