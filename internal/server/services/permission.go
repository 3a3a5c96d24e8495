package services

import (
	"context"
	"database/sql"
	"errors"

	"eventcal-backend/internal/common"
	"eventcal-backend/internal/dbx"
	"eventcal-backend/internal/logging"
	"eventcal-backend/internal/server/models"
	"eventcal-backend/internal/server/notify"
	"eventcal-backend/internal/server/repositories/repomanager"
)

// PermissionGrant names one user to share an event with and the role to give
// them. Owner is not grantable; the single Owner row is created with the
// event and never reassigned.
type PermissionGrant struct {
	UserID string
	Role   models.PermissionRole
}

// PermissionService manages per-event sharing. Grants are all-or-nothing
// across a batch; every committed permission change is announced to the
// affected user through the notification channel.
type PermissionService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	publisher   notify.Publisher
	logger      logging.Logger
}

func NewPermissionService(db *sql.DB, m repomanager.RepositoryManager, pub notify.Publisher, logger logging.Logger) *PermissionService {
	return &PermissionService{db: db, repomanager: m, publisher: pub, logger: logger}
}

// Grant shares the event with the listed users in one transaction. The actor
// must be Owner. Entries naming the actor are skipped; a user that already
// holds a permission fails the whole batch with ErrConflict; an unknown user
// fails it with ErrNotFound. One "permission_granted" notification is
// published per created permission after commit.
func (s *PermissionService) Grant(ctx context.Context, actorID, eventID string, grants []PermissionGrant) ([]*models.Permission, error) {
	if len(grants) == 0 {
		return nil, common.ErrInvalidArgument
	}
	for _, g := range grants {
		if !g.Role.Valid() || g.Role == models.RoleOwner {
			return nil, common.ErrInvalidArgument
		}
	}

	var created []*models.Permission
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Events(tx).GetByID(ctx, eventID); err != nil {
			return err
		}
		if err := s.requireOwner(ctx, tx, eventID, actorID); err != nil {
			return err
		}

		perms := s.repomanager.Permissions(tx)
		for _, g := range grants {
			if g.UserID == actorID {
				continue
			}
			if _, err := s.repomanager.Users(tx).GetByID(ctx, g.UserID); err != nil {
				return err
			}
			if _, err := perms.Get(ctx, eventID, g.UserID); err == nil {
				return common.ErrConflict
			} else if !errors.Is(err, common.ErrNotFound) {
				return err
			}
			perm, err := perms.Create(ctx, &models.Permission{
				EventID: eventID,
				UserID:  g.UserID,
				Role:    g.Role,
			})
			if err != nil {
				return err
			}
			created = append(created, perm)
		}
		return nil
	})
	if err != nil {
		return nil, mapError(ctx, s.logger, "permission.grant", err)
	}

	for _, perm := range created {
		s.publish(ctx, []string{perm.UserID}, notify.Notification{
			"type":       "permission_granted",
			"event_id":   eventID,
			"role":       string(perm.Role),
			"granted_by": actorID,
		})
	}
	return created, nil
}

// List returns all permissions on the event. Any role may list.
func (s *PermissionService) List(ctx context.Context, actorID, eventID string) ([]*models.Permission, error) {
	if _, err := s.repomanager.Events(s.db).GetByID(ctx, eventID); err != nil {
		return nil, mapError(ctx, s.logger, "permission.list", err)
	}
	if _, err := s.repomanager.Permissions(s.db).Get(ctx, eventID, actorID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrForbidden
		}
		return nil, mapError(ctx, s.logger, "permission.list", err)
	}
	perms, err := s.repomanager.Permissions(s.db).ListByEvent(ctx, eventID)
	if err != nil {
		return nil, mapError(ctx, s.logger, "permission.list", err)
	}
	return perms, nil
}

// Update changes a user's role on the event. Owner only; changing one's own
// permission is rejected with ErrConflict so an event cannot lose its Owner.
func (s *PermissionService) Update(ctx context.Context, actorID, eventID, userID string, role models.PermissionRole) error {
	if !role.Valid() || role == models.RoleOwner {
		return common.ErrInvalidArgument
	}
	if userID == actorID {
		return common.ErrConflict
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Events(tx).GetByID(ctx, eventID); err != nil {
			return err
		}
		if err := s.requireOwner(ctx, tx, eventID, actorID); err != nil {
			return err
		}
		return s.repomanager.Permissions(tx).UpdateRole(ctx, eventID, userID, role)
	})
	if err != nil {
		return mapError(ctx, s.logger, "permission.update", err)
	}

	s.publish(ctx, []string{userID}, notify.Notification{
		"type":     "permission_updated",
		"event_id": eventID,
		"role":     string(role),
	})
	return nil
}

// Delete revokes a user's permission on the event. Owner only; revoking
// one's own permission is rejected with ErrConflict.
func (s *PermissionService) Delete(ctx context.Context, actorID, eventID, userID string) error {
	if userID == actorID {
		return common.ErrConflict
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Events(tx).GetByID(ctx, eventID); err != nil {
			return err
		}
		if err := s.requireOwner(ctx, tx, eventID, actorID); err != nil {
			return err
		}
		return s.repomanager.Permissions(tx).Delete(ctx, eventID, userID)
	})
	if err != nil {
		return mapError(ctx, s.logger, "permission.delete", err)
	}

	s.publish(ctx, []string{userID}, notify.Notification{
		"type":     "permission_revoked",
		"event_id": eventID,
	})
	return nil
}

func (s *PermissionService) requireOwner(ctx context.Context, db dbx.DBTX, eventID, actorID string) error {
	perm, err := s.repomanager.Permissions(db).Get(ctx, eventID, actorID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrForbidden
		}
		return err
	}
	if perm.Role != models.RoleOwner {
		return common.ErrForbidden
	}
	return nil
}

func (s *PermissionService) publish(ctx context.Context, userIDs []string, n notify.Notification) {
	if err := s.publisher.Publish(ctx, userIDs, n); err != nil {
		s.logger.Warn(ctx, "notification publish failed", "type", n["type"], "error", err)
	}
}
