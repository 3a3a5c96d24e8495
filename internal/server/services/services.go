// Package services contains the server-side business logic: authentication
// and token lifecycle, event mutations with conflict detection, per-event
// sharing permissions, and the versioned history engine. Each mutating
// operation runs in one database transaction; notifications are published
// after commit and never affect the outcome of the operation itself.
package services

import (
	"context"

	"eventcal-backend/internal/common"
	"eventcal-backend/internal/logging"
)

// mapError implements the propagation policy at the operation boundary:
// expected business-rule failures pass through unchanged, everything else is
// logged with context and surfaced uniformly as ErrServiceUnavailable.
func mapError(ctx context.Context, logger logging.Logger, op string, err error) error {
	if err == nil {
		return nil
	}
	if common.IsBusinessError(err) {
		return err
	}
	logger.Error(ctx, "operation failed", "op", op, "error", err)
	return common.ErrServiceUnavailable
}

// withoutUser returns ids with the given user filtered out, preserving order.
// Used to exclude the acting user from a notification target set.
func withoutUser(ids []string, userID string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != userID {
			out = append(out, id)
		}
	}
	return out
}
