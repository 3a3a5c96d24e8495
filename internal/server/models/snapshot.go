package models

import (
	"fmt"
	"time"
)

// Snapshot is the flat, portable field map stored in a History row.
// Timestamps are kept as RFC 3339 strings so the snapshot serializes to a
// plain JSON object; Apply parses them back into time values.
type Snapshot map[string]any

// Snapshot field keys.
const (
	FieldTitle             = "title"
	FieldDescription       = "description"
	FieldStartTime         = "start_time"
	FieldEndTime           = "end_time"
	FieldLocation          = "location"
	FieldIsRecurring       = "is_recurring"
	FieldRecurrencePattern = "recurrence_pattern"
	FieldOwnerID           = "owner_id"
)

// SnapshotOf captures the event's current mutable fields.
func SnapshotOf(e *Event) Snapshot {
	return Snapshot{
		FieldTitle:             e.Title,
		FieldDescription:       e.Description,
		FieldStartTime:         e.StartTime.Format(time.RFC3339Nano),
		FieldEndTime:           e.EndTime.Format(time.RFC3339Nano),
		FieldLocation:          e.Location,
		FieldIsRecurring:       e.IsRecurring,
		FieldRecurrencePattern: e.RecurrencePattern,
		FieldOwnerID:           e.OwnerID,
	}
}

// Apply writes the snapshot's values onto the event, converting serialized
// timestamps back into time values. Keys absent from the snapshot leave the
// corresponding field untouched; the owner is never rewritten by a rollback.
func (s Snapshot) Apply(e *Event) error {
	if v, ok := s[FieldTitle].(string); ok {
		e.Title = v
	}
	if v, ok := s[FieldDescription].(string); ok {
		e.Description = v
	}
	if v, ok := s[FieldStartTime].(string); ok {
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return fmt.Errorf("invalid start_time in snapshot: %w", err)
		}
		e.StartTime = ts
	}
	if v, ok := s[FieldEndTime].(string); ok {
		ts, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return fmt.Errorf("invalid end_time in snapshot: %w", err)
		}
		e.EndTime = ts
	}
	if v, ok := s[FieldLocation].(string); ok {
		e.Location = v
	}
	if v, ok := s[FieldIsRecurring].(bool); ok {
		e.IsRecurring = v
	}
	if v, ok := s[FieldRecurrencePattern].(string); ok {
		e.RecurrencePattern = v
	}
	return nil
}

// FieldChange records one changed key in a snapshot diff.
type FieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// SnapshotDiff is a structural comparison of two snapshots: keys only in the
// "to" side, keys only in the "from" side, and keys present in both with
// different values.
type SnapshotDiff struct {
	Added   map[string]any         `json:"added"`
	Removed map[string]any         `json:"removed"`
	Changed map[string]FieldChange `json:"changed"`
}

// Empty reports whether the diff carries no differences.
func (d *SnapshotDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// DiffSnapshots compares two snapshots. The argument order only decides which
// side is "from" vs "to"; values are scalar, so plain equality suffices.
func DiffSnapshots(from, to Snapshot) *SnapshotDiff {
	d := &SnapshotDiff{
		Added:   map[string]any{},
		Removed: map[string]any{},
		Changed: map[string]FieldChange{},
	}
	for k, v := range to {
		old, ok := from[k]
		if !ok {
			d.Added[k] = v
			continue
		}
		if old != v {
			d.Changed[k] = FieldChange{From: old, To: v}
		}
	}
	for k, v := range from {
		if _, ok := to[k]; !ok {
			d.Removed[k] = v
		}
	}
	return d
}
