package models

import "time"

// History is an immutable snapshot of an event's mutable fields, captured
// just before the mutation it accompanies. Versions are strictly increasing
// per event, starting at 1, with no gaps. ChangedBy is nil when the causing
// user no longer exists.
type History struct {
	ID        string
	EventID   string
	Version   int64
	Data      Snapshot
	Timestamp time.Time
	ChangedBy *string
}
