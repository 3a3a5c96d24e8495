package models

import "time"

// Event is a scheduled calendar item owned by one user. The [StartTime,
// EndTime) interval is half-open; two events of the same owner must not
// overlap.
type Event struct {
	ID                string
	Title             string
	Description       string
	StartTime         time.Time
	EndTime           time.Time
	Location          string
	IsRecurring       bool
	RecurrencePattern string
	OwnerID           string

	// Permissions is loaded eagerly by service operations that return the
	// event to the API layer. It is not written through the event itself.
	Permissions []*Permission
}
