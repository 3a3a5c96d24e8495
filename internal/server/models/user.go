// Package models defines the persistence-level entities of the calendar
// backend: users, events, sharing permissions, and versioned history
// snapshots.
package models

// UserRole is the account-level role of a user.
type UserRole string

const (
	UserRoleAdmin UserRole = "Admin"
	UserRoleUser  UserRole = "User"
)

type User struct {
	ID             string
	Username       string
	Email          string
	HashedPassword string
	IsActive       bool
	Role           UserRole
}
