package models

// PermissionRole is the per-event role of a user. Roles are ordered
// Owner > Editor > Viewer in capability.
type PermissionRole string

const (
	RoleOwner  PermissionRole = "Owner"
	RoleEditor PermissionRole = "Editor"
	RoleViewer PermissionRole = "Viewer"
)

// Valid reports whether r is one of the known roles.
func (r PermissionRole) Valid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// CanEdit reports whether the role allows mutating the event's fields.
func (r PermissionRole) CanEdit() bool {
	return r == RoleOwner || r == RoleEditor
}

// Permission grants a user a role on an event. There is at most one row per
// (event, user) pair; exactly one Owner row is created with the event.
type Permission struct {
	ID      string
	EventID string
	UserID  string
	Role    PermissionRole
}
