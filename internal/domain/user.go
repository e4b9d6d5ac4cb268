package domain

import "time"

// Role enumerates the closed set of actor roles.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleSupport Role = "support"
	RoleUser    Role = "user"
)

// Valid reports whether the role is one of the known variants.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSupport, RoleUser:
		return true
	}
	return false
}

// IsStaff reports whether the role may act on tickets it does not own.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSupport
}

// User is the domain model for everyone who touches the system: requesters,
// support staff and administrators, differentiated by Role.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Department   string
	Phone        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
