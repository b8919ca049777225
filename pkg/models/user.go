// Package models contains domain types for vidmark-engine.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered platform user. Roles are not mutually
// exclusive: a user may hold any subset of {admin, scientist, labeler}.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

// Role constants.
const (
	RoleAdmin     = "admin"
	RoleScientist = "scientist"
	RoleLabeler   = "labeler"
)

// ValidRoles contains all valid role values.
var ValidRoles = []string{RoleAdmin, RoleScientist, RoleLabeler}

// IsValidRole checks if the given role is valid.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Scientist is the domain record linked one-to-one with a user holding the
// scientist role. Scientists own projects.
type Scientist struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Labeler is the domain record linked one-to-one with a user holding the
// labeler role. Labelers gain resource access only through assignment rosters.
type Labeler struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
