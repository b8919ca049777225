package models

import "github.com/google/uuid"

// AccessContext is the typed result of resolving an authenticated principal:
// the user id, which roles the principal holds, and the linked domain records
// for each claimed role. It is passed explicitly through every authorization
// call rather than stashed in ambient state, so tests can construct synthetic
// contexts directly.
type AccessContext struct {
	UserID      uuid.UUID
	IsAdmin     bool
	IsScientist bool
	IsLabeler   bool
	Scientist   *Scientist
	Labeler     *Labeler
}
