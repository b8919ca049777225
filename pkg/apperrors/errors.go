package apperrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrIdentityMissing   = errors.New("user identity not found")
	ErrRoleInconsistency = errors.New("claimed role has no linked record")
	ErrNoRecognizedRole  = errors.New("no recognized role")
	ErrInvalidExpiration = errors.New("invalid expiration or days value")
	ErrConflict          = errors.New("conflict")
)
