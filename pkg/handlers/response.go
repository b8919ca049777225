// Package handlers contains the HTTP surface of vidmark-engine.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/vidmark-labs/vidmark-engine/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// WriteDomainError maps a service error to its transport status.
//
// The mapping is part of the authorization design: a role claimed without a
// linked record and a missing traversal hop both read as 404, so a denied
// caller cannot distinguish hidden resources from absent ones. Only an
// explicit ownership or membership denial reads as 403.
func WriteDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var status int
	var code string

	switch {
	case errors.Is(err, apperrors.ErrIdentityMissing):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperrors.ErrForbidden),
		errors.Is(err, apperrors.ErrNoRecognizedRole):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperrors.ErrNotFound),
		errors.Is(err, apperrors.ErrRoleInconsistency):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrInvalidExpiration):
		status, code = http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, apperrors.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	default:
		logger.Error("request failed", zap.Error(err))
		status, code = http.StatusInternalServerError, "internal_error"
	}

	if werr := ErrorResponse(w, status, code, http.StatusText(status)); werr != nil {
		logger.Error("Failed to write error response", zap.Error(werr))
	}
}
