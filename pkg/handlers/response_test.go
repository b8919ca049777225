package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vidmark-labs/vidmark-engine/pkg/apperrors"
)

func TestWriteDomainError_StatusMapping(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "identity missing",
			err:            apperrors.ErrIdentityMissing,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   "unauthorized",
		},
		{
			name:           "forbidden",
			err:            apperrors.ErrForbidden,
			expectedStatus: http.StatusForbidden,
			expectedCode:   "forbidden",
		},
		{
			name:           "no recognized role",
			err:            apperrors.ErrNoRecognizedRole,
			expectedStatus: http.StatusForbidden,
			expectedCode:   "forbidden",
		},
		{
			name:           "not found",
			err:            apperrors.ErrNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   "not_found",
		},
		{
			name:           "role inconsistency reads as not found",
			err:            apperrors.ErrRoleInconsistency,
			expectedStatus: http.StatusNotFound,
			expectedCode:   "not_found",
		},
		{
			name:           "invalid expiration",
			err:            apperrors.ErrInvalidExpiration,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "invalid_argument",
		},
		{
			name:           "conflict",
			err:            apperrors.ErrConflict,
			expectedStatus: http.StatusConflict,
			expectedCode:   "conflict",
		},
		{
			name:           "unexpected error",
			err:            errors.New("connection reset"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteDomainError(rec, zap.NewNop(), tt.err)

			assert.Equal(t, tt.expectedStatus, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedCode, body["error"])
		})
	}
}

func TestWriteDomainError_WrappedSentinel(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteDomainError(rec, zap.NewNop(),
		fmt.Errorf("failed to get project: %w", apperrors.ErrNotFound))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
