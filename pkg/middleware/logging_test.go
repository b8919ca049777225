package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger_NilLoggerPassesThrough(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	RequestLogger(nil)(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRequestLogger_SuccessLogsDebug(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	rec := httptest.NewRecorder()
	RequestLogger(zap.New(core))(handler).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.DebugLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, int64(2), fields["bytes"])
	assert.Equal(t, "/api/projects", fields["path"])
}

func TestRequestLogger_ServerErrorLogsWarn(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	rec := httptest.NewRecorder()
	RequestLogger(zap.New(core))(handler).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/projects", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, int64(http.StatusBadGateway), entries[0].ContextMap()["status"])
}

func TestRequestLogger_RedactsAccessCodeInPath(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	RequestLogger(zap.New(core))(handler).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/access-codes/Ab3dEf6hIj9kLm1n", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.NotContains(t, entries[0].ContextMap()["path"], "Ab3dEf6hIj9kLm1n")
}
