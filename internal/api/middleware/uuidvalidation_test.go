package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/api/middleware"
)

// TestValidateUUIDMiddleware tests the URL parameter guard in front of every
// /{uuid} route.
//
// WHY: Handlers pass the ID straight to the repositories. A malformed ID must
// be rejected with 400 before any lookup happens, so that a 404 always means
// "well-formed but unknown".
func TestValidateUUIDMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		uuid       string
		wantCalled bool
		wantStatus int
	}{
		{"passes through valid UUID", "550e8400-e29b-41d4-a716-446655440000", true, http.StatusOK},
		{"rejects malformed UUID", "invalid-id", false, http.StatusBadRequest},
		{"rejects empty UUID", "", false, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("uuid", tt.uuid)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()
			middleware.ValidateUUIDMiddleware(next).ServeHTTP(w, req)

			assert.Equal(t, tt.wantCalled, called)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

// TestLogger tests the request logging middleware.
//
// WHY: The log level follows the response status so that failing requests
// stand out; the wrapped writer must therefore see the real status code.
func TestLogger(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"success logs at info", http.StatusOK, "info"},
		{"client error logs at warn", http.StatusNotFound, "warn"},
		{"server error logs at error", http.StatusInternalServerError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := zerolog.New(&buf)

			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/system/health", nil)
			w := httptest.NewRecorder()
			middleware.Logger(log)(next).ServeHTTP(w, req)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, float64(tt.status), entry["status"])
			assert.Equal(t, "/api/system/health", entry["path"])
			assert.Equal(t, "http", entry["component"])
		})
	}
}
