package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termgrid/termgrid/internal/config"
	"github.com/termgrid/termgrid/internal/logging"
)

// Prometheus collectors register once per process, so every subtest shares
// one server.
func TestServerComposition(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("HOME override is not honored on windows")
	}
	t.Setenv("HOME", t.TempDir())

	cfg := config.Default()
	cfg.RateLimit.Enabled = false

	srv, err := New(cfg, logging.NewNop())
	require.NoError(t, err)
	router := srv.Router()

	get := func(t *testing.T, path string, header map[string]string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		for k, v := range header {
			req.Header.Set(k, v)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	decode := func(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
		t.Helper()
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		return body
	}

	t.Run("root", func(t *testing.T) {
		w := get(t, "/", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "termgrid", body["service"])
		assert.Equal(t, "online", body["status"])
	})

	t.Run("health", func(t *testing.T) {
		w := get(t, "/health", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, float64(0), body["sessions"])
		assert.NotNil(t, body["metrics"])
	})

	t.Run("sessions empty", func(t *testing.T) {
		w := get(t, "/sessions", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		sessions, ok := body["sessions"].([]any)
		require.True(t, ok)
		assert.Empty(t, sessions)
	})

	t.Run("session not found", func(t *testing.T) {
		w := get(t, "/sessions/ghost", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("profiles empty", func(t *testing.T) {
		w := get(t, "/profiles", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		profiles, ok := body["profiles"].([]any)
		require.True(t, ok)
		assert.Empty(t, profiles)
	})

	t.Run("prometheus metrics", func(t *testing.T) {
		w := get(t, "/metrics", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "termgrid_")
	})

	t.Run("request id echoed", func(t *testing.T) {
		w := get(t, "/", map[string]string{"X-Request-ID": "req_custom_42"})
		assert.Equal(t, "req_custom_42", w.Header().Get("X-Request-ID"))
	})

	t.Run("request id generated", func(t *testing.T) {
		w := get(t, "/", nil)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/sessions", nil)
		req.Header.Set("Origin", "http://example.com")
		req.Header.Set("Access-Control-Request-Method", "GET")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("shutdown", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, srv.Shutdown(ctx))
	})
}
