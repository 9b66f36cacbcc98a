package server_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rasool-click/wessaal-relay/internal/config"
	"github.com/rasool-click/wessaal-relay/internal/server"
)

func TestRouterHealth(t *testing.T) {
	fanout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	router := server.NewRouter(fanout, config.FanoutConfig{MountPath: "/ws"})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRouterMountsFanoutWithRequestID(t *testing.T) {
	var called bool
	fanout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	router := server.NewRouter(fanout, config.FanoutConfig{MountPath: "/stream"})

	req := httptest.NewRequest(http.MethodGet, "/stream", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.True(t, called)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouterExposesMetrics(t *testing.T) {
	fanout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	router := server.NewRouter(fanout, config.FanoutConfig{MountPath: "/ws"})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
