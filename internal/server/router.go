// Package server wires the relay's HTTP surface: the fan-out WebSocket
// endpoint, health, and metrics.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rasool-click/wessaal-relay/common/middleware"
	"github.com/rasool-click/wessaal-relay/internal/config"
)

// NewRouter mounts the fan-out handler at the configured path next to
// the operational endpoints.
func NewRouter(fanout http.Handler, cfg config.FanoutConfig) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(cfg.MountPath, middleware.RequestID(fanout))
	mux.HandleFunc("/healthz", health)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
