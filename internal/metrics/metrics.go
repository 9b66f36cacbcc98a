// Package metrics exposes Prometheus instrumentation for the relay
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream / dispatch metrics
	EventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wessaal_events_received_total",
			Help: "Events received from the upstream connection",
		},
		[]string{"event"},
	)

	NormalizationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wessaal_normalization_errors_total",
			Help: "Events that degraded to an error envelope during normalization",
		},
	)

	// Forwarder metrics
	ForwardAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wessaal_forward_attempts_total",
			Help: "Webhook delivery attempts by outcome",
		},
		[]string{"outcome"},
	)

	ForwardDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wessaal_forward_duration_seconds",
			Help:    "Duration of webhook delivery attempts",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Publisher metrics
	PublishDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wessaal_publish_delivered_total",
			Help: "Envelopes emitted to at least one room subscriber",
		},
	)

	PublishDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wessaal_publish_dropped_total",
			Help: "Envelopes dropped because the room had no subscribers",
		},
	)

	// Fan-out metrics
	FanoutClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wessaal_fanout_clients",
			Help: "Currently connected fan-out clients",
		},
	)
)

// Forward attempt outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeRetry    = "retry"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)
