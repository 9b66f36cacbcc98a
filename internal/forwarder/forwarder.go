// Package forwarder delivers envelopes to the backend webhook with
// bounded retries and linear backoff.
package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rasool-click/wessaal-relay/common/logging"
	"github.com/rasool-click/wessaal-relay/internal/config"
	"github.com/rasool-click/wessaal-relay/internal/metrics"
	"github.com/rasool-click/wessaal-relay/internal/model"
)

// Forwarder posts serialized envelopes to the configured webhook URL.
// Delivery is fire-and-forget from the dispatcher's point of view:
// Forward never panics and never returns an error to its caller.
type Forwarder struct {
	url        string
	secret     string
	apiKey     string
	attempts   int
	retryDelay time.Duration
	client     *http.Client
	log        *logging.Logger
}

// New constructs a Forwarder from the webhook configuration. When no
// URL is configured every Forward call is a zero-cost no-op.
func New(cfg config.WebhookConfig, log *logging.Logger) *Forwarder {
	return &Forwarder{
		url:        cfg.URL,
		secret:     cfg.Secret,
		apiKey:     cfg.APIKey,
		attempts:   cfg.Retries,
		retryDelay: cfg.RetryDelay,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log.With(logging.Stage("forward")),
	}
}

// statusError marks an HTTP response status considered a failure.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("webhook returned status %d", e.code)
}

// retryable reports whether the attempt may be retried. Client errors
// are final: a malformed request will never succeed on replay.
func (e *statusError) retryable() bool {
	return e.code < 400 || e.code >= 500
}

// Forward delivers env to the webhook, retrying transport failures and
// server errors up to the configured attempt count with linear backoff.
// Terminal failures are logged and absorbed.
func (f *Forwarder) Forward(ctx context.Context, env model.Envelope) {
	if f.url == "" {
		return
	}

	body, err := json.Marshal(env)
	if err != nil {
		f.log.Error("serialize envelope", logging.Event(env.Event), logging.Err(err))
		return
	}

	// One trace identifier covers the whole delivery attempt set so the
	// backend can collapse retries.
	requestID := uuid.New().String()
	log := f.log.With(
		logging.Event(env.Event),
		logging.Instance(env.Instance),
		"request_id", requestID,
	)

	for attempt := 1; attempt <= f.attempts; attempt++ {
		start := time.Now()
		err := f.post(ctx, body, requestID)
		metrics.ForwardDuration.Observe(time.Since(start).Seconds())

		if err == nil {
			metrics.ForwardAttempts.WithLabelValues(metrics.OutcomeSuccess).Inc()
			log.Debug("webhook delivered", logging.Attempt(attempt))
			return
		}

		if se, ok := err.(*statusError); ok && !se.retryable() {
			metrics.ForwardAttempts.WithLabelValues(metrics.OutcomeRejected).Inc()
			log.Warn("webhook rejected delivery", logging.Status(se.code))
			return
		}

		if attempt == f.attempts {
			break
		}

		metrics.ForwardAttempts.WithLabelValues(metrics.OutcomeRetry).Inc()
		log.Warn("webhook delivery failed, retrying",
			logging.Attempt(attempt), logging.Err(err))

		select {
		case <-time.After(time.Duration(attempt) * f.retryDelay):
		case <-ctx.Done():
			log.Warn("webhook delivery abandoned", logging.Err(ctx.Err()))
			return
		}
	}

	metrics.ForwardAttempts.WithLabelValues(metrics.OutcomeFailed).Inc()
	log.Error("webhook delivery failed after all attempts",
		logging.Attempt(f.attempts))
}

func (f *Forwarder) post(ctx context.Context, body []byte, requestID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-request-id", requestID)
	if f.secret != "" {
		req.Header.Set("x-webhook-secret", f.secret)
	}
	if f.apiKey != "" {
		req.Header.Set("x-evolution-api-key", f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}
