// Package dispatcher bridges the upstream event stream to the
// normalization pipeline and its two downstreams.
package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/rasool-click/wessaal-relay/common/logging"
	"github.com/rasool-click/wessaal-relay/internal/metrics"
	"github.com/rasool-click/wessaal-relay/internal/model"
	"github.com/rasool-click/wessaal-relay/internal/normalizer"
	"github.com/rasool-click/wessaal-relay/internal/source"
)

// Forwarder delivers an envelope to the webhook backend. It absorbs
// its own failures.
type Forwarder interface {
	Forward(ctx context.Context, env model.Envelope)
}

// Publisher delivers an envelope to fan-out subscribers. It absorbs
// its own failures.
type Publisher interface {
	Publish(ctx context.Context, env model.Envelope)
}

// Dispatcher subscribes to the upstream stream and, for every observed
// event, normalizes it and hands the envelope to the forwarder and the
// publisher as two independent tasks. Neither downstream can block or
// fail the other.
type Dispatcher struct {
	src  source.Source
	norm *normalizer.Normalizer
	fwd  Forwarder
	pub  Publisher
	// events is the allow-list; empty selects catch-all mode.
	events []string
	log    *logging.Logger

	wg sync.WaitGroup
}

// New constructs a Dispatcher.
func New(src source.Source, norm *normalizer.Normalizer, fwd Forwarder, pub Publisher, events []string, log *logging.Logger) *Dispatcher {
	return &Dispatcher{
		src:    src,
		norm:   norm,
		fwd:    fwd,
		pub:    pub,
		events: events,
		log:    log.With(logging.Stage("dispatch")),
	}
}

// Run registers handlers per the subscription mode and pumps the
// upstream until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	// Cancellation stops the upstream pump; deliveries already in
	// flight finish on their own and are drained best-effort.
	delivery := context.WithoutCancel(ctx)
	handle := func(raw model.RawEvent) { d.handle(delivery, raw) }

	if len(d.events) > 0 {
		for _, name := range d.events {
			d.src.On(name, handle)
		}
		d.log.Info("subscribed to event allow-list", "events", d.events)
	} else {
		d.src.OnAny(handle)
		d.log.Info("subscribed in catch-all mode")
	}

	return d.src.Run(ctx)
}

// handle processes one upstream event. Forwarding and publishing are
// both always attempted, even when normalization degraded the
// envelope: consumers observe normalization failures instead of
// silently losing events.
func (d *Dispatcher) handle(ctx context.Context, raw model.RawEvent) {
	metrics.EventsReceived.WithLabelValues(raw.Name).Inc()

	env := d.norm.Normalize(raw.Name, raw.Payload)
	if env.Meta["error"] != "" {
		metrics.NormalizationErrors.Inc()
		d.log.Warn("event degraded during normalization",
			logging.Event(raw.Name), logging.Instance(env.Instance),
			"detail", env.Meta["detail"])
	}

	// Two independently scheduled tasks per event. A panic in either
	// downstream must not reach the upstream pump.
	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		defer d.recoverDelivery("forward", env)
		d.fwd.Forward(ctx, env)
	}()
	go func() {
		defer d.wg.Done()
		defer d.recoverDelivery("publish", env)
		d.pub.Publish(ctx, env)
	}()
}

func (d *Dispatcher) recoverDelivery(stage string, env model.Envelope) {
	if r := recover(); r != nil {
		d.log.Error("delivery panicked",
			logging.Stage(stage), logging.Event(env.Event),
			logging.Instance(env.Instance), "panic", r)
	}
}

// Drain waits up to timeout for in-flight deliveries. Returns false
// when deliveries were still outstanding at the deadline.
func (d *Dispatcher) Drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
