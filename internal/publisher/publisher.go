// Package publisher delivers envelopes to fan-out room subscribers,
// optionally mirroring them onto a NATS subject per instance.
package publisher

import (
	"context"

	"github.com/rasool-click/wessaal-relay/common/logging"
	"github.com/rasool-click/wessaal-relay/internal/metrics"
	"github.com/rasool-click/wessaal-relay/internal/model"
)

// EnvelopeEvent is the fan-out event name carrying normalized
// envelopes to browser clients.
const EnvelopeEvent = "evolution:event"

// Broadcaster is the fan-out primitive the publisher delegates to. The
// hub owns room membership; the publisher only reads sizes and emits.
type Broadcaster interface {
	RoomSize(room string) int
	Emit(room, event string, payload any) error
}

// Publisher fans out envelopes best-effort: events for rooms with no
// subscribers are silently dropped, never queued, and no failure
// escapes past Publish.
type Publisher struct {
	hub    Broadcaster
	mirror *Mirror
	log    *logging.Logger
}

// New constructs a Publisher. mirror may be nil when mirroring is not
// configured.
func New(hub Broadcaster, mirror *Mirror, log *logging.Logger) *Publisher {
	return &Publisher{
		hub:    hub,
		mirror: mirror,
		log:    log.With(logging.Stage("publish")),
	}
}

// Publish emits env to the room derived from its instance. At-most-once
// and best-effort: there is no backlog for late-joining subscribers.
func (p *Publisher) Publish(ctx context.Context, env model.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("publish panicked",
				logging.Event(env.Event), "panic", r)
		}
	}()

	room := model.RoomKey(env.Instance)

	if p.hub.RoomSize(room) == 0 {
		metrics.PublishDropped.Inc()
		p.log.Debug("no subscribers, dropping",
			logging.Event(env.Event), logging.Room(room))
	} else if err := p.hub.Emit(room, EnvelopeEvent, env); err != nil {
		p.log.Error("room emit failed",
			logging.Event(env.Event), logging.Room(room), logging.Err(err))
	} else {
		metrics.PublishDelivered.Inc()
	}

	if p.mirror != nil {
		if err := p.mirror.Publish(ctx, env); err != nil {
			p.log.Warn("mirror publish failed",
				logging.Event(env.Event), logging.Instance(env.Instance),
				logging.Err(err))
		}
	}
}
