// Package source consumes the upstream event stream the relay feeds
// from.
package source

import (
	"context"

	"github.com/rasool-click/wessaal-relay/internal/model"
)

// Handler processes one raw upstream event.
type Handler func(raw model.RawEvent)

// Source is the upstream event stream. Handlers are registered before
// Run; Run blocks until the context is cancelled, reconnecting as
// needed.
type Source interface {
	// On registers a handler for a single named event.
	On(name string, h Handler)
	// OnAny registers a catch-all handler observing every event name,
	// including names not known in advance.
	OnAny(h Handler)
	// Run connects and pumps events until ctx is cancelled.
	Run(ctx context.Context) error
}
