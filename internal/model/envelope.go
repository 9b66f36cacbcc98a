package model

import "time"

// SchemaVersion is the envelope schema version stamped on every
// normalized event. Bump only on breaking changes to the wire format.
const SchemaVersion = "1.0"

// UnknownInstance is the sentinel tenant identifier used when a payload
// carries no instance-identifying field. Never empty, never null.
const UnknownInstance = "unknown"

// RawEvent is an event as received from the upstream connection, before
// normalization. It lives only for the duration of one dispatch.
type RawEvent struct {
	Name    string
	Payload any
}

// Envelope is the canonical normalized event record delivered to the
// webhook backend and to fan-out subscribers. Once constructed it must
// be treated as read-only; both downstreams receive it by value.
type Envelope struct {
	Version    string            `json:"version"`
	Event      string            `json:"event"`
	ReceivedAt time.Time         `json:"receivedAt"`
	Instance   string            `json:"instance"`
	ID         string            `json:"id,omitempty"`
	Type       string            `json:"type,omitempty"`
	Actor      string            `json:"actor,omitempty"`
	Body       any               `json:"body"`
	Meta       map[string]string `json:"meta"`
	Raw        string            `json:"raw,omitempty"`
}

// RoomKey derives the fan-out room name for a tenant. Rooms are not
// stored entities; membership lives in the fan-out hub.
func RoomKey(instance string) string {
	return "inst:" + instance
}
