// Package normalizer converts raw upstream events into canonical
// envelopes. Normalization is total: it never fails outward, degrading
// to a minimal envelope with error metadata instead.
package normalizer

import (
	"fmt"
	"time"

	"github.com/rasool-click/wessaal-relay/internal/config"
	"github.com/rasool-click/wessaal-relay/internal/model"
)

// metaError is the annotation key set on degraded envelopes.
const metaError = "error"

// errNormalization is the fixed marker recorded under meta.error.
const errNormalization = "normalization_failed"

// Rule projects one known event type onto envelope classification
// fields. Apply returns an error when the payload shape deviates from
// what the event type requires.
type Rule interface {
	// Event returns the upstream event name this rule handles.
	Event() string
	Apply(payload any, env *model.Envelope) error
}

// Normalizer holds the ordered rule set plus raw-payload settings.
type Normalizer struct {
	rules      []Rule
	includeRaw bool
	rawLimit   int
}

// New constructs a Normalizer with the built-in rule set. Specific
// event-type rules always win over the generic fallback.
func New(raw config.RawConfig) *Normalizer {
	return &Normalizer{
		rules: []Rule{
			messageRule{},
			contactRule{},
			chatRule{},
			verbatimRule{event: "qrcode.updated", kind: "qrcode"},
			verbatimRule{event: "connection.update", kind: "connection"},
		},
		includeRaw: raw.Include,
		rawLimit:   raw.ByteLimit,
	}
}

// Normalize converts (eventName, payload) into an Envelope. The result
// is always usable: extraction errors degrade to a minimal envelope
// carrying meta.error rather than propagating.
func (n *Normalizer) Normalize(eventName string, payload any) (env model.Envelope) {
	env = model.Envelope{
		Version:    model.SchemaVersion,
		Event:      eventName,
		ReceivedAt: time.Now().UTC(),
		Instance:   pickInstance(payload),
		Meta:       map[string]string{},
	}

	if n.includeRaw {
		env.Raw = serializeRaw(payload, n.rawLimit)
	}

	// Last-resort barrier: no payload shape may escape as a panic.
	defer func() {
		if r := recover(); r != nil {
			env.ID, env.Type, env.Actor = "", "", ""
			env.Body = nil
			env.Meta[metaError] = errNormalization
			env.Meta["detail"] = fmt.Sprint(r)
		}
	}()

	rule := n.find(eventName)
	if rule == nil {
		applyGeneric(payload, &env)
		return env
	}

	if err := rule.Apply(payload, &env); err != nil {
		env.ID, env.Type, env.Actor = "", "", ""
		env.Body = nil
		env.Meta[metaError] = errNormalization
		env.Meta["detail"] = err.Error()
	}
	return env
}

func (n *Normalizer) find(eventName string) Rule {
	for _, r := range n.rules {
		if r.Event() == eventName {
			return r
		}
	}
	return nil
}

// pickInstance extracts the tenant identifier from the payload. The
// lookup order is a deliberate priority: explicit instance fields
// outrank nested ones.
func pickInstance(payload any) string {
	m, ok := asMap(payload)
	if !ok {
		return model.UnknownInstance
	}
	if s := nonEmptyString(m["instance"]); s != "" {
		return s
	}
	if s := nonEmptyString(m["instanceName"]); s != "" {
		return s
	}
	if data, ok := asMap(m["data"]); ok {
		if s := nonEmptyString(data["instance"]); s != "" {
			return s
		}
	}
	return model.UnknownInstance
}
