// Package seeder generates synthetic upstream events so the pipeline
// can be exercised without a live upstream connection.
package seeder

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/rasool-click/wessaal-relay/internal/model"
	"github.com/rasool-click/wessaal-relay/internal/source"
)

// eventNames are the upstream event kinds the generator cycles
// through, weighted towards messages.
var eventNames = []string{
	"messages.upsert",
	"messages.upsert",
	"messages.upsert",
	"contacts.update",
	"chats.update",
	"presence.update",
}

// Generator produces fake raw events for one or more instances.
type Generator struct {
	faker     *gofakeit.Faker
	rng       *rand.Rand
	instances []string
}

// NewGenerator creates a Generator. A fixed seed yields a reproducible
// event stream.
func NewGenerator(seed int64, instances []string) *Generator {
	if len(instances) == 0 {
		instances = []string{"demo"}
	}
	return &Generator{
		faker:     gofakeit.New(seed),
		rng:       rand.New(rand.NewSource(seed)),
		instances: instances,
	}
}

// Next returns one synthetic raw event.
func (g *Generator) Next() model.RawEvent {
	name := eventNames[g.rng.Intn(len(eventNames))]
	instance := g.instances[g.rng.Intn(len(g.instances))]

	switch name {
	case "messages.upsert":
		return model.RawEvent{Name: name, Payload: map[string]any{
			"instance": instance,
			"message": map[string]any{
				"id":        g.faker.UUID(),
				"from":      g.faker.Phone(),
				"text":      g.faker.Sentence(8),
				"timestamp": float64(time.Now().Unix()),
			},
		}}
	case "contacts.update":
		return model.RawEvent{Name: name, Payload: map[string]any{
			"instance": instance,
			"id":       g.faker.UUID(),
			"name":     g.faker.Name(),
			"phones":   []any{g.faker.Phone(), g.faker.Phone()},
			"emails":   []any{g.faker.Email()},
		}}
	case "chats.update":
		participants := make([]any, 2+g.rng.Intn(5))
		for i := range participants {
			participants[i] = g.faker.Phone()
		}
		return model.RawEvent{Name: name, Payload: map[string]any{
			"instance":     instance,
			"id":           g.faker.UUID(),
			"subject":      g.faker.BuzzWord(),
			"participants": participants,
		}}
	default:
		return model.RawEvent{Name: name, Payload: map[string]any{
			"instance": instance,
			"type":     "presence",
			"state":    g.faker.RandomString([]string{"available", "composing", "offline"}),
		}}
	}
}

// Source adapts the generator to the upstream source interface so the
// regular dispatcher drives it.
type Source struct {
	gen      *Generator
	count    int
	interval time.Duration
	named    map[string][]source.Handler
	any      []source.Handler
}

// NewSource builds a seeded source emitting count events spaced by
// interval.
func NewSource(gen *Generator, count int, interval time.Duration) *Source {
	return &Source{
		gen:      gen,
		count:    count,
		interval: interval,
		named:    make(map[string][]source.Handler),
	}
}

// On registers a handler for one event name.
func (s *Source) On(name string, h source.Handler) {
	s.named[name] = append(s.named[name], h)
}

// OnAny registers a catch-all handler.
func (s *Source) OnAny(h source.Handler) {
	s.any = append(s.any, h)
}

// Run emits the configured number of events, then returns.
func (s *Source) Run(ctx context.Context) error {
	for i := 0; i < s.count; i++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("seeding interrupted: %w", err)
		}

		raw := s.gen.Next()
		for _, h := range s.named[raw.Name] {
			h(raw)
		}
		for _, h := range s.any {
			h(raw)
		}

		if s.interval > 0 && i < s.count-1 {
			select {
			case <-time.After(s.interval):
			case <-ctx.Done():
				return fmt.Errorf("seeding interrupted: %w", ctx.Err())
			}
		}
	}
	return nil
}
