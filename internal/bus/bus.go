package bus

import (
	"context"
	"log/slog"
	"sync"
)

// Origin identifies what produced a write.
type Origin string

const (
	// OriginCommand marks the collection a command targeted directly.
	OriginCommand Origin = "command"
	// OriginCascade marks a dependent write computed by the cascade engine.
	OriginCascade Origin = "cascade"
	// OriginExternal marks a write observed from another context.
	OriginExternal Origin = "external"
)

// Event is published once per written collection.
type Event struct {
	Name       string `json:"name"`
	Collection string `json:"collection"`
	Origin     Origin `json:"origin"`
	Seq        int64  `json:"seq"`
	Version    int64  `json:"version"`
}

// Handler reacts to a published event.
type Handler func(ctx context.Context, ev Event)

type subscription struct {
	id      int
	handler Handler
}

// Bus is the same-context broadcast.
//
// Thread-safety: Subscribe and Publish are safe from any goroutine, but the
// bus belongs to one context: events are expected to be published from a
// single goroutine (the engine loop) so handlers never run concurrently.
type Bus struct {
	mu          sync.Mutex
	nextID      int
	subs        map[string][]subscription
	dispatching map[string]bool
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{
		subs:        make(map[string][]subscription),
		dispatching: make(map[string]bool),
	}
}

// Subscribe registers h for events named name. The returned function
// removes the subscription.
func (b *Bus) Subscribe(name string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, handler: h})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[name]
		for i, s := range subs {
			if s.id == id {
				b.subs[name] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers ev to every handler subscribed to ev.Name, in
// subscription order, and returns after the last one finishes.
//
// If ev.Name is already being dispatched (a handler published the event it
// is reacting to), the publish is dropped and Publish returns false.
func (b *Bus) Publish(ctx context.Context, ev Event) bool {
	b.mu.Lock()
	if b.dispatching[ev.Name] {
		b.mu.Unlock()
		slog.Debug("suppressed re-entrant publish",
			"event", ev.Name,
			"origin", ev.Origin,
		)
		return false
	}
	b.dispatching[ev.Name] = true
	subs := make([]subscription, len(b.subs[ev.Name]))
	copy(subs, b.subs[ev.Name])
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.dispatching, ev.Name)
		b.mu.Unlock()
	}()

	for _, s := range subs {
		s.handler(ctx, ev)
	}
	return true
}

// SubscriberCount returns the number of handlers for name.
func (b *Bus) SubscriberCount(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[name])
}
