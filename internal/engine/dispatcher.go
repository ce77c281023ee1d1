package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/fieldsync/internal/bus"
	"github.com/roach88/fieldsync/internal/domain"
	"github.com/roach88/fieldsync/internal/store"
)

// NotificationSink receives crew notifications after they are persisted.
type NotificationSink interface {
	Deliver(ctx context.Context, n domain.CrewNotification) error
}

// Write is one persisted effect.
type Write struct {
	Collection domain.Collection `json:"collection"`
	Origin     bus.Origin        `json:"origin"`
	Version    int64             `json:"version"`
	Writer     string            `json:"writer"`
}

// Outcome reports what a dispatched command did.
type Outcome struct {
	Command       string                    `json:"command"`
	Writes        []Write                   `json:"writes"`
	Notifications []domain.CrewNotification `json:"notifications,omitempty"`
	Diagnostics   []Diagnostic              `json:"diagnostics,omitempty"`
}

// Dispatcher persists commands: it re-reads the store, applies the command
// and writes the effects in order, then publishes one event per write.
//
// Thread-safety: Dispatch is safe for concurrent use. Dispatches within one
// Dispatcher never interleave; writers in other contexts are not excluded
// and the later whole-collection write wins.
type Dispatcher struct {
	store  store.RawStore
	bus    *bus.Bus
	signal bus.Signal
	sink   NotificationSink
	clock  *Clock
	now    func() time.Time
	ids    domain.IDGenerator

	mu sync.Mutex
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithSignal announces every write to other contexts through s.
func WithSignal(s bus.Signal) DispatcherOption {
	return func(d *Dispatcher) { d.signal = s }
}

// WithNotificationSink hands new crew notifications to sink.
func WithNotificationSink(sink NotificationSink) DispatcherOption {
	return func(d *Dispatcher) { d.sink = sink }
}

// WithNow sets the wall clock used for dates and timestamps.
func WithNow(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// WithIDs sets the identifier source for created records.
func WithIDs(ids domain.IDGenerator) DispatcherOption {
	return func(d *Dispatcher) { d.ids = ids }
}

// WithClock sets the logical clock that stamps published events.
func WithClock(c *Clock) DispatcherOption {
	return func(d *Dispatcher) { d.clock = c }
}

// NewDispatcher creates a dispatcher writing to s and publishing on b.
func NewDispatcher(s store.RawStore, b *bus.Bus, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store: s,
		bus:   b,
		clock: NewClock(),
		now:   time.Now,
		ids:   domain.UUIDGenerator{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Bus returns the bus events are published on.
func (d *Dispatcher) Bus() *bus.Bus {
	return d.bus
}

// Clock returns the logical clock stamping published events.
func (d *Dispatcher) Clock() *Clock {
	return d.clock
}

// State reads a fresh snapshot of every collection.
func (d *Dispatcher) State(ctx context.Context) (State, error) {
	return LoadState(ctx, d.store)
}

// Dispatch applies cmd against fresh state and persists its effects.
//
// A failed write stops the sequence. Writes already made stand, their
// events are still published, and the error is a PARTIAL_CASCADE
// RuntimeError naming the collection that failed.
//
// Event handlers run after the dispatch lock is released, so they may
// dispatch further commands.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (Outcome, error) {
	out, err := d.persist(ctx, cmd)
	d.publish(ctx, out)
	return out, err
}

func (d *Dispatcher) persist(ctx context.Context, cmd Command) (Outcome, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cmd == nil {
		return Outcome{}, NewInvalidCommandError("", "nil command")
	}
	name := cmd.CommandName()
	out := Outcome{Command: name}

	st, err := LoadState(ctx, d.store)
	if err != nil {
		return out, fmt.Errorf("dispatch %s: %w", name, err)
	}

	res, err := Apply(st, cmd, Env{Now: d.now(), IDs: d.ids})
	if err != nil {
		slog.Warn("command rejected",
			"command", name,
			"error", err,
		)
		return out, err
	}
	out.Diagnostics = res.Diagnostics
	for _, dg := range res.Diagnostics {
		level := slog.LevelDebug
		if dg.Kind == DiagAmbiguousJoin {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "cascade diagnostic",
			"command", name,
			"kind", dg.Kind,
			"rule", dg.Rule,
			"message", dg.Message,
		)
	}

	for _, eff := range res.Effects {
		stamp, err := d.write(ctx, &res.State, eff.Collection)
		if err != nil {
			written := make([]string, len(out.Writes))
			for i, w := range out.Writes {
				written[i] = string(w.Collection)
			}
			slog.Error("cascade write failed",
				"command", name,
				"collection", eff.Collection,
				"written", written,
				"error", err,
			)
			return out, NewPartialCascadeError(name, string(eff.Collection), written, err)
		}
		out.Writes = append(out.Writes, Write{
			Collection: eff.Collection,
			Origin:     eff.Origin,
			Version:    stamp.Version,
			Writer:     stamp.Writer,
		})
		if eff.Collection == domain.CrewNotifications {
			out.Notifications = res.Notifications
		}
	}

	slog.Debug("command dispatched",
		"command", name,
		"writes", len(out.Writes),
		"notifications", len(out.Notifications),
	)
	return out, nil
}

func (d *Dispatcher) write(ctx context.Context, st *State, col domain.Collection) (store.Stamp, error) {
	data, err := st.Encode(col)
	if err != nil {
		return store.Stamp{}, fmt.Errorf("encode %s: %w", col, err)
	}
	return d.store.WriteRaw(ctx, string(col), data)
}

func (d *Dispatcher) publish(ctx context.Context, out Outcome) {
	for _, w := range out.Writes {
		if d.bus != nil {
			d.bus.Publish(ctx, bus.Event{
				Name:       w.Collection.EventName(),
				Collection: string(w.Collection),
				Origin:     w.Origin,
				Seq:        d.clock.Next(),
				Version:    w.Version,
			})
		}
		if d.signal != nil {
			change := bus.Change{Collection: string(w.Collection), Version: w.Version, Writer: w.Writer}
			if err := d.signal.Notify(ctx, change); err != nil {
				slog.Warn("change signal failed",
					"collection", w.Collection,
					"error", err,
				)
			}
		}
	}

	if d.sink == nil {
		return
	}
	for _, n := range out.Notifications {
		if err := d.sink.Deliver(ctx, n); err != nil {
			slog.Warn("notification delivery failed",
				"notification", n.ID,
				"crew_member", n.CrewMemberName,
				"error", err,
			)
		}
	}
}

// Submit is Dispatch; it lets a Dispatcher stand in for a Loop.
func (d *Dispatcher) Submit(ctx context.Context, cmd Command) (Outcome, error) {
	return d.Dispatch(ctx, cmd)
}
