package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/fieldsync/internal/bus"
	"github.com/roach88/fieldsync/internal/domain"
)

// ErrStopped is returned by Submit once the loop has stopped.
var ErrStopped = errors.New("engine stopped")

// Submitter runs commands and reads state. Implemented by *Loop, which
// serialises through its goroutine, and by *Dispatcher for one-shot tools
// that run no loop.
type Submitter interface {
	Submit(ctx context.Context, cmd Command) (Outcome, error)
	State(ctx context.Context) (State, error)
}

// Loop is the single-writer event loop of one context.
//
// The loop processes submitted commands and observed external changes in
// FIFO order. Commands go to the Dispatcher; external changes are published
// on the bus with origin "external", which is the only origin reactors act
// on.
//
// Thread-safety model:
//   - Submit(), Enqueue(), Observe(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
type Loop struct {
	dispatcher *Dispatcher
	queue      *workQueue
}

// NewLoop creates a loop dispatching through d.
func NewLoop(d *Dispatcher) *Loop {
	return &Loop{
		dispatcher: d,
		queue:      newWorkQueue(),
	}
}

// Dispatcher returns the dispatcher the loop writes through.
func (l *Loop) Dispatcher() *Dispatcher {
	return l.dispatcher
}

// State reads a fresh snapshot of every collection.
func (l *Loop) State(ctx context.Context) (State, error) {
	return l.dispatcher.State(ctx)
}

// Submit queues cmd and waits for its outcome.
func (l *Loop) Submit(ctx context.Context, cmd Command) (Outcome, error) {
	ch := make(chan reply, 1)
	if !l.queue.Enqueue(item{kind: itemCommand, command: cmd, reply: ch}) {
		return Outcome{}, ErrStopped
	}
	select {
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	case r := <-ch:
		return r.outcome, r.err
	}
}

// Enqueue queues cmd without waiting. Failures are logged by the loop.
// Returns false if the loop has been stopped.
func (l *Loop) Enqueue(cmd Command) bool {
	return l.queue.Enqueue(item{kind: itemCommand, command: cmd})
}

// Observe queues a write seen from another context.
// Returns false if the loop has been stopped.
func (l *Loop) Observe(c bus.Change) bool {
	return l.queue.Enqueue(item{kind: itemChange, change: c})
}

// Run starts the single-writer loop.
// Blocks until context is cancelled or Stop() is called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// ERROR HANDLING: a failed command is logged with its name and processing
// continues with the next item. Nothing a command does stops the loop;
// resync converges whatever a failure left behind.
func (l *Loop) Run(ctx context.Context) error {
	slog.Info("engine starting")

	for {
		it, ok := l.queue.TryDequeue()
		if ok {
			l.process(ctx, it)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			l.drain(l.queue.Close())
			return ctx.Err()

		case <-l.queue.Wait():
			// The signal channel closes when the queue is closed,
			// which will cause this case to fire immediately
			if l.queue.Len() == 0 && l.queue.Closed() {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the loop. Queued items that were not yet
// processed are answered with ErrStopped.
func (l *Loop) Stop() {
	l.drain(l.queue.Close())
}

func (l *Loop) drain(rest []item) {
	for _, it := range rest {
		if it.reply != nil {
			it.reply <- reply{err: ErrStopped}
		}
	}
}

// process handles one item.
// CRITICAL: Called only from Run() goroutine - single-writer guarantee.
func (l *Loop) process(ctx context.Context, it item) {
	switch it.kind {
	case itemCommand:
		out, err := l.dispatcher.Dispatch(ctx, it.command)
		if err != nil && it.reply == nil {
			slog.Error("command failed",
				"command", commandName(it.command),
				"error", err,
			)
		}
		if it.reply != nil {
			it.reply <- reply{outcome: out, err: err}
		}

	case itemChange:
		col, ok := domain.ParseCollection(it.change.Collection)
		if !ok {
			slog.Warn("ignoring change for unknown collection",
				"collection", it.change.Collection,
			)
			return
		}
		slog.Debug("external change",
			"collection", col,
			"version", it.change.Version,
			"writer", it.change.Writer,
		)
		if b := l.dispatcher.Bus(); b != nil {
			b.Publish(ctx, bus.Event{
				Name:       col.EventName(),
				Collection: string(col),
				Origin:     bus.OriginExternal,
				Seq:        l.dispatcher.Clock().Next(),
				Version:    it.change.Version,
			})
		}

	default:
		slog.Error("unknown work item", "kind", it.kind)
	}
}

func commandName(cmd Command) string {
	if cmd == nil {
		return ""
	}
	return cmd.CommandName()
}
