package bus

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/roach88/fieldsync/internal/store"
)

// PollInterval is the fixed fallback interval for cross-context re-reads.
const PollInterval = 2 * time.Second

// VersionSource reports the current stamp of store collections.
// Implemented by *store.Store.
type VersionSource interface {
	Versions(ctx context.Context, names ...string) (map[string]store.Stamp, error)
}

// Watcher detects writes made by other contexts by comparing collection
// versions against the last versions it saw.
//
// A check runs on every tick and whenever the signal delivers a change.
// Each check is a full comparison, so lost or duplicated signals are
// harmless. The first check only records the baseline.
type Watcher struct {
	src      VersionSource
	self     string
	names    []string
	interval time.Duration
	signal   Signal
	onChange func(ctx context.Context, c Change)

	mu     sync.Mutex
	last   map[string]int64
	primed bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithInterval overrides the poll interval. Used in tests.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithSignal wakes the watcher whenever the signal delivers a change.
func WithSignal(s Signal) WatcherOption {
	return func(w *Watcher) {
		w.signal = s
	}
}

// WithCollections restricts the watcher to the named collections.
func WithCollections(names ...string) WatcherOption {
	return func(w *Watcher) {
		w.names = append([]string(nil), names...)
	}
}

// NewWatcher creates a watcher for the context identified by self. Writes
// stamped with self are recorded but not reported.
func NewWatcher(src VersionSource, self string, onChange func(context.Context, Change), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		src:      src,
		self:     self,
		interval: PollInterval,
		onChange: onChange,
		last:     make(map[string]int64),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Check compares current versions with the last seen ones and reports
// collections advanced by another context, sorted by name.
func (w *Watcher) Check(ctx context.Context) ([]Change, error) {
	stamps, err := w.src.Versions(ctx, w.names...)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	names := make([]string, 0, len(stamps))
	for name := range stamps {
		names = append(names, name)
	}
	sort.Strings(names)

	var changes []Change
	for _, name := range names {
		st := stamps[name]
		if st.Version <= w.last[name] {
			continue
		}
		w.last[name] = st.Version
		if w.primed && st.Writer != w.self {
			changes = append(changes, Change{Collection: name, Version: st.Version, Writer: st.Writer})
		}
	}
	w.primed = true
	w.mu.Unlock()

	if w.onChange != nil {
		for _, c := range changes {
			w.onChange(ctx, c)
		}
	}
	return changes, nil
}

// Run checks until ctx is cancelled. Check failures are logged and the
// watcher keeps going.
func (w *Watcher) Run(ctx context.Context) error {
	if _, err := w.Check(ctx); err != nil {
		slog.Error("initial version check failed", "error", err)
	}

	var signals <-chan Change
	if w.signal != nil {
		ch, err := w.signal.Subscribe(ctx)
		if err != nil {
			slog.Warn("change signal unavailable, polling only", "error", err)
		} else {
			signals = ch
		}
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			if _, err := w.Check(ctx); err != nil {
				slog.Error("version check failed", "error", err)
			}

		case c, ok := <-signals:
			if !ok {
				signals = nil
				continue
			}
			if c.Writer == w.self {
				continue
			}
			if _, err := w.Check(ctx); err != nil {
				slog.Error("version check failed", "error", err, "collection", c.Collection)
			}
		}
	}
}
