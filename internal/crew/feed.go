package crew

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/fieldsync/internal/bus"
	"github.com/roach88/fieldsync/internal/domain"
	"github.com/roach88/fieldsync/internal/store"
)

// Source is what a Feed reads. Implemented by *store.Store.
type Source interface {
	store.RawStore
	bus.VersionSource
}

// Feed is the crew-facing view of one crew member's unread notifications.
//
// The feed re-reads the notification collection only when its version has
// advanced since the last read. It refreshes on every change signal and,
// as a fallback, every poll interval.
type Feed struct {
	src      Source
	member   string
	interval time.Duration

	mu      sync.Mutex
	loaded  bool
	version int64
	unread  []domain.CrewNotification
}

// FeedOption configures a Feed.
type FeedOption func(*Feed)

// WithPollInterval overrides the fallback poll interval. Used in tests.
func WithPollInterval(d time.Duration) FeedOption {
	return func(f *Feed) {
		if d > 0 {
			f.interval = d
		}
	}
}

// NewFeed creates a feed for member.
func NewFeed(src Source, member string, opts ...FeedOption) *Feed {
	f := &Feed{src: src, member: member, interval: bus.PollInterval}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Member returns the crew member this feed is for.
func (f *Feed) Member() string {
	return f.member
}

// Refresh re-reads the notifications if their version advanced and reports
// whether it did.
func (f *Feed) Refresh(ctx context.Context) (bool, error) {
	name := string(domain.CrewNotifications)
	stamps, err := f.src.Versions(ctx, name)
	if err != nil {
		return false, err
	}
	version := stamps[name].Version

	f.mu.Lock()
	if f.loaded && version == f.version {
		f.mu.Unlock()
		return false, nil
	}
	f.mu.Unlock()

	all, err := store.NewRepository[domain.CrewNotification](f.src, name).LoadAll(ctx)
	if err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loaded = true
	f.version = version
	f.unread = Unread(all, f.member)
	return true, nil
}

// Unread returns the unread notifications as of the last refresh.
func (f *Feed) Unread() []domain.CrewNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.CrewNotification, len(f.unread))
	copy(out, f.unread)
	return out
}

// Current returns the notification to present next: the most recent unread one.
func (f *Feed) Current() (domain.CrewNotification, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.unread) == 0 {
		return domain.CrewNotification{}, false
	}
	return f.unread[0], true
}

// Run refreshes until ctx is cancelled, calling onChange with the unread
// list after every refresh that found a new version. signals may be nil.
func (f *Feed) Run(ctx context.Context, signals <-chan bus.Change, onChange func([]domain.CrewNotification)) error {
	refresh := func() {
		changed, err := f.Refresh(ctx)
		if err != nil {
			slog.Error("crew feed refresh failed", "member", f.member, "error", err)
			return
		}
		if changed && onChange != nil {
			onChange(f.Unread())
		}
	}

	refresh()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			refresh()
		case c, ok := <-signals:
			if !ok {
				signals = nil
				continue
			}
			if c.Collection == string(domain.CrewNotifications) {
				refresh()
			}
		}
	}
}
