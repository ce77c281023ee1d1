package engine

import (
	"context"
	"log/slog"

	"github.com/roach88/fieldsync/internal/bus"
	"github.com/roach88/fieldsync/internal/domain"
)

// AutoResync subscribes a reactor that queues a resync whenever another
// context changes quotes or jobs. Writes made by this context, direct or
// cascaded, are ignored. The returned function unsubscribes it.
func AutoResync(b *bus.Bus, l *Loop) func() {
	handler := func(_ context.Context, ev bus.Event) {
		if ev.Origin != bus.OriginExternal {
			return
		}
		slog.Debug("external change triggers resync",
			"collection", ev.Collection,
			"version", ev.Version,
		)
		l.Enqueue(Resync{})
	}

	unsubs := []func(){
		b.Subscribe(domain.Quotes.EventName(), handler),
		b.Subscribe(domain.Jobs.EventName(), handler),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
