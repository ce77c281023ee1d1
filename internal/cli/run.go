package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-redis/redis/v8"

	"github.com/roach88/fieldsync/internal/bus"
	"github.com/roach88/fieldsync/internal/config"
	"github.com/roach88/fieldsync/internal/engine"
	"github.com/roach88/fieldsync/internal/notify"
	"github.com/roach88/fieldsync/internal/store"
)

var loggingOnce sync.Once

// setupLogging installs the process-wide text logger on w. Only the first
// call has an effect.
func setupLogging(w io.Writer, verbose bool) {
	loggingOnce.Do(func() {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
		slog.SetDefault(slog.New(handler))
	})
}

// runtime is one context: an open store, its bus and the cross-context
// signal, wired into a dispatcher.
type runtime struct {
	cfg        *config.Config
	store      *store.Store
	bus        *bus.Bus
	signal     bus.Signal
	dispatcher *engine.Dispatcher
	dopts      []engine.DispatcherOption
}

// openRuntime opens the configured database. The Redis signal is attached
// when redis.addr is set; otherwise writes are only seen by polling.
func openRuntime(opts *RootOptions, dopts ...engine.DispatcherOption) (*runtime, error) {
	cfg, err := opts.Config()
	if err != nil {
		return nil, err
	}

	slog.Debug("opening database", "path", cfg.Database, "context_id", cfg.ContextID)
	st, err := store.Open(cfg.Database, store.WithContextID(cfg.ContextID))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	rt := &runtime{cfg: cfg, store: st, bus: bus.New()}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		rt.signal = bus.NewRedisSignal(client, cfg.Redis.Channel)
		dopts = append([]engine.DispatcherOption{engine.WithSignal(rt.signal)}, dopts...)
	}
	rt.dopts = dopts
	rt.dispatcher = engine.NewDispatcher(st, rt.bus, dopts...)
	return rt, nil
}

// relayNotifications rebuilds the dispatcher so new crew notifications are
// also texted through Twilio. It is a no-op unless Twilio is configured.
func (r *runtime) relayNotifications() {
	if !r.cfg.Twilio.Enabled() {
		slog.Debug("twilio not configured, crew notifications stay in-app")
		return
	}
	relay := notify.NewCrewRelay(smsSender(r.cfg.Twilio), r.store)
	r.dopts = append(r.dopts, engine.WithNotificationSink(relay))
	r.dispatcher = engine.NewDispatcher(r.store, r.bus, r.dopts...)
}

func (r *runtime) Close() {
	if r.signal != nil {
		if err := r.signal.Close(); err != nil {
			slog.Warn("error closing change signal", "error", err)
		}
	}
	if err := r.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
