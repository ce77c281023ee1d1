package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldsync/internal/api"
	"github.com/roach88/fieldsync/internal/bus"
	"github.com/roach88/fieldsync/internal/engine"
	"github.com/roach88/fieldsync/internal/reminder"
	"github.com/roach88/fieldsync/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a serving context",
		Long: `Run the engine loop of one context with its HTTP command intake.

The context watches the shared database for writes made by other
contexts and resyncs when their quotes or jobs change. When redis.addr
is set, changes are also signalled through Redis pub/sub. Scheduled
resyncs and reminder sweeps follow the schedule section of the config.
With Twilio configured, crew notifications and due reminders are texted.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	rt, err := openRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.Close()
	rt.relayNotifications()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	loop := engine.NewLoop(rt.dispatcher)
	unsubscribe := engine.AutoResync(rt.bus, loop)
	defer unsubscribe()

	wopts := []bus.WatcherOption{}
	if rt.signal != nil {
		wopts = append(wopts, bus.WithSignal(rt.signal))
	}
	watcher := bus.NewWatcher(rt.store, rt.store.ContextID(), func(_ context.Context, c bus.Change) {
		loop.Observe(c)
	}, wopts...)

	var sweeper scheduler.Sweeper
	if rt.cfg.Schedule.Reminders != "" {
		var sender reminder.Sender
		if rt.cfg.Twilio.Enabled() {
			sender = smsSender(rt.cfg.Twilio)
		}
		sweeper = reminder.NewSweeper(loop, sender, nil)
	}
	sched, err := scheduler.New(rt.cfg.Schedule, loop, sweeper)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid schedule", err)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("engine loop stopped", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("change watcher stopped", "error", err)
		}
	}()
	sched.Start()

	// Converge whatever was written while no context was serving.
	loop.Enqueue(engine.Resync{})

	srv := api.New(loop, time.Now).HTTPServer(rt.cfg.API.Addr)
	fmt.Fprintf(cmd.OutOrStdout(), "serving %s on %s\n", rt.store.ContextID(), rt.cfg.API.Addr)
	serveErr := serveHTTP(ctx, srv)

	cancel()
	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := sched.Stop(stopCtx); err != nil {
		slog.Warn("scheduler did not stop cleanly", "error", err)
	}
	loop.Stop()
	wg.Wait()

	if serveErr != nil {
		return WrapExitError(ExitFailure, "http server failed", serveErr)
	}
	return nil
}

// serveHTTP runs srv until ctx is cancelled, then shuts it down.
func serveHTTP(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
