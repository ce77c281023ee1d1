// Package scheduler runs the periodic maintenance jobs of a serving
// context: resync and the yearly reminder sweep.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/roach88/fieldsync/internal/config"
	"github.com/roach88/fieldsync/internal/engine"
	"github.com/roach88/fieldsync/internal/reminder"
)

// Enqueuer accepts fire-and-forget commands. Implemented by *engine.Loop.
type Enqueuer interface {
	Enqueue(cmd engine.Command) bool
}

// Sweeper runs one reminder sweep. Implemented by *reminder.Sweeper.
type Sweeper interface {
	Sweep(ctx context.Context) (reminder.Report, error)
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron    *cron.Cron
	loop    Enqueuer
	sweeper Sweeper
	ctx     context.Context
	cancel  context.CancelFunc
}

// New registers the jobs named in cfg. An empty spec leaves that job out,
// as does a nil sweeper for the reminder job.
func New(cfg config.ScheduleConfig, loop Enqueuer, sweeper Sweeper) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:    cron.New(),
		loop:    loop,
		sweeper: sweeper,
		ctx:     ctx,
		cancel:  cancel,
	}

	if cfg.Resync != "" {
		if _, err := s.cron.AddFunc(cfg.Resync, s.resync); err != nil {
			cancel()
			return nil, fmt.Errorf("schedule resync %q: %w", cfg.Resync, err)
		}
	}
	if cfg.Reminders != "" && sweeper != nil {
		if _, err := s.cron.AddFunc(cfg.Reminders, s.sweep); err != nil {
			cancel()
			return nil, fmt.Errorf("schedule reminders %q: %w", cfg.Reminders, err)
		}
	}
	return s, nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("scheduler started", "jobs", s.Jobs())
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) resync() {
	if !s.loop.Enqueue(engine.Resync{}) {
		slog.Warn("scheduled resync skipped: engine stopped")
		return
	}
	slog.Debug("scheduled resync queued")
}

func (s *Scheduler) sweep() {
	rep, err := s.sweeper.Sweep(s.ctx)
	if err != nil {
		slog.Error("reminder sweep failed", "error", err)
		return
	}
	slog.Info("reminder sweep finished",
		"due", len(rep.Due),
		"sent", len(rep.Sent),
		"skipped", len(rep.Skipped),
		"failed", len(rep.Failed),
	)
}
