package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/fieldsync/internal/domain"
	"github.com/roach88/fieldsync/internal/engine"
)

// Sender delivers a text message and returns the provider's message id.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// Report summarises one sweep.
type Report struct {
	Due     []Reminder `json:"due"`
	Sent    []string   `json:"sent,omitempty"`
	Skipped []string   `json:"skipped,omitempty"`
	Failed  []string   `json:"failed,omitempty"`
}

// Sweeper sends due yearly reminders to customers and marks them sent.
type Sweeper struct {
	runner engine.Submitter
	sender Sender
	now    func() time.Time
}

// NewSweeper creates a sweeper. With a nil sender Sweep only reports what
// is due.
func NewSweeper(runner engine.Submitter, sender Sender, now func() time.Time) *Sweeper {
	if now == nil {
		now = time.Now
	}
	return &Sweeper{runner: runner, sender: sender, now: now}
}

// Sweep sends every due reminder. A reminder is marked sent only after the
// message went out; customers without a phone number are skipped and stay
// due. Individual failures are logged and reported, not returned.
func (s *Sweeper) Sweep(ctx context.Context) (Report, error) {
	st, err := s.runner.State(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("sweep reminders: %w", err)
	}

	rep := Report{Due: Due(st.Jobs, st.Customers, st.DismissedReminders, s.now())}
	if s.sender == nil {
		return rep, nil
	}

	for _, r := range rep.Due {
		if strings.TrimSpace(r.Customer.Phone) == "" {
			slog.Info("reminder skipped: no phone",
				"job", r.Job.ID,
				"customer", r.Customer.Name,
			)
			rep.Skipped = append(rep.Skipped, r.Job.ID)
			continue
		}

		sid, err := s.sender.Send(ctx, r.Customer.Phone, Message(r))
		if err != nil {
			slog.Warn("reminder send failed",
				"job", r.Job.ID,
				"customer", r.Customer.Name,
				"error", err,
			)
			rep.Failed = append(rep.Failed, r.Job.ID)
			continue
		}

		if _, err := s.runner.Submit(ctx, engine.MarkYearlyReminderSent{JobID: r.Job.ID}); err != nil {
			slog.Error("reminder sent but not marked",
				"job", r.Job.ID,
				"message_sid", sid,
				"error", err,
			)
			rep.Failed = append(rep.Failed, r.Job.ID)
			continue
		}
		slog.Info("yearly reminder sent",
			"job", r.Job.ID,
			"customer", r.Customer.Name,
			"message_sid", sid,
		)
		rep.Sent = append(rep.Sent, r.Job.ID)
	}
	return rep, nil
}

// Message renders the reminder text for r's customer.
func Message(r Reminder) string {
	completed := r.Job.CompletedDate
	if t, err := domain.ParseDay(completed); err == nil {
		completed = t.Format("Jan 2, 2006")
	}
	where := ""
	if r.Job.Address != "" {
		where = " at " + r.Job.Address
	}
	return fmt.Sprintf(
		"Hi %s, it's been about a year since we completed your %s service%s on %s. Reply to schedule your annual %s.",
		r.Customer.Name, r.Job.Service, where, completed, r.Job.Service,
	)
}
