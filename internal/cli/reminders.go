package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldsync/internal/config"
	"github.com/roach88/fieldsync/internal/engine"
	"github.com/roach88/fieldsync/internal/notify"
	"github.com/roach88/fieldsync/internal/reminder"
)

// RemindersOptions holds flags for the reminders command.
type RemindersOptions struct {
	*RootOptions
	Send bool
}

// NewRemindersCommand creates the reminders command.
func NewRemindersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RemindersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "List or send due yearly service reminders",
		Long: `List completed jobs whose one-year anniversary is within 30 days.

With --send each customer with a phone number gets a text message and the
job is marked as reminded. Sending requires the twilio settings.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReminders(opts, cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.Send, "send", false, "send the reminders by SMS")

	cmd.AddCommand(&cobra.Command{
		Use:           "dismiss <job-id>",
		Short:         "Stop reminding about a job",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatchOne(rootOpts, cmd, engine.DismissYearlyReminder{JobID: args[0]})
		},
	})

	return cmd
}

func runReminders(opts *RemindersOptions, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)

	rt, err := openRuntime(opts.RootOptions)
	if err != nil {
		return err
	}
	defer rt.Close()

	var sender reminder.Sender
	if opts.Send {
		if !rt.cfg.Twilio.Enabled() {
			return NewExitError(ExitCommandError, "--send requires twilio.account_sid, twilio.auth_token and twilio.from")
		}
		sender = smsSender(rt.cfg.Twilio)
	}

	rep, err := reminder.NewSweeper(rt.dispatcher, sender, nil).Sweep(cmd.Context())
	if err != nil {
		return out.Failure("reminder sweep failed", err)
	}
	if err := out.Success(rep, func(w io.Writer) { renderReport(w, rep, opts.Send) }); err != nil {
		return err
	}
	if len(rep.Failed) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d reminder(s) failed", len(rep.Failed)))
	}
	return nil
}

func smsSender(cfg config.TwilioConfig) *notify.SMS {
	return notify.NewTwilio(cfg.AccountSID, cfg.AuthToken, cfg.From)
}

func renderReport(w io.Writer, rep reminder.Report, sent bool) {
	if len(rep.Due) == 0 {
		fmt.Fprintln(w, "No yearly reminders due.")
		return
	}
	for _, r := range rep.Due {
		when := fmt.Sprintf("in %d days", r.DaysUntil)
		if r.DaysUntil < 0 {
			when = fmt.Sprintf("%d days ago", -r.DaysUntil)
		}
		fmt.Fprintf(w, "%-8s %-20s %-16s anniversary %s (%s)\n", r.Job.ID, r.Customer.Name, r.Job.Service, r.Anniversary, when)
	}
	if sent {
		fmt.Fprintf(w, "\nSent %d, skipped %d (no phone), failed %d\n", len(rep.Sent), len(rep.Skipped), len(rep.Failed))
	}
}
