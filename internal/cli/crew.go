package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldsync/internal/bus"
	"github.com/roach88/fieldsync/internal/crew"
	"github.com/roach88/fieldsync/internal/domain"
	"github.com/roach88/fieldsync/internal/engine"
)

// NewCrewCommand creates the crew command group.
func NewCrewCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crew",
		Short: "Crew notification feed and schedule",
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "notifications <member>",
		Short:         "List a crew member's unread notifications, newest first",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrewNotifications(rootOpts, args[0], cmd)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "ack <notification-id>",
		Short:         "Mark one notification read",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatchOne(rootOpts, cmd, engine.MarkNotificationRead{ID: args[0]})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:           "ack-all <member>",
		Short:         "Mark all of a crew member's notifications read",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatchOne(rootOpts, cmd, engine.MarkAllNotificationsRead{CrewMemberName: args[0]})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "watch <member>",
		Short: "Follow a crew member's feed until interrupted",
		Long: `Print the crew member's current notification whenever the feed changes.

The feed re-reads on every change signal and polls every 2 seconds.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrewWatch(rootOpts, args[0], cmd)
		},
	})

	var week string
	schedule := &cobra.Command{
		Use:           "schedule <member>",
		Short:         "Show a crew member's week of jobs and appointments",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrewSchedule(rootOpts, args[0], week, cmd)
		},
	}
	schedule.Flags().StringVar(&week, "week", "", "first day of the week (YYYY-MM-DD, default today)")
	cmd.AddCommand(schedule)

	return cmd
}

func runCrewNotifications(opts *RootOptions, member string, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts)

	rt, err := openRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	feed := crew.NewFeed(rt.store, member)
	if _, err := feed.Refresh(cmd.Context()); err != nil {
		return out.Failure("failed to read notifications", err)
	}
	unread := feed.Unread()
	return out.Success(unread, func(w io.Writer) { renderNotifications(w, member, unread) })
}

func renderNotifications(w io.Writer, member string, list []domain.CrewNotification) {
	if len(list) == 0 {
		fmt.Fprintf(w, "No unread notifications for %s.\n", member)
		return
	}
	for _, n := range list {
		fmt.Fprintf(w, "%s  %-18s %s  %s\n", n.ID, n.Type, n.Timestamp, n.Message)
	}
}

func runCrewWatch(opts *RootOptions, member string, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts)

	rt, err := openRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	var signals <-chan bus.Change
	if rt.signal != nil {
		if signals, err = rt.signal.Subscribe(ctx); err != nil {
			return out.Failure("failed to subscribe to changes", err)
		}
	}

	feed := crew.NewFeed(rt.store, member)
	err = feed.Run(ctx, signals, func(unread []domain.CrewNotification) {
		if len(unread) == 0 {
			out.Success(unread, func(w io.Writer) { fmt.Fprintf(w, "%s is all caught up.\n", member) })
			return
		}
		current := unread[0]
		out.Success(current, func(w io.Writer) {
			fmt.Fprintf(w, "[%d unread] %s: %s\n", len(unread), current.Type, current.Message)
		})
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return out.Failure("feed stopped", err)
	}
	return nil
}

func runCrewSchedule(opts *RootOptions, member, week string, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts)

	start := time.Now()
	if week != "" {
		t, err := domain.ParseDay(week)
		if err != nil {
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid --week %q: expected YYYY-MM-DD", week))
		}
		start = t
	}

	st, err := loadState(opts, cmd)
	if err != nil {
		return err
	}
	days := crew.WeekSchedule(member, start, st.Jobs, st.Appointments)

	return out.Success(days, func(w io.Writer) {
		for _, d := range days {
			fmt.Fprintln(w, d.Date)
			if len(d.Entries) == 0 {
				fmt.Fprintln(w, "  -")
				continue
			}
			for _, e := range d.Entries {
				at := e.Time
				if at == "" {
					at = "--:--"
				}
				fmt.Fprintf(w, "  %-5s %-11s %-8s %s, %s (%s)\n", at, e.Kind, e.ID, e.CustomerName, e.Service, e.Address)
			}
		}
	})
}
