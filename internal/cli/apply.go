package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldsync/internal/engine"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Args string
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <command>",
		Short: "Dispatch one command and its cascade",
		Long: `Dispatch a single command against the database and run its cascade.

Arguments are given as a JSON object. Without a command name the
available commands are listed.

Examples:
  fieldsync apply create-quote --args '{"customerName":"Jane Doe","amount":150}'
  fieldsync apply set-quote-status --args '{"id":"Q-1","status":"approved"}'
  fieldsync apply delete-job --args '{"id":"J-3"}' --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		ValidArgs:     engine.CommandNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				names := engine.CommandNames()
				return newFormatter(cmd, opts.RootOptions).Success(names, func(w io.Writer) {
					fmt.Fprintln(w, strings.Join(names, "\n"))
				})
			}
			return runApply(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "{}", "command arguments as JSON")

	return cmd
}

func runApply(opts *ApplyOptions, name string, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)

	command, err := engine.DecodeCommand(name, []byte(opts.Args))
	if err != nil {
		return out.Failure("invalid command", err)
	}
	return dispatchOne(opts.RootOptions, cmd, command)
}

// NewResyncCommand creates the resync command.
func NewResyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Create missing jobs and invoices for existing quotes",
		Long: `Run the resync command: every quote without a job gets one (unless it
was deliberately deleted), approved and invoiced quotes get their invoice,
and legacy technicians are migrated into crew-members.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return dispatchOne(rootOpts, cmd, engine.Resync{})
		},
	}
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:           "reset",
		Short:         "Clear every collection",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return NewExitError(ExitCommandError, "reset clears all data; pass --yes to confirm")
			}
			return dispatchOne(rootOpts, cmd, engine.ClearAllData{})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm clearing all data")
	return cmd
}

// dispatchOne runs command through a one-shot dispatcher and reports the
// outcome.
func dispatchOne(opts *RootOptions, cmd *cobra.Command, command engine.Command) error {
	out := newFormatter(cmd, opts)

	rt, err := openRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	outcome, err := rt.dispatcher.Dispatch(cmd.Context(), command)
	if err != nil {
		return out.Failure(fmt.Sprintf("%s failed", command.CommandName()), err)
	}
	return out.Success(outcome, func(w io.Writer) { renderOutcome(w, outcome) })
}

func renderOutcome(w io.Writer, o engine.Outcome) {
	if len(o.Writes) == 0 {
		fmt.Fprintf(w, "%s: no changes\n", o.Command)
	} else {
		fmt.Fprintf(w, "%s: %d write(s)\n", o.Command, len(o.Writes))
	}
	for _, wr := range o.Writes {
		fmt.Fprintf(w, "  %-28s %-8s v%d\n", wr.Collection, wr.Origin, wr.Version)
	}
	for _, n := range o.Notifications {
		fmt.Fprintf(w, "  notify %s: %s\n", n.CrewMemberName, n.Message)
	}
	for _, d := range o.Diagnostics {
		fmt.Fprintf(w, "  %s (%s): %s\n", strings.ReplaceAll(d.Kind, "_", " "), d.Rule, d.Message)
	}
}
