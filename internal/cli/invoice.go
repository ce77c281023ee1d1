package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldsync/internal/accounting"
)

// NewInvoiceCommand creates the invoice command group.
func NewInvoiceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Accounting operations on invoices",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sync <invoice-id>",
		Short: "Push an invoice to the accounting bridge",
		Long: `Send the invoice to the accounting bridge at bridge.url. On success the
invoice is marked quickbooksSynced with the returned id; on failure nothing
is marked and the bridge's troubleshooting hint is shown.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoiceSync(rootOpts, args[0], cmd)
		},
	})

	return cmd
}

func runInvoiceSync(opts *RootOptions, id string, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts)

	rt, err := openRuntime(opts)
	if err != nil {
		return err
	}
	defer rt.Close()

	client := accounting.NewClient(rt.cfg.Bridge.URL, rt.cfg.Bridge.Timeout)
	res, err := accounting.NewSyncer(rt.dispatcher, client).Sync(cmd.Context(), id)
	if err != nil {
		var berr *accounting.BridgeError
		if errors.As(err, &berr) {
			if opts.Format == "json" {
				if outErr := out.Error("E_BRIDGE", berr.Message, berr); outErr != nil {
					return outErr
				}
			} else if berr.Troubleshooting != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), berr.Troubleshooting)
			}
			return WrapExitError(ExitFailure, "invoice sync failed", err)
		}
		return out.Failure("invoice sync failed", err)
	}

	return out.Success(res, func(w io.Writer) {
		mode := ""
		if res.MockMode {
			mode = " (demo mode)"
		}
		fmt.Fprintf(w, "%s synced as %s%s\n", id, res.QuickbooksInvoiceID, mode)
	})
}
