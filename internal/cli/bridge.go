package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldsync/internal/bridge"
	"github.com/roach88/fieldsync/internal/store"
)

// NewBridgeCommand creates the bridge command.
func NewBridgeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "bridge",
		Short: "Run the QuickBooks invoice bridge",
		Long: `Run the HTTP bridge that creates QuickBooks invoices.

Without QuickBooks credentials, or with credentials that look like
placeholders, every sync succeeds in demo mode with a generated ID.
Sync records are kept in the database's key-value table.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBridge(rootOpts, cmd)
		},
	}
}

func runBridge(opts *RootOptions, cmd *cobra.Command) error {
	cfg, err := opts.Config()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.Database, store.WithContextID(cfg.ContextID))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	creds := bridge.Credentials{
		ClientID:    cfg.QuickBooks.ClientID,
		AccessToken: cfg.QuickBooks.AccessToken,
		RealmID:     cfg.QuickBooks.RealmID,
	}
	bcfg := bridge.Config{Credentials: creds, Now: time.Now}
	if creds.Configured() {
		bcfg.Upstream = bridge.NewQuickBooks(cfg.QuickBooks.BaseURL, creds, cfg.Bridge.Timeout)
	}
	mode := "live"
	if !creds.Configured() || !creds.Plausible() {
		mode = "demo"
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	srv := bridge.New(st, bcfg).HTTPServer(cfg.Bridge.Addr)
	fmt.Fprintf(cmd.OutOrStdout(), "bridge (%s mode) on %s\n", mode, cfg.Bridge.Addr)
	if err := serveHTTP(ctx, srv); err != nil {
		return WrapExitError(ExitFailure, "http server failed", err)
	}
	return nil
}
