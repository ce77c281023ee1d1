package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldsync/internal/engine"
	"github.com/roach88/fieldsync/internal/seed"
	"github.com/roach88/fieldsync/internal/store"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	NoResync bool
}

// SeedResult reports what the seed command wrote.
type SeedResult struct {
	Written []store.Stamp   `json:"written"`
	Resync  *engine.Outcome `json:"resync,omitempty"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Load collections from a CUE or JSON file",
		Long: `Replace the collections a seed file gives with its contents, then resync
so missing jobs and invoices are derived.

The file is validated against the built-in schema before anything is
written. Collections the file does not mention are left untouched.

Examples:
  fieldsync seed ./fixtures/demo.cue
  fieldsync seed ./export.json --no-resync`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, args[0], cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.NoResync, "no-resync", false, "skip the resync after loading")

	return cmd
}

func runSeed(opts *SeedOptions, path string, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)

	s, err := seed.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid seed file", err)
	}

	rt, err := openRuntime(opts.RootOptions)
	if err != nil {
		return err
	}
	defer rt.Close()

	stamps, err := seed.Apply(cmd.Context(), rt.store, s)
	if err != nil {
		return out.Failure("seed failed", err)
	}
	out.VerboseLog("seeded %d collection(s) from %s", len(stamps), path)

	result := SeedResult{Written: stamps}
	if !opts.NoResync {
		outcome, err := rt.dispatcher.Dispatch(cmd.Context(), engine.Resync{})
		if err != nil {
			return out.Failure("resync after seed failed", err)
		}
		result.Resync = &outcome
	}

	return out.Success(result, func(w io.Writer) {
		for _, st := range result.Written {
			fmt.Fprintf(w, "seeded %-28s v%d\n", st.Collection, st.Version)
		}
		if result.Resync != nil {
			renderOutcome(w, *result.Resync)
		}
	})
}
