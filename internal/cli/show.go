package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/fieldsync/internal/domain"
	"github.com/roach88/fieldsync/internal/engine"
)

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	names := make([]string, len(domain.AllCollections))
	for i, c := range domain.AllCollections {
		names[i] = string(c)
	}

	return &cobra.Command{
		Use:   "show <collection>",
		Short: "Print a collection",
		Long: `Print the records of one collection as JSON.

Collections: ` + strings.Join(names, ", "),
		Args:          cobra.ExactArgs(1),
		ValidArgs:     names,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, args[0], cmd)
		},
	}
}

func runShow(opts *RootOptions, name string, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts)

	col, ok := domain.ParseCollection(name)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown collection %q", name))
	}

	st, err := loadState(opts, cmd)
	if err != nil {
		return err
	}
	data, err := st.Encode(col)
	if err != nil {
		return out.Failure("failed to encode collection", err)
	}

	return out.Success(json.RawMessage(data), func(w io.Writer) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			buf.Reset()
			buf.Write(data)
		}
		fmt.Fprintln(w, buf.String())
	})
}

// loadState reads a fresh snapshot for read-only commands.
func loadState(opts *RootOptions, cmd *cobra.Command) (engine.State, error) {
	rt, err := openRuntime(opts)
	if err != nil {
		return engine.State{}, err
	}
	defer rt.Close()

	st, err := rt.dispatcher.State(cmd.Context())
	if err != nil {
		return engine.State{}, WrapExitError(ExitCommandError, "failed to read state", err)
	}
	return st, nil
}
