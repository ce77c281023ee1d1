package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/fieldsync/internal/bus"
	"github.com/roach88/fieldsync/internal/domain"
	"github.com/roach88/fieldsync/internal/engine"
	"github.com/roach88/fieldsync/internal/seed"
	"github.com/roach88/fieldsync/internal/store"
	"github.com/roach88/fieldsync/internal/testutil"
)

// ContextID is the writer identity of harness runs.
const ContextID = "harness"

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with a
// fixed clock and sequential identifiers so traces are reproducible.
//
// Execution flow:
//  1. Create fresh in-memory database
//  2. Validate setup against the seed schema and write it
//  3. Dispatch each step, recording events, notifications and diagnostics
//  4. Evaluate assertions against the trace and final state
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	now, err := scenario.clock()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:", store.WithContextID(ContextID))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := writeSetup(ctx, st, scenario); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}

	result := NewResult()
	step := 0

	b := bus.New()
	for _, c := range domain.AllCollections {
		b.Subscribe(c.EventName(), func(_ context.Context, ev bus.Event) {
			result.add(TraceEvent{Step: step, Kind: KindEvent, Name: ev.Name, Detail: string(ev.Origin)})
		})
	}

	d := engine.NewDispatcher(st, b,
		engine.WithNow(testutil.NewFixedClock(now).Now),
		engine.WithIDs(testutil.NewSequentialIDs()),
	)

	for i, s := range scenario.Steps {
		step = i + 1
		result.add(TraceEvent{Step: step, Kind: KindStep, Name: s.Command})

		out, err := runStep(ctx, d, s)
		for _, n := range out.Notifications {
			result.add(TraceEvent{Step: step, Kind: KindNotify, Name: n.CrewMemberName, Detail: string(n.Type)})
		}
		for _, diag := range out.Diagnostics {
			result.add(TraceEvent{Step: step, Kind: KindDiag, Name: diag.Kind, Detail: diag.Rule})
		}

		if err == nil {
			if s.ExpectError != "" {
				result.AddError("step %d %s: expected error %s, got success", step, s.Command, s.ExpectError)
			}
			continue
		}
		code := errorCode(err)
		result.add(TraceEvent{Step: step, Kind: KindError, Name: code})
		switch {
		case s.ExpectError == "":
			result.AddError("step %d %s: unexpected error: %v", step, s.Command, err)
		case s.ExpectError != code:
			result.AddError("step %d %s: expected error %s, got %s", step, s.Command, s.ExpectError, code)
		}
	}

	result.State, err = engine.LoadState(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("failed to load final state: %w", err)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError("%s", msg)
	}

	return result, nil
}

func runStep(ctx context.Context, d *engine.Dispatcher, s Step) (engine.Outcome, error) {
	var args []byte
	if len(s.Args) > 0 {
		var err error
		if args, err = json.Marshal(s.Args); err != nil {
			return engine.Outcome{}, engine.NewInvalidCommandError(s.Command, err.Error())
		}
	}
	cmd, err := engine.DecodeCommand(s.Command, args)
	if err != nil {
		return engine.Outcome{}, err
	}
	return d.Dispatch(ctx, cmd)
}

// writeSetup validates the setup collections against the seed schema and
// writes them without publishing.
func writeSetup(ctx context.Context, rs store.RawStore, scenario *Scenario) error {
	if len(scenario.Setup) == 0 {
		return nil
	}
	data, err := json.Marshal(scenario.Setup)
	if err != nil {
		return fmt.Errorf("encode setup: %w", err)
	}
	s, err := seed.Parse(scenario.Name+".setup.json", data)
	if err != nil {
		return err
	}
	_, err = seed.Apply(ctx, rs, s)
	return err
}

// errorCode returns the runtime error code of err, or "ERROR" for failures
// outside the engine's categories.
func errorCode(err error) string {
	var rerr *engine.RuntimeError
	if errors.As(err, &rerr) {
		return string(rerr.Code)
	}
	return "ERROR"
}
