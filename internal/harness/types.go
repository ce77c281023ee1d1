package harness

import (
	"bytes"
	"fmt"

	"github.com/roach88/fieldsync/internal/engine"
)

// Trace event kinds.
const (
	KindStep   = "step"
	KindEvent  = "event"
	KindNotify = "notify"
	KindDiag   = "diag"
	KindError  = "error"
)

// TraceEvent is one line of a scenario trace.
type TraceEvent struct {
	Step int    `json:"step"`
	Kind string `json:"kind"`
	// Name is the command, event name, crew member, diagnostic kind or
	// error code, depending on Kind.
	Name string `json:"name"`
	// Detail is the event origin, notification type or diagnostic rule.
	Detail string `json:"detail,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step and assertion held.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the store content after the last step.
	State engine.State `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

func (r *Result) add(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

// Render formats a trace in the golden file layout.
func Render(name string, trace []TraceEvent) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scenario: %s\n", name)
	for _, ev := range trace {
		switch ev.Kind {
		case KindStep:
			fmt.Fprintf(&buf, "step %d %s\n", ev.Step, ev.Name)
		case KindEvent:
			fmt.Fprintf(&buf, "  event %s origin=%s\n", ev.Name, ev.Detail)
		case KindNotify, KindDiag:
			fmt.Fprintf(&buf, "  %s %s %s\n", ev.Kind, ev.Name, ev.Detail)
		case KindError:
			fmt.Fprintf(&buf, "  error %s\n", ev.Name)
		}
	}
	return buf.Bytes()
}
