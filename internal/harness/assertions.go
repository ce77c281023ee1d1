package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/fieldsync/internal/domain"
	"github.com/roach88/fieldsync/internal/engine"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, line := range strings.Split(strings.TrimSuffix(string(Render("", e.Trace)), "\n"), "\n")[1:] {
			fmt.Fprintf(&buf, "  %s\n", line)
		}
	}

	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCount:
			err = assertCount(result.State, assertion)
		case AssertRecord:
			err = assertRecord(result.State, assertion)
		case AssertContains:
			err = assertContains(result.State, assertion)
		case AssertEventCount:
			err = assertEventCount(result.Trace, assertion)
		case AssertNotification:
			err = assertNotification(result.State, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertCount checks that a collection holds exactly Count records.
func assertCount(st engine.State, a Assertion) error {
	records, err := decodeCollection[json.RawMessage](st, a.Collection)
	if err != nil {
		return err
	}
	if len(records) != a.Count {
		return &AssertionError{
			Type:     AssertCount,
			Expected: fmt.Sprintf("%d records in %s", a.Count, a.Collection),
			Actual:   fmt.Sprintf("%d records", len(records)),
		}
	}
	return nil
}

// assertRecord checks that a record matching Where carries the Expect
// fields. Values are compared after a JSON round trip, so YAML integers
// match JSON numbers.
func assertRecord(st engine.State, a Assertion) error {
	records, err := decodeCollection[map[string]any](st, a.Collection)
	if err != nil {
		return err
	}
	where, err := normalize(a.Where)
	if err != nil {
		return fmt.Errorf("record: where: %w", err)
	}
	expect, err := normalize(a.Expect)
	if err != nil {
		return fmt.Errorf("record: expect: %w", err)
	}

	var matched []map[string]any
	for _, rec := range records {
		if subsetMatch(rec, where) {
			matched = append(matched, rec)
		}
	}
	if len(matched) == 0 {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("record in %s where %s", a.Collection, formatFields(where)),
			Actual:   fmt.Sprintf("no match among %d records", len(records)),
		}
	}
	for _, rec := range matched {
		if subsetMatch(rec, expect) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertRecord,
		Expected: fmt.Sprintf("%s where %s to have %s", a.Collection, formatFields(where), formatFields(expect)),
		Actual:   formatFields(pick(matched[0], expect)),
	}
}

// assertContains checks that a string collection holds Value.
func assertContains(st engine.State, a Assertion) error {
	values, err := decodeCollection[string](st, a.Collection)
	if err != nil {
		return err
	}
	for _, v := range values {
		if v == a.Value {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertContains,
		Expected: fmt.Sprintf("%s to contain %q", a.Collection, a.Value),
		Actual:   fmt.Sprintf("%q", values),
	}
}

// assertEventCount checks that the trace has exactly Count events with the
// given name and, when set, origin.
func assertEventCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Kind != KindEvent || ev.Name != a.Event {
			continue
		}
		if a.Origin != "" && ev.Detail != a.Origin {
			continue
		}
		count++
	}
	if count != a.Count {
		what := a.Event
		if a.Origin != "" {
			what += " origin=" + a.Origin
		}
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d x %s", a.Count, what),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertNotification checks the number of notifications of one type in a
// crew member's feed. Names match case and whitespace insensitively.
func assertNotification(st engine.State, a Assertion) error {
	count := 0
	for _, n := range st.Notifications {
		if domain.SameName(n.CrewMemberName, a.Crew) && string(n.Type) == a.Notification {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertNotification,
			Expected: fmt.Sprintf("%d %s notifications for %s", a.Count, a.Notification, a.Crew),
			Actual:   fmt.Sprintf("%d", count),
		}
	}
	return nil
}

func decodeCollection[T any](st engine.State, name string) ([]T, error) {
	c, ok := domain.ParseCollection(name)
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", name)
	}
	data, err := st.Encode(c)
	if err != nil {
		return nil, err
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s as %T: %w", name, out, err)
	}
	return out, nil
}

// normalize round-trips m through JSON so numbers become float64 and
// nested values take the shapes json.Unmarshal produces.
func normalize(m map[string]any) (map[string]any, error) {
	if len(m) == 0 {
		return map[string]any{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// subsetMatch reports whether every field of expected is present in actual
// with an equal value. Nested objects match as subsets too.
func subsetMatch(actual, expected map[string]any) bool {
	for k, want := range expected {
		got, ok := actual[k]
		if !ok {
			return false
		}
		if !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func valuesEqual(actual, expected any) bool {
	if em, ok := expected.(map[string]any); ok {
		am, ok := actual.(map[string]any)
		return ok && subsetMatch(am, em)
	}
	return reflect.DeepEqual(actual, expected)
}

// pick returns the fields of rec named in keys.
func pick(rec, keys map[string]any) map[string]any {
	out := make(map[string]any, len(keys))
	for k := range keys {
		if v, ok := rec[k]; ok {
			out[k] = v
		}
	}
	return out
}

// formatFields renders fields in sorted key order for stable messages.
func formatFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, fields[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
