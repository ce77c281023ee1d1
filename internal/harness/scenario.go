package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/fieldsync/internal/domain"
	"github.com/roach88/fieldsync/internal/engine"
)

// DefaultNow is the wall clock used when a scenario names none.
const DefaultNow = "2026-01-01T09:00:00Z"

// Scenario defines a cascade scenario.
// A scenario seeds collections, runs a sequence of commands and asserts on
// the resulting trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario and its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Now is the fixed wall clock in RFC 3339. Defaults to DefaultNow.
	Now string `yaml:"now,omitempty"`

	// Setup maps collection names to their initial records.
	// Setup is written directly and runs no cascade.
	Setup map[string]any `yaml:"setup,omitempty"`

	// Steps are the commands to run, in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step runs one command.
type Step struct {
	// Command is the wire name (e.g., "set-quote-status").
	Command string `yaml:"command"`

	// Args are the command arguments, encoded as JSON before decoding.
	Args map[string]any `yaml:"args,omitempty"`

	// ExpectError is the runtime error code the step must fail with.
	// Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Collection names the collection (count, record, contains).
	Collection string `yaml:"collection,omitempty"`

	// Count is the exact expected number (count, event_count, notification).
	Count int `yaml:"count,omitempty"`

	// Where selects records by exact field match (record).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected field values (record).
	// Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Value is the string a collection must hold (contains).
	Value string `yaml:"value,omitempty"`

	// Event and Origin select trace events (event_count).
	// An empty origin counts every origin.
	Event  string `yaml:"event,omitempty"`
	Origin string `yaml:"origin,omitempty"`

	// Crew and Notification select feed entries (notification).
	Crew         string `yaml:"crew,omitempty"`
	Notification string `yaml:"notification,omitempty"`
}

// Assertion type constants.
const (
	AssertCount        = "count"
	AssertRecord       = "record"
	AssertContains     = "contains"
	AssertEventCount   = "event_count"
	AssertNotification = "notification"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every .yaml and .yml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	scenarios := make([]*Scenario, 0, len(names))
	seen := make(map[string]string, len(names))
	for _, name := range names {
		s, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%s: scenario %q already defined in %s", name, s.Name, prev)
		}
		seen[s.Name] = name
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// clock returns the scenario's fixed wall clock.
func (s *Scenario) clock() (time.Time, error) {
	now := s.Now
	if now == "" {
		now = DefaultNow
	}
	t, err := time.Parse(time.RFC3339, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("now: %w", err)
	}
	return t.UTC(), nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(s.Name, `/\ `) {
		return fmt.Errorf("name %q must not contain spaces or path separators", s.Name)
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if _, err := s.clock(); err != nil {
		return err
	}

	for name := range s.Setup {
		if _, ok := domain.ParseCollection(name); !ok {
			return fmt.Errorf("setup: unknown collection %q", name)
		}
	}

	known := engine.CommandNames()
	for i, step := range s.Steps {
		if step.Command == "" {
			return fmt.Errorf("steps[%d]: command is required", i)
		}
		// An unknown command is only allowed when the step expects it to fail
		if !slices.Contains(known, step.Command) && step.ExpectError == "" {
			return fmt.Errorf("steps[%d]: unknown command %q", i, step.Command)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}

	switch a.Type {
	case AssertCount, AssertRecord, AssertContains:
		if _, ok := domain.ParseCollection(a.Collection); !ok {
			return fmt.Errorf("assertions[%d]: unknown collection %q for %s", index, a.Collection, a.Type)
		}
		if a.Type == AssertRecord && len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for record", index)
		}
		if a.Type == AssertContains && a.Value == "" {
			return fmt.Errorf("assertions[%d]: value is required for contains", index)
		}
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
	case AssertNotification:
		if a.Crew == "" {
			return fmt.Errorf("assertions[%d]: crew is required for notification", index)
		}
		if a.Notification == "" {
			return fmt.Errorf("assertions[%d]: notification is required", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
