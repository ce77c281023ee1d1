package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// GoldenSuffix is the file extension of trace snapshots.
const GoldenSuffix = ".golden"

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if trace doesn't match golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares the given result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(GoldenSuffix),
	)
	g.Assert(t, scenarioName, Render(scenarioName, result.Trace))
}

// GoldenMismatch reports a trace that differs from its snapshot.
type GoldenMismatch struct {
	Path     string
	Expected []byte
	Actual   []byte
}

// Error implements the error interface.
func (e *GoldenMismatch) Error() string {
	if e.Expected == nil {
		return fmt.Sprintf("golden file %s does not exist", e.Path)
	}
	return fmt.Sprintf("trace differs from %s\n--- expected\n%s--- actual\n%s", e.Path, e.Expected, e.Actual)
}

// CheckGolden compares a result's trace against dir/{name}.golden outside
// of tests. With update set the snapshot is rewritten instead.
func CheckGolden(dir, name string, result *Result, update bool) error {
	path := filepath.Join(dir, name+GoldenSuffix)
	actual := Render(name, result.Trace)

	if update {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create golden dir: %w", err)
		}
		if err := os.WriteFile(path, actual, 0o644); err != nil {
			return fmt.Errorf("write golden file: %w", err)
		}
		return nil
	}

	expected, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &GoldenMismatch{Path: path, Actual: actual}
	}
	if err != nil {
		return fmt.Errorf("read golden file: %w", err)
	}
	if !bytes.Equal(expected, actual) {
		return &GoldenMismatch{Path: path, Expected: expected, Actual: actual}
	}
	return nil
}
