package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs every scenario in testdata/scenarios against its golden
// trace. Regenerate with:
//
//	go test ./internal/harness -run TestScenarios -update
func TestScenarios(t *testing.T) {
	scenarios, err := LoadDir("testdata/scenarios")
	require.NoError(t, err)

	for _, scenario := range scenarios {
		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestAssertGolden_FromResult(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/invoice_paid_by_name.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	AssertGolden(t, scenario.Name, result)
}

func TestCheckGolden(t *testing.T) {
	dir := t.TempDir()
	result := NewResult()
	result.add(TraceEvent{Step: 1, Kind: KindStep, Name: "resync"})

	err := CheckGolden(dir, "check", result, false)
	var mismatch *GoldenMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Nil(t, mismatch.Expected)
	assert.Contains(t, err.Error(), "does not exist")

	require.NoError(t, CheckGolden(dir, "check", result, true))
	data, err := os.ReadFile(filepath.Join(dir, "check.golden"))
	require.NoError(t, err)
	assert.Equal(t, "scenario: check\nstep 1 resync\n", string(data))

	require.NoError(t, CheckGolden(dir, "check", result, false))

	result.add(TraceEvent{Step: 1, Kind: KindError, Name: "NOT_FOUND"})
	err = CheckGolden(dir, "check", result, false)
	require.ErrorAs(t, err, &mismatch)
	assert.Contains(t, err.Error(), "trace differs")
	assert.Contains(t, string(mismatch.Actual), "error NOT_FOUND")
}
