package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRunWithGolden_LotIdentityNormalization pins the full result shape for
// the identity scenario. Regenerate with:
//
//	go test ./internal/harness -update
func TestRunWithGolden_LotIdentityNormalization(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/lot_identity_normalization.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "assertion failures: %v", result.Errors)
}

// TestScenarioFiles runs every shipped scenario end to end and requires its
// assertions to hold.
func TestScenarioFiles(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertion failures: %v", result.Errors)
		})
	}
}

// TestRun_Deterministic runs one scenario twice and requires byte-identical
// snapshots, which is what makes golden comparison meaningful.
func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/ship_before_production_conflict.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := MarshalSnapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := MarshalSnapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestMarshalSnapshot_TrailingNewline(t *testing.T) {
	data, err := MarshalSnapshot("empty", NewResult())
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, byte('\n'), data[len(data)-1])
}
