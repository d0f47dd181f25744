package harness

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/steelworks/lotline/internal/model"
)

// Snapshot captures the externally visible outcome of a scenario run:
// per-batch ingest results, rule results, and the final state of every
// lot with its records, flags, and derived status. Field order is fixed
// by the struct, and the harness pins clock and run token, so repeated
// runs serialize byte-identically.
type Snapshot struct {
	ScenarioName string               `json:"scenario_name"`
	Sources      []model.IngestResult `json:"sources"`
	Rules        []model.RuleResult   `json:"rules,omitempty"`
	Lots         []model.LotDetail    `json:"lots"`
}

// RunWithGolden executes a scenario and compares the outcome snapshot
// against a golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Golden files pin every derived column, flag, and status the scenario
// produces, catching drift that pointwise assertions would miss. The
// scenario's own assertions still run; the returned result carries their
// outcome.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}

	return result, nil
}

// AssertGolden compares an already-executed result against the golden
// file for scenarioName.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}

// MarshalSnapshot renders the stable JSON snapshot for a scenario result.
// The goldie fixtures and the CLI's golden comparison both use it, so the
// two always agree byte for byte.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := Snapshot{
		ScenarioName: scenarioName,
		Sources:      result.Sources,
		Rules:        result.Rules,
		Lots:         result.Lots,
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	return append(data, '\n'), nil
}
