package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines one reconciliation contract test: row batches to feed
// through the engine, whether to run the validation pass, and assertions
// over the outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. It doubles as the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Now pins the clock, RFC 3339. Defaults to scenarioEpoch so that
	// scenarios omitting it still produce stable timestamps.
	Now string `yaml:"now,omitempty"`

	// RunToken is an optional fixed run token. Defaults to
	// "test-run-default" for deterministic golden comparison.
	RunToken string `yaml:"run_token,omitempty"`

	// StaleThresholdHours overrides the 24h staleness threshold used by
	// source_health assertions.
	StaleThresholdHours int `yaml:"stale_threshold_hours,omitempty"`

	// Sources are the row batches, executed in the order written.
	Sources []SourceBatch `yaml:"sources"`

	// Validate runs the rule pass after all batches have loaded.
	Validate bool `yaml:"validate,omitempty"`

	// Assertions check ingest results and final state.
	Assertions []Assertion `yaml:"assertions"`
}

// scenarioEpoch is the default pinned instant for scenarios without "now".
const scenarioEpoch = "2026-01-01T00:00:00Z"

// SourceBatch is one batch of inline rows for a single source stream.
type SourceBatch struct {
	// Source names the stream: production, quality, or shipping. The
	// batch runs under the built-in spec for that stream, so rows use
	// the same header spellings real files do.
	Source string `yaml:"source"`

	// Rows are the raw cells, header name to value. Scalar values only;
	// numbers and bools are stringified, matching what a file reader
	// would produce.
	Rows []map[string]any `yaml:"rows"`

	// At optionally moves the clock before the batch runs, RFC 3339.
	// Later source_health assertions can then observe staleness.
	At string `yaml:"at,omitempty"`
}

// Assertion validates one aspect of the outcome. Type selects which of
// the remaining fields apply.
type Assertion struct {
	Type string `yaml:"type"`

	// lot_state and flag_count
	LotCode  string         `yaml:"lot_code,omitempty"`
	Date     string         `yaml:"date,omitempty"`
	Expect   map[string]any `yaml:"expect,omitempty"`
	FlagType string         `yaml:"flag_type,omitempty"`
	Count    *int           `yaml:"count,omitempty"`

	// source_result and source_health
	Source       string `yaml:"source,omitempty"`
	RowsRead     *int   `yaml:"rows_read,omitempty"`
	RowsIngested *int   `yaml:"rows_ingested,omitempty"`
	Errors       *int   `yaml:"errors,omitempty"`
	Status       string `yaml:"status,omitempty"`
	At           string `yaml:"at,omitempty"`

	// rule_result
	Rule         string `yaml:"rule,omitempty"`
	FlagsCreated *int   `yaml:"flags_created,omitempty"`
	FlagsSkipped *int   `yaml:"flags_skipped,omitempty"`
}

// Assertion type constants.
const (
	AssertLotState     = "lot_state"
	AssertFlagCount    = "flag_count"
	AssertSourceResult = "source_result"
	AssertRuleResult   = "rule_result"
	AssertSourceHealth = "source_health"
)

// Source stream names accepted in a SourceBatch.
var validBatchSources = map[string]bool{
	"production": true,
	"quality":    true,
	"shipping":   true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
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

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Sources) == 0 {
		return fmt.Errorf("sources list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Now != "" {
		if _, err := time.Parse(time.RFC3339, s.Now); err != nil {
			return fmt.Errorf("now: %w", err)
		}
	}

	if s.StaleThresholdHours < 0 {
		return fmt.Errorf("stale_threshold_hours must be non-negative")
	}

	for i, batch := range s.Sources {
		if !validBatchSources[batch.Source] {
			return fmt.Errorf("sources[%d]: source must be production, quality, or shipping", i)
		}
		if batch.Rows == nil {
			return fmt.Errorf("sources[%d]: rows is required (use empty list for no rows)", i)
		}
		if batch.At != "" {
			if _, err := time.Parse(time.RFC3339, batch.At); err != nil {
				return fmt.Errorf("sources[%d].at: %w", i, err)
			}
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

	switch a.Type {
	case AssertLotState:
		if a.LotCode == "" || a.Date == "" {
			return fmt.Errorf("assertions[%d]: lot_code and date are required for lot_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for lot_state", index)
		}
	case AssertFlagCount:
		if a.LotCode == "" || a.Date == "" {
			return fmt.Errorf("assertions[%d]: lot_code and date are required for flag_count", index)
		}
		if a.FlagType == "" {
			return fmt.Errorf("assertions[%d]: flag_type is required for flag_count", index)
		}
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for flag_count", index)
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for flag_count", index)
		}
	case AssertSourceResult:
		if a.Source == "" {
			return fmt.Errorf("assertions[%d]: source is required for source_result", index)
		}
		if a.RowsRead == nil && a.RowsIngested == nil && a.Errors == nil {
			return fmt.Errorf("assertions[%d]: source_result needs at least one of rows_read, rows_ingested, errors", index)
		}
	case AssertRuleResult:
		if a.Rule == "" {
			return fmt.Errorf("assertions[%d]: rule is required for rule_result", index)
		}
		if a.FlagsCreated == nil && a.FlagsSkipped == nil {
			return fmt.Errorf("assertions[%d]: rule_result needs at least one of flags_created, flags_skipped", index)
		}
	case AssertSourceHealth:
		if a.Source == "" {
			return fmt.Errorf("assertions[%d]: source is required for source_health", index)
		}
		if a.Status == "" {
			return fmt.Errorf("assertions[%d]: status is required for source_health", index)
		}
		if a.At != "" {
			if _, err := time.Parse(time.RFC3339, a.At); err != nil {
				return fmt.Errorf("assertions[%d].at: %w", index, err)
			}
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
