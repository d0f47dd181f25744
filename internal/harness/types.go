package harness

import "github.com/steelworks/lotline/internal/model"

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success. True when every assertion held.
	Pass bool `json:"pass"`

	// Sources holds one ingest result per batch, in execution order.
	Sources []model.IngestResult `json:"sources"`

	// Rules holds the validation pass results when the scenario asked
	// for one.
	Rules []model.RuleResult `json:"rules,omitempty"`

	// Lots is the final state of every lot, in key order, with attached
	// records, unresolved flags, and derived status. This is what golden
	// snapshots compare.
	Lots []model.LotDetail `json:"lots"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Sources: []model.IngestResult{},
		Lots:    []model.LotDetail{},
		Errors:  []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
