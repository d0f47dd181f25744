package model

import "time"

// RowIssue records one skipped input row and why it was skipped.
type RowIssue struct {
	Row     int    `json:"row"` // 1-based data row number (header excluded)
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// IngestResult summarizes one source's batch. Row-level failures are
// accumulated here instead of aborting the batch, so partial progress is
// always visible.
type IngestResult struct {
	Source       string     `json:"source"`
	RowsRead     int        `json:"rows_read"`
	RowsIngested int        `json:"rows_ingested"`
	Errors       []RowIssue `json:"errors,omitempty"`
}

// RuleResult summarizes one validation rule pass.
type RuleResult struct {
	Rule         string   `json:"rule"`
	FlagsCreated int      `json:"flags_created"`
	FlagsSkipped int      `json:"flags_skipped"`
	Errors       []string `json:"errors,omitempty"`
}

// RefreshResult is the combined outcome of a full refresh pass: every source
// ingested in order, then the full validation pass.
type RefreshResult struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Sources    []IngestResult `json:"sources"`
	Rules      []RuleResult   `json:"rules"`
}

// SourceHealth is one entry of the source health report.
type SourceHealth struct {
	SourceName  string    `json:"source_name"`
	LastUpdated time.Time `json:"last_updated"`
	Status      string    `json:"status"`
}
