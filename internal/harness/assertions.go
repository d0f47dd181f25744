package harness

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/steelworks/lotline/internal/engine"
	"github.com/steelworks/lotline/internal/model"
	"github.com/steelworks/lotline/internal/store"
	"github.com/steelworks/lotline/internal/testutil"
)

// AssertionError is returned when an assertion fails.
// It includes expected and actual context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// AssertionContext provides the live handles assertions evaluate against.
// The store and engine are still open when assertions run; the clock and
// threshold are the same ones the scenario executed under.
type AssertionContext struct {
	Ctx        context.Context
	Engine     *engine.Engine
	Store      *store.Store
	Clock      *testutil.FixedClock
	StaleAfter time.Duration
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides store and engine access for assertions that
// read final state.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertLotState:
			if actx == nil {
				err = fmt.Errorf("assertion[%d]: lot_state requires database context", i)
			} else {
				err = assertLotState(actx, assertion)
			}
		case AssertFlagCount:
			if actx == nil {
				err = fmt.Errorf("assertion[%d]: flag_count requires database context", i)
			} else {
				err = assertFlagCount(actx, assertion)
			}
		case AssertSourceResult:
			err = assertSourceResult(result, assertion)
		case AssertRuleResult:
			err = assertRuleResult(result, assertion)
		case AssertSourceHealth:
			if actx == nil {
				err = fmt.Errorf("assertion[%d]: source_health requires database context", i)
			} else {
				err = assertSourceHealth(actx, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertLotState looks up one lot and checks the expect map against its
// persisted columns and derived view. Subset semantics: only the keys
// present in expect are checked.
//
// Checkable fields: exists, pending_inspection, has_integrity_issue,
// has_date_conflict, status, unresolved_flags.
func assertLotState(actx *AssertionContext, a Assertion) error {
	detail, err := actx.Engine.GetLotDetail(actx.Ctx, a.LotCode, a.Date)
	if err != nil {
		return &AssertionError{
			Type:     AssertLotState,
			Expected: fmt.Sprintf("lot %s / %s to be addressable", a.LotCode, a.Date),
			Actual:   fmt.Sprintf("lookup error: %v", err),
		}
	}

	if detail == nil {
		for _, key := range sortedKeys(a.Expect) {
			if key == "exists" {
				if !looseEqual(a.Expect[key], false) {
					return &AssertionError{
						Type:     AssertLotState,
						Expected: fmt.Sprintf("lot %s / %s to exist", a.LotCode, a.Date),
						Actual:   "lot does not exist",
					}
				}
				continue
			}
			return &AssertionError{
				Type:     AssertLotState,
				Expected: fmt.Sprintf("lot %s / %s field %q = %v", a.LotCode, a.Date, key, a.Expect[key]),
				Actual:   "lot does not exist",
			}
		}
		return nil
	}

	actual := map[string]any{
		"exists":              true,
		"pending_inspection":  detail.Lot.PendingInspection,
		"has_integrity_issue": detail.Lot.HasIntegrityIssue,
		"has_date_conflict":   detail.Lot.HasDateConflict,
		"status":              string(detail.Status),
		"unresolved_flags":    len(detail.Flags),
	}

	for _, key := range sortedKeys(a.Expect) {
		expected := a.Expect[key]
		actualVal, known := actual[key]
		if !known {
			return &AssertionError{
				Type:     AssertLotState,
				Expected: fmt.Sprintf("checkable field %q", key),
				Actual:   fmt.Sprintf("unknown lot_state field %q (have: %s)", key, strings.Join(sortedKeys(actual), ", ")),
			}
		}
		if !looseEqual(expected, actualVal) {
			return &AssertionError{
				Type:     AssertLotState,
				Expected: fmt.Sprintf("lot %s / %s field %q = %v", a.LotCode, a.Date, key, expected),
				Actual:   fmt.Sprintf("%v", actualVal),
			}
		}
	}

	return nil
}

// assertFlagCount counts unresolved flags of one type on one lot.
func assertFlagCount(actx *AssertionContext, a Assertion) error {
	detail, err := actx.Engine.GetLotDetail(actx.Ctx, a.LotCode, a.Date)
	if err != nil {
		return &AssertionError{
			Type:     AssertFlagCount,
			Expected: fmt.Sprintf("lot %s / %s to be addressable", a.LotCode, a.Date),
			Actual:   fmt.Sprintf("lookup error: %v", err),
		}
	}
	if detail == nil {
		return &AssertionError{
			Type:     AssertFlagCount,
			Expected: fmt.Sprintf("lot %s / %s to exist", a.LotCode, a.Date),
			Actual:   "lot does not exist",
		}
	}

	count := 0
	for _, flag := range detail.Flags {
		if string(flag.FlagType) == a.FlagType {
			count++
		}
	}

	if count != *a.Count {
		return &AssertionError{
			Type:     AssertFlagCount,
			Expected: fmt.Sprintf("%d unresolved %s flag(s) on lot %s / %s", *a.Count, a.FlagType, a.LotCode, a.Date),
			Actual:   fmt.Sprintf("%d flag(s)", count),
		}
	}

	return nil
}

// assertSourceResult checks the ingest counters recorded for a source's
// batches. When the same source ran more than once, the assertion passes
// if any of its batches matches.
func assertSourceResult(result *Result, a Assertion) error {
	var seen []model.IngestResult
	for _, src := range result.Sources {
		if src.Source == a.Source {
			seen = append(seen, src)
		}
	}

	if len(seen) == 0 {
		return &AssertionError{
			Type:     AssertSourceResult,
			Expected: fmt.Sprintf("source %q %s", a.Source, describeSourceExpect(a)),
			Actual:   fmt.Sprintf("no batch ran for source %q", a.Source),
		}
	}

	actuals := make([]string, 0, len(seen))
	for _, src := range seen {
		if sourceResultMatches(src, a) {
			return nil
		}
		actuals = append(actuals, describeIngest(src))
	}

	return &AssertionError{
		Type:     AssertSourceResult,
		Expected: fmt.Sprintf("source %q %s", a.Source, describeSourceExpect(a)),
		Actual:   strings.Join(actuals, "; "),
	}
}

func sourceResultMatches(src model.IngestResult, a Assertion) bool {
	if a.RowsRead != nil && src.RowsRead != *a.RowsRead {
		return false
	}
	if a.RowsIngested != nil && src.RowsIngested != *a.RowsIngested {
		return false
	}
	if a.Errors != nil && len(src.Errors) != *a.Errors {
		return false
	}
	return true
}

func describeSourceExpect(a Assertion) string {
	var parts []string
	if a.RowsRead != nil {
		parts = append(parts, fmt.Sprintf("rows_read=%d", *a.RowsRead))
	}
	if a.RowsIngested != nil {
		parts = append(parts, fmt.Sprintf("rows_ingested=%d", *a.RowsIngested))
	}
	if a.Errors != nil {
		parts = append(parts, fmt.Sprintf("errors=%d", *a.Errors))
	}
	return strings.Join(parts, " ")
}

func describeIngest(src model.IngestResult) string {
	return fmt.Sprintf("rows_read=%d rows_ingested=%d errors=%d",
		src.RowsRead, src.RowsIngested, len(src.Errors))
}

// assertRuleResult checks the flag counters for one rule of the
// validation pass.
func assertRuleResult(result *Result, a Assertion) error {
	expected := fmt.Sprintf("rule %q %s", a.Rule, describeRuleExpect(a))

	if len(result.Rules) == 0 {
		return &AssertionError{
			Type:     AssertRuleResult,
			Expected: expected,
			Actual:   "validation pass did not run (scenario needs validate: true)",
		}
	}

	for _, rr := range result.Rules {
		if rr.Rule != a.Rule {
			continue
		}
		if (a.FlagsCreated == nil || rr.FlagsCreated == *a.FlagsCreated) &&
			(a.FlagsSkipped == nil || rr.FlagsSkipped == *a.FlagsSkipped) {
			return nil
		}
		return &AssertionError{
			Type:     AssertRuleResult,
			Expected: expected,
			Actual:   fmt.Sprintf("flags_created=%d flags_skipped=%d", rr.FlagsCreated, rr.FlagsSkipped),
		}
	}

	return &AssertionError{
		Type:     AssertRuleResult,
		Expected: expected,
		Actual:   fmt.Sprintf("no result for rule %q (rules run: %s)", a.Rule, ruleNames(result.Rules)),
	}
}

func describeRuleExpect(a Assertion) string {
	var parts []string
	if a.FlagsCreated != nil {
		parts = append(parts, fmt.Sprintf("flags_created=%d", *a.FlagsCreated))
	}
	if a.FlagsSkipped != nil {
		parts = append(parts, fmt.Sprintf("flags_skipped=%d", *a.FlagsSkipped))
	}
	return strings.Join(parts, " ")
}

func ruleNames(rules []model.RuleResult) string {
	names := make([]string, len(rules))
	for i, rr := range rules {
		names[i] = rr.Rule
	}
	return strings.Join(names, ", ")
}

// assertSourceHealth classifies one source's freshness. The optional "at"
// timestamp moves the observation instant without touching stored state,
// which is how a scenario checks that a healthy stamp goes stale.
func assertSourceHealth(actx *AssertionContext, a Assertion) error {
	expected := fmt.Sprintf("source %q status %s", a.Source, a.Status)

	metas, err := actx.Store.ListSourceMetadata(actx.Ctx)
	if err != nil {
		return &AssertionError{
			Type:     AssertSourceHealth,
			Expected: expected,
			Actual:   fmt.Sprintf("metadata query error: %v", err),
		}
	}

	at := actx.Clock.Now()
	if a.At != "" {
		parsed, err := time.Parse(time.RFC3339, a.At)
		if err != nil {
			return &AssertionError{
				Type:     AssertSourceHealth,
				Expected: expected,
				Actual:   fmt.Sprintf("invalid at timestamp: %v", err),
			}
		}
		at = parsed
	}

	for _, health := range engine.CheckHealth(metas, at, actx.StaleAfter) {
		if health.SourceName != a.Source {
			continue
		}
		if health.Status != a.Status {
			return &AssertionError{
				Type:     AssertSourceHealth,
				Expected: fmt.Sprintf("%s at %s", expected, at.Format(time.RFC3339)),
				Actual:   fmt.Sprintf("status %s (last updated %s)", health.Status, health.LastUpdated.Format(time.RFC3339)),
			}
		}
		return nil
	}

	return &AssertionError{
		Type:     AssertSourceHealth,
		Expected: expected,
		Actual:   fmt.Sprintf("no metadata recorded for source %q", a.Source),
	}
}

// sortedKeys returns the map's keys in stable order so failure messages
// are deterministic.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// looseEqual compares a YAML-parsed expected value against an actual Go
// value, coercing across the numeric types YAML produces. Expected side
// comes from the scenario file (string, bool, int, float64); actual side
// comes from the engine (string, bool, int).
func looseEqual(expected, actual any) bool {
	if expected == nil || actual == nil {
		return expected == nil && actual == nil
	}

	switch exp := expected.(type) {
	case string:
		act, ok := actual.(string)
		return ok && exp == act
	case bool:
		act, ok := actual.(bool)
		return ok && exp == act
	case int:
		return intEqual(int64(exp), actual)
	case int64:
		return intEqual(exp, actual)
	case float64:
		// YAML may hand integers back as floats
		if exp == float64(int64(exp)) {
			return intEqual(int64(exp), actual)
		}
		act, ok := actual.(float64)
		return ok && exp == act
	}

	return reflect.DeepEqual(expected, actual)
}

func intEqual(expected int64, actual any) bool {
	switch act := actual.(type) {
	case int:
		return expected == int64(act)
	case int64:
		return expected == act
	}
	return false
}
