package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/steelworks/lotline/internal/compiler"
	"github.com/steelworks/lotline/internal/engine"
	"github.com/steelworks/lotline/internal/model"
	"github.com/steelworks/lotline/internal/store"
	"github.com/steelworks/lotline/internal/testutil"
)

// Harness executes one scenario against a real engine instance.
// It owns the deterministic substitutions (pinned clock, fixed run token)
// so repeated runs of the same scenario produce identical results.
type Harness struct {
	store      *store.Store
	engine     *engine.Engine
	clock      *testutil.FixedClock
	specs      map[model.Stream]model.SourceSpec
	staleAfter time.Duration
	logger     *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. The
// engine under test is the real one; only the clock and the run token
// generator are substituted, so an assertion failure points at engine
// behavior rather than harness bookkeeping.
//
// Execution flow:
//  1. Create a fresh in-memory database
//  2. Pin the clock to the scenario's "now" (or the default epoch)
//  3. Ingest each source batch in order under its built-in spec
//  4. Run the validation pass if the scenario asks for one
//  5. Capture final lot state, evaluate assertions, return the result
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	clock, err := scenarioClock(scenario.Now)
	if err != nil {
		return nil, err
	}
	runGen := testutil.NewStaticRunToken(scenario.RunToken)

	staleAfter := engine.DefaultStaleThreshold
	if scenario.StaleThresholdHours > 0 {
		staleAfter = time.Duration(scenario.StaleThresholdHours) * time.Hour
	}
	eng := engine.New(st, clock, runGen, engine.WithStaleThreshold(staleAfter))

	specs, err := streamSpecs()
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:      st,
		engine:     eng,
		clock:      clock,
		specs:      specs,
		staleAfter: staleAfter,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	ctx := context.Background()

	result := NewResult()
	if err := h.runBatches(ctx, scenario.Sources, result); err != nil {
		return nil, err
	}

	if scenario.Validate {
		rules, err := eng.Validate(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to run validation pass: %w", err)
		}
		result.Rules = rules
	}

	lots, err := eng.SearchLots(ctx, "", 0)
	if err != nil {
		return nil, fmt.Errorf("failed to capture final lot state: %w", err)
	}
	result.Lots = lots

	actx := &AssertionContext{
		Ctx:        ctx,
		Engine:     eng,
		Store:      st,
		Clock:      clock,
		StaleAfter: staleAfter,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// runBatches feeds each batch through the engine in scenario order.
//
// Batches run under the built-in spec for their stream, renamed to the
// stream itself so assertions address "production" rather than the
// deployment feed name. After each batch the source's metadata is stamped
// the way a file ingest would stamp it, which is what source_health
// assertions read back.
func (h *Harness) runBatches(ctx context.Context, batches []SourceBatch, result *Result) error {
	for i, batch := range batches {
		if batch.At != "" {
			at, err := time.Parse(time.RFC3339, batch.At)
			if err != nil {
				return fmt.Errorf("sources[%d]: invalid at timestamp: %w", i, err)
			}
			h.clock.Set(at)
		}

		spec, ok := h.specs[model.Stream(batch.Source)]
		if !ok {
			return fmt.Errorf("sources[%d]: no built-in spec for source %q", i, batch.Source)
		}
		spec.Name = batch.Source

		rows, err := convertBatchRows(batch.Rows)
		if err != nil {
			return fmt.Errorf("sources[%d]: %w", i, err)
		}

		ingestRes, err := h.engine.IngestSource(ctx, spec, rows)
		if err != nil {
			return fmt.Errorf("sources[%d]: failed to ingest %s batch: %w", i, batch.Source, err)
		}
		result.Sources = append(result.Sources, ingestRes)

		h.stampSource(ctx, spec)

		h.logger.Info("batch ingested",
			"batch", i,
			"source", batch.Source,
			"rows_read", ingestRes.RowsRead,
			"rows_ingested", ingestRes.RowsIngested,
			"errors", len(ingestRes.Errors),
		)
	}
	return nil
}

// stampSource records a healthy refresh for the batch's source at the
// current pinned instant, mirroring the metadata a file ingest leaves
// behind.
func (h *Harness) stampSource(ctx context.Context, spec model.SourceSpec) {
	meta := model.SourceMetadata{
		SourceName:    spec.Name,
		Location:      spec.Location,
		FileFormat:    spec.Format,
		LastUpdatedAt: h.clock.Now(),
		RefreshStatus: model.HealthHealthy,
	}
	if err := h.store.UpsertSourceMetadata(ctx, meta); err != nil {
		h.logger.Error("source metadata update failed", "source", spec.Name, "error", err)
	}
}

// scenarioClock pins the harness clock to the scenario's "now", falling
// back to the shared epoch so scenarios that omit it still produce stable
// timestamps.
func scenarioClock(now string) (*testutil.FixedClock, error) {
	stamp := now
	if stamp == "" {
		stamp = scenarioEpoch
	}
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return nil, fmt.Errorf("invalid now timestamp %q: %w", stamp, err)
	}
	return testutil.NewFixedClock(t), nil
}

// streamSpecs indexes the built-in source specs by stream.
func streamSpecs() (map[model.Stream]model.SourceSpec, error) {
	specs, err := compiler.DefaultSpecs()
	if err != nil {
		return nil, fmt.Errorf("failed to load built-in source specs: %w", err)
	}
	byStream := make(map[model.Stream]model.SourceSpec, len(specs))
	for _, spec := range specs {
		byStream[spec.Stream] = spec
	}
	return byStream, nil
}

// convertBatchRows converts YAML-parsed batch rows into engine rows.
// Cells must be scalar; a file reader only ever produces strings, so the
// harness stringifies numbers and bools the same way a cell would read.
func convertBatchRows(batchRows []map[string]any) ([]model.Row, error) {
	rows := make([]model.Row, 0, len(batchRows))
	for i, batchRow := range batchRows {
		row := make(model.Row, len(batchRow))
		for header, val := range batchRow {
			cell, err := cellString(val)
			if err != nil {
				return nil, fmt.Errorf("rows[%d] field %q: %w", i, header, err)
			}
			row[header] = cell
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// cellString renders one YAML scalar as the string a file cell would hold.
// Nulls and nested values are rejected early with a clear message rather
// than surfacing later as a confusing row error.
func cellString(val any) (string, error) {
	switch v := val.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case nil:
		return "", fmt.Errorf("null cell values are not allowed (use an empty string)")
	default:
		return "", fmt.Errorf("unsupported cell type %T (cells must be scalar)", val)
	}
}
