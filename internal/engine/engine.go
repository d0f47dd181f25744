package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/steelworks/lotline/internal/ingest"
	"github.com/steelworks/lotline/internal/model"
	"github.com/steelworks/lotline/internal/store"
)

// DefaultStaleThreshold is how long a source may go without a successful
// refresh before the health check reports it Stale.
const DefaultStaleThreshold = 24 * time.Hour

// Engine reconciles source batches onto lots and validates the result.
//
// The engine holds no per-batch state. Every call reads and writes
// persisted lot state, so batches may arrive in any order and the same
// batch may be replayed without changing the outcome.
type Engine struct {
	store      *store.Store
	clock      Clock
	runGen     RunTokenGenerator
	staleAfter time.Duration
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithStaleThreshold sets how long a source may go without a refresh
// before the health check reports it Stale.
//
// Default: 24 hours (DefaultStaleThreshold).
func WithStaleThreshold(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.staleAfter = d
	}
}

// New creates an Engine backed by the given store.
//
// The clock stamps flags and source metadata and drives staleness checks;
// tests pass a fixed clock for deterministic output. The run token
// generator correlates one refresh run across logs and results.
func New(s *store.Store, clock Clock, runGen RunTokenGenerator, opts ...EngineOption) *Engine {
	e := &Engine{
		store:      s,
		clock:      clock,
		runGen:     runGen,
		staleAfter: DefaultStaleThreshold,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IngestSource reconciles one source's rows onto lots.
//
// Row failures (unusable identity fields, storage rejection, a second
// shipping record for a lot) are recorded in the result and the row is
// skipped; they never abort the batch. The returned error is non-nil only
// when the batch could not start at all, such as a spec with an unknown
// stream, and in that case no rows were processed.
func (e *Engine) IngestSource(ctx context.Context, spec model.SourceSpec, rows []model.Row) (model.IngestResult, error) {
	result := model.IngestResult{
		Source:   spec.Name,
		RowsRead: len(rows),
		Errors:   []model.RowIssue{},
	}

	if !validStream(spec.Stream) {
		return result, NewConfigError(spec.Name, fmt.Sprintf("unknown stream %q", spec.Stream))
	}

	slog.Debug("ingest starting", "source", spec.Name, "stream", spec.Stream, "rows", len(rows))

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := e.reconcileRow(ctx, spec, row); err != nil {
			result.Errors = append(result.Errors, rowIssue(i+1, err))
			slog.Warn("row skipped", "source", spec.Name, "row", i+1, "error", err)
			continue
		}
		result.RowsIngested++
	}

	slog.Info("ingest finished",
		"source", spec.Name,
		"rows_read", result.RowsRead,
		"rows_ingested", result.RowsIngested,
		"errors", len(result.Errors),
	)

	return result, nil
}

// IngestFile reads the spec's file and reconciles its rows, stamping the
// source metadata with the outcome. Metadata is written on failure too, so
// the health check can surface a source that stopped loading.
func (e *Engine) IngestFile(ctx context.Context, spec model.SourceSpec) (model.IngestResult, error) {
	rows, err := ingest.ReadSource(spec)
	if err != nil {
		e.stampSource(ctx, spec, model.HealthError)
		return model.IngestResult{Source: spec.Name, Errors: []model.RowIssue{}},
			fmt.Errorf("read %s: %w", spec.Name, err)
	}

	result, err := e.IngestSource(ctx, spec, rows)
	if err != nil {
		e.stampSource(ctx, spec, model.HealthError)
		return result, err
	}

	e.stampSource(ctx, spec, model.HealthHealthy)
	return result, nil
}

// Refresh runs the full pipeline: ingest every source in stream order,
// then validate. Production loads before quality and shipping so that
// cross-stream rules see a settled baseline, and validation runs once
// after all sources finish rather than per source.
//
// A source that fails to read is recorded in its result and skipped; one
// missing file does not block the remaining sources.
func (e *Engine) Refresh(ctx context.Context, specs []model.SourceSpec) (model.RefreshResult, error) {
	result := model.RefreshResult{
		RunID:     e.runGen.Generate(),
		StartedAt: e.clock.Now(),
		Sources:   []model.IngestResult{},
		Rules:     []model.RuleResult{},
	}

	slog.Info("refresh starting", "run_id", result.RunID, "sources", len(specs))

	for _, spec := range orderSpecs(specs) {
		ingestRes, err := e.IngestFile(ctx, spec)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			ingestRes.Errors = append(ingestRes.Errors, model.RowIssue{Message: err.Error()})
			slog.Error("source ingest failed", "run_id", result.RunID, "source", spec.Name, "error", err)
		}
		result.Sources = append(result.Sources, ingestRes)
	}

	rules, err := e.Validate(ctx)
	if err != nil {
		return result, err
	}
	result.Rules = rules
	result.FinishedAt = e.clock.Now()

	slog.Info("refresh finished", "run_id", result.RunID)
	return result, nil
}

// orderSpecs returns specs grouped by stream: production, then quality,
// then shipping. Specs with an unknown stream sort last and surface their
// configuration error during ingest.
func orderSpecs(specs []model.SourceSpec) []model.SourceSpec {
	ordered := make([]model.SourceSpec, 0, len(specs))
	for _, stream := range []model.Stream{model.StreamProduction, model.StreamQuality, model.StreamShipping} {
		for _, spec := range specs {
			if spec.Stream == stream {
				ordered = append(ordered, spec)
			}
		}
	}
	for _, spec := range specs {
		if !validStream(spec.Stream) {
			ordered = append(ordered, spec)
		}
	}
	return ordered
}

// rowIssue converts a row-level failure into its result entry. Engine
// errors carry their field and message separately; anything else is
// reported whole.
func rowIssue(row int, err error) model.RowIssue {
	issue := model.RowIssue{Row: row, Message: err.Error()}
	var re *RuntimeError
	if errors.As(err, &re) {
		issue.Field = re.Field
		issue.Message = re.Message
	}
	return issue
}

// stampSource upserts the source's metadata row. Failures are logged and
// swallowed: a metadata write must not undo a completed ingest.
func (e *Engine) stampSource(ctx context.Context, spec model.SourceSpec, status string) {
	meta := model.SourceMetadata{
		SourceName:    spec.Name,
		Location:      spec.Location,
		FileFormat:    spec.Format,
		LastUpdatedAt: e.clock.Now(),
		RefreshStatus: status,
	}
	if err := e.store.UpsertSourceMetadata(ctx, meta); err != nil {
		slog.Error("source metadata update failed", "source", spec.Name, "error", err)
	}
}

func validStream(s model.Stream) bool {
	return s == model.StreamProduction || s == model.StreamQuality || s == model.StreamShipping
}
