package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/steelworks/lotline/internal/model"
	"github.com/steelworks/lotline/internal/store"
)

// A rule is one pass of the validation engine: scan for lots violating its
// condition, ensure each carries the rule's flag, and assert the lot-level
// columns the rule owns.
type rule struct {
	name     string
	flagType model.FlagType
	severity model.Severity
	find     func(context.Context, *store.Store) ([]model.Lot, error)
	describe func(model.Lot) string

	// assert returns the partial update bringing the lot's derived
	// columns in line with the rule. An empty update means the lot
	// already agrees and nothing is written.
	assert func(model.Lot) store.LotFlagUpdate
}

// rules run in fixed order. The order is part of the output contract and
// never changes; new rules are appended, not inserted.
var rules = []rule{
	{
		name:     "PendingInspection",
		flagType: model.FlagPendingInspection,
		severity: model.SeverityWarning,
		find: func(ctx context.Context, s *store.Store) ([]model.Lot, error) {
			return s.FindLotsMissingQuality(ctx)
		},
		describe: func(lot model.Lot) string {
			return fmt.Sprintf("lot %s has no quality inspection on record", lot.Key())
		},
		assert: func(lot model.Lot) store.LotFlagUpdate {
			var update store.LotFlagUpdate
			if !lot.PendingInspection {
				update.PendingInspection = boolPtr(true)
			}
			return update
		},
	},
	{
		name:     "OrphanedShipment",
		flagType: model.FlagOrphanedShipment,
		severity: model.SeverityCritical,
		find: func(ctx context.Context, s *store.Store) ([]model.Lot, error) {
			return s.FindOrphanedShipments(ctx)
		},
		describe: func(lot model.Lot) string {
			return fmt.Sprintf("lot %s shipped without quality inspection", lot.Key())
		},
		assert: func(lot model.Lot) store.LotFlagUpdate {
			var update store.LotFlagUpdate
			if !lot.HasIntegrityIssue {
				update.HasIntegrityIssue = boolPtr(true)
			}
			return update
		},
	},
	{
		name:     "DateConflict",
		flagType: model.FlagDateConflict,
		severity: model.SeverityError,
		find: func(ctx context.Context, s *store.Store) ([]model.Lot, error) {
			return s.FindDateConflicts(ctx)
		},
		describe: func(lot model.Lot) string {
			return fmt.Sprintf("lot %s shipped before its production date", lot.Key())
		},
		assert: func(lot model.Lot) store.LotFlagUpdate {
			var update store.LotFlagUpdate
			if !lot.HasDateConflict {
				update.HasDateConflict = boolPtr(true)
			}
			return update
		},
	},
}

// Validate runs the integrity rules in fixed order (pending inspection,
// orphaned shipment, date conflict) against current persisted state, not
// against any single batch: a violation can depend on history accumulated
// across runs.
//
// The pass is idempotent. Lots already carrying an unresolved flag of a
// rule's type count as skipped, enforced by the store's uniqueness rather
// than a check-then-insert, and lot columns are written only when their
// value actually changes. Rules never resolve flags; a flag outlives the
// condition that raised it.
func (e *Engine) Validate(ctx context.Context) ([]model.RuleResult, error) {
	results := make([]model.RuleResult, 0, len(rules))

	for _, r := range rules {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, e.runRule(ctx, r))
	}

	return results, nil
}

// runRule applies one rule to every violating lot. A failed scan or a
// failed per-lot write is recorded in the result and the pass continues.
func (e *Engine) runRule(ctx context.Context, r rule) model.RuleResult {
	result := model.RuleResult{Rule: r.name, Errors: []string{}}

	lots, err := r.find(ctx, e.store)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("scan failed: %v", err))
		slog.Error("rule scan failed", "rule", r.name, "error", err)
		return result
	}

	detectedAt := e.clock.Now().UTC().Format(time.RFC3339)

	for _, lot := range lots {
		created, err := e.flagLot(ctx, r, lot, detectedAt)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("lot %s: %v", lot.Key(), err))
			slog.Warn("rule check failed", "rule", r.name, "lot", lot.Key(), "error", err)
			continue
		}
		if created {
			result.FlagsCreated++
		} else {
			result.FlagsSkipped++
		}
	}

	slog.Info("rule finished",
		"rule", r.name,
		"flags_created", result.FlagsCreated,
		"flags_skipped", result.FlagsSkipped,
		"errors", len(result.Errors),
	)

	return result
}

// flagLot ensures the lot carries the rule's flag and asserted columns.
// Reports whether the flag was created by this call.
func (e *Engine) flagLot(ctx context.Context, r rule, lot model.Lot, detectedAt string) (bool, error) {
	_, created, err := e.store.FindOrCreateFlag(ctx, store.FlagParams{
		LotID:       lot.ID,
		FlagType:    r.flagType,
		Severity:    r.severity,
		Description: r.describe(lot),
		DetectedAt:  detectedAt,
	})
	if err != nil {
		return false, NewStorageError("ensure flag", err)
	}

	if update := r.assert(lot); update != (store.LotFlagUpdate{}) {
		if err := e.store.UpdateLotFlags(ctx, lot.ID, update); err != nil {
			return created, NewStorageError("update lot flags", err)
		}
	}

	return created, nil
}

func boolPtr(b bool) *bool { return &b }
