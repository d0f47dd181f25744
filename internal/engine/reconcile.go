package engine

import (
	"context"
	"fmt"

	"github.com/steelworks/lotline/internal/model"
	"github.com/steelworks/lotline/internal/normalize"
	"github.com/steelworks/lotline/internal/store"
)

// reconcileRow maps one raw row onto its record type and attaches it to
// the lot its identity fields resolve to. Required checks run before lot
// resolution so a rejected row does not create its lot.
func (e *Engine) reconcileRow(ctx context.Context, spec model.SourceSpec, row model.Row) error {
	if err := checkRequired(spec, row); err != nil {
		return err
	}

	lot, err := e.rowLot(ctx, spec, row)
	if err != nil {
		return err
	}

	switch spec.Stream {
	case model.StreamProduction:
		return e.reconcileProduction(ctx, spec, row, lot)
	case model.StreamQuality:
		return e.reconcileQuality(ctx, spec, row, lot)
	case model.StreamShipping:
		return e.reconcileShipping(ctx, spec, row, lot)
	default:
		return NewConfigError(spec.Name, fmt.Sprintf("unknown stream %q", spec.Stream))
	}
}

// reconcileProduction attaches a production record. A production entry is
// necessary but not sufficient to clear the lot's pending status, so the
// lot's flags stay untouched here.
func (e *Engine) reconcileProduction(ctx context.Context, spec model.SourceSpec, row model.Row, lot model.Lot) error {
	rec := model.ProductionRecord{
		LotID:           lot.ID,
		LineID:          stringField(spec, row, "line_id"),
		Shift:           stringField(spec, row, "shift"),
		UnitsPlanned:    intField(spec, row, "units_planned"),
		UnitsActual:     intField(spec, row, "units_actual"),
		DowntimeMinutes: intField(spec, row, "downtime_minutes"),
		HasLineIssue:    boolField(spec, row, "has_line_issue"),
		SourceUpdatedAt: stringField(spec, row, "source_updated_at"),
	}

	if _, err := e.store.InsertProductionRecord(ctx, rec); err != nil {
		return annotateSource(NewStorageError("insert production record", err), spec.Name)
	}
	return nil
}

// reconcileQuality attaches an inspection record and clears the lot's
// pending status. An inspection on record satisfies pending regardless of
// pass or fail.
func (e *Engine) reconcileQuality(ctx context.Context, spec model.SourceSpec, row model.Row, lot model.Lot) error {
	inspected, err := dateField(spec, row, "inspection_date")
	if err != nil {
		return annotateSource(err, spec.Name)
	}

	rec := model.QualityRecord{
		LotID:           lot.ID,
		InspectionDate:  inspected,
		IsPass:          boolField(spec, row, "is_pass"),
		InspectorID:     stringField(spec, row, "inspector_id"),
		DefectType:      stringField(spec, row, "defect_type"),
		DefectCount:     intField(spec, row, "defect_count"),
		SourceUpdatedAt: stringField(spec, row, "source_updated_at"),
	}

	if _, err := e.store.InsertQualityRecord(ctx, rec); err != nil {
		return annotateSource(NewStorageError("insert quality record", err), spec.Name)
	}

	if lot.PendingInspection {
		cleared := false
		update := store.LotFlagUpdate{PendingInspection: &cleared}
		if err := e.store.UpdateLotFlags(ctx, lot.ID, update); err != nil {
			return annotateSource(NewStorageError("clear pending inspection", err), spec.Name)
		}
	}
	return nil
}

// reconcileShipping attaches the lot's single shipping record. It raises no
// integrity flags itself; cross-stream checks run in the validation pass
// once every source has loaded. A second shipping row for the same lot is
// rejected by the store and reported as a row error.
func (e *Engine) reconcileShipping(ctx context.Context, spec model.SourceSpec, row model.Row, lot model.Lot) error {
	shipped, err := dateField(spec, row, "ship_date")
	if err != nil {
		return annotateSource(err, spec.Name)
	}

	status := stringField(spec, row, "shipment_status")
	if status == "" {
		status = string(model.StatusInShipment)
	}

	rec := model.ShippingRecord{
		LotID:           lot.ID,
		ShipDate:        shipped,
		Destination:     stringField(spec, row, "destination"),
		Carrier:         stringField(spec, row, "carrier"),
		QtyShipped:      intField(spec, row, "qty_shipped"),
		ShipmentStatus:  status,
		SourceUpdatedAt: stringField(spec, row, "source_updated_at"),
	}
	if rec.QtyShipped < 0 {
		rec.QtyShipped = 0
	}

	_, inserted, err := e.store.InsertShippingRecord(ctx, rec)
	if err != nil {
		return annotateSource(NewStorageError("insert shipping record", err), spec.Name)
	}
	if !inserted {
		return NewRowError(spec.Name, "lot_code",
			fmt.Sprintf("lot %s already has a shipping record", lot.Key()))
	}
	return nil
}

// checkRequired rejects rows whose required mappings resolve to a missing
// or blank cell. A declared default does not satisfy a required mapping.
// The identity fields are exempt: lot resolution enforces those after
// normalization, which catches spellings a presence check would let pass.
func checkRequired(spec model.SourceSpec, row model.Row) error {
	for _, f := range spec.Fields {
		if !f.Required || f.Target == "lot_code" || f.Target == "date" {
			continue
		}
		v, ok := f.Resolve(row)
		if !ok || normalize.Trim(v) == "" {
			return NewRowError(spec.Name, f.Target, "required field is missing or blank")
		}
	}
	return nil
}

// stringField returns the trimmed cell for a mapped target, or the
// mapping's declared default when no alias is present in the row.
func stringField(spec model.SourceSpec, row model.Row, target string) string {
	v, _ := spec.Resolve(row, target)
	return normalize.Trim(v)
}

// intField coerces a numeric cell, falling back to zero for anything
// unparseable.
func intField(spec model.SourceSpec, row model.Row, target string) int {
	v, _ := spec.Resolve(row, target)
	return normalize.ToInt(v, 0)
}

// boolField coerces a yes/no cell, falling back to false for anything
// unrecognized.
func boolField(spec model.SourceSpec, row model.Row, target string) bool {
	v, _ := spec.Resolve(row, target)
	return normalize.ToBool(v, false)
}

// dateField canonicalizes an event date. Blank cells are allowed and come
// back empty; a present but unparseable date is a row error, since the
// conflict scan depends on canonical date ordering.
func dateField(spec model.SourceSpec, row model.Row, target string) (string, error) {
	v, _ := spec.Resolve(row, target)
	if normalize.Trim(v) == "" {
		return "", nil
	}
	canonical, ok := normalize.CanonicalDate(v)
	if !ok {
		return "", NewRowError("", target, fmt.Sprintf("unparseable date %q", v))
	}
	return canonical, nil
}
