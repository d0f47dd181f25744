package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/steelworks/lotline/internal/model"
)

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanLot(s scanner) (model.Lot, error) {
	var lot model.Lot
	var pending, integrity, conflict int
	err := s.Scan(&lot.ID, &lot.LotCode, &lot.Date, &pending, &integrity, &conflict)
	if err != nil {
		return model.Lot{}, err
	}
	lot.PendingInspection = pending != 0
	lot.HasIntegrityIssue = integrity != 0
	lot.HasDateConflict = conflict != 0
	return lot, nil
}

const lotColumns = "id, lot_code, date, pending_inspection, has_integrity_issue, has_date_conflict"

// FindLotByKey returns the lot for a composite key.
// Returns sql.ErrNoRows if no lot exists for the key.
func (s *Store) FindLotByKey(ctx context.Context, lotCode, date string) (model.Lot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+lotColumns+`
		FROM lots
		WHERE lot_code = ? AND date = ?
	`, lotCode, date)

	lot, err := scanLot(row)
	if err != nil {
		return model.Lot{}, err
	}
	return lot, nil
}

// queryLots runs a query selecting lotColumns and scans the result.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) queryLots(ctx context.Context, query string, args ...any) ([]model.Lot, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lots: %w", err)
	}
	defer rows.Close()

	var lots []model.Lot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lot: %w", err)
		}
		lots = append(lots, lot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lots: %w", err)
	}

	// Return empty slice instead of nil
	if lots == nil {
		lots = []model.Lot{}
	}

	return lots, nil
}

// FindLotsMissingQuality returns every lot with no attached quality record,
// ordered deterministically by lot code then date.
func (s *Store) FindLotsMissingQuality(ctx context.Context) ([]model.Lot, error) {
	return s.queryLots(ctx, `
		SELECT `+lotColumns+`
		FROM lots l
		WHERE NOT EXISTS (SELECT 1 FROM quality_records q WHERE q.lot_id = l.id)
		ORDER BY lot_code COLLATE BINARY ASC, date ASC
	`)
}

// FindOrphanedShipments returns every lot that has a shipping record but no
// quality record.
func (s *Store) FindOrphanedShipments(ctx context.Context) ([]model.Lot, error) {
	return s.queryLots(ctx, `
		SELECT l.id, l.lot_code, l.date, l.pending_inspection, l.has_integrity_issue, l.has_date_conflict
		FROM lots l
		JOIN shipping_records sr ON sr.lot_id = l.id
		WHERE NOT EXISTS (SELECT 1 FROM quality_records q WHERE q.lot_id = l.id)
		ORDER BY l.lot_code COLLATE BINARY ASC, l.date ASC
	`)
}

// FindDateConflicts returns every lot whose shipping record predates the
// lot's production date. Shipping rows with no parseable ship date are
// excluded.
func (s *Store) FindDateConflicts(ctx context.Context) ([]model.Lot, error) {
	return s.queryLots(ctx, `
		SELECT l.id, l.lot_code, l.date, l.pending_inspection, l.has_integrity_issue, l.has_date_conflict
		FROM lots l
		JOIN shipping_records sr ON sr.lot_id = l.id
		WHERE sr.ship_date != '' AND sr.ship_date < l.date
		ORDER BY l.lot_code COLLATE BINARY ASC, l.date ASC
	`)
}

// ListLots returns lots whose code contains the given substring (empty
// matches all), ordered by code then date. limit <= 0 means no limit.
func (s *Store) ListLots(ctx context.Context, codeContains string, limit int) ([]model.Lot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM lots
		WHERE lot_code LIKE ?
		ORDER BY lot_code COLLATE BINARY ASC, date ASC
	`
	args := []any{"%" + codeContains + "%"}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.queryLots(ctx, query, args...)
}

func scanProduction(s scanner) (model.ProductionRecord, error) {
	var rec model.ProductionRecord
	var lineIssue int
	err := s.Scan(&rec.ID, &rec.LotID, &rec.LineID, &rec.Shift, &rec.UnitsPlanned,
		&rec.UnitsActual, &rec.DowntimeMinutes, &lineIssue, &rec.SourceUpdatedAt)
	if err != nil {
		return model.ProductionRecord{}, err
	}
	rec.HasLineIssue = lineIssue != 0
	return rec, nil
}

// LatestProductionRecord returns the most recently inserted production
// record for a lot, or nil if the lot has none.
func (s *Store) LatestProductionRecord(ctx context.Context, lotID int64) (*model.ProductionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, lot_id, line_id, shift, units_planned, units_actual, downtime_minutes, has_line_issue, source_updated_at
		FROM production_records
		WHERE lot_id = ?
		ORDER BY id DESC
		LIMIT 1
	`, lotID)

	rec, err := scanProduction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest production record: %w", err)
	}
	return &rec, nil
}

func scanQuality(s scanner) (model.QualityRecord, error) {
	var rec model.QualityRecord
	var pass int
	err := s.Scan(&rec.ID, &rec.LotID, &rec.InspectionDate, &pass, &rec.InspectorID,
		&rec.DefectType, &rec.DefectCount, &rec.SourceUpdatedAt)
	if err != nil {
		return model.QualityRecord{}, err
	}
	rec.IsPass = pass != 0
	return rec, nil
}

// LatestQualityRecord returns the most recently inserted quality record for
// a lot, or nil if the lot has none.
func (s *Store) LatestQualityRecord(ctx context.Context, lotID int64) (*model.QualityRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, lot_id, inspection_date, is_pass, inspector_id, defect_type, defect_count, source_updated_at
		FROM quality_records
		WHERE lot_id = ?
		ORDER BY id DESC
		LIMIT 1
	`, lotID)

	rec, err := scanQuality(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest quality record: %w", err)
	}
	return &rec, nil
}

func scanShipping(s scanner) (model.ShippingRecord, error) {
	var rec model.ShippingRecord
	err := s.Scan(&rec.ID, &rec.LotID, &rec.ShipDate, &rec.Destination, &rec.Carrier,
		&rec.QtyShipped, &rec.ShipmentStatus, &rec.SourceUpdatedAt)
	if err != nil {
		return model.ShippingRecord{}, err
	}
	return rec, nil
}

// ShippingRecordForLot returns the lot's shipping record, or nil if the lot
// has not shipped.
func (s *Store) ShippingRecordForLot(ctx context.Context, lotID int64) (*model.ShippingRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, lot_id, ship_date, destination, carrier, qty_shipped, shipment_status, source_updated_at
		FROM shipping_records
		WHERE lot_id = ?
	`, lotID)

	rec, err := scanShipping(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("shipping record for lot: %w", err)
	}
	return &rec, nil
}

func scanFlag(s scanner) (model.IntegrityFlag, error) {
	var flag model.IntegrityFlag
	var flagType, severity, detected string
	var resolved int
	err := s.Scan(&flag.ID, &flag.LotID, &flagType, &severity, &flag.Description, &detected, &resolved)
	if err != nil {
		return model.IntegrityFlag{}, err
	}
	flag.FlagType = model.FlagType(flagType)
	flag.Severity = model.Severity(severity)
	flag.Resolved = resolved != 0
	flag.DetectedAt, err = parseTime(detected)
	if err != nil {
		return model.IntegrityFlag{}, err
	}
	return flag, nil
}

const flagColumns = "id, lot_id, flag_type, severity, description, detected_at, is_resolved"

func (s *Store) queryFlags(ctx context.Context, query string, args ...any) ([]model.IntegrityFlag, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query flags: %w", err)
	}
	defer rows.Close()

	var flags []model.IntegrityFlag
	for rows.Next() {
		flag, err := scanFlag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flag: %w", err)
		}
		flags = append(flags, flag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flags: %w", err)
	}

	if flags == nil {
		flags = []model.IntegrityFlag{}
	}

	return flags, nil
}

// UnresolvedFlags returns the lot's unresolved flags in a fixed order.
func (s *Store) UnresolvedFlags(ctx context.Context, lotID int64) ([]model.IntegrityFlag, error) {
	return s.queryFlags(ctx, `
		SELECT `+flagColumns+`
		FROM integrity_flags
		WHERE lot_id = ? AND is_resolved = 0
		ORDER BY flag_type COLLATE BINARY ASC, id ASC
	`, lotID)
}

// ListFlags returns all flags, optionally restricted to unresolved ones,
// ordered deterministically.
func (s *Store) ListFlags(ctx context.Context, onlyUnresolved bool) ([]model.IntegrityFlag, error) {
	query := `
		SELECT ` + flagColumns + `
		FROM integrity_flags
	`
	if onlyUnresolved {
		query += " WHERE is_resolved = 0"
	}
	query += " ORDER BY lot_id ASC, flag_type COLLATE BINARY ASC, id ASC"
	return s.queryFlags(ctx, query)
}

// ListSourceMetadata returns one entry per known source, ordered by name.
func (s *Store) ListSourceMetadata(ctx context.Context) ([]model.SourceMetadata, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_name, location, file_format, last_updated_at, refresh_status
		FROM source_metadata
		ORDER BY source_name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list source metadata: %w", err)
	}
	defer rows.Close()

	var metas []model.SourceMetadata
	for rows.Next() {
		var meta model.SourceMetadata
		var updated string
		if err := rows.Scan(&meta.SourceName, &meta.Location, &meta.FileFormat, &updated, &meta.RefreshStatus); err != nil {
			return nil, fmt.Errorf("scan source metadata: %w", err)
		}
		meta.LastUpdatedAt, err = parseTime(updated)
		if err != nil {
			return nil, fmt.Errorf("scan source metadata: %w", err)
		}
		metas = append(metas, meta)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source metadata: %w", err)
	}

	if metas == nil {
		metas = []model.SourceMetadata{}
	}

	return metas, nil
}
