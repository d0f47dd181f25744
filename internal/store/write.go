package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/steelworks/lotline/internal/model"
)

// UpsertLot atomically finds or creates the lot for a composite key.
// Returns the full lot row and whether a new lot was created.
//
// Uses ON CONFLICT(lot_code, date) DO NOTHING so concurrent callers racing
// on the same key converge on one row: exactly one insert wins, everyone
// else reads the existing id. New lots start with pending_inspection set.
func (s *Store) UpsertLot(ctx context.Context, lotCode, date string) (lot model.Lot, created bool, err error) {
	// Use a transaction to ensure atomicity of insert-or-select
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Lot{}, false, fmt.Errorf("upsert lot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	// Try to insert
	result, err := tx.ExecContext(ctx, `
		INSERT INTO lots (lot_code, date, pending_inspection)
		VALUES (?, ?, 1)
		ON CONFLICT(lot_code, date) DO NOTHING
	`, lotCode, date)
	if err != nil {
		return model.Lot{}, false, fmt.Errorf("upsert lot: insert: %w", err)
	}

	// Check if a row was actually inserted
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return model.Lot{}, false, fmt.Errorf("upsert lot: rows affected: %w", err)
	}

	if rowsAffected > 0 {
		// New row inserted - get the auto-generated ID
		id, err := result.LastInsertId()
		if err != nil {
			return model.Lot{}, false, fmt.Errorf("upsert lot: last insert id: %w", err)
		}
		lot = model.Lot{ID: id, LotCode: lotCode, Date: date, PendingInspection: true}
		created = true
	} else {
		// Conflict - lot already exists, fetch the existing row
		row := tx.QueryRowContext(ctx, `
			SELECT id, lot_code, date, pending_inspection, has_integrity_issue, has_date_conflict
			FROM lots
			WHERE lot_code = ? AND date = ?
		`, lotCode, date)
		lot, err = scanLot(row)
		if err != nil {
			return model.Lot{}, false, fmt.Errorf("upsert lot: select existing: %w", err)
		}
		created = false
	}

	if err := tx.Commit(); err != nil {
		return model.Lot{}, false, fmt.Errorf("upsert lot: commit: %w", err)
	}

	return lot, created, nil
}

// LotFlagUpdate is a partial update of a lot's derived flags.
// Nil fields are left untouched.
type LotFlagUpdate struct {
	PendingInspection *bool
	HasIntegrityIssue *bool
	HasDateConflict   *bool
}

// UpdateLotFlags applies a partial flag update to a lot.
// A fully-nil update is a no-op.
func (s *Store) UpdateLotFlags(ctx context.Context, lotID int64, update LotFlagUpdate) error {
	var sets []string
	var args []any

	if update.PendingInspection != nil {
		sets = append(sets, "pending_inspection = ?")
		args = append(args, boolToInt(*update.PendingInspection))
	}
	if update.HasIntegrityIssue != nil {
		sets = append(sets, "has_integrity_issue = ?")
		args = append(args, boolToInt(*update.HasIntegrityIssue))
	}
	if update.HasDateConflict != nil {
		sets = append(sets, "has_date_conflict = ?")
		args = append(args, boolToInt(*update.HasDateConflict))
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, lotID)
	query := fmt.Sprintf("UPDATE lots SET %s WHERE id = ?", strings.Join(sets, ", "))
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update lot flags: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update lot flags: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update lot flags: lot %d not found", lotID)
	}
	return nil
}

// InsertProductionRecord attaches a production record to a lot.
// Multiple production records per lot are tolerated; readers take the latest.
func (s *Store) InsertProductionRecord(ctx context.Context, rec model.ProductionRecord) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO production_records
		(lot_id, line_id, shift, units_planned, units_actual, downtime_minutes, has_line_issue, source_updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.LotID,
		rec.LineID,
		rec.Shift,
		rec.UnitsPlanned,
		rec.UnitsActual,
		rec.DowntimeMinutes,
		boolToInt(rec.HasLineIssue),
		rec.SourceUpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert production record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert production record: last insert id: %w", err)
	}
	return id, nil
}

// InsertQualityRecord attaches a quality inspection record to a lot.
func (s *Store) InsertQualityRecord(ctx context.Context, rec model.QualityRecord) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO quality_records
		(lot_id, inspection_date, is_pass, inspector_id, defect_type, defect_count, source_updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rec.LotID,
		rec.InspectionDate,
		boolToInt(rec.IsPass),
		rec.InspectorID,
		rec.DefectType,
		rec.DefectCount,
		rec.SourceUpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert quality record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert quality record: last insert id: %w", err)
	}
	return id, nil
}

// InsertShippingRecord attaches the shipping record to a lot.
// At most one shipping record may exist per lot; a second insert for the
// same lot reports inserted=false and writes nothing.
func (s *Store) InsertShippingRecord(ctx context.Context, rec model.ShippingRecord) (id int64, inserted bool, err error) {
	// Use a transaction to ensure atomicity of insert-or-select
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("insert shipping record: begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO shipping_records
		(lot_id, ship_date, destination, carrier, qty_shipped, shipment_status, source_updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(lot_id) DO NOTHING
	`,
		rec.LotID,
		rec.ShipDate,
		rec.Destination,
		rec.Carrier,
		rec.QtyShipped,
		rec.ShipmentStatus,
		rec.SourceUpdatedAt,
	)
	if err != nil {
		return 0, false, fmt.Errorf("insert shipping record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("insert shipping record: rows affected: %w", err)
	}

	if rowsAffected > 0 {
		id, err = result.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("insert shipping record: last insert id: %w", err)
		}
		inserted = true
	} else {
		// Conflict - the lot already has a shipping record
		err = tx.QueryRowContext(ctx, `
			SELECT id FROM shipping_records WHERE lot_id = ?
		`, rec.LotID).Scan(&id)
		if err != nil {
			return 0, false, fmt.Errorf("insert shipping record: select existing: %w", err)
		}
		inserted = false
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("insert shipping record: commit: %w", err)
	}

	return id, inserted, nil
}

// FlagParams describes the flag a validation rule wants to exist.
type FlagParams struct {
	LotID       int64
	FlagType    model.FlagType
	Severity    model.Severity
	Description string
	DetectedAt  string // RFC 3339 UTC
}

// FindOrCreateFlag atomically ensures one unresolved flag of the given type
// exists for the lot. Returns the flag id and whether it was created now.
//
// The partial unique index over (lot_id, flag_type) WHERE is_resolved = 0
// makes this idempotent: repeated validation passes hit the conflict path
// and report created=false. Resolved flags of the same type do not block a
// new unresolved one.
func (s *Store) FindOrCreateFlag(ctx context.Context, p FlagParams) (id int64, created bool, err error) {
	// Use a transaction to ensure atomicity of insert-or-select
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("find or create flag: begin tx: %w", err)
	}
	defer tx.Rollback()

	// Try to insert (claims the slot atomically via the partial unique index)
	result, err := tx.ExecContext(ctx, `
		INSERT INTO integrity_flags
		(lot_id, flag_type, severity, description, detected_at, is_resolved)
		VALUES (?, ?, ?, ?, ?, 0)
		ON CONFLICT(lot_id, flag_type) WHERE is_resolved = 0 DO NOTHING
	`,
		p.LotID,
		string(p.FlagType),
		string(p.Severity),
		p.Description,
		p.DetectedAt,
	)
	if err != nil {
		return 0, false, fmt.Errorf("find or create flag: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("find or create flag: rows affected: %w", err)
	}

	if rowsAffected > 0 {
		id, err = result.LastInsertId()
		if err != nil {
			return 0, false, fmt.Errorf("find or create flag: last insert id: %w", err)
		}
		created = true
	} else {
		// Conflict - an unresolved flag of this type already exists
		err = tx.QueryRowContext(ctx, `
			SELECT id FROM integrity_flags
			WHERE lot_id = ? AND flag_type = ? AND is_resolved = 0
		`, p.LotID, string(p.FlagType)).Scan(&id)
		if err != nil {
			return 0, false, fmt.Errorf("find or create flag: select existing: %w", err)
		}
		created = false
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("find or create flag: commit: %w", err)
	}

	return id, created, nil
}

// ResolveFlag marks a flag resolved. The engine never calls this; it exists
// for the administrative path only.
func (s *Store) ResolveFlag(ctx context.Context, flagID int64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE integrity_flags SET is_resolved = 1 WHERE id = ?
	`, flagID)
	if err != nil {
		return fmt.Errorf("resolve flag: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve flag: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("resolve flag: flag %d not found", flagID)
	}
	return nil
}

// UpsertSourceMetadata records the outcome of an ingestion attempt for a
// logical source. Called after every attempt, success or failure.
func (s *Store) UpsertSourceMetadata(ctx context.Context, meta model.SourceMetadata) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO source_metadata (source_name, location, file_format, last_updated_at, refresh_status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_name) DO UPDATE SET
			location = excluded.location,
			file_format = excluded.file_format,
			last_updated_at = excluded.last_updated_at,
			refresh_status = excluded.refresh_status
	`,
		meta.SourceName,
		meta.Location,
		meta.FileFormat,
		formatTime(meta.LastUpdatedAt),
		meta.RefreshStatus,
	)
	if err != nil {
		return fmt.Errorf("upsert source metadata: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
