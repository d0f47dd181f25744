// Package model defines the conformed domain types shared by the store,
// the reconciliation engine, and the CLI.
package model

import "time"

// Row is one pre-tokenized input row: source header name -> raw cell value.
type Row map[string]string

// Lot is the conformed entity unifying production, quality, and shipping
// data. Identity is the composite (LotCode, Date) pair; it is unique and
// immutable once created. The derived flags mutate over the lot's lifetime
// as records and validation passes arrive.
type Lot struct {
	ID                int64  `json:"id"`
	LotCode           string `json:"lot_code"`
	Date              string `json:"date"` // canonical ISO YYYY-MM-DD
	PendingInspection bool   `json:"pending_inspection"`
	HasIntegrityIssue bool   `json:"has_integrity_issue"`
	HasDateConflict   bool   `json:"has_date_conflict"`
}

// Key returns the composite identity as a display string.
func (l Lot) Key() string {
	return l.LotCode + "@" + l.Date
}

// ProductionRecord is one production log entry attached to a lot.
// Multiple entries per lot are tolerated; the latest governs derived views.
type ProductionRecord struct {
	ID              int64  `json:"id"`
	LotID           int64  `json:"lot_id"`
	LineID          string `json:"line_id"`
	Shift           string `json:"shift,omitempty"`
	UnitsPlanned    int    `json:"units_planned"`
	UnitsActual     int    `json:"units_actual"`
	DowntimeMinutes int    `json:"downtime_minutes"`
	HasLineIssue    bool   `json:"has_line_issue"`
	SourceUpdatedAt string `json:"source_updated_at,omitempty"` // raw feed timestamp
}

// QualityRecord is one quality inspection entry attached to a lot.
// Zero or more per lot; absence of any is itself meaningful.
type QualityRecord struct {
	ID              int64  `json:"id"`
	LotID           int64  `json:"lot_id"`
	InspectionDate  string `json:"inspection_date,omitempty"` // canonical ISO
	IsPass          bool   `json:"is_pass"`
	InspectorID     string `json:"inspector_id,omitempty"`
	DefectType      string `json:"defect_type,omitempty"` // free-form category
	DefectCount     int    `json:"defect_count"`
	SourceUpdatedAt string `json:"source_updated_at,omitempty"`
}

// ShippingRecord is the shipping entry for a lot. At most one per lot,
// enforced by the store.
type ShippingRecord struct {
	ID              int64  `json:"id"`
	LotID           int64  `json:"lot_id"`
	ShipDate        string `json:"ship_date,omitempty"` // canonical ISO
	Destination     string `json:"destination,omitempty"`
	Carrier         string `json:"carrier,omitempty"`
	QtyShipped      int    `json:"qty_shipped"`
	ShipmentStatus  string `json:"shipment_status"`
	SourceUpdatedAt string `json:"source_updated_at,omitempty"`
}

// FlagType identifies a category of integrity violation.
type FlagType string

const (
	FlagPendingInspection FlagType = "pending_inspection"
	FlagOrphanedShipment  FlagType = "orphaned_shipment"
	FlagDateConflict      FlagType = "date_conflict"
)

// Severity grades an integrity flag.
type Severity string

const (
	SeverityWarning  Severity = "Warning"
	SeverityError    Severity = "Error"
	SeverityCritical Severity = "Critical"
)

// IntegrityFlag is a persisted record of a detected cross-source
// inconsistency. At most one unresolved flag of a given type exists per lot;
// the store enforces this. Flags never auto-resolve.
type IntegrityFlag struct {
	ID          int64     `json:"id"`
	LotID       int64     `json:"lot_id"`
	FlagType    FlagType  `json:"flag_type"`
	Severity    Severity  `json:"severity"`
	Description string    `json:"description"`
	DetectedAt  time.Time `json:"detected_at"`
	Resolved    bool      `json:"resolved"`
}

// SourceMetadata is one row per logical source name, upserted after every
// ingestion attempt regardless of record-level success.
type SourceMetadata struct {
	SourceName    string    `json:"source_name"`
	Location      string    `json:"location"`
	FileFormat    string    `json:"file_format"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
	RefreshStatus string    `json:"refresh_status"` // Healthy, Stale, Error
}

// Refresh status values stored on SourceMetadata and reported by the
// health check.
const (
	HealthHealthy = "Healthy"
	HealthStale   = "Stale"
	HealthError   = "Error"
)

// Status is the human-facing operational status derived for a lot.
type Status string

const (
	StatusInProduction      Status = "In Production"
	StatusPendingInspection Status = "Pending Inspection"
	StatusFailedQuality     Status = "Failed Quality"
	StatusPassedQuality     Status = "Passed Quality"
	StatusInShipment        Status = "In Shipment"
	StatusShipped           Status = "Shipped"
	StatusDataConflict      Status = "Data Conflict"
)

// LotDetail is the lookup result: the lot, its attached records, unresolved
// flags, and the derived status.
type LotDetail struct {
	Lot        Lot               `json:"lot"`
	Production *ProductionRecord `json:"production,omitempty"`
	Quality    *QualityRecord    `json:"quality,omitempty"`
	Shipping   *ShippingRecord   `json:"shipping,omitempty"`
	Flags      []IntegrityFlag   `json:"flags"`
	Status     Status            `json:"status"`
}
