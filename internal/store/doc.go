// Package store provides SQLite-backed durable storage for reconciled lots.
//
// Collections:
//   - Lots: the conformed entity, unique on (lot_code, date)
//   - Production / Quality / Shipping records: per-source attachments
//   - Integrity Flags: detected cross-source violations
//   - Source Metadata: per-source ingestion freshness
//
// # Invariants the schema enforces
//
// Lot identity:
//   - UNIQUE(lot_code, date); UpsertLot is a single atomic
//     insert-or-read-back, safe under concurrent callers
//
// Shipping uniqueness:
//   - UNIQUE(lot_id) on shipping_records; a second insert for the same lot
//     reports inserted=false instead of writing
//
// Flag idempotency:
//   - partial UNIQUE(lot_id, flag_type) WHERE is_resolved = 0; repeated
//     validation passes converge on one unresolved flag per type per lot
//
// Deterministic reads:
//   - every multi-row query carries an ORDER BY over stable columns so
//     results are reproducible across runs
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Dates are stored as canonical ISO YYYY-MM-DD text (lexicographic order is
// chronological order); timestamps are RFC 3339 UTC text.
package store
