// Package harness runs reconciliation scenarios as executable contract
// tests.
//
// A scenario feeds inline row batches through the real engine against a
// fresh in-memory database, optionally runs the validation pass, and then
// checks assertions over the ingest results and the final lot state. A
// pinned clock and a fixed run token make every execution byte-identical,
// which is what allows golden snapshots of the end state.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	now: "2026-02-15T08:00:00Z"
//	sources:
//	  - source: production
//	    rows:
//	      - Lot ID: "00LOT-9"
//	        Date: "02/10/2026"
//	validate: true
//	assertions:
//	  - type: lot_state
//	    lot_code: LOT-9
//	    date: "2026-02-10"
//	    expect: { pending_inspection: true, status: "Pending Inspection" }
//
// Rows use the header spellings of the built-in source specs, so a
// scenario exercises the same alias resolution and cleaning as a real
// file. Batches run in the order written; set "at" on a batch to move the
// clock before it runs.
//
// # Assertion Types
//
//   - lot_state: look up one lot and check its columns, derived status,
//     and unresolved flag count (subset match on the expect map)
//   - flag_count: count unresolved flags of one type on one lot
//   - source_result: check rows_read / rows_ingested / errors for a batch
//   - rule_result: check flags_created / flags_skipped for one rule
//   - source_health: classify one source's freshness, optionally at a
//     later instant ("at")
package harness
