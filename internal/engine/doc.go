// Package engine implements the lot reconciliation and validation engine.
//
// The engine conforms rows from the three source feeds onto shared lot
// identities, then runs an ordered validation pass over persisted state
// that emits integrity flags.
//
// ARCHITECTURE:
//
// Batch pipeline:
// 1. A file reader tokenizes each source into header-keyed rows
// 2. IngestSource resolves each row's lot and attaches the source record
// 3. After all sources load, Validate scans current state in rule order
// 4. Status and health are derived on demand, never stored
//
// The engine holds no state between batches. It always re-reads the store
// before deciding to create or reuse a lot; races between concurrent runs
// on the same composite key are settled by the store's upsert-on-conflict
// writes, not by in-process locks.
//
// CRITICAL PATTERNS:
//
// Rule order is fixed (pending inspection, orphaned shipment, date
// conflict) and is part of the output contract: repeated validation over
// unchanged state produces zero new flags and identical result summaries.
//
// Row failures degrade to recorded errors. A malformed row or a failed
// rule check never aborts the rest of its batch.
package engine
