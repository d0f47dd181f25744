package engine

import "time"

// Clock supplies the engine's notion of now.
//
// Flag detection timestamps, source metadata stamps, and staleness checks
// all read the clock through this interface so tests can pin time and
// produce byte-identical output across runs.
//
// Production code uses SystemClock; tests substitute a fixed clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
//
// All persisted timestamps are UTC; deriving them from a single clock
// keeps stored values comparable regardless of host timezone.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
