// Package clock provides the current-timestamp capability used to stamp
// products, sales and stock movements.
package clock

import "time"

// Clock returns the current time.
//
// Production code uses System; tests inject a deterministic implementation so
// that timestamps and sale ordering are reproducible.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock, truncated to milliseconds in UTC to match the
// persisted timestamp precision.
type System struct{}

// Now implements Clock.
func (System) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// Func adapts a function to Clock.
type Func func() time.Time

// Now implements Clock.
func (f Func) Now() time.Time {
	return f()
}
