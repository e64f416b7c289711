// Package system provides a real clock implementation.
package system

import "time"

// Precision is the resolution of timestamps handed to record stores. Postgres
// timestamptz keeps microseconds, so finer stamps would not round-trip.
const Precision = time.Microsecond

// Clock implements mars.Clock using the wall clock in UTC.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time truncated to Precision.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(Precision)
}
