// Package clock provides a time abstraction for testable time-dependent code.
// Use RealClock for production and FixedClock for testing.
package clock

import "time"

// Clock is an interface for reading the current time, allowing it to be
// fixed in tests.
type Clock interface {
	// Now returns the current time
	Now() time.Time
}

// RealClock implements Clock using the standard time package
type RealClock struct{}

// NewRealClock creates a new RealClock instance
func NewRealClock() *RealClock {
	return &RealClock{}
}

// Now returns the current time
func (c *RealClock) Now() time.Time {
	return time.Now()
}

// FixedClock is a Clock implementation for testing that always returns the
// same instant.
type FixedClock struct {
	current time.Time
}

// NewFixedClock creates a FixedClock pinned to the given time
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{current: t}
}

// Now returns the pinned time
func (c *FixedClock) Now() time.Time {
	return c.current
}
