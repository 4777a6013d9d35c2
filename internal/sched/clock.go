package sched

import "time"

// Clock supplies the current time. The engine runs on a RealClock;
// tests substitute a ManualClock to step time deterministically.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system time.
type RealClock struct{}

// Now returns the current system time.
func (RealClock) Now() time.Time { return time.Now() }

// ManualClock is a test clock advanced by hand. Not safe for
// concurrent use.
type ManualClock struct {
	now time.Time
}

// NewManualClock creates a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the clock's current time.
func (c *ManualClock) Now() time.Time { return c.now }

// Advance moves the clock forward.
func (c *ManualClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// Set jumps the clock to an absolute time.
func (c *ManualClock) Set(t time.Time) {
	c.now = t
}
