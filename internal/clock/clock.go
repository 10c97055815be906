// Package clock provides the millisecond tick counter and the soft timers
// every periodic behaviour in the controller is built on.
//
// Tick is a free-running 32-bit millisecond counter that wraps to zero after
// roughly 49.7 days. Elapsed time is always computed with unsigned
// subtraction, which stays correct across the wrap without any special case.
package clock

import "time"

// Tick is a wrapping millisecond counter value.
type Tick uint32

// Since returns the milliseconds elapsed from start to t.
func (t Tick) Since(start Tick) uint32 {
	return uint32(t - start)
}

// Add returns t advanced by ms milliseconds, wrapping.
func (t Tick) Add(ms uint32) Tick {
	return t + Tick(ms)
}

// Clock reads the current tick.
type Clock interface {
	Now() Tick
}

// SystemClock counts milliseconds since it was created, truncated to 32 bits
// so a long-running daemon wraps exactly like the counter on a microcontroller.
type SystemClock struct {
	start time.Time
}

// NewSystemClock returns a clock starting at zero now.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Now returns the current tick.
func (c *SystemClock) Now() Tick {
	return Tick(uint32(time.Since(c.start).Milliseconds()))
}

// FakeClock is a manually driven clock for tests.
type FakeClock struct {
	T Tick
}

// NewFakeClock returns a fake clock set to start.
func NewFakeClock(start Tick) *FakeClock {
	return &FakeClock{T: start}
}

// Now returns the current fake tick.
func (c *FakeClock) Now() Tick {
	return c.T
}

// Advance moves the clock forward by ms, wrapping.
func (c *FakeClock) Advance(ms uint32) Tick {
	c.T = c.T.Add(ms)
	return c.T
}

// Milliseconds converts a duration to a timer interval, saturating at the
// largest representable interval.
func Milliseconds(d time.Duration) uint32 {
	ms := d.Milliseconds()
	if ms <= 0 {
		return 0
	}
	if ms > int64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(ms)
}
