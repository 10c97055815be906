package clock

// Timer answers "have at least Interval milliseconds passed since Start".
// It holds no goroutine and never blocks; callers poll it with the current tick.
type Timer struct {
	Start    Tick
	Interval uint32
}

// NewTimer returns a timer armed at now.
func NewTimer(interval uint32, now Tick) Timer {
	return Timer{Start: now, Interval: interval}
}

// Elapsed reports whether the interval has passed. Unsigned subtraction keeps
// this correct when the counter wraps between Start and now.
func (t Timer) Elapsed(now Tick) bool {
	return now.Since(t.Start) >= t.Interval
}

// Reset re-arms the timer at now.
func (t *Timer) Reset(now Tick) {
	t.Start = now
}

// Expire arms the timer so that it is already elapsed at now.
func (t *Timer) Expire(now Tick) {
	t.Start = now - Tick(t.Interval)
}

// Remaining returns the milliseconds left before the timer elapses, or zero.
func (t Timer) Remaining(now Tick) uint32 {
	e := now.Since(t.Start)
	if e >= t.Interval {
		return 0
	}
	return t.Interval - e
}

// Due reports whether the timer has elapsed and, if so, re-arms it at now.
// Periodic cadences call this once per loop pass.
func (t *Timer) Due(now Tick) bool {
	if !t.Elapsed(now) {
		return false
	}
	t.Start = now
	return true
}
