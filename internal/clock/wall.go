package clock

import (
	"sync"
	"time"
)

// Wall is the wall-clock source standing in for a battery-backed RTC. It
// follows the system clock plus an offset that Set adjusts, so correcting the
// time from the menu does not require root privileges.
type Wall struct {
	mu     sync.Mutex
	now    func() time.Time
	offset time.Duration
}

// NewWall returns a wall clock reading from now (time.Now when nil).
func NewWall(now func() time.Time) *Wall {
	if now == nil {
		now = time.Now
	}
	return &Wall{now: now}
}

// Now returns the corrected wall-clock time.
func (w *Wall) Now() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.now().Add(w.offset)
}

// Set makes Now report t at this instant.
func (w *Wall) Set(t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.offset = t.Sub(w.now())
}

// Offset returns the current correction applied to the system clock.
func (w *Wall) Offset() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.offset
}
