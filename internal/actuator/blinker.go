package actuator

import "github.com/sweeney/growbox/internal/clock"

// blinker runs a finite on/off sequence on the indicator.
type blinker struct {
	remaining uint16
	timer     clock.Timer
	on        bool
}

// start begins count flashes. The first toggle (on) happens immediately and
// the remaining count*2-1 happen one interval apart, so the sequence always
// ends off. Returns false when count is zero.
func (b *blinker) start(count uint8, intervalMs uint16, now clock.Tick) bool {
	if count == 0 {
		return false
	}
	b.remaining = uint16(count)*2 - 1
	b.on = true
	b.timer = clock.NewTimer(uint32(intervalMs), now)
	return true
}

func (b *blinker) cancel() {
	b.remaining = 0
}

func (b *blinker) active() bool {
	return b.remaining > 0
}

// step toggles the output if the interval has elapsed. It reports the new
// level and whether a toggle happened.
func (b *blinker) step(now clock.Tick) (bool, bool) {
	if b.remaining == 0 || !b.timer.Elapsed(now) {
		return b.on, false
	}
	b.on = !b.on
	b.remaining--
	b.timer.Reset(now)
	return b.on, true
}
