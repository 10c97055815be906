package actuator

import (
	"errors"

	"github.com/sweeney/growbox/internal/clock"
)

// DefaultFlowRate is the nominal pump delivery in mL per minute.
const DefaultFlowRate = 100

// ErrZeroFlowRate is returned when a flow rate of zero is configured.
var ErrZeroFlowRate = errors.New("actuator: pump flow rate must be non-zero")

// PumpJob describes the current watering run.
type PumpJob struct {
	Running     bool
	VolumeMl    uint16
	DurationMs  uint32
	RemainingMs uint32
}

// pump converts a volume into a run time and tracks when to stop.
// At most one job exists; starting again replaces it.
type pump struct {
	flowRate uint16
	volumeMl uint16
	timer    clock.Timer
	running  bool
}

// DurationMs returns how long the pump must run to deliver volumeMl at
// flowRate mL/min.
func DurationMs(volumeMl, flowRate uint16) uint32 {
	if flowRate == 0 {
		return 0
	}
	return uint32(volumeMl) * 60000 / uint32(flowRate)
}

// start arms a new job, abandoning any running one. Returns false for a zero volume.
func (p *pump) start(volumeMl uint16, now clock.Tick) bool {
	if volumeMl == 0 {
		return false
	}
	p.volumeMl = volumeMl
	p.timer = clock.NewTimer(DurationMs(volumeMl, p.flowRate), now)
	p.running = true
	return true
}

func (p *pump) stop() {
	p.running = false
	p.volumeMl = 0
}

func (p *pump) expired(now clock.Tick) bool {
	return p.running && p.timer.Elapsed(now)
}

func (p *pump) job(now clock.Tick) PumpJob {
	if !p.running {
		return PumpJob{}
	}
	return PumpJob{
		Running:     true,
		VolumeMl:    p.volumeMl,
		DurationMs:  p.timer.Interval,
		RemainingMs: p.timer.Remaining(now),
	}
}
