package actuator

import (
	"log"

	"github.com/sweeney/growbox/internal/clock"
)

// Manager is the actuator layer. It owns the output state, the pump job and
// the indicator sequence, and is driven by a single goroutine: callers must
// not use it concurrently.
type Manager struct {
	sink   Sink
	clock  clock.Clock
	out    Outputs
	pump   pump
	blink  blinker
	events []Event
}

// NewManager creates a Manager writing to sink. flowRate falls back to
// DefaultFlowRate when zero.
func NewManager(sink Sink, clk clock.Clock, flowRate uint16) *Manager {
	if flowRate == 0 {
		flowRate = DefaultFlowRate
	}
	return &Manager{
		sink:  sink,
		clock: clk,
		pump:  pump{flowRate: flowRate},
	}
}

// Init drives every output low.
func (m *Manager) Init() {
	for _, ch := range Channels {
		if err := m.sink.Set(ch, false); err != nil {
			log.Printf("actuator: init %s: %v", ch, err)
		}
	}
	m.out = Outputs{}
}

// SetLight switches the grow light.
func (m *Manager) SetLight(on bool) {
	m.write(Light, on)
}

// SetFan switches the ventilation fan.
func (m *Manager) SetFan(on bool) {
	m.write(Fan, on)
}

// StartPump opens the pump for long enough to deliver volumeMl. A zero volume
// is ignored. A running job is replaced: its remaining time is abandoned and
// the new duration counts from now.
func (m *Manager) StartPump(volumeMl uint16) bool {
	now := m.clock.Now()
	if !m.pump.start(volumeMl, now) {
		return false
	}
	log.Printf("actuator: pump start %d mL (%d ms)", volumeMl, m.pump.timer.Interval)
	m.write(Pump, true)
	return true
}

// StopPump closes the pump and cancels the job. Safe to call at any time.
func (m *Manager) StopPump() {
	m.pump.stop()
	m.write(Pump, false)
}

// SetPumpFlowRate changes the mL/min used to size future jobs.
func (m *Manager) SetPumpFlowRate(mlPerMin uint16) error {
	if mlPerMin == 0 {
		return ErrZeroFlowRate
	}
	m.pump.flowRate = mlPerMin
	return nil
}

// PumpFlowRate returns the configured flow rate in mL/min.
func (m *Manager) PumpFlowRate() uint16 {
	return m.pump.flowRate
}

// Blink flashes the indicator count times, toggling every intervalMs.
func (m *Manager) Blink(count uint8, intervalMs uint16) {
	if !m.blink.start(count, intervalMs, m.clock.Now()) {
		return
	}
	m.write(Indicator, true)
}

// SetIndicator cancels any blink sequence and sets the indicator directly.
func (m *Manager) SetIndicator(on bool) {
	m.blink.cancel()
	m.write(Indicator, on)
}

// Tick services the pump timeout and the blink sequence. It must run every
// loop pass, before any decision that may start the pump.
func (m *Manager) Tick(now clock.Tick) {
	if m.pump.expired(now) {
		log.Printf("actuator: pump run complete")
		m.StopPump()
	}
	if on, toggled := m.blink.step(now); toggled {
		m.write(Indicator, on)
	}
}

// AllOff stops every output, used on shutdown.
func (m *Manager) AllOff() {
	m.StopPump()
	m.SetIndicator(false)
	m.SetFan(false)
	m.SetLight(false)
}

func (m *Manager) IsLightOn() bool     { return m.out.Light }
func (m *Manager) IsFanOn() bool       { return m.out.Fan }
func (m *Manager) IsPumpOn() bool      { return m.out.Pump }
func (m *Manager) IsIndicatorOn() bool { return m.out.Indicator }

// IsBlinking reports whether an indicator sequence is in progress.
func (m *Manager) IsBlinking() bool { return m.blink.active() }

// Outputs returns a copy of the current output state.
func (m *Manager) Outputs() Outputs {
	return m.out
}

// PumpJob describes the current pump run.
func (m *Manager) PumpJob() PumpJob {
	return m.pump.job(m.clock.Now())
}

// Drain returns and clears the output changes recorded since the last call.
func (m *Manager) Drain() []Event {
	ev := m.events
	m.events = nil
	return ev
}

// write drives the sink and records the change. A sink failure is logged and
// the logical state still follows the command, so the next command or timeout
// retries the write.
func (m *Manager) write(ch Channel, on bool) {
	if err := m.sink.Set(ch, on); err != nil {
		log.Printf("actuator: set %s %s: %v", ch, StateString(on), err)
	}
	if m.out.Get(ch) == on {
		return
	}
	m.out.set(ch, on)
	m.events = append(m.events, Event{Tick: m.clock.Now(), Channel: ch, On: on})
}
