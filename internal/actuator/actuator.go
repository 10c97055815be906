// Package actuator owns the physical outputs: light, fan, pump and indicator.
// It is the only code that writes to the output sink; automation and the menu
// propose changes and the control loop applies them through Manager.
package actuator

import "github.com/sweeney/growbox/internal/clock"

// Channel identifies one output.
type Channel int

const (
	Light Channel = iota
	Fan
	Pump
	Indicator
)

// Channels lists every output in write order.
var Channels = []Channel{Light, Fan, Pump, Indicator}

func (c Channel) String() string {
	switch c {
	case Light:
		return "LIGHT"
	case Fan:
		return "FAN"
	case Pump:
		return "PUMP"
	case Indicator:
		return "INDICATOR"
	}
	return "UNKNOWN"
}

// Outputs is the logical state of every output.
type Outputs struct {
	Light     bool
	Fan       bool
	Pump      bool
	Indicator bool
}

// Get returns the state of one channel.
func (o Outputs) Get(ch Channel) bool {
	switch ch {
	case Light:
		return o.Light
	case Fan:
		return o.Fan
	case Pump:
		return o.Pump
	case Indicator:
		return o.Indicator
	}
	return false
}

func (o *Outputs) set(ch Channel, on bool) {
	switch ch {
	case Light:
		o.Light = on
	case Fan:
		o.Fan = on
	case Pump:
		o.Pump = on
	case Indicator:
		o.Indicator = on
	}
}

// Sink drives the physical output for a channel.
type Sink interface {
	Set(ch Channel, on bool) error
}

// Event records a change of an output's logical state.
type Event struct {
	Tick    clock.Tick
	Channel Channel
	On      bool
}

// State returns "ON" or "OFF".
func (e Event) State() string {
	return StateString(e.On)
}

// StateString formats an output level the way events and the status page show it.
func StateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
