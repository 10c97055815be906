// Package gpio drives the actuator outputs with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/growbox/internal/actuator"

// Writer drives output lines. It satisfies actuator.Sink.
type Writer interface {
	// Set drives the line for ch to the logical level on.
	// Active-low wiring is handled by the implementation.
	Set(ch actuator.Channel, on bool) error

	// Close returns the lines to a safe state and releases them.
	Close() error
}

// Pins maps each output to a BCM line offset.
type Pins struct {
	Light     int
	Fan       int
	Pump      int
	Indicator int
}

// Default pin assignments (BCM numbering).
const (
	DefaultPinLight     = 5
	DefaultPinFan       = 6
	DefaultPinPump      = 13
	DefaultPinIndicator = 19
)

// DefaultPins returns the default wiring.
func DefaultPins() Pins {
	return Pins{
		Light:     DefaultPinLight,
		Fan:       DefaultPinFan,
		Pump:      DefaultPinPump,
		Indicator: DefaultPinIndicator,
	}
}

// For returns the line offset for ch, or -1.
func (p Pins) For(ch actuator.Channel) int {
	switch ch {
	case actuator.Light:
		return p.Light
	case actuator.Fan:
		return p.Fan
	case actuator.Pump:
		return p.Pump
	case actuator.Indicator:
		return p.Indicator
	}
	return -1
}
