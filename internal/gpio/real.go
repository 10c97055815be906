//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/growbox/internal/actuator"
)

// RealWriter drives relays from actual hardware using the Linux GPIO character device.
type RealWriter struct {
	chip  *gpiocdev.Chip
	lines map[actuator.Channel]*gpiocdev.Line
}

// NewRealWriter requests every output line on chipName, initially off.
// With activeLow the kernel inverts the levels, for relay boards that switch on a low input.
func NewRealWriter(chipName string, pins Pins, activeLow bool) (*RealWriter, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	w := &RealWriter{
		chip:  chip,
		lines: make(map[actuator.Channel]*gpiocdev.Line, len(actuator.Channels)),
	}
	for _, ch := range actuator.Channels {
		opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0), gpiocdev.WithConsumer("growbox")}
		if activeLow {
			opts = append(opts, gpiocdev.AsActiveLow)
		}
		line, err := chip.RequestLine(pins.For(ch), opts...)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", ch, pins.For(ch), err)
		}
		w.lines[ch] = line
	}

	return w, nil
}

// Set drives the line for ch.
func (w *RealWriter) Set(ch actuator.Channel, on bool) error {
	line, ok := w.lines[ch]
	if !ok {
		return fmt.Errorf("no line for %s", ch)
	}
	v := 0
	if on {
		v = 1
	}
	if err := line.SetValue(v); err != nil {
		return fmt.Errorf("set %s pin: %w", ch, err)
	}
	return nil
}

// Close switches every output off, then reconfigures the lines to input with
// pull-down (matching Pi boot defaults) before releasing them, so a relay
// board is never left energised across a restart.
func (w *RealWriter) Close() error {
	var errs []error

	for _, ch := range actuator.Channels {
		line, ok := w.lines[ch]
		if !ok {
			continue
		}
		if err := line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive %s low: %w", ch, err))
		}
		if err := line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", ch, err))
		}
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", ch, err))
		}
		delete(w.lines, ch)
	}
	if w.chip != nil {
		if err := w.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		w.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
