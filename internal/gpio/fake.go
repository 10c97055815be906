package gpio

import "github.com/sweeney/growbox/internal/actuator"

// FakeWriter is a test double that records output writes.
type FakeWriter struct {
	// Writes contains every Set call in order.
	Writes []Write

	// Levels holds the last level written per channel.
	Levels map[actuator.Channel]bool

	// SetError, if set, will be returned by Set (the write is still recorded).
	SetError error

	// Closed tracks if Close was called
	Closed bool
}

// Write is a single recorded Set call.
type Write struct {
	Channel actuator.Channel
	On      bool
}

// NewFakeWriter creates an empty FakeWriter.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{Levels: map[actuator.Channel]bool{}}
}

// Set records the write.
func (f *FakeWriter) Set(ch actuator.Channel, on bool) error {
	f.Writes = append(f.Writes, Write{Channel: ch, On: on})
	if f.SetError != nil {
		return f.SetError
	}
	f.Levels[ch] = on
	return nil
}

// Close marks the writer as closed and drops every level.
func (f *FakeWriter) Close() error {
	f.Closed = true
	for ch := range f.Levels {
		f.Levels[ch] = false
	}
	return nil
}

// Toggles returns the number of level changes written to ch.
func (f *FakeWriter) Toggles(ch actuator.Channel) int {
	n := 0
	last := false
	for _, w := range f.Writes {
		if w.Channel != ch {
			continue
		}
		if w.On != last {
			n++
			last = w.On
		}
	}
	return n
}

// Reset clears recorded writes.
func (f *FakeWriter) Reset() {
	f.Writes = nil
	f.Levels = map[actuator.Channel]bool{}
	f.SetError = nil
	f.Closed = false
}
