package gpio

import (
	"log"

	"github.com/sweeney/growbox/internal/actuator"
)

// LogWriter only logs level changes. Used for --dry-run and on hosts without
// GPIO so the rest of the daemon can be exercised.
type LogWriter struct {
	levels map[actuator.Channel]bool
}

// NewLogWriter creates a LogWriter.
func NewLogWriter() *LogWriter {
	return &LogWriter{levels: map[actuator.Channel]bool{}}
}

// Set logs the write if it changes the level.
func (w *LogWriter) Set(ch actuator.Channel, on bool) error {
	if prev, ok := w.levels[ch]; ok && prev == on {
		return nil
	}
	w.levels[ch] = on
	log.Printf("gpio(dry-run): %s -> %s", ch, actuator.StateString(on))
	return nil
}

// Close does nothing.
func (w *LogWriter) Close() error {
	return nil
}
