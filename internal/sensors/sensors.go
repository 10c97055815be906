// Package sensors supplies sensor readings to the control loop. Reading the
// transducers themselves happens elsewhere: sensor nodes publish JSON
// snapshots over MQTT and this package keeps the latest one.
package sensors

import (
	"context"
	"errors"
	"sync"

	"github.com/sweeney/growbox/internal/logic"
)

var (
	// ErrNoData means no reading has arrived yet.
	ErrNoData = errors.New("sensors: no data")
	// ErrStale means the latest reading is older than the allowed age.
	ErrStale = errors.New("sensors: reading is stale")
)

// Source returns the current sensor snapshot. The RTC fields (Time, RTCOK)
// are filled in by the caller.
type Source interface {
	Read(ctx context.Context) (logic.Readings, error)
}

// Fake is a Source for tests.
type Fake struct {
	mu       sync.Mutex
	readings logic.Readings
	err      error
	reads    int
}

// NewFake returns a Fake serving r.
func NewFake(r logic.Readings) *Fake {
	return &Fake{readings: r}
}

// Set replaces the served readings and clears any error.
func (f *Fake) Set(r logic.Readings) {
	f.mu.Lock()
	f.readings = r
	f.err = nil
	f.mu.Unlock()
}

// Fail makes subsequent reads return err.
func (f *Fake) Fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// Update applies fn to the served readings.
func (f *Fake) Update(fn func(r *logic.Readings)) {
	f.mu.Lock()
	fn(&f.readings)
	f.mu.Unlock()
}

// Read returns the served readings.
func (f *Fake) Read(ctx context.Context) (logic.Readings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return logic.Readings{}, f.err
	}
	r := f.readings
	r.Soil = append([]logic.SoilChannel(nil), f.readings.Soil...)
	return r, nil
}

// Reads returns how many times Read was called.
func (f *Fake) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}
