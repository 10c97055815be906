package logic

import (
	"fmt"
	"sort"

	"github.com/sweeney/growbox/internal/clock"
	"github.com/sweeney/growbox/internal/settings"
)

// ErrorKind identifies a monitored fault.
type ErrorKind string

const (
	ErrLightSensor      ErrorKind = "LIGHT_SENSOR"
	ErrClimateSensor    ErrorKind = "CLIMATE_SENSOR"
	ErrAirQualitySensor ErrorKind = "AIR_QUALITY_SENSOR"
	ErrSoilSensor       ErrorKind = "SOIL_SENSOR"
	ErrRTC              ErrorKind = "RTC"
	ErrWaterLevelSensor ErrorKind = "WATER_LEVEL_SENSOR"
	ErrWaterEmpty       ErrorKind = "WATER_EMPTY"
	ErrPumpNoFlow       ErrorKind = "PUMP_NO_FLOW"
	ErrTempLow          ErrorKind = "TEMP_LOW"
	ErrTempHigh         ErrorKind = "TEMP_HIGH"
	ErrHumidityLow      ErrorKind = "HUMIDITY_LOW"
	ErrHumidityHigh     ErrorKind = "HUMIDITY_HIGH"
)

var kindText = map[ErrorKind]string{
	ErrLightSensor:      "Light sensor",
	ErrClimateSensor:    "Temp/hum sensor",
	ErrAirQualitySensor: "Air sensor",
	ErrSoilSensor:       "Soil sensor",
	ErrRTC:              "Clock (RTC)",
	ErrWaterLevelSensor: "Level sensor",
	ErrWaterEmpty:       "Water empty",
	ErrPumpNoFlow:       "Pump no flow",
	ErrTempLow:          "Temp low",
	ErrTempHigh:         "Temp high",
	ErrHumidityLow:      "Humidity low",
	ErrHumidityHigh:     "Humidity high",
}

// ErrorState is the debounce state of one fault.
type ErrorState string

const (
	StateClear   ErrorState = "CLEAR"
	StateSuspect ErrorState = "SUSPECT"
	StateActive  ErrorState = "ACTIVE"
)

// DefaultErrorDebounceMs is how long a fault must persist before it is active.
const DefaultErrorDebounceMs = 10000

// Condition is one fault observed in a check. Channel distinguishes soil
// probes and is zero for everything else.
type Condition struct {
	Kind    ErrorKind
	Channel int
}

// String returns a short human description, e.g. "Soil sensor 2".
func (c Condition) String() string {
	text, ok := kindText[c.Kind]
	if !ok {
		text = string(c.Kind)
	}
	if c.Kind == ErrSoilSensor {
		return fmt.Sprintf("%s %d", text, c.Channel+1)
	}
	return text
}

// Key identifies the condition in events, e.g. "SOIL_SENSOR_2".
func (c Condition) Key() string {
	if c.Kind == ErrSoilSensor {
		return fmt.Sprintf("%s_%d", c.Kind, c.Channel+1)
	}
	return string(c.Kind)
}

// SystemError is a tracked fault.
type SystemError struct {
	Condition
	State         ErrorState
	FirstDetected clock.Tick
	ActivatedAt   clock.Tick
	Observations  int

	seq uint64
}

// Transition is a change of a fault into or out of the active state.
type Transition struct {
	Condition
	Active bool
	At     clock.Tick
}

// Conditions derives the faults present in r. tankHeightCm is the distance at
// which the level sensor sees an empty reservoir.
func Conditions(r Readings, t settings.Thresholds, tankHeightCm float64) []Condition {
	var out []Condition
	add := func(k ErrorKind) { out = append(out, Condition{Kind: k}) }

	if !r.LightOK {
		add(ErrLightSensor)
	}
	if !r.ClimateOK {
		add(ErrClimateSensor)
	} else {
		if r.Temperature < float64(t.MinTemp) {
			add(ErrTempLow)
		}
		if r.Temperature > float64(t.MaxTemp) {
			add(ErrTempHigh)
		}
		if r.Humidity < float64(t.MinHumidity) {
			add(ErrHumidityLow)
		}
		if r.Humidity > float64(t.MaxHumidity) {
			add(ErrHumidityHigh)
		}
	}
	if !r.AirQualityOK {
		add(ErrAirQualitySensor)
	}
	for i, ch := range r.Soil {
		if !ch.OK {
			out = append(out, Condition{Kind: ErrSoilSensor, Channel: i})
		}
	}
	if !r.RTCOK {
		add(ErrRTC)
	}
	if !r.WaterLevelOK {
		add(ErrWaterLevelSensor)
	} else if r.WaterDistanceCm <= 0 || r.WaterDistanceCm >= tankHeightCm {
		add(ErrWaterEmpty)
	}
	// ErrPumpNoFlow needs a flow sensor, which the hardware does not have.
	return out
}

// ErrorMonitor debounces faults: Clear -> Suspect on first sight, Suspect ->
// Active once the fault has persisted for the debounce time over at least two
// checks, and back to Clear on the first check without it.
type ErrorMonitor struct {
	debounceMs uint32
	errors     map[Condition]*SystemError
	seq        uint64
}

// NewErrorMonitor creates a monitor. debounceMs falls back to
// DefaultErrorDebounceMs when zero.
func NewErrorMonitor(debounceMs uint32) *ErrorMonitor {
	if debounceMs == 0 {
		debounceMs = DefaultErrorDebounceMs
	}
	return &ErrorMonitor{
		debounceMs: debounceMs,
		errors:     make(map[Condition]*SystemError),
	}
}

// Observe records one check. conds is the complete set of faults seen now;
// anything tracked but absent clears. The returned transitions are ordered
// activations first, then clears.
func (m *ErrorMonitor) Observe(conds []Condition, now clock.Tick) []Transition {
	seen := make(map[Condition]bool, len(conds))
	var activated, cleared []Transition

	for _, c := range conds {
		if seen[c] {
			continue
		}
		seen[c] = true

		e, ok := m.errors[c]
		if !ok {
			m.errors[c] = &SystemError{
				Condition:     c,
				State:         StateSuspect,
				FirstDetected: now,
				Observations:  1,
			}
			continue
		}
		e.Observations++
		if e.State == StateSuspect && e.Observations >= 2 && now.Since(e.FirstDetected) >= m.debounceMs {
			m.seq++
			e.State = StateActive
			e.ActivatedAt = now
			e.seq = m.seq
			activated = append(activated, Transition{Condition: c, Active: true, At: now})
		}
	}

	for c, e := range m.errors {
		if seen[c] {
			continue
		}
		if e.State == StateActive {
			cleared = append(cleared, Transition{Condition: c, Active: false, At: now})
		}
		delete(m.errors, c)
	}
	sort.Slice(cleared, func(i, j int) bool { return cleared[i].String() < cleared[j].String() })

	return append(activated, cleared...)
}

// Active returns the active faults, most recently activated first.
func (m *ErrorMonitor) Active() []SystemError {
	var out []SystemError
	for _, e := range m.errors {
		if e.State == StateActive {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq > out[j].seq })
	return out
}

// Latest returns the most recently activated fault.
func (m *ErrorMonitor) Latest() (SystemError, bool) {
	active := m.Active()
	if len(active) == 0 {
		return SystemError{}, false
	}
	return active[0], true
}

// ActiveCount returns the number of active faults.
func (m *ErrorMonitor) ActiveCount() int {
	n := 0
	for _, e := range m.errors {
		if e.State == StateActive {
			n++
		}
	}
	return n
}

// IsActive reports whether c is currently active.
func (m *ErrorMonitor) IsActive(c Condition) bool {
	e, ok := m.errors[c]
	return ok && e.State == StateActive
}

// State returns the tracked state of c.
func (m *ErrorMonitor) State(c Condition) ErrorState {
	if e, ok := m.errors[c]; ok {
		return e.State
	}
	return StateClear
}
