// Package logic contains the pure decision logic of the controller: the
// automation rules and the error monitor. It has NO external dependencies
// (no GPIO, MQTT, OS, or time.Sleep). Time is always passed in, as a
// wall-clock time.Time inside Readings or as a clock.Tick.
package logic

import (
	"time"

	"github.com/sweeney/growbox/internal/actuator"
	"github.com/sweeney/growbox/internal/settings"
)

// SoilChannel is one soil-moisture probe.
type SoilChannel struct {
	Percent uint8 `json:"percent"`
	OK      bool  `json:"ok"`
}

// Readings is one snapshot of every sensor. A false health flag means the
// matching values are absent and must not be used.
type Readings struct {
	Temperature     float64       `json:"temperature"`
	Humidity        float64       `json:"humidity"`
	AirQuality      float64       `json:"air_quality"`
	Lux             float64       `json:"lux"`
	Soil            []SoilChannel `json:"soil"`
	WaterDistanceCm float64       `json:"water_distance_cm"`
	Time            time.Time     `json:"time"`

	LightOK      bool `json:"light_ok"`
	ClimateOK    bool `json:"climate_ok"`
	AirQualityOK bool `json:"air_quality_ok"`
	RTCOK        bool `json:"rtc_ok"`
	WaterLevelOK bool `json:"water_level_ok"`
}

// SoilAverage returns the mean of the healthy soil channels, and false when
// none is healthy.
func (r Readings) SoilAverage() (float64, bool) {
	var sum, n int
	for _, ch := range r.Soil {
		if ch.OK {
			sum += int(ch.Percent)
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return float64(sum) / float64(n), true
}

// MinuteOfDay returns the RTC time as minutes since midnight.
func (r Readings) MinuteOfDay() int {
	return r.Time.Hour()*60 + r.Time.Minute()
}

// Switch is a proposed change to an on/off output.
type Switch int

const (
	Keep Switch = iota
	On
	Off
)

func (s Switch) String() string {
	switch s {
	case On:
		return "ON"
	case Off:
		return "OFF"
	}
	return "KEEP"
}

// Apply returns the output state after the switch.
func (s Switch) Apply(current bool) bool {
	switch s {
	case On:
		return true
	case Off:
		return false
	}
	return current
}

// Rules is the set of automation rules whose cadence is due in a pass.
type Rules uint8

const (
	RuleLight Rules = 1 << iota
	RuleFan
	RuleMoisture
	RuleSchedule

	AllRules = RuleLight | RuleFan | RuleMoisture | RuleSchedule
)

// Has reports whether every rule in x is in r.
func (r Rules) Has(x Rules) bool {
	return r&x == x
}

// FiredMarkers records, per schedule slot, the minute (since the Unix
// epoch) the slot last fired in. Zero means never.
type FiredMarkers [settings.ScheduleSlots]int64

// epochMinute returns the minute containing t.
func epochMinute(t time.Time) int64 {
	return t.Unix() / 60
}

// Has reports whether slot already fired in the minute containing t.
func (f FiredMarkers) Has(slot int, t time.Time) bool {
	return f[slot] != 0 && f[slot] == epochMinute(t)
}

// PumpSource says which rule asked for the pump.
type PumpSource int

const (
	PumpNone PumpSource = iota
	PumpMoisture
	PumpSchedule
)

func (p PumpSource) String() string {
	switch p {
	case PumpMoisture:
		return "moisture"
	case PumpSchedule:
		return "schedule"
	}
	return "none"
}

// Input is everything a pass of the automation engine looks at.
type Input struct {
	Readings    Readings
	Settings    settings.Settings
	Outputs     actuator.Outputs
	PumpRunning bool
	Fired       FiredMarkers
}

// Commands are the changes the automation engine proposes. The control loop
// applies them to the actuator layer.
type Commands struct {
	Light        Switch
	Fan          Switch
	PumpVolumeMl uint16
	PumpSource   PumpSource
	// PumpSlot is the schedule slot that fired, or -1.
	PumpSlot int
	Fired    FiredMarkers
}

// StartsPump reports whether the commands include a pump run.
func (c Commands) StartsPump() bool {
	return c.PumpVolumeMl > 0
}
