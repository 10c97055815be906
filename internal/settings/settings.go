// Package settings holds the user-configurable thresholds, watering schedule
// and light-control mode, their defaults and declared edit ranges.
package settings

import "errors"

// ScheduleSlots is the number of watering schedule entries.
const ScheduleSlots = 3

// ErrNotFound is returned by a Store that has never been saved to.
var ErrNotFound = errors.New("settings: not found")

// Store persists settings. The encoding is up to the implementation.
type Store interface {
	Save(s Settings) error
	Load() (Settings, error)
}

// Thresholds are the climate and soil limits the automation works against.
// Temperatures are whole degrees Celsius, humidity and soil moisture percent.
type Thresholds struct {
	MinTemp         int `json:"min_temp"`
	MaxTemp         int `json:"max_temp"`
	MinHumidity     int `json:"min_humidity"`
	MaxHumidity     int `json:"max_humidity"`
	MinSoilMoisture int `json:"min_soil_moisture"`
	LightOnLux      int `json:"light_on_lux"`
	LightOffLux     int `json:"light_off_lux"`
}

// Slot is one time-of-day watering entry.
type Slot struct {
	Hour     uint8  `json:"hour"`
	Minute   uint8  `json:"minute"`
	VolumeMl uint16 `json:"volume_ml"`
	Enabled  bool   `json:"enabled"`
}

// Schedule is the fixed set of watering slots.
type Schedule [ScheduleSlots]Slot

// LightKind selects how the grow light is controlled.
type LightKind int

const (
	// TimeWindow switches the light on between the on and off times.
	TimeWindow LightKind = iota
	// LuxThreshold switches the light on when ambient light is below Threshold.
	LuxThreshold
)

func (k LightKind) String() string {
	if k == LuxThreshold {
		return "LUX"
	}
	return "TIME"
}

// LightMode is the light-control variant. Only the fields of the selected
// kind are used; the others are kept so switching back restores them.
type LightMode struct {
	Kind      LightKind `json:"kind"`
	OnHour    uint8     `json:"on_hour"`
	OnMinute  uint8     `json:"on_minute"`
	OffHour   uint8     `json:"off_hour"`
	OffMinute uint8     `json:"off_minute"`
	Threshold uint16    `json:"threshold"`
	// Band is an optional dead-band above Threshold before the light turns
	// off again. Zero switches on and off at the single threshold.
	Band uint16 `json:"band"`
}

// OnMinuteOfDay returns the window start as minutes since midnight.
func (m LightMode) OnMinuteOfDay() int {
	return int(m.OnHour)*60 + int(m.OnMinute)
}

// OffMinuteOfDay returns the window end as minutes since midnight.
func (m LightMode) OffMinuteOfDay() int {
	return int(m.OffHour)*60 + int(m.OffMinute)
}

// Automation enables the automatic rules. Enabled is the global auto-mode
// switch; the others gate each rule individually.
type Automation struct {
	Enabled  bool `json:"enabled"`
	Light    bool `json:"light"`
	Fan      bool `json:"fan"`
	Moisture bool `json:"moisture"`
	Schedule bool `json:"schedule"`
}

// Water holds the pump volumes used outside the schedule.
type Water struct {
	ManualVolumeMl   uint16 `json:"manual_volume_ml"`
	MoistureVolumeMl uint16 `json:"moisture_volume_ml"`
}

// Settings is everything the user can change from the menu.
type Settings struct {
	Thresholds Thresholds `json:"thresholds"`
	Schedule   Schedule   `json:"schedule"`
	Light      LightMode  `json:"light"`
	Automation Automation `json:"automation"`
	Water      Water      `json:"water"`
	Preset     string     `json:"preset"`
}

// Defaults returns the factory settings.
func Defaults() Settings {
	return Settings{
		Thresholds: Thresholds{
			MinTemp:         18,
			MaxTemp:         28,
			MinHumidity:     40,
			MaxHumidity:     80,
			MinSoilMoisture: 40,
			LightOnLux:      1000,
			LightOffLux:     20000,
		},
		Schedule: Schedule{
			{Hour: 8, Minute: 0, VolumeMl: 200, Enabled: true},
			{Hour: 14, Minute: 0, VolumeMl: 150, Enabled: true},
			{Hour: 20, Minute: 0, VolumeMl: 200, Enabled: false},
		},
		Light: LightMode{
			Kind:      TimeWindow,
			OnHour:    6,
			OffHour:   22,
			Threshold: 5000,
		},
		Automation: Automation{
			Enabled:  true,
			Light:    true,
			Fan:      true,
			Moisture: true,
			Schedule: true,
		},
		Water: Water{
			ManualVolumeMl:   100,
			MoistureVolumeMl: 100,
		},
		Preset: "Default",
	}
}

// Normalize clamps every editable field into its declared range. Settings
// loaded from storage pass through here so a corrupt or outdated record can
// never push the automation outside the ranges the menu allows.
func (s *Settings) Normalize() {
	for _, f := range Fields() {
		f.Set(s, f.Get(s))
	}
	if s.Preset == "" {
		s.Preset = "Custom"
	}
}
