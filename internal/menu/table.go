package menu

import (
	"fmt"
	"strings"
	"time"

	"github.com/sweeney/growbox/internal/actuator"
	"github.com/sweeney/growbox/internal/settings"
)

// Page is a menu page.
type Page int

const (
	Main Page = iota
	LightControl
	FanControl
	WaterControl
	SensorInfo
	Settings
	DateTime
	Thresholds
	Schedule
	LightMode
	Presets
	AutoMode
	Errors
)

func (p Page) String() string {
	if def, ok := pages[p]; ok {
		return def.Title
	}
	return fmt.Sprintf("Page(%d)", int(p))
}

// ItemKind is what clicking an item does.
type ItemKind int

const (
	Child ItemKind = iota
	Field
	Action
	Info
	Back
)

// ActionID names an Action item.
type ActionID int

const (
	ActNone ActionID = iota
	ActToggleLight
	ActToggleFan
	ActWaterNow
	ActStopPump
	ActSave
	ActPreset
)

// ClockPart is the wall-clock component a DateTime field edits.
type ClockPart int

const (
	ClockNone ClockPart = iota
	ClockHour
	ClockMinute
	ClockDay
	ClockMonth
	ClockYear
)

// Item is one line of a page.
type Item struct {
	Label  string
	Kind   ItemKind
	Child  Page
	Field  settings.FieldID
	Clock  ClockPart
	Action ActionID
	Preset int
	// Text renders Info items.
	Text func(env *Env) string
}

// PageDef is a page in the menu table.
type PageDef struct {
	Title  string
	Parent Page
	Items  []Item
}

func child(label string, p Page) Item      { return Item{Label: label, Kind: Child, Child: p} }
func field(id settings.FieldID) Item       { return Item{Kind: Field, Field: id} }
func action(label string, a ActionID) Item { return Item{Label: label, Kind: Action, Action: a} }
func info(text func(env *Env) string) Item { return Item{Kind: Info, Text: text} }
func clockField(label string, c ClockPart) Item {
	return Item{Label: label, Kind: Field, Clock: c}
}

var back = Item{Label: "< Back", Kind: Back}

var pages = map[Page]PageDef{
	Main: {
		Title:  "Main Menu",
		Parent: Main,
		Items: []Item{
			child("Light", LightControl),
			child("Fan", FanControl),
			child("Water", WaterControl),
			child("Sensors", SensorInfo),
			child("Settings", Settings),
			child("Auto mode", AutoMode),
			child("Errors", Errors),
		},
	},
	LightControl: {
		Title:  "Light Control",
		Parent: Main,
		Items: []Item{
			info(func(env *Env) string { return "Light: " + actuator.StateString(env.Outputs.Light) }),
			action("Toggle light", ActToggleLight),
			back,
		},
	},
	FanControl: {
		Title:  "Fan Control",
		Parent: Main,
		Items: []Item{
			info(func(env *Env) string { return "Fan: " + actuator.StateString(env.Outputs.Fan) }),
			action("Toggle fan", ActToggleFan),
			back,
		},
	},
	WaterControl: {
		Title:  "Water Control",
		Parent: Main,
		Items: []Item{
			field(settings.ManualVolume),
			action("Water now", ActWaterNow),
			action("Stop pump", ActStopPump),
			info(pumpText),
			back,
		},
	},
	SensorInfo: {
		Title:  "Sensors",
		Parent: Main,
		Items: []Item{
			info(func(env *Env) string {
				if !env.Readings.ClimateOK {
					return "Temp: --"
				}
				return fmt.Sprintf("Temp: %.1fC", env.Readings.Temperature)
			}),
			info(func(env *Env) string {
				if !env.Readings.ClimateOK {
					return "Humidity: --"
				}
				return fmt.Sprintf("Humidity: %.0f%%", env.Readings.Humidity)
			}),
			info(func(env *Env) string {
				if !env.Readings.AirQualityOK {
					return "Air: --"
				}
				return fmt.Sprintf("Air: %.0f", env.Readings.AirQuality)
			}),
			info(func(env *Env) string {
				if !env.Readings.LightOK {
					return "Lux: --"
				}
				return fmt.Sprintf("Lux: %.0f", env.Readings.Lux)
			}),
			info(func(env *Env) string {
				avg, ok := env.Readings.SoilAverage()
				if !ok {
					return "Soil: --"
				}
				return fmt.Sprintf("Soil: %.0f%%", avg)
			}),
			info(func(env *Env) string {
				if !env.Readings.WaterLevelOK {
					return "Level: --"
				}
				return fmt.Sprintf("Level: %.0fcm", env.Readings.WaterDistanceCm)
			}),
			info(func(env *Env) string {
				t := env.Settings.Thresholds
				return fmt.Sprintf("Lux rng %d-%d", t.LightOnLux, t.LightOffLux)
			}),
			back,
		},
	},
	Settings: {
		Title:  "Settings",
		Parent: Main,
		Items: []Item{
			child("Date/Time", DateTime),
			child("Thresholds", Thresholds),
			child("Schedule", Schedule),
			child("Light mode", LightMode),
			child("Presets", Presets),
			action("Save", ActSave),
			back,
		},
	},
	DateTime: {
		Title:  "Date/Time",
		Parent: Settings,
		Items: []Item{
			clockField("Hour", ClockHour),
			clockField("Minute", ClockMinute),
			clockField("Day", ClockDay),
			clockField("Month", ClockMonth),
			clockField("Year", ClockYear),
			back,
		},
	},
	Thresholds: {
		Title:  "Thresholds",
		Parent: Settings,
		Items: []Item{
			field(settings.MinTemp),
			field(settings.MaxTemp),
			field(settings.MinHumidity),
			field(settings.MaxHumidity),
			field(settings.MinSoilMoisture),
			field(settings.LightOnLux),
			field(settings.LightOffLux),
			back,
		},
	},
	Schedule: {
		Title:  "Schedule",
		Parent: Settings,
		Items:  scheduleItems(),
	},
	LightMode: {
		Title:  "Light Mode",
		Parent: Settings,
		Items: []Item{
			field(settings.LightKindField),
			field(settings.LightOnHour),
			field(settings.LightOnMinute),
			field(settings.LightOffHour),
			field(settings.LightOffMinute),
			field(settings.LightThreshold),
			field(settings.LightBand),
			back,
		},
	},
	Presets: {
		Title:  "Presets",
		Parent: Settings,
		Items:  presetItems(),
	},
	AutoMode: {
		Title:  "Auto Mode",
		Parent: Main,
		Items: []Item{
			field(settings.AutoEnabled),
			field(settings.AutoLight),
			field(settings.AutoFan),
			field(settings.AutoMoisture),
			field(settings.AutoSchedule),
			back,
		},
	},
	Errors: {
		Title:  "Errors",
		Parent: Main,
		Items: []Item{
			info(func(env *Env) string { return fmt.Sprintf("Active: %d", len(env.Errors)) }),
			info(func(env *Env) string {
				if len(env.Errors) == 0 {
					return "No errors"
				}
				return env.Errors[0].String()
			}),
			back,
		},
	},
}

func scheduleItems() []Item {
	var items []Item
	for i := 0; i < settings.ScheduleSlots; i++ {
		items = append(items,
			field(settings.SlotEnabled(i)),
			field(settings.SlotHour(i)),
			field(settings.SlotMinute(i)),
			field(settings.SlotVolume(i)),
		)
	}
	return append(items, back)
}

func presetItems() []Item {
	var items []Item
	for i, p := range settings.Presets {
		it := action(p.Name, ActPreset)
		it.Preset = i
		items = append(items, it)
	}
	return append(items, back)
}

func pumpText(env *Env) string {
	if !env.Pump.Running {
		return "Pump: OFF"
	}
	return fmt.Sprintf("Pump: %ds left", (env.Pump.RemainingMs+999)/1000)
}

func isThreshold(id settings.FieldID) bool {
	return strings.HasPrefix(string(id), "thresholds.")
}

// bounds returns the edit range of a Field item.
func (it Item) bounds() (lo, hi, step int32) {
	switch it.Clock {
	case ClockHour:
		return 0, 23, 1
	case ClockMinute:
		return 0, 59, 1
	case ClockDay:
		return 1, 31, 1
	case ClockMonth:
		return 1, 12, 1
	case ClockYear:
		return 2000, 2099, 1
	}
	f, ok := settings.Lookup(it.Field)
	if !ok {
		return 0, 0, 1
	}
	return f.Min, f.Max, f.Step
}

// value reads the current value of a Field item.
func (it Item) value(env *Env) int32 {
	switch it.Clock {
	case ClockHour:
		return int32(env.Now.Hour())
	case ClockMinute:
		return int32(env.Now.Minute())
	case ClockDay:
		return int32(env.Now.Day())
	case ClockMonth:
		return int32(env.Now.Month())
	case ClockYear:
		return int32(env.Now.Year())
	}
	f, ok := settings.Lookup(it.Field)
	if !ok {
		return 0
	}
	return f.Get(env.Settings)
}

// apply returns now with this component replaced by v. The day is clamped
// to the length of the resulting month.
func (c ClockPart) apply(now time.Time, v int32) time.Time {
	y, mo, d := now.Date()
	h, mi, s := now.Clock()
	switch c {
	case ClockHour:
		h = int(v)
	case ClockMinute:
		mi = int(v)
	case ClockDay:
		d = int(v)
	case ClockMonth:
		mo = time.Month(v)
	case ClockYear:
		y = int(v)
	}
	if last := daysIn(y, mo); d > last {
		d = last
	}
	return time.Date(y, mo, d, h, mi, s, 0, now.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
