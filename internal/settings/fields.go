package settings

import "fmt"

// FieldID names an editable setting.
type FieldID string

// Field declares one editable setting: its label, range and accessors.
// Set clamps into [Min, Max], so it is safe with any value.
type Field struct {
	ID    FieldID
	Label string
	Unit  string
	Min   int32
	Max   int32
	Step  int32
	get   func(*Settings) int32
	set   func(*Settings, int32)
}

// Get reads the field from s.
func (f Field) Get(s *Settings) int32 {
	return f.get(s)
}

// Set writes v, clamped, into s.
func (f Field) Set(s *Settings, v int32) {
	f.set(s, f.Clamp(v))
}

// Clamp limits v to the field's range.
func (f Field) Clamp(v int32) int32 {
	if v < f.Min {
		return f.Min
	}
	if v > f.Max {
		return f.Max
	}
	return v
}

// Format renders v with the field's unit.
func (f Field) Format(v int32) string {
	if f.Min == 0 && f.Max == 1 && f.Unit == "" {
		if v != 0 {
			return "ON"
		}
		return "OFF"
	}
	return fmt.Sprintf("%d%s", v, f.Unit)
}

// Field IDs.
const (
	MinTemp         FieldID = "thresholds.min_temp"
	MaxTemp         FieldID = "thresholds.max_temp"
	MinHumidity     FieldID = "thresholds.min_humidity"
	MaxHumidity     FieldID = "thresholds.max_humidity"
	MinSoilMoisture FieldID = "thresholds.min_soil_moisture"
	LightOnLux      FieldID = "thresholds.light_on_lux"
	LightOffLux     FieldID = "thresholds.light_off_lux"

	LightKindField FieldID = "light.kind"
	LightOnHour    FieldID = "light.on_hour"
	LightOnMinute  FieldID = "light.on_minute"
	LightOffHour   FieldID = "light.off_hour"
	LightOffMinute FieldID = "light.off_minute"
	LightThreshold FieldID = "light.threshold"
	LightBand      FieldID = "light.band"

	AutoEnabled  FieldID = "automation.enabled"
	AutoLight    FieldID = "automation.light"
	AutoFan      FieldID = "automation.fan"
	AutoMoisture FieldID = "automation.moisture"
	AutoSchedule FieldID = "automation.schedule"

	ManualVolume   FieldID = "water.manual_volume"
	MoistureVolume FieldID = "water.moisture_volume"
)

// SlotHour, SlotMinute, SlotVolume and SlotEnabled name the fields of schedule slot i.
func SlotHour(i int) FieldID    { return FieldID(fmt.Sprintf("schedule.%d.hour", i)) }
func SlotMinute(i int) FieldID  { return FieldID(fmt.Sprintf("schedule.%d.minute", i)) }
func SlotVolume(i int) FieldID  { return FieldID(fmt.Sprintf("schedule.%d.volume", i)) }
func SlotEnabled(i int) FieldID { return FieldID(fmt.Sprintf("schedule.%d.enabled", i)) }

func intField(id FieldID, label, unit string, min, max, step int32, p func(*Settings) *int) Field {
	return Field{
		ID: id, Label: label, Unit: unit, Min: min, Max: max, Step: step,
		get: func(s *Settings) int32 { return int32(*p(s)) },
		set: func(s *Settings, v int32) { *p(s) = int(v) },
	}
}

func u8Field(id FieldID, label, unit string, min, max, step int32, p func(*Settings) *uint8) Field {
	return Field{
		ID: id, Label: label, Unit: unit, Min: min, Max: max, Step: step,
		get: func(s *Settings) int32 { return int32(*p(s)) },
		set: func(s *Settings, v int32) { *p(s) = uint8(v) },
	}
}

func u16Field(id FieldID, label, unit string, min, max, step int32, p func(*Settings) *uint16) Field {
	return Field{
		ID: id, Label: label, Unit: unit, Min: min, Max: max, Step: step,
		get: func(s *Settings) int32 { return int32(*p(s)) },
		set: func(s *Settings, v int32) { *p(s) = uint16(v) },
	}
}

func boolField(id FieldID, label string, p func(*Settings) *bool) Field {
	return Field{
		ID: id, Label: label, Min: 0, Max: 1, Step: 1,
		get: func(s *Settings) int32 {
			if *p(s) {
				return 1
			}
			return 0
		},
		set: func(s *Settings, v int32) { *p(s) = v != 0 },
	}
}

var fields = buildFields()

var fieldIndex = func() map[FieldID]Field {
	m := make(map[FieldID]Field, len(fields))
	for _, f := range fields {
		m[f.ID] = f
	}
	return m
}()

func buildFields() []Field {
	fs := []Field{
		intField(MinTemp, "Min temp", "C", 0, 40, 1, func(s *Settings) *int { return &s.Thresholds.MinTemp }),
		intField(MaxTemp, "Max temp", "C", 18, 40, 1, func(s *Settings) *int { return &s.Thresholds.MaxTemp }),
		intField(MinHumidity, "Min humid", "%", 0, 100, 1, func(s *Settings) *int { return &s.Thresholds.MinHumidity }),
		intField(MaxHumidity, "Max humid", "%", 0, 100, 1, func(s *Settings) *int { return &s.Thresholds.MaxHumidity }),
		intField(MinSoilMoisture, "Min soil", "%", 0, 100, 1, func(s *Settings) *int { return &s.Thresholds.MinSoilMoisture }),
		intField(LightOnLux, "Lux low", "lx", 0, 65000, 100, func(s *Settings) *int { return &s.Thresholds.LightOnLux }),
		intField(LightOffLux, "Lux high", "lx", 0, 65000, 100, func(s *Settings) *int { return &s.Thresholds.LightOffLux }),

		{
			ID: LightKindField, Label: "Mode", Min: 0, Max: 1, Step: 1,
			get: func(s *Settings) int32 { return int32(s.Light.Kind) },
			set: func(s *Settings, v int32) { s.Light.Kind = LightKind(v) },
		},
		u8Field(LightOnHour, "On hour", "h", 0, 23, 1, func(s *Settings) *uint8 { return &s.Light.OnHour }),
		u8Field(LightOnMinute, "On min", "m", 0, 59, 1, func(s *Settings) *uint8 { return &s.Light.OnMinute }),
		u8Field(LightOffHour, "Off hour", "h", 0, 23, 1, func(s *Settings) *uint8 { return &s.Light.OffHour }),
		u8Field(LightOffMinute, "Off min", "m", 0, 59, 1, func(s *Settings) *uint8 { return &s.Light.OffMinute }),
		u16Field(LightThreshold, "Lux on <", "lx", 0, 65000, 100, func(s *Settings) *uint16 { return &s.Light.Threshold }),
		u16Field(LightBand, "Lux band", "lx", 0, 10000, 50, func(s *Settings) *uint16 { return &s.Light.Band }),

		boolField(AutoEnabled, "Auto mode", func(s *Settings) *bool { return &s.Automation.Enabled }),
		boolField(AutoLight, "Auto light", func(s *Settings) *bool { return &s.Automation.Light }),
		boolField(AutoFan, "Auto fan", func(s *Settings) *bool { return &s.Automation.Fan }),
		boolField(AutoMoisture, "Auto soil", func(s *Settings) *bool { return &s.Automation.Moisture }),
		boolField(AutoSchedule, "Schedule", func(s *Settings) *bool { return &s.Automation.Schedule }),

		u16Field(ManualVolume, "Volume", "mL", 10, 1000, 10, func(s *Settings) *uint16 { return &s.Water.ManualVolumeMl }),
		u16Field(MoistureVolume, "Auto vol", "mL", 10, 1000, 10, func(s *Settings) *uint16 { return &s.Water.MoistureVolumeMl }),
	}

	for i := 0; i < ScheduleSlots; i++ {
		i := i
		n := i + 1
		fs = append(fs,
			u8Field(SlotHour(i), fmt.Sprintf("S%d hour", n), "h", 0, 23, 1, func(s *Settings) *uint8 { return &s.Schedule[i].Hour }),
			u8Field(SlotMinute(i), fmt.Sprintf("S%d min", n), "m", 0, 59, 1, func(s *Settings) *uint8 { return &s.Schedule[i].Minute }),
			u16Field(SlotVolume(i), fmt.Sprintf("S%d vol", n), "mL", 0, 1000, 10, func(s *Settings) *uint16 { return &s.Schedule[i].VolumeMl }),
			boolField(SlotEnabled(i), fmt.Sprintf("S%d on", n), func(s *Settings) *bool { return &s.Schedule[i].Enabled }),
		)
	}
	return fs
}

// Fields returns every editable field in declaration order.
func Fields() []Field {
	return fields
}

// Lookup returns the field with the given ID.
func Lookup(id FieldID) (Field, bool) {
	f, ok := fieldIndex[id]
	return f, ok
}
