package settings

import "testing"

func TestDefaults(t *testing.T) {
	s := Defaults()
	if s.Thresholds.MaxTemp != 28 || s.Thresholds.MinSoilMoisture != 40 {
		t.Errorf("unexpected thresholds: %+v", s.Thresholds)
	}
	if s.Schedule[0] != (Slot{Hour: 8, VolumeMl: 200, Enabled: true}) {
		t.Errorf("slot 0: %+v", s.Schedule[0])
	}
	if s.Schedule[2].Enabled {
		t.Error("slot 2 should start disabled")
	}
	if s.Light.Kind != TimeWindow || s.Light.OnMinuteOfDay() != 360 || s.Light.OffMinuteOfDay() != 1320 {
		t.Errorf("light mode: %+v", s.Light)
	}
	if !s.Automation.Enabled {
		t.Error("automation should start enabled")
	}
}

func TestDefaultsWithinFieldRanges(t *testing.T) {
	s := Defaults()
	for _, f := range Fields() {
		v := f.Get(&s)
		if v < f.Min || v > f.Max {
			t.Errorf("%s: default %d outside [%d, %d]", f.ID, v, f.Min, f.Max)
		}
		if f.Step <= 0 {
			t.Errorf("%s: step %d", f.ID, f.Step)
		}
	}
}

func TestFieldSetClamps(t *testing.T) {
	s := Defaults()
	f, ok := Lookup(MaxTemp)
	if !ok {
		t.Fatal("MaxTemp not declared")
	}
	if f.Min != 18 || f.Max != 40 || f.Step != 1 {
		t.Errorf("MaxTemp range: %d..%d step %d", f.Min, f.Max, f.Step)
	}

	f.Set(&s, 99)
	if s.Thresholds.MaxTemp != 40 {
		t.Errorf("clamp high: got %d", s.Thresholds.MaxTemp)
	}
	f.Set(&s, -5)
	if s.Thresholds.MaxTemp != 18 {
		t.Errorf("clamp low: got %d", s.Thresholds.MaxTemp)
	}
}

func TestSlotFields(t *testing.T) {
	s := Defaults()
	f, ok := Lookup(SlotMinute(1))
	if !ok {
		t.Fatal("slot minute not declared")
	}
	f.Set(&s, 30)
	if s.Schedule[1].Minute != 30 {
		t.Errorf("got %d, want 30", s.Schedule[1].Minute)
	}
	en, _ := Lookup(SlotEnabled(2))
	en.Set(&s, 1)
	if !s.Schedule[2].Enabled {
		t.Error("slot 2 should be enabled")
	}
	if got := en.Format(1); got != "ON" {
		t.Errorf("Format: got %q", got)
	}
	vol, _ := Lookup(SlotVolume(0))
	if got := vol.Format(200); got != "200mL" {
		t.Errorf("Format: got %q", got)
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, ok := Lookup("nope"); ok {
		t.Error("unknown field found")
	}
}

func TestNormalize(t *testing.T) {
	s := Settings{}
	s.Thresholds.MaxTemp = 100
	s.Light.OnHour = 30
	s.Water.ManualVolumeMl = 0
	s.Normalize()

	if s.Thresholds.MaxTemp != 40 {
		t.Errorf("MaxTemp: got %d", s.Thresholds.MaxTemp)
	}
	if s.Light.OnHour != 23 {
		t.Errorf("OnHour: got %d", s.Light.OnHour)
	}
	if s.Water.ManualVolumeMl != 10 {
		t.Errorf("ManualVolumeMl: got %d", s.Water.ManualVolumeMl)
	}
	if s.Preset != "Custom" {
		t.Errorf("Preset: got %q", s.Preset)
	}
}

func TestApplyPreset(t *testing.T) {
	s := Defaults()
	before := s.Schedule
	for _, p := range Presets {
		if p.Name != "Tomato" {
			continue
		}
		s.ApplyPreset(p)
	}
	if s.Preset != "Tomato" || s.Thresholds.MaxTemp != 29 {
		t.Errorf("preset not applied: %+v", s)
	}
	if s.Schedule != before {
		t.Error("preset must only touch thresholds")
	}

	// Every preset stays inside the editable ranges.
	for _, p := range Presets {
		c := Defaults()
		c.ApplyPreset(p)
		n := c
		n.Normalize()
		if n.Thresholds != c.Thresholds {
			t.Errorf("%s: thresholds outside editable ranges", p.Name)
		}
	}
}
