package logic

import "github.com/sweeney/growbox/internal/settings"

// Fan hysteresis. The fan arms when any reading is above its limit and
// disarms only once every reading is comfortably back below it.
const (
	FanArmAirQuality      = 60
	FanDisarmAirQuality   = 50
	FanTempHysteresis     = 2
	FanHumidityHysteresis = 10
)

// Decide runs the automation rules named in due against in and returns the
// proposed output changes. It never touches hardware. A rule whose sensor is
// down is skipped for this pass.
func Decide(in Input, due Rules) Commands {
	cmd := Commands{PumpSlot: -1, Fired: in.Fired}
	auto := in.Settings.Automation
	if !auto.Enabled {
		return cmd
	}

	if due.Has(RuleLight) && auto.Light {
		cmd.Light = decideLight(in.Readings, in.Settings.Light, in.Outputs.Light)
	}
	if due.Has(RuleFan) && auto.Fan {
		cmd.Fan = decideFan(in.Readings, in.Settings.Thresholds, in.Outputs.Fan)
	}
	if due.Has(RuleSchedule) && auto.Schedule && in.Readings.RTCOK {
		slot, fired := checkSchedule(in.Readings, in.Settings.Schedule, in.Fired)
		cmd.Fired = fired
		if slot >= 0 {
			cmd.PumpVolumeMl = in.Settings.Schedule[slot].VolumeMl
			cmd.PumpSource = PumpSchedule
			cmd.PumpSlot = slot
		}
	}
	if due.Has(RuleMoisture) && auto.Moisture && !in.PumpRunning && !cmd.StartsPump() {
		if avg, ok := in.Readings.SoilAverage(); ok && avg < float64(in.Settings.Thresholds.MinSoilMoisture) {
			cmd.PumpVolumeMl = in.Settings.Water.MoistureVolumeMl
			cmd.PumpSource = PumpMoisture
		}
	}
	return cmd
}

func decideLight(r Readings, mode settings.LightMode, on bool) Switch {
	var want bool
	switch mode.Kind {
	case settings.LuxThreshold:
		if !r.LightOK {
			return Keep
		}
		switch {
		case !on && r.Lux < float64(mode.Threshold):
			want = true
		case on && r.Lux >= float64(mode.Threshold)+float64(mode.Band):
			want = false
		default:
			return Keep
		}
	default:
		if !r.RTCOK {
			return Keep
		}
		want = InWindow(r.MinuteOfDay(), mode.OnMinuteOfDay(), mode.OffMinuteOfDay())
	}
	if want == on {
		return Keep
	}
	if want {
		return On
	}
	return Off
}

// InWindow reports whether minute cur lies in [on, off). A window with
// on > off wraps past midnight; on == off is empty.
func InWindow(cur, on, off int) bool {
	switch {
	case on == off:
		return false
	case on < off:
		return cur >= on && cur < off
	default:
		return cur >= on || cur < off
	}
}

func decideFan(r Readings, t settings.Thresholds, on bool) Switch {
	if !r.ClimateOK {
		return Keep
	}
	maxT := float64(t.MaxTemp)
	maxH := float64(t.MaxHumidity)

	if !on {
		if r.Temperature > maxT || r.Humidity > maxH ||
			(r.AirQualityOK && r.AirQuality > FanArmAirQuality) {
			return On
		}
		return Keep
	}

	if r.Temperature < maxT-FanTempHysteresis &&
		r.Humidity < maxH-FanHumidityHysteresis &&
		(!r.AirQualityOK || r.AirQuality < FanDisarmAirQuality) {
		return Off
	}
	return Keep
}

// checkSchedule returns the slot to fire (or -1) and the updated markers.
// A marker only suppresses the minute it was set in.
func checkSchedule(r Readings, sched settings.Schedule, fired FiredMarkers) (int, FiredMarkers) {
	h, m := uint8(r.Time.Hour()), uint8(r.Time.Minute())
	slot := -1
	for i, s := range sched {
		if s.Hour != h || s.Minute != m || !s.Enabled || fired.Has(i, r.Time) {
			continue
		}
		fired[i] = epochMinute(r.Time)
		if slot < 0 && s.VolumeMl > 0 {
			slot = i
		}
	}
	return slot, fired
}
