package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/growbox/internal/actuator"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string          `json:"event,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	BootID        string          `json:"boot_id"`
	Ready         bool            `json:"ready"`
	Outputs       OutputsJSON     `json:"outputs"`
	Pump          PumpJSON        `json:"pump"`
	Sensors       SensorsJSON     `json:"sensors"`
	Errors        []ErrorJSON     `json:"errors"`
	Display       []string        `json:"display"`
	Message       string          `json:"message,omitempty"`
	Settings      SettingsSummary `json:"settings"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	StartTime     string          `json:"start_time"`
	Timestamp     string          `json:"timestamp"`
	MQTT          MQTTStatus      `json:"mqtt"`
	Counts        CountsJSON      `json:"event_counts"`
	Network       *NetworkJSON    `json:"network,omitempty"`
	Config        ConfigJSON      `json:"config"`
}

// OutputsJSON reports each output as "ON" or "OFF".
type OutputsJSON struct {
	Light     string `json:"light"`
	Fan       string `json:"fan"`
	Pump      string `json:"pump"`
	Indicator string `json:"indicator"`
}

// PumpJSON describes the current pump run.
type PumpJSON struct {
	Running     bool   `json:"running"`
	VolumeMl    uint16 `json:"volume_ml,omitempty"`
	RemainingMs uint32 `json:"remaining_ms,omitempty"`
}

// SensorsJSON is the latest reading. Values of failed sensors are null.
type SensorsJSON struct {
	Temperature     *float64 `json:"temperature"`
	Humidity        *float64 `json:"humidity"`
	AirQuality      *float64 `json:"air_quality"`
	Lux             *float64 `json:"lux"`
	Soil            []*uint8 `json:"soil"`
	WaterDistanceCm *float64 `json:"water_distance_cm"`
	Error           string   `json:"error,omitempty"`
}

// ErrorJSON is one active error.
type ErrorJSON struct {
	Kind    string `json:"kind"`
	Channel int    `json:"channel,omitempty"`
	Text    string `json:"text"`
}

// SettingsSummary is the subset of settings worth showing at a glance.
type SettingsSummary struct {
	Preset      string `json:"preset"`
	AutoMode    bool   `json:"auto_mode"`
	LightMode   string `json:"light_mode"`
	MinTemp     int    `json:"min_temp"`
	MaxTemp     int    `json:"max_temp"`
	MinHumidity int    `json:"min_humidity"`
	MaxHumidity int    `json:"max_humidity"`
	MinSoil     int    `json:"min_soil"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	LightOn      int `json:"light_on"`
	FanOn        int `json:"fan_on"`
	PumpRuns     int `json:"pump_runs"`
	ErrorsRaised int `json:"errors_raised"`
	Saves        int `json:"saves"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	SensorPollMs int64  `json:"sensor_poll_ms"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	FlowRate     uint16 `json:"flow_rate_ml_min"`
	Broker       string `json:"broker"`
	HTTPAddr     string `json:"http_addr"`
	Database     string `json:"database"`
	DryRun       bool   `json:"dry_run,omitempty"`
}

func ptr(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

func buildSensors(snap Snapshot) SensorsJSON {
	r := snap.Readings
	out := SensorsJSON{
		Temperature:     ptr(r.Temperature, r.ClimateOK),
		Humidity:        ptr(r.Humidity, r.ClimateOK),
		AirQuality:      ptr(r.AirQuality, r.AirQualityOK),
		Lux:             ptr(r.Lux, r.LightOK),
		WaterDistanceCm: ptr(r.WaterDistanceCm, r.WaterLevelOK),
		Soil:            make([]*uint8, 0, len(r.Soil)),
		Error:           snap.SensorError,
	}
	for _, ch := range r.Soil {
		if !ch.OK {
			out.Soil = append(out.Soil, nil)
			continue
		}
		p := ch.Percent
		out.Soil = append(out.Soil, &p)
	}
	return out
}

func buildInner(snap Snapshot) StatusInner {
	out := snap.Outputs
	s := snap.Settings
	inner := StatusInner{
		BootID: snap.BootID,
		Ready:  snap.Ready,
		Outputs: OutputsJSON{
			Light:     actuator.StateString(out.Light),
			Fan:       actuator.StateString(out.Fan),
			Pump:      actuator.StateString(out.Pump),
			Indicator: actuator.StateString(out.Indicator),
		},
		Pump: PumpJSON{
			Running:     snap.Pump.Running,
			VolumeMl:    snap.Pump.VolumeMl,
			RemainingMs: snap.Pump.RemainingMs,
		},
		Sensors: buildSensors(snap),
		Errors:  make([]ErrorJSON, 0, len(snap.Errors)),
		Display: snap.Lines,
		Message: snap.Message,
		Settings: SettingsSummary{
			Preset:      s.Preset,
			AutoMode:    s.Automation.Enabled,
			LightMode:   s.Light.Kind.String(),
			MinTemp:     s.Thresholds.MinTemp,
			MaxTemp:     s.Thresholds.MaxTemp,
			MinHumidity: s.Thresholds.MinHumidity,
			MaxHumidity: s.Thresholds.MaxHumidity,
			MinSoil:     s.Thresholds.MinSoilMoisture,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			LightOn:      snap.Counts.LightOn,
			FanOn:        snap.Counts.FanOn,
			PumpRuns:     snap.Counts.PumpRuns,
			ErrorsRaised: snap.Counts.ErrorsRaised,
			Saves:        snap.Counts.Saves,
		},
		Config: ConfigJSON{
			SensorPollMs: snap.Config.SensorPollMs,
			HeartbeatMs:  snap.Config.HeartbeatMs,
			FlowRate:     snap.Config.FlowRate,
			Broker:       snap.Config.Broker,
			HTTPAddr:     snap.Config.HTTPAddr,
			Database:     snap.Config.Database,
			DryRun:       snap.Config.DryRun,
		},
	}
	if inner.Display == nil {
		inner.Display = []string{}
	}
	for _, e := range snap.Errors {
		inner.Errors = append(inner.Errors, ErrorJSON{Kind: string(e.Kind), Channel: e.Channel, Text: e.String()})
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
