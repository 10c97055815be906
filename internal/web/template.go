package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/growbox/internal/actuator"
	"github.com/sweeney/growbox/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"onoff": actuator.StateString,
	"reading": func(v float64, ok bool, format string) string {
		if !ok {
			return "--"
		}
		return fmt.Sprintf(format, v)
	},
	"seconds": func(ms uint32) uint32 {
		return (ms + 999) / 1000
	},
	"inc": func(i int) int { return i + 1 },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="10">
<title>Growbox</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.error { color: red; }
pre.lcd { background: #224; color: #9cf; padding: 8px; width: 20ch; }
</style>
</head>
<body>
<h1>Growbox</h1>

<h2>Outputs</h2>
<table>
<tr><th>Light</th><td id="light" class="{{if .Outputs.Light}}on{{else}}off{{end}}">{{onoff .Outputs.Light}}</td></tr>
<tr><th>Fan</th><td id="fan" class="{{if .Outputs.Fan}}on{{else}}off{{end}}">{{onoff .Outputs.Fan}}</td></tr>
<tr><th>Pump</th><td id="pump" class="{{if .Outputs.Pump}}on{{else}}off{{end}}">{{onoff .Outputs.Pump}}{{if .Pump.Running}} ({{.Pump.VolumeMl}}mL, {{seconds .Pump.RemainingMs}}s left){{end}}</td></tr>
<tr><th>Indicator</th><td class="{{if .Outputs.Indicator}}on{{else}}off{{end}}">{{onoff .Outputs.Indicator}}</td></tr>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Sensors</h2>
<table>
<tr><th>Temperature</th><td>{{reading .Readings.Temperature .Readings.ClimateOK "%.1f C"}}</td></tr>
<tr><th>Humidity</th><td>{{reading .Readings.Humidity .Readings.ClimateOK "%.0f %%"}}</td></tr>
<tr><th>Air quality</th><td>{{reading .Readings.AirQuality .Readings.AirQualityOK "%.0f"}}</td></tr>
<tr><th>Light</th><td>{{reading .Readings.Lux .Readings.LightOK "%.0f lx"}}</td></tr>
{{range $i, $ch := .Readings.Soil}}<tr><th>Soil {{inc $i}}</th><td>{{if $ch.OK}}{{$ch.Percent}} %{{else}}--{{end}}</td></tr>
{{end}}<tr><th>Water level</th><td>{{reading .Readings.WaterDistanceCm .Readings.WaterLevelOK "%.0f cm"}}</td></tr>
{{if .SensorError}}<tr><th>Read error</th><td class="error">{{.SensorError}}</td></tr>{{end}}
</table>

<h2>Errors</h2>
<table>
{{range .Errors}}<tr><th class="error">{{.Kind}}</th><td>{{.String}}</td></tr>
{{else}}<tr><td>none</td></tr>
{{end}}</table>

<h2>Display</h2>
<pre class="lcd">{{range .Lines}}{{.}}
{{end}}</pre>
{{if .Message}}<p>{{.Message}}</p>{{end}}

<h2>Settings</h2>
<table>
<tr><th>Preset</th><td>{{.Settings.Preset}}</td></tr>
<tr><th>Auto mode</th><td>{{if .Settings.Automation.Enabled}}on{{else}}off{{end}}</td></tr>
<tr><th>Light mode</th><td>{{.Settings.Light.Kind}}</td></tr>
<tr><th>Temperature</th><td>{{.Settings.Thresholds.MinTemp}}..{{.Settings.Thresholds.MaxTemp}} C</td></tr>
<tr><th>Humidity</th><td>{{.Settings.Thresholds.MinHumidity}}..{{.Settings.Thresholds.MaxHumidity}} %</td></tr>
<tr><th>Min soil</th><td>{{.Settings.Thresholds.MinSoilMoisture}} %</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Light ON</th><td>{{.Counts.LightOn}}</td></tr>
<tr><th>Fan ON</th><td>{{.Counts.FanOn}}</td></tr>
<tr><th>Pump runs</th><td>{{.Counts.PumpRuns}}</td></tr>
<tr><th>Errors raised</th><td>{{.Counts.ErrorsRaised}}</td></tr>
<tr><th>Saves</th><td>{{.Counts.Saves}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Boot</th><td>{{.BootID}}</td></tr>
<tr><th>Sensor poll</th><td>{{.Config.SensorPollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Flow rate</th><td>{{.Config.FlowRate}} mL/min</td></tr>
<tr><th>Database</th><td>{{.Config.Database}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
{{if .Config.DryRun}}<tr><th>Mode</th><td>dry run</td></tr>{{end}}
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
