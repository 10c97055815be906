// Package control is the cooperative control loop. One goroutine calls Tick
// once per loop period and HandleInput for each encoder event; everything
// else (sensors, rules, error monitor, menu, actuators) is driven from here.
package control

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sweeney/growbox/internal/actuator"
	"github.com/sweeney/growbox/internal/clock"
	"github.com/sweeney/growbox/internal/logic"
	"github.com/sweeney/growbox/internal/menu"
	"github.com/sweeney/growbox/internal/mqtt"
	"github.com/sweeney/growbox/internal/sensors"
	"github.com/sweeney/growbox/internal/settings"
	"github.com/sweeney/growbox/internal/status"
)

// RTCValidYear is the first year a wall-clock reading is trusted. Anything
// earlier means the clock was never set.
const RTCValidYear = 2024

// Indicator patterns.
const (
	errorBlinkCount = 2
	errorBlinkMs    = 200
	saveBlinkCount  = 1
	saveBlinkMs     = 200
)

// Cadences are the loop periods in milliseconds. A zero HeartbeatMs
// disables the heartbeat.
type Cadences struct {
	SensorPollMs uint32
	LightMs      uint32
	FanMs        uint32
	ScheduleMs   uint32
	SoilMs       uint32
	ErrorCheckMs uint32
	DisplayMs    uint32
	HeartbeatMs  uint32
}

// DefaultCadences returns the stock loop periods.
func DefaultCadences() Cadences {
	return Cadences{
		SensorPollMs: 5000,
		LightMs:      30000,
		FanMs:        30000,
		ScheduleMs:   15000,
		SoilMs:       60000,
		ErrorCheckMs: 5000,
		DisplayMs:    500,
		HeartbeatMs:  15 * 60 * 1000,
	}
}

// Deps are the components the loop drives. Publisher, Connection, Network
// and Tracker are optional.
type Deps struct {
	Clock           clock.Clock
	Wall            *clock.Wall
	Actuators       *actuator.Manager
	Sensors         sensors.Source
	Store           settings.Store
	Publisher       mqtt.Publisher
	Connection      mqtt.ConnectionStatus
	Tracker         *status.Tracker
	Network         func() *status.NetworkInfo
	Cadences        Cadences
	ErrorDebounceMs uint32
	TankHeightCm    float64
	SensorTimeout   time.Duration
}

// Loop is the controller. It is not safe for concurrent use.
type Loop struct {
	clk      clock.Clock
	wall     *clock.Wall
	act      *actuator.Manager
	src      sensors.Source
	store    settings.Store
	pub      mqtt.Publisher
	conn     mqtt.ConnectionStatus
	tracker  *status.Tracker
	network  func() *status.NetworkInfo
	cad      Cadences
	tankCm   float64
	timeout  time.Duration
	monitor  *logic.ErrorMonitor
	menu     *menu.Machine
	settings settings.Settings

	readings  logic.Readings
	readErr   error
	polled    bool
	fired     logic.FiredMarkers
	pumpNote  string
	counts    status.Counts
	lines     []string
	lastState status.State

	poll, light, fan, schedule, soil, errCheck, display, heartbeat clock.Timer
}

// New builds a Loop. Call Start before the first Tick.
func New(d Deps) *Loop {
	if d.Wall == nil {
		d.Wall = clock.NewWall(nil)
	}
	if d.Tracker == nil {
		d.Tracker = status.NewTracker(time.Now(), "", status.Config{})
	}
	if d.Cadences == (Cadences{}) {
		d.Cadences = DefaultCadences()
	}
	if d.SensorTimeout == 0 {
		d.SensorTimeout = 2 * time.Second
	}
	return &Loop{
		clk:      d.Clock,
		wall:     d.Wall,
		act:      d.Actuators,
		src:      d.Sensors,
		store:    d.Store,
		pub:      d.Publisher,
		conn:     d.Connection,
		tracker:  d.Tracker,
		network:  d.Network,
		cad:      d.Cadences,
		tankCm:   d.TankHeightCm,
		timeout:  d.SensorTimeout,
		monitor:  logic.NewErrorMonitor(d.ErrorDebounceMs),
		menu:     menu.New(),
		settings: settings.Defaults(),
	}
}

// Start loads the saved settings, drives every output low and arms the
// cadences so the first pass polls and evaluates everything.
func (l *Loop) Start() {
	l.loadSettings()
	l.act.Init()

	now := l.clk.Now()
	l.poll = expired(l.cad.SensorPollMs, now)
	l.light = expired(l.cad.LightMs, now)
	l.fan = expired(l.cad.FanMs, now)
	l.schedule = expired(l.cad.ScheduleMs, now)
	l.soil = expired(l.cad.SoilMs, now)
	l.errCheck = expired(l.cad.ErrorCheckMs, now)
	l.display = expired(l.cad.DisplayMs, now)
	l.heartbeat = clock.NewTimer(l.cad.HeartbeatMs, now)

	log.Printf("control: started (preset=%s auto=%v)", l.settings.Preset, l.settings.Automation.Enabled)
}

func expired(interval uint32, now clock.Tick) clock.Timer {
	t := clock.NewTimer(interval, now)
	t.Expire(now)
	return t
}

func (l *Loop) loadSettings() {
	if l.store == nil {
		return
	}
	s, err := l.store.Load()
	switch {
	case errors.Is(err, settings.ErrNotFound):
		log.Printf("control: no saved settings, using defaults")
	case err != nil:
		log.Printf("control: load settings: %v (using defaults)", err)
		l.tracker.SetMessage("Load failed")
	default:
		l.settings = s
		log.Printf("control: loaded settings")
	}
}

// Tick runs one pass.
func (l *Loop) Tick(ctx context.Context) {
	now := l.clk.Now()

	l.act.Tick(now)

	if l.poll.Due(now) {
		l.pollSensors(ctx)
	}

	l.runRules(now)

	if l.errCheck.Due(now) {
		l.checkErrors(now)
	}

	l.publishOutputs()

	if l.display.Due(now) {
		l.refresh()
	}

	if l.cad.HeartbeatMs > 0 && l.heartbeat.Due(now) {
		l.sendHeartbeat()
	}
}

func (l *Loop) pollSensors(ctx context.Context) {
	rctx, cancel := context.WithTimeout(ctx, l.timeout)
	r, err := l.src.Read(rctx)
	cancel()

	if err != nil {
		if l.readErr == nil || l.readErr.Error() != err.Error() {
			log.Printf("sensors: read failed: %v", err)
		}
		r = failedReadings(l.readings)
	} else if l.readErr != nil {
		log.Printf("sensors: recovered")
	}
	l.readErr = err
	l.readings = r
	l.stampClock()
	l.polled = true
}

// failedReadings keeps the soil channel count of prev with every sensor
// marked down.
func failedReadings(prev logic.Readings) logic.Readings {
	return logic.Readings{Soil: make([]logic.SoilChannel, len(prev.Soil))}
}

func (l *Loop) stampClock() {
	t := l.wall.Now()
	l.readings.Time = t
	l.readings.RTCOK = t.Year() >= RTCValidYear
}

func (l *Loop) runRules(now clock.Tick) {
	var due logic.Rules
	if l.light.Due(now) {
		due |= logic.RuleLight
	}
	if l.fan.Due(now) {
		due |= logic.RuleFan
	}
	if l.schedule.Due(now) {
		due |= logic.RuleSchedule
	}
	if l.soil.Due(now) {
		due |= logic.RuleMoisture
	}
	if due == 0 || !l.polled {
		return
	}

	if due.Has(logic.RuleSchedule) {
		// The schedule compares against the current minute, not the last poll.
		l.stampClock()
	}

	cmd := logic.Decide(logic.Input{
		Readings:    l.readings,
		Settings:    l.settings,
		Outputs:     l.act.Outputs(),
		PumpRunning: l.act.IsPumpOn(),
		Fired:       l.fired,
	}, due)
	l.fired = cmd.Fired
	l.apply(cmd)
}

func (l *Loop) apply(cmd logic.Commands) {
	out := l.act.Outputs()
	if want := cmd.Light.Apply(out.Light); want != out.Light {
		log.Printf("auto: light %s", actuator.StateString(want))
		l.act.SetLight(want)
	}
	if want := cmd.Fan.Apply(out.Fan); want != out.Fan {
		log.Printf("auto: fan %s", actuator.StateString(want))
		l.act.SetFan(want)
	}
	if !cmd.StartsPump() {
		return
	}
	note := fmt.Sprintf("%s %d mL", cmd.PumpSource, cmd.PumpVolumeMl)
	if cmd.PumpSource == logic.PumpSchedule {
		note = fmt.Sprintf("schedule slot %d %d mL", cmd.PumpSlot+1, cmd.PumpVolumeMl)
	}
	log.Printf("auto: watering (%s)", note)
	l.startPump(cmd.PumpVolumeMl, note)
}

func (l *Loop) startPump(volumeMl uint16, note string) {
	if l.act.StartPump(volumeMl) {
		l.pumpNote = note
	}
}

func (l *Loop) checkErrors(now clock.Tick) {
	conds := logic.Conditions(l.readings, l.settings.Thresholds, l.tankCm)
	for _, tr := range l.monitor.Observe(conds, now) {
		ev := mqtt.Event{
			Timestamp: l.wall.Now(),
			Subject:   tr.Condition.Key(),
			Detail:    tr.Condition.String(),
		}
		if tr.Active {
			log.Printf("error: %s active", tr.Condition)
			l.counts.ErrorsRaised++
			l.act.Blink(errorBlinkCount, errorBlinkMs)
			ev.Type, ev.State = mqtt.EventErrorActive, string(logic.StateActive)
		} else {
			log.Printf("error: %s cleared", tr.Condition)
			ev.Type, ev.State = mqtt.EventErrorCleared, string(logic.StateClear)
		}
		l.publish(ev)
	}
}

// publishOutputs drains the actuator changes, counts them and publishes
// them. Indicator toggles are not published.
func (l *Loop) publishOutputs() {
	for _, e := range l.act.Drain() {
		if e.Channel == actuator.Indicator {
			continue
		}
		ev := mqtt.Event{
			Timestamp: l.wall.Now(),
			Type:      mqtt.EventOutput,
			Subject:   e.Channel.String(),
			State:     e.State(),
		}
		if e.On {
			switch e.Channel {
			case actuator.Light:
				l.counts.LightOn++
			case actuator.Fan:
				l.counts.FanOn++
			case actuator.Pump:
				l.counts.PumpRuns++
				ev.Detail = l.pumpNote
			}
		}
		l.publish(ev)
	}
}

func (l *Loop) publish(ev mqtt.Event) {
	if l.pub == nil {
		return
	}
	if err := l.pub.Publish(ev); err != nil {
		// Don't stop the loop on publish failure
		log.Printf("publish error: %v", err)
	}
}

// HandleInput applies one encoder event and carries out its effect.
func (l *Loop) HandleInput(ev menu.Event) {
	env := l.env()
	eff := l.menu.Handle(ev, &env)

	switch eff.Kind {
	case menu.EffectToggleLight:
		l.act.SetLight(!l.act.IsLightOn())
		log.Printf("manual: light %s", actuator.StateString(l.act.IsLightOn()))
	case menu.EffectToggleFan:
		l.act.SetFan(!l.act.IsFanOn())
		log.Printf("manual: fan %s", actuator.StateString(l.act.IsFanOn()))
	case menu.EffectStartPump:
		log.Printf("manual: watering %d mL", eff.VolumeMl)
		l.startPump(eff.VolumeMl, fmt.Sprintf("manual %d mL", eff.VolumeMl))
	case menu.EffectStopPump:
		log.Printf("manual: pump stop")
		l.act.StopPump()
	case menu.EffectSave:
		l.save()
	case menu.EffectSetClock:
		l.wall.Set(eff.Time)
		l.stampClock()
		log.Printf("clock: set to %s", eff.Time.Format(time.RFC3339))
		l.tracker.SetMessage("Clock set")
	case menu.EffectSettingChanged:
		log.Printf("settings: %s changed (preset=%s)", fieldName(eff.Field), l.settings.Preset)
		// Re-evaluate the climate rules against the new values on the next pass.
		now := l.clk.Now()
		l.light.Expire(now)
		l.fan.Expire(now)
	}

	l.publishOutputs()
	l.refresh()
}

func fieldName(id settings.FieldID) string {
	if id == "" {
		return "preset"
	}
	return string(id)
}

func (l *Loop) save() {
	if l.store == nil {
		l.tracker.SetMessage("Save failed")
		return
	}
	if err := l.store.Save(l.settings); err != nil {
		log.Printf("settings: save failed: %v", err)
		l.tracker.SetMessage("Save failed")
		return
	}
	log.Printf("settings: saved")
	l.counts.Saves++
	l.act.Blink(saveBlinkCount, saveBlinkMs)
	l.tracker.SetMessage("Saved")
	l.publish(mqtt.Event{
		Timestamp: l.wall.Now(),
		Type:      mqtt.EventSettings,
		Subject:   "SETTINGS",
		State:     "SAVED",
		Detail:    l.settings.Preset,
	})
}

func (l *Loop) env() menu.Env {
	return menu.Env{
		Settings: &l.settings,
		Now:      l.wall.Now(),
		Outputs:  l.act.Outputs(),
		Pump:     l.act.PumpJob(),
		Readings: l.readings,
		Errors:   l.monitor.Active(),
		Message:  l.tracker.Message(),
	}
}

// refresh re-renders the display and publishes the state to the tracker.
func (l *Loop) refresh() {
	env := l.env()
	l.lines = l.menu.Lines(&env)

	st := status.State{
		Outputs:  env.Outputs,
		Pump:     env.Pump,
		Readings: l.readings,
		Errors:   env.Errors,
		Lines:    l.lines,
		Settings: l.settings,
		Counts:   l.counts,
		Ready:    l.polled,
	}
	if l.readErr != nil {
		st.SensorError = l.readErr.Error()
	}
	l.lastState = st
	l.tracker.Update(st)
	if l.conn != nil {
		l.tracker.SetMQTTConnected(l.conn.IsConnected())
	}
}

func (l *Loop) sendHeartbeat() {
	if l.network != nil {
		if n := l.network(); n != nil {
			l.tracker.SetNetwork(n)
		}
	}
	l.refresh()
	snap := l.tracker.Snapshot()
	log.Printf("heartbeat: uptime=%v light_on=%d fan_on=%d pump_runs=%d errors=%d",
		snap.Uptime().Truncate(time.Second), l.counts.LightOn, l.counts.FanOn, l.counts.PumpRuns, len(snap.Errors))
	if l.pub == nil {
		return
	}
	ev := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
	}
	if err := l.pub.PublishSystem(ev); err != nil {
		log.Printf("heartbeat publish error: %v", err)
	}
}

// Shutdown switches every output off and publishes the final changes.
func (l *Loop) Shutdown() {
	l.act.AllOff()
	l.publishOutputs()
	l.refresh()
	log.Printf("control: outputs off")
}

// Settings returns a copy of the working settings.
func (l *Loop) Settings() settings.Settings {
	return l.settings
}

// Readings returns the latest readings.
func (l *Loop) Readings() logic.Readings {
	return l.readings
}

// Lines returns the last rendered display.
func (l *Loop) Lines() []string {
	return l.lines
}

// Counts returns the event totals since start.
func (l *Loop) Counts() status.Counts {
	return l.counts
}

// Menu returns the menu state machine.
func (l *Loop) Menu() *menu.Machine {
	return l.menu
}

// Errors returns the active errors, most recent first.
func (l *Loop) Errors() []logic.SystemError {
	return l.monitor.Active()
}

// State returns the state last pushed to the tracker.
func (l *Loop) State() status.State {
	return l.lastState
}
