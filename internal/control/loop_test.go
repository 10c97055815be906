package control

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/growbox/internal/actuator"
	"github.com/sweeney/growbox/internal/clock"
	"github.com/sweeney/growbox/internal/gpio"
	"github.com/sweeney/growbox/internal/logic"
	"github.com/sweeney/growbox/internal/menu"
	"github.com/sweeney/growbox/internal/mqtt"
	"github.com/sweeney/growbox/internal/sensors"
	"github.com/sweeney/growbox/internal/settings"
	"github.com/sweeney/growbox/internal/status"
	"github.com/sweeney/growbox/internal/store"
)

type harness struct {
	loop    *Loop
	clk     *clock.FakeClock
	now     time.Time
	act     *actuator.Manager
	gpio    *gpio.FakeWriter
	src     *sensors.Fake
	store   *store.Memory
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
}

func healthy() logic.Readings {
	return logic.Readings{
		Temperature:     24,
		Humidity:        55,
		AirQuality:      20,
		Lux:             8000,
		Soil:            []logic.SoilChannel{{Percent: 60, OK: true}, {Percent: 60, OK: true}},
		WaterDistanceCm: 10,
		LightOK:         true,
		ClimateOK:       true,
		AirQualityOK:    true,
		WaterLevelOK:    true,
	}
}

func newHarness(t *testing.T, wall time.Time, r logic.Readings, cad Cadences) *harness {
	t.Helper()
	h := &harness{
		clk:     clock.NewFakeClock(0),
		now:     wall,
		gpio:    gpio.NewFakeWriter(),
		src:     sensors.NewFake(r),
		store:   store.NewMemory(),
		pub:     mqtt.NewFakePublisher(),
		tracker: status.NewTracker(wall, "boot-1", status.Config{}),
	}
	h.act = actuator.NewManager(h.gpio, h.clk, 100)
	h.loop = New(Deps{
		Clock:        h.clk,
		Wall:         clock.NewWall(func() time.Time { return h.now }),
		Actuators:    h.act,
		Sensors:      h.src,
		Store:        h.store,
		Publisher:    h.pub,
		Connection:   h.pub,
		Tracker:      h.tracker,
		Cadences:     cad,
		TankHeightCm: 30,
	})
	return h
}

func (h *harness) start() {
	h.loop.Start()
	h.loop.Tick(context.Background())
}

// step advances both clocks by ms and runs one pass.
func (h *harness) step(ms uint32) {
	h.clk.Advance(ms)
	h.now = h.now.Add(time.Duration(ms) * time.Millisecond)
	h.loop.Tick(context.Background())
}

func (h *harness) input(evs ...menu.Event) {
	for _, ev := range evs {
		h.loop.HandleInput(ev)
	}
}

func (h *harness) outputEvents(subject string) []mqtt.Event {
	var out []mqtt.Event
	for _, e := range h.pub.EventsOfType(mqtt.EventOutput) {
		if e.Subject == subject {
			out = append(out, e)
		}
	}
	return out
}

func repeat(ev menu.Event, n int) []menu.Event {
	out := make([]menu.Event, n)
	for i := range out {
		out[i] = ev
	}
	return out
}

var noon = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func TestFirstPassPollsAndDecides(t *testing.T) {
	h := newHarness(t, noon, healthy(), Cadences{})
	h.start()

	if h.src.Reads() != 1 {
		t.Errorf("reads: got %d, want 1", h.src.Reads())
	}
	if !h.act.IsLightOn() {
		t.Error("light should be on inside the 06:00-22:00 window")
	}
	if h.act.IsFanOn() || h.act.IsPumpOn() {
		t.Errorf("unexpected outputs: %+v", h.act.Outputs())
	}

	ev := h.outputEvents("LIGHT")
	if len(ev) != 1 || ev[0].State != "ON" || !ev[0].Timestamp.Equal(noon) {
		t.Errorf("light events: %+v", ev)
	}
	if h.loop.Counts().LightOn != 1 {
		t.Errorf("LightOn: got %d", h.loop.Counts().LightOn)
	}

	r := h.loop.Readings()
	if !r.RTCOK || !r.Time.Equal(noon) {
		t.Errorf("clock stamp: %v %v", r.Time, r.RTCOK)
	}

	snap := h.tracker.Snapshot()
	if !snap.Ready || len(snap.Lines) != menu.Rows || snap.Lines[0] != "Main Menu" {
		t.Errorf("tracker: ready=%v lines=%q", snap.Ready, snap.Lines)
	}
}

func TestMoistureWatering(t *testing.T) {
	r := healthy()
	r.Soil = []logic.SoilChannel{{Percent: 30, OK: true}, {Percent: 90, OK: false}}
	h := newHarness(t, noon, r, Cadences{})
	h.start()

	if !h.act.IsPumpOn() {
		t.Fatal("pump should start when the healthy soil average is below the minimum")
	}
	ev := h.outputEvents("PUMP")
	if len(ev) != 1 || ev[0].Detail != "moisture 100 mL" {
		t.Errorf("pump events: %+v", ev)
	}
	if job := h.act.PumpJob(); job.DurationMs != 60000 {
		t.Errorf("duration: got %d", job.DurationMs)
	}
}

func TestScheduleFiresOncePerMinute(t *testing.T) {
	h := newHarness(t, time.Date(2026, 6, 1, 13, 59, 50, 0, time.UTC), healthy(), Cadences{})
	h.start()
	if h.act.IsPumpOn() {
		t.Fatal("pump on before the slot")
	}

	h.step(15000) // 14:00:05
	if !h.act.IsPumpOn() {
		t.Fatal("slot 2 (14:00) should have fired")
	}

	// Schedule checks at :20, :35, :50 of the same minute must not refire.
	for i := 0; i < 3; i++ {
		h.step(15000)
	}
	if got := h.loop.Counts().PumpRuns; got != 1 {
		t.Errorf("PumpRuns: got %d, want 1", got)
	}

	// 150 mL at 100 mL/min is 90 s.
	for i := 0; i < 3; i++ {
		h.step(15000)
	}
	if h.act.IsPumpOn() {
		t.Error("pump should have stopped after 90 s")
	}

	ev := h.outputEvents("PUMP")
	if len(ev) != 2 || ev[0].State != "ON" || ev[1].State != "OFF" {
		t.Fatalf("pump events: %+v", ev)
	}
	if ev[0].Detail != "schedule slot 2 150 mL" {
		t.Errorf("detail: %q", ev[0].Detail)
	}
}

func TestErrorActivatesAfterDebounce(t *testing.T) {
	r := healthy()
	r.WaterDistanceCm = 35
	h := newHarness(t, noon, r, Cadences{})
	h.start()

	h.step(5000)
	if len(h.pub.EventsOfType(mqtt.EventErrorActive)) != 0 {
		t.Fatal("error active before the debounce time")
	}

	h.step(5000)
	active := h.pub.EventsOfType(mqtt.EventErrorActive)
	if len(active) != 1 || active[0].Subject != "WATER_EMPTY" || active[0].Detail != "Water empty" {
		t.Fatalf("active events: %+v", active)
	}
	if !h.act.IsBlinking() || !h.act.IsIndicatorOn() {
		t.Error("activation should start the indicator blinking")
	}
	if len(h.outputEvents("INDICATOR")) != 0 {
		t.Error("indicator toggles should not be published")
	}
	if errs := h.loop.Errors(); len(errs) != 1 || errs[0].Kind != logic.ErrWaterEmpty {
		t.Errorf("errors: %+v", errs)
	}
	if h.loop.Counts().ErrorsRaised != 1 {
		t.Errorf("ErrorsRaised: got %d", h.loop.Counts().ErrorsRaised)
	}

	h.src.Update(func(r *logic.Readings) { r.WaterDistanceCm = 10 })
	h.step(5000)
	cleared := h.pub.EventsOfType(mqtt.EventErrorCleared)
	if len(cleared) != 1 || cleared[0].State != "CLEAR" {
		t.Errorf("cleared events: %+v", cleared)
	}
	if len(h.loop.Errors()) != 0 {
		t.Error("error should be gone")
	}
}

func TestSensorFailure(t *testing.T) {
	h := newHarness(t, noon, healthy(), Cadences{})
	h.src.Fail(errors.New("read timeout"))
	h.start()

	r := h.loop.Readings()
	if r.ClimateOK || r.LightOK || r.AirQualityOK || r.WaterLevelOK {
		t.Errorf("failed read should mark every sensor down: %+v", r)
	}
	if !r.RTCOK {
		t.Error("the wall clock does not depend on the sensor source")
	}
	if got := h.tracker.Snapshot().SensorError; got != "read timeout" {
		t.Errorf("SensorError: got %q", got)
	}

	h.src.Set(healthy())
	h.step(5000)
	if !h.loop.Readings().ClimateOK || h.tracker.Snapshot().SensorError != "" {
		t.Error("should recover on the next good read")
	}
}

func TestSaveFromMenu(t *testing.T) {
	h := newHarness(t, noon, healthy(), Cadences{})
	h.start()

	h.input(repeat(menu.RotateCW, 4)...)
	h.input(menu.Click) // Settings
	h.input(repeat(menu.RotateCW, 5)...)
	h.input(menu.Click) // Save

	if h.store.Saves != 1 {
		t.Errorf("Saves: got %d", h.store.Saves)
	}
	if got := h.tracker.Message(); got != "Saved" {
		t.Errorf("message: got %q", got)
	}
	if ev := h.pub.EventsOfType(mqtt.EventSettings); len(ev) != 1 || ev[0].Detail != "Default" {
		t.Errorf("settings events: %+v", ev)
	}
	if !h.act.IsBlinking() {
		t.Error("save should blink the indicator")
	}
	if lines := h.loop.Lines(); lines[menu.Rows-1] != "Saved" {
		t.Errorf("display: %q", lines)
	}
}

func TestSaveFailureKeepsSettings(t *testing.T) {
	h := newHarness(t, noon, healthy(), Cadences{})
	h.store.SaveErr = errors.New("disk full")
	h.start()

	h.input(repeat(menu.RotateCW, 4)...)
	h.input(menu.Click)
	h.input(repeat(menu.RotateCW, 5)...)
	h.input(menu.Click)

	if got := h.tracker.Message(); got != "Save failed" {
		t.Errorf("message: got %q", got)
	}
	if h.loop.Counts().Saves != 0 {
		t.Error("failed save counted")
	}
}

func TestManualWaterNow(t *testing.T) {
	h := newHarness(t, noon, healthy(), Cadences{})
	h.start()

	h.input(menu.RotateCW, menu.RotateCW, menu.Click) // Water
	h.input(menu.RotateCW, menu.Click)                // Water now

	if !h.act.IsPumpOn() {
		t.Fatal("pump should run")
	}
	if ev := h.outputEvents("PUMP"); len(ev) != 1 || ev[0].Detail != "manual 100 mL" {
		t.Errorf("pump events: %+v", ev)
	}

	h.input(menu.RotateCW, menu.Click) // Stop pump
	if h.act.IsPumpOn() {
		t.Error("stop pump should close it")
	}
}

func TestManualToggleLight(t *testing.T) {
	h := newHarness(t, noon, healthy(), Cadences{})
	h.start()

	h.input(menu.Click, menu.RotateCW, menu.Click) // Light > Toggle
	if h.act.IsLightOn() {
		t.Error("toggle should switch the light off")
	}
	if ev := h.outputEvents("LIGHT"); len(ev) != 2 || ev[1].State != "OFF" {
		t.Errorf("light events: %+v", ev)
	}
}

func TestUnsetClockSkipsTimeRules(t *testing.T) {
	h := newHarness(t, time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC), healthy(), Cadences{})
	h.start()

	if h.loop.Readings().RTCOK {
		t.Fatal("year 2000 should not be trusted")
	}
	if h.act.IsLightOn() {
		t.Fatal("time-window light needs a valid clock")
	}

	h.input(repeat(menu.RotateCW, 4)...)
	h.input(menu.Click, menu.Click) // Settings > Date/Time
	h.input(repeat(menu.RotateCW, 4)...)
	h.input(menu.Click) // Year
	h.input(repeat(menu.RotateCW, 26)...)
	h.input(menu.Click)

	r := h.loop.Readings()
	if !r.RTCOK || r.Time.Year() != 2026 {
		t.Fatalf("clock not set: %v", r.Time)
	}
	if got := h.tracker.Message(); got != "Clock set" {
		t.Errorf("message: got %q", got)
	}

	h.step(30000)
	if !h.act.IsLightOn() {
		t.Error("light should follow the window once the clock is valid")
	}
}

func TestLoadsSavedSettings(t *testing.T) {
	h := newHarness(t, noon, healthy(), Cadences{})
	saved := settings.Defaults()
	saved.Automation.Enabled = false
	saved.Preset = "Tomato"
	if err := h.store.Save(saved); err != nil {
		t.Fatal(err)
	}
	h.start()

	if got := h.loop.Settings(); got.Automation.Enabled || got.Preset != "Tomato" {
		t.Errorf("settings not loaded: %+v", got.Automation)
	}
	if h.act.IsLightOn() {
		t.Error("automation is off, light must stay off")
	}
}

func TestLoadFailureFallsBackToDefaults(t *testing.T) {
	h := newHarness(t, noon, healthy(), Cadences{})
	h.store.LoadErr = errors.New("corrupt")
	h.start()

	if got := h.loop.Settings(); got.Preset != "Default" {
		t.Errorf("preset: got %q", got.Preset)
	}
	if got := h.tracker.Message(); got != "Load failed" {
		t.Errorf("message: got %q", got)
	}
}

func TestHeartbeat(t *testing.T) {
	cad := DefaultCadences()
	cad.HeartbeatMs = 60000
	h := newHarness(t, noon, healthy(), cad)
	h.pub.Connected = true
	h.start()

	for i := 0; i < 11; i++ {
		h.step(5000)
	}
	if len(h.pub.SystemEvents) != 0 {
		t.Fatalf("heartbeat too early: %+v", h.pub.SystemEvents)
	}
	h.step(5000)
	if len(h.pub.SystemEvents) != 1 || h.pub.SystemEvents[0].Event != "HEARTBEAT" {
		t.Fatalf("system events: %+v", h.pub.SystemEvents)
	}
	payload := string(h.pub.SystemPayloads[0])
	if !strings.Contains(payload, `"event":"HEARTBEAT"`) || !strings.Contains(payload, `"connected":true`) {
		t.Errorf("payload: %s", payload)
	}
}

func TestPublishFailureDoesNotStopLoop(t *testing.T) {
	h := newHarness(t, noon, healthy(), Cadences{})
	h.pub.PublishError = errors.New("offline")
	h.start()

	if !h.act.IsLightOn() {
		t.Error("outputs must still follow the rules")
	}
	if h.loop.Counts().LightOn != 1 {
		t.Error("counts must still advance")
	}
}

func TestShutdown(t *testing.T) {
	h := newHarness(t, noon, healthy(), Cadences{})
	h.start()
	h.input(menu.RotateCW, menu.RotateCW, menu.Click, menu.RotateCW, menu.Click)

	h.loop.Shutdown()
	if out := h.act.Outputs(); out != (actuator.Outputs{}) {
		t.Errorf("outputs after shutdown: %+v", out)
	}
	if ev := h.outputEvents("LIGHT"); ev[len(ev)-1].State != "OFF" {
		t.Errorf("light events: %+v", ev)
	}
	if h.gpio.Levels[actuator.Pump] {
		t.Error("pump line still high")
	}
}

func TestPumpTimeoutServicedBeforeRules(t *testing.T) {
	r := healthy()
	r.Soil = []logic.SoilChannel{{Percent: 20, OK: true}, {Percent: 25, OK: true}}
	h := newHarness(t, noon, r, Cadences{})
	h.start()
	if !h.act.IsPumpOn() {
		t.Fatal("dry soil should start the pump on the first pass")
	}

	// 100 mL at 100 mL/min runs 60 s; the next soil check is due on the
	// same pass the job times out.
	for i := 0; i < 11; i++ {
		h.step(5000)
	}
	if !h.act.IsPumpOn() {
		t.Fatal("pump stopped before its 60 s run")
	}

	h.step(5000) // 60 s
	if !h.act.IsPumpOn() {
		t.Fatal("moisture rule should start a fresh job once the timeout has stopped the old one")
	}
	if job := h.act.PumpJob(); job.RemainingMs != 60000 {
		t.Errorf("fresh job remaining: got %d, want 60000", job.RemainingMs)
	}
	var states []string
	for _, e := range h.outputEvents("PUMP") {
		states = append(states, e.State)
	}
	if strings.Join(states, ",") != "ON,OFF,ON" {
		t.Errorf("pump events: %v", states)
	}
	if h.loop.Counts().PumpRuns != 2 {
		t.Errorf("PumpRuns: got %d", h.loop.Counts().PumpRuns)
	}

	// Soil is wet now; the second automatic run is stopped by its timeout.
	h.src.Update(func(r *logic.Readings) {
		r.Soil = []logic.SoilChannel{{Percent: 70, OK: true}, {Percent: 75, OK: true}}
	})
	for i := 0; i < 12; i++ {
		h.step(5000)
	}
	if h.act.IsPumpOn() {
		t.Error("second run should have timed out")
	}
	states = states[:0]
	for _, e := range h.outputEvents("PUMP") {
		states = append(states, e.State)
	}
	if strings.Join(states, ",") != "ON,OFF,ON,OFF" {
		t.Errorf("pump events: %v", states)
	}
}
