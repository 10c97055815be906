package menu

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/sweeney/growbox/internal/actuator"
	"github.com/sweeney/growbox/internal/logic"
	"github.com/sweeney/growbox/internal/settings"
)

func newEnv() *Env {
	s := settings.Defaults()
	return &Env{
		Settings: &s,
		Now:      time.Date(2026, 6, 1, 12, 30, 0, 0, time.UTC),
	}
}

// goTo clicks through the Main items at the given cursor positions.
func goTo(t *testing.T, m *Machine, env *Env, cursors ...int) {
	t.Helper()
	for _, c := range cursors {
		for m.State().Cursor < uint8(c) {
			m.Handle(RotateCW, env)
		}
		m.Handle(Click, env)
	}
}

func TestInitialState(t *testing.T) {
	m := New()
	st := m.State()
	if st.Page != Main || st.Cursor != 0 || st.Editing {
		t.Errorf("unexpected initial state %+v", st)
	}
}

func TestCursorSaturates(t *testing.T) {
	m := New()
	env := newEnv()

	m.Handle(RotateCCW, env)
	if got := m.State().Cursor; got != 0 {
		t.Fatalf("RotateCCW at 0: cursor %d", got)
	}

	n := len(pages[Main].Items)
	for i := 0; i < n+5; i++ {
		m.Handle(RotateCW, env)
	}
	if got := int(m.State().Cursor); got != n-1 {
		t.Errorf("cursor after overshoot: got %d, want %d", got, n-1)
	}
}

func TestEditMaxTempClamps(t *testing.T) {
	m := New()
	env := newEnv()
	env.Settings.Thresholds.MaxTemp = 38

	goTo(t, m, env, 4, 1, 1) // Settings > Thresholds > Max temp
	st := m.State()
	if !st.Editing {
		t.Fatalf("expected editing, state %+v", st)
	}
	if st.EditValue != 38 || st.EditMin != 18 || st.EditMax != 40 || st.EditStep != 1 {
		t.Fatalf("edit seeded wrong: %+v", st)
	}

	m.Handle(RotateCW, env)
	m.Handle(RotateCW, env)
	m.Handle(RotateCW, env)
	eff := m.Handle(Click, env)

	if env.Settings.Thresholds.MaxTemp != 40 {
		t.Errorf("MaxTemp: got %d, want 40", env.Settings.Thresholds.MaxTemp)
	}
	if eff.Kind != EffectSettingChanged || eff.Field != settings.MaxTemp {
		t.Errorf("effect: %+v", eff)
	}
	if m.State().Editing {
		t.Error("click should leave editing")
	}
	if env.Settings.Preset != "Custom" {
		t.Errorf("editing a threshold should mark the preset custom, got %q", env.Settings.Preset)
	}
}

func TestEditCommitWithinRange(t *testing.T) {
	m := New()
	env := newEnv()
	goTo(t, m, env, 4, 1, 1)
	for i := 0; i < 3; i++ {
		m.Handle(RotateCW, env)
	}
	m.Handle(Click, env)
	if got := env.Settings.Thresholds.MaxTemp; got != 31 {
		t.Errorf("got %d, want 31", got)
	}
}

func TestLongPressCancelsEdit(t *testing.T) {
	m := New()
	env := newEnv()
	goTo(t, m, env, 4, 1, 0) // Min temp
	m.Handle(RotateCCW, env)
	m.Handle(RotateCCW, env)
	eff := m.Handle(LongPress, env)

	if eff.Kind != EffectNone {
		t.Errorf("cancel should not emit, got %+v", eff)
	}
	if env.Settings.Thresholds.MinTemp != 18 {
		t.Errorf("MinTemp changed on cancel: %d", env.Settings.Thresholds.MinTemp)
	}
	st := m.State()
	if st.Editing || st.Page != Thresholds {
		t.Errorf("cancel should stay on page, not editing: %+v", st)
	}
}

func TestLongPressReturnsToParent(t *testing.T) {
	m := New()
	env := newEnv()
	goTo(t, m, env, 4, 2) // Settings > Schedule

	if m.Page() != Schedule {
		t.Fatalf("page: %s", m.Page())
	}
	m.Handle(LongPress, env)
	if st := m.State(); st.Page != Settings || st.Cursor != 2 {
		t.Errorf("back to Settings: %+v", st)
	}
	m.Handle(LongPress, env)
	if st := m.State(); st.Page != Main || st.Cursor != 4 {
		t.Errorf("back to Main: %+v", st)
	}
	m.Handle(LongPress, env)
	if st := m.State(); st.Page != Main || st.Cursor != 4 {
		t.Errorf("long press on Main should do nothing: %+v", st)
	}
}

func TestBackItem(t *testing.T) {
	m := New()
	env := newEnv()
	goTo(t, m, env, 1) // Fan
	goTo(t, m, env, len(pages[FanControl].Items)-1)
	if st := m.State(); st.Page != Main || st.Cursor != 1 {
		t.Errorf("Back item: %+v", st)
	}
}

func TestManualToggles(t *testing.T) {
	m := New()
	env := newEnv()
	goTo(t, m, env, 0)
	m.Handle(RotateCW, env)
	if eff := m.Handle(Click, env); eff.Kind != EffectToggleLight {
		t.Errorf("light toggle: %+v", eff)
	}

	m.Handle(LongPress, env)
	goTo(t, m, env, 1, 1)
	if m.Page() != FanControl {
		t.Fatalf("page: %s", m.Page())
	}
}

func TestWaterNowUsesManualVolume(t *testing.T) {
	m := New()
	env := newEnv()
	env.Settings.Water.ManualVolumeMl = 250
	goTo(t, m, env, 2, 1)
	// goTo clicked Water now already.
	m.Handle(RotateCW, env)
	if eff := m.Handle(Click, env); eff.Kind != EffectStopPump {
		t.Errorf("stop: %+v", eff)
	}

	m2 := New()
	m2.Handle(RotateCW, env)
	m2.Handle(RotateCW, env)
	m2.Handle(Click, env)
	m2.Handle(RotateCW, env)
	eff := m2.Handle(Click, env)
	if eff.Kind != EffectStartPump || eff.VolumeMl != 250 {
		t.Errorf("water now: %+v", eff)
	}
}

func TestSaveEffect(t *testing.T) {
	m := New()
	env := newEnv()
	goTo(t, m, env, 4)
	for i := 0; i < 5; i++ {
		m.Handle(RotateCW, env)
	}
	if eff := m.Handle(Click, env); eff.Kind != EffectSave {
		t.Errorf("save: %+v", eff)
	}
}

func TestPresetApplies(t *testing.T) {
	m := New()
	env := newEnv()
	goTo(t, m, env, 4, 4)   // Settings > Presets
	m.Handle(RotateCW, env) // Tomato
	eff := m.Handle(Click, env)
	if eff.Kind != EffectSettingChanged {
		t.Errorf("preset effect: %+v", eff)
	}
	if env.Settings.Preset != "Tomato" || env.Settings.Thresholds.MaxTemp != 29 {
		t.Errorf("preset not applied: %+v", env.Settings.Thresholds)
	}
}

func TestSetClock(t *testing.T) {
	m := New()
	env := newEnv()
	goTo(t, m, env, 4, 0, 0) // Settings > Date/Time > Hour
	if st := m.State(); st.EditValue != 12 || st.EditMax != 23 {
		t.Fatalf("hour edit: %+v", st)
	}
	m.Handle(RotateCW, env)
	eff := m.Handle(Click, env)
	want := time.Date(2026, 6, 1, 13, 30, 0, 0, time.UTC)
	if eff.Kind != EffectSetClock || !eff.Time.Equal(want) {
		t.Errorf("set clock: %+v", eff)
	}
}

func TestClockDayClampedToMonth(t *testing.T) {
	now := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)
	got := ClockMonth.apply(now, 2)
	want := time.Date(2026, 2, 28, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestUnchangedCommitIsQuiet(t *testing.T) {
	m := New()
	env := newEnv()
	goTo(t, m, env, 4, 1, 0)
	if eff := m.Handle(Click, env); eff.Kind != EffectNone {
		t.Errorf("unchanged commit: %+v", eff)
	}
	if env.Settings.Preset != "Default" {
		t.Errorf("preset: %q", env.Settings.Preset)
	}
}

func TestEveryChildPageHasItemsAndParent(t *testing.T) {
	for p, def := range pages {
		if len(def.Items) == 0 {
			t.Errorf("%s: no items", p)
		}
		for _, it := range def.Items {
			if it.Kind == Child {
				if pages[it.Child].Parent != p {
					t.Errorf("%s -> %s: parent is %s", p, it.Child, pages[it.Child].Parent)
				}
			}
			if it.Kind == Field && it.Clock == ClockNone {
				if _, ok := settings.Lookup(it.Field); !ok {
					t.Errorf("%s: undeclared field %s", p, it.Field)
				}
			}
		}
	}
}

func TestLines(t *testing.T) {
	m := New()
	env := newEnv()
	lines := m.Lines(env)
	if len(lines) != Rows {
		t.Fatalf("got %d lines", len(lines))
	}
	if lines[0] != "Main Menu" || lines[1] != "> Light >" || lines[2] != "  Fan >" {
		t.Errorf("main page: %q", lines)
	}

	for i := 0; i < 5; i++ {
		m.Handle(RotateCW, env)
	}
	lines = m.Lines(env)
	if lines[3] != "> Auto mode >" {
		t.Errorf("scrolled: %q", lines)
	}

	env.Message = "Saved"
	if lines = m.Lines(env); lines[3] != "Saved" {
		t.Errorf("message: %q", lines)
	}
}

func TestLinesEditingAndInfo(t *testing.T) {
	m := New()
	env := newEnv()
	env.Outputs = actuator.Outputs{Light: true}
	goTo(t, m, env, 0)
	if lines := m.Lines(env); lines[1] != "> Light: ON" {
		t.Errorf("info: %q", lines)
	}

	m.Handle(LongPress, env)
	goTo(t, m, env, 4, 1, 1)
	lines := m.Lines(env)
	if lines[1] != "Max temp" || lines[2] != "> 28C <" || lines[3] != "18C..40C" {
		t.Errorf("editing: %q", lines)
	}

	for _, l := range lines {
		if len(l) > Cols {
			t.Errorf("line too long: %q", l)
		}
	}
}

func TestErrorsPage(t *testing.T) {
	m := New()
	env := newEnv()
	env.Errors = []logic.SystemError{{Condition: logic.Condition{Kind: logic.ErrWaterEmpty}, State: logic.StateActive}}
	goTo(t, m, env, 6)
	lines := m.Lines(env)
	if !strings.Contains(lines[1], "Active: 1") || !strings.Contains(lines[2], "Water empty") {
		t.Errorf("errors page: %q", lines)
	}
}

func TestLinesTruncateByRune(t *testing.T) {
	m := New()
	env := newEnv()
	env.Message = "Température élevée: 31°C"
	lines := m.Lines(env)
	got := lines[Rows-1]
	if !utf8.ValidString(got) {
		t.Fatalf("truncated line is not valid UTF-8: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != Cols {
		t.Errorf("got %d runes, want %d: %q", n, Cols, got)
	}
	if got != "Température élevée: " {
		t.Errorf("got %q", got)
	}
}
