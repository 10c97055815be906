// Package menu is the front-panel menu: a table-driven state machine fed by
// rotary-encoder events. It edits settings in place and returns effects for
// the control loop to carry out; it never touches outputs itself.
package menu

import (
	"time"

	"github.com/sweeney/growbox/internal/actuator"
	"github.com/sweeney/growbox/internal/logic"
	"github.com/sweeney/growbox/internal/settings"
)

// Event is an encoder input.
type Event int

const (
	RotateCW Event = iota
	RotateCCW
	Click
	LongPress
)

func (e Event) String() string {
	switch e {
	case RotateCW:
		return "CW"
	case RotateCCW:
		return "CCW"
	case Click:
		return "CLICK"
	case LongPress:
		return "LONG"
	}
	return "UNKNOWN"
}

// EffectKind is something the menu asks the control loop to do.
type EffectKind int

const (
	EffectNone EffectKind = iota
	EffectToggleLight
	EffectToggleFan
	EffectStartPump
	EffectStopPump
	EffectSave
	EffectSetClock
	EffectSettingChanged
)

func (k EffectKind) String() string {
	switch k {
	case EffectToggleLight:
		return "toggle-light"
	case EffectToggleFan:
		return "toggle-fan"
	case EffectStartPump:
		return "start-pump"
	case EffectStopPump:
		return "stop-pump"
	case EffectSave:
		return "save"
	case EffectSetClock:
		return "set-clock"
	case EffectSettingChanged:
		return "setting-changed"
	}
	return "none"
}

// Effect is the result of handling one event.
type Effect struct {
	Kind     EffectKind
	VolumeMl uint16
	Time     time.Time
	Field    settings.FieldID
}

// Env is what the menu reads (and, for Settings, writes) while handling an
// event or rendering.
type Env struct {
	Settings *settings.Settings
	Now      time.Time
	Outputs  actuator.Outputs
	Pump     actuator.PumpJob
	Readings logic.Readings
	Errors   []logic.SystemError
	Message  string
}

// State is the navigation and editing state.
type State struct {
	Page      Page
	Cursor    uint8
	Editing   bool
	EditValue int32
	EditMin   int32
	EditMax   int32
	EditStep  int32
}

type frame struct {
	page   Page
	cursor uint8
}

// Machine is the menu state machine. It starts on Main, cursor 0, not editing.
type Machine struct {
	st    State
	stack []frame
}

// New creates a Machine in its initial state.
func New() *Machine {
	return &Machine{st: State{Page: Main}}
}

// State returns a copy of the current state.
func (m *Machine) State() State {
	return m.st
}

// Page returns the current page.
func (m *Machine) Page() Page {
	return m.st.Page
}

func (m *Machine) items() []Item {
	return pages[m.st.Page].Items
}

func (m *Machine) current() Item {
	return m.items()[m.st.Cursor]
}

// Handle applies one event.
func (m *Machine) Handle(ev Event, env *Env) Effect {
	if m.st.Editing {
		return m.handleEditing(ev, env)
	}

	switch ev {
	case RotateCW:
		if int(m.st.Cursor) < len(m.items())-1 {
			m.st.Cursor++
		}
	case RotateCCW:
		if m.st.Cursor > 0 {
			m.st.Cursor--
		}
	case LongPress:
		m.back()
	case Click:
		return m.activate(env)
	}
	return Effect{}
}

func (m *Machine) activate(env *Env) Effect {
	it := m.current()
	switch it.Kind {
	case Child:
		m.stack = append(m.stack, frame{page: m.st.Page, cursor: m.st.Cursor})
		m.st.Page = it.Child
		m.st.Cursor = 0
	case Back:
		m.back()
	case Field:
		lo, hi, step := it.bounds()
		m.st.Editing = true
		m.st.EditMin, m.st.EditMax, m.st.EditStep = lo, hi, step
		m.st.EditValue = clamp(it.value(env), lo, hi)
	case Action:
		return m.act(it, env)
	}
	return Effect{}
}

func (m *Machine) act(it Item, env *Env) Effect {
	switch it.Action {
	case ActToggleLight:
		return Effect{Kind: EffectToggleLight}
	case ActToggleFan:
		return Effect{Kind: EffectToggleFan}
	case ActWaterNow:
		return Effect{Kind: EffectStartPump, VolumeMl: env.Settings.Water.ManualVolumeMl}
	case ActStopPump:
		return Effect{Kind: EffectStopPump}
	case ActSave:
		return Effect{Kind: EffectSave}
	case ActPreset:
		env.Settings.ApplyPreset(settings.Presets[it.Preset])
		return Effect{Kind: EffectSettingChanged}
	}
	return Effect{}
}

func (m *Machine) handleEditing(ev Event, env *Env) Effect {
	switch ev {
	case RotateCW:
		m.st.EditValue = clamp(m.st.EditValue+m.st.EditStep, m.st.EditMin, m.st.EditMax)
	case RotateCCW:
		m.st.EditValue = clamp(m.st.EditValue-m.st.EditStep, m.st.EditMin, m.st.EditMax)
	case LongPress:
		m.st.Editing = false
	case Click:
		m.st.Editing = false
		return m.commit(m.current(), env)
	}
	return Effect{}
}

func (m *Machine) commit(it Item, env *Env) Effect {
	if it.Clock != ClockNone {
		return Effect{Kind: EffectSetClock, Time: it.Clock.apply(env.Now, m.st.EditValue)}
	}
	f, ok := settings.Lookup(it.Field)
	if !ok {
		return Effect{}
	}
	if f.Get(env.Settings) == m.st.EditValue {
		return Effect{}
	}
	f.Set(env.Settings, m.st.EditValue)
	if isThreshold(it.Field) {
		env.Settings.Preset = "Custom"
	}
	return Effect{Kind: EffectSettingChanged, Field: it.Field}
}

// back returns to the parent page with the cursor on the item that opened
// the child. On Main it does nothing.
func (m *Machine) back() {
	if m.st.Page == Main {
		return
	}
	parent := pages[m.st.Page].Parent
	cursor := uint8(0)
	if n := len(m.stack); n > 0 {
		top := m.stack[n-1]
		m.stack = m.stack[:n-1]
		if top.page == parent {
			cursor = top.cursor
		}
	}
	m.st.Page = parent
	m.st.Cursor = cursor
	m.st.Editing = false
}

func clamp(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
