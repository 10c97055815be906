package menu

import (
	"fmt"

	"github.com/sweeney/growbox/internal/settings"
)

// Display geometry of the character LCD.
const (
	Rows = 4
	Cols = 20
)

// Lines renders the current page as Rows lines of at most Cols characters.
// A transient message, when set, replaces the last line.
func (m *Machine) Lines(env *Env) []string {
	def := pages[m.st.Page]
	lines := make([]string, 0, Rows)

	if m.st.Editing {
		it := m.current()
		lines = append(lines,
			def.Title,
			it.label(),
			"> "+formatValue(it, m.st.EditValue)+" <",
			fmt.Sprintf("%s..%s", formatValue(it, m.st.EditMin), formatValue(it, m.st.EditMax)),
		)
	} else {
		lines = append(lines, def.Title)
		top := 0
		if c := int(m.st.Cursor); c >= Rows-1 {
			top = c - (Rows - 2)
		}
		for i := top; i < len(def.Items) && len(lines) < Rows; i++ {
			marker := "  "
			if i == int(m.st.Cursor) {
				marker = "> "
			}
			lines = append(lines, marker+def.Items[i].text(env))
		}
	}

	for len(lines) < Rows {
		lines = append(lines, "")
	}
	if env.Message != "" {
		lines[Rows-1] = env.Message
	}
	for i, l := range lines {
		if r := []rune(l); len(r) > Cols {
			lines[i] = string(r[:Cols])
		}
	}
	return lines
}

func (it Item) label() string {
	if it.Label != "" {
		return it.Label
	}
	if f, ok := settings.Lookup(it.Field); ok {
		return f.Label
	}
	return string(it.Field)
}

func (it Item) text(env *Env) string {
	switch it.Kind {
	case Info:
		return it.Text(env)
	case Field:
		return it.label() + ": " + formatValue(it, it.value(env))
	case Child:
		return it.Label + " >"
	}
	return it.label()
}

func formatValue(it Item, v int32) string {
	switch {
	case it.Clock == ClockMinute || it.Clock == ClockHour:
		return fmt.Sprintf("%02d", v)
	case it.Clock != ClockNone:
		return fmt.Sprintf("%d", v)
	case it.Field == settings.LightKindField:
		return settings.LightKind(v).String()
	}
	if f, ok := settings.Lookup(it.Field); ok {
		return f.Format(v)
	}
	return fmt.Sprintf("%d", v)
}
