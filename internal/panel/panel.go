// Package panel is a terminal stand-in for the front panel: it draws the
// character LCD and the output LEDs from the status tracker and turns key
// presses into encoder events.
package panel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sweeney/growbox/internal/actuator"
	"github.com/sweeney/growbox/internal/menu"
	"github.com/sweeney/growbox/internal/status"
)

// RefreshInterval is how often the panel re-reads the tracker.
const RefreshInterval = 250 * time.Millisecond

var (
	lcdColor   = lipgloss.Color("#9CD3FF")
	lcdBg      = lipgloss.Color("#1E2A4A")
	onColor    = lipgloss.Color("#10B981")
	offColor   = lipgloss.Color("#6B7280")
	errorColor = lipgloss.Color("#EF4444")

	lcdStyle = lipgloss.NewStyle().
			Foreground(lcdColor).
			Background(lcdBg).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(offColor).
			Padding(0, 1)

	ledOnStyle  = lipgloss.NewStyle().Foreground(onColor).Bold(true)
	ledOffStyle = lipgloss.NewStyle().Foreground(offColor)
	errorStyle  = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(offColor).Italic(true)
)

type keyMap struct {
	CW    key.Binding
	CCW   key.Binding
	Click key.Binding
	Long  key.Binding
	Quit  key.Binding
}

var keys = keyMap{
	CW:    key.NewBinding(key.WithKeys("right", "down", "l", "j", "+"), key.WithHelp("→", "turn right")),
	CCW:   key.NewBinding(key.WithKeys("left", "up", "h", "k", "-"), key.WithHelp("←", "turn left")),
	Click: key.NewBinding(key.WithKeys("enter", "c"), key.WithHelp("enter", "click")),
	Long:  key.NewBinding(key.WithKeys("esc", "backspace"), key.WithHelp("esc", "long press")),
	Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type refreshMsg time.Time

// Model is the bubbletea model of the panel.
type Model struct {
	events  chan<- menu.Event
	tracker *status.Tracker
	lines   []string
	outputs actuator.Outputs
	errors  int
	dropped int
}

// New creates a panel sending encoder events on events.
func New(events chan<- menu.Event, tracker *status.Tracker) Model {
	return Model{events: events, tracker: tracker}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(refresh(m.tracker), tick())
}

func tick() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

type snapshotMsg status.Snapshot

func refresh(tr *status.Tracker) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(tr.Snapshot())
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.CW):
			m.send(menu.RotateCW)
		case key.Matches(msg, keys.CCW):
			m.send(menu.RotateCCW)
		case key.Matches(msg, keys.Click):
			m.send(menu.Click)
		case key.Matches(msg, keys.Long):
			m.send(menu.LongPress)
		}
		return m, nil

	case refreshMsg:
		return m, tea.Batch(refresh(m.tracker), tick())

	case snapshotMsg:
		m.lines = msg.Lines
		m.outputs = msg.Outputs
		m.errors = len(msg.Errors)
	}
	return m, nil
}

// send hands ev to the control loop without blocking the UI. An event the
// loop has no room for is dropped, like a missed encoder detent.
func (m *Model) send(ev menu.Event) {
	select {
	case m.events <- ev:
	default:
		m.dropped++
	}
}

// View implements tea.Model.
func (m Model) View() string {
	rows := make([]string, menu.Rows)
	for i := range rows {
		line := ""
		if i < len(m.lines) {
			line = m.lines[i]
		}
		rows[i] = padRight(line, menu.Cols)
	}

	var b strings.Builder
	b.WriteString(lcdStyle.Render(strings.Join(rows, "\n")))
	b.WriteString("\n")
	b.WriteString(led("LIGHT", m.outputs.Light) + "  " + led("FAN", m.outputs.Fan) + "  " +
		led("PUMP", m.outputs.Pump) + "  " + led("LED", m.outputs.Indicator))
	if m.errors > 0 {
		b.WriteString("  " + errorStyle.Render(plural(m.errors, "error")))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(helpLine()))
	b.WriteString("\n")
	return b.String()
}

func led(label string, on bool) string {
	if on {
		return ledOnStyle.Render("● " + label)
	}
	return ledOffStyle.Render("○ " + label)
}

func padRight(s string, n int) string {
	r := []rune(s)
	if len(r) >= n {
		return string(r[:n])
	}
	return s + strings.Repeat(" ", n-len(r))
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func helpLine() string {
	var parts []string
	for _, b := range []key.Binding{keys.CW, keys.CCW, keys.Click, keys.Long, keys.Quit} {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

// Run shows the panel until the user quits or ctx is cancelled.
func Run(ctx context.Context, events chan<- menu.Event, tracker *status.Tracker) error {
	p := tea.NewProgram(New(events, tracker), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}
