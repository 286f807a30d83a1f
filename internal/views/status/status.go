package status

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/lanify/monitor/internal/channel"
	"github.com/lanify/monitor/internal/theme"
)

// Model holds the status bar state.
type Model struct {
	State     channel.State
	Transport string
	Attempt   int
	Alerts    int
	Dropped   int
	Endpoint  string
	Width     int
}

// New creates a status bar model.
func New(endpoint string) Model {
	return Model{Endpoint: endpoint}
}

// Observe folds a connect or connect_error event into the bar.
func (m *Model) Observe(ev channel.Event) {
	switch ev.Type {
	case channel.EventConnect:
		m.State = channel.StateConnected
		m.Transport = ev.Transport
		m.Attempt = 0
	case channel.EventConnectError:
		m.Transport = ""
		if ev.Attempt > 0 {
			m.Attempt = ev.Attempt
		}
		if ev.Final {
			m.State = channel.StateDormant
		} else {
			m.State = channel.StateConnecting
		}
	}
}

// Reset returns the bar to idle, keeping the alert counters.
func (m *Model) Reset() {
	m.State = channel.StateIdle
	m.Transport = ""
	m.Attempt = 0
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	state := m.State.String()
	label := state
	switch m.State {
	case channel.StateConnected:
		label = "connected via " + m.Transport
	case channel.StateConnecting:
		if m.Attempt > 0 {
			label = fmt.Sprintf("reconnecting (attempt %d failed)", m.Attempt)
		} else {
			label = "connecting..."
		}
	case channel.StateDormant:
		label = "offline, retries exhausted"
	}
	connStr := lipgloss.NewStyle().Foreground(theme.StateColor(state)).
		Render(theme.StateGlyph(state) + " " + label)

	counts := fmt.Sprintf("%d alerts", m.Alerts)
	if m.Dropped > 0 {
		counts += fmt.Sprintf("  %d dropped", m.Dropped)
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := connStr + sep + counts
	if m.Endpoint != "" {
		content += sep + theme.StyleDimmed.Render(m.Endpoint)
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}
