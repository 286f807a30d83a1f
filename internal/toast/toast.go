// Package toast renders alerts as transient, auto-dismissing notifications
// and provides the presenters that feed them.
package toast

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/lanify/monitor/internal/alert"
	"github.com/lanify/monitor/internal/theme"
)

// AlertMsg asks the UI to show a toast for Event. Activation is the ID of
// the monitoring activation that received it, or 0 when unknown.
type AlertMsg struct {
	Event      alert.Event
	Activation uint64
}

// ExpireMsg dismisses the toast with the given ID.
type ExpireMsg struct{ ID uint64 }

// Toast is one visible notification.
type Toast struct {
	ID      uint64
	Event   alert.Event
	ShownAt time.Time
}

// Model is the toast stack. Toasts are kept in arrival order.
type Model struct {
	Duration time.Duration
	Max      int
	Width    int

	toasts []Toast
	next   uint64
	shown  int
	now    func() time.Time
}

// New creates a toast stack that keeps each toast for d and shows at most
// limit at once.
func New(d time.Duration, limit int) Model {
	if limit <= 0 {
		limit = 1
	}
	return Model{Duration: d, Max: limit, now: time.Now}
}

// Push shows ev and returns the command that will dismiss it. When the stack
// is full the oldest toast is dismissed early.
func (m *Model) Push(ev alert.Event) tea.Cmd {
	m.next++
	id := m.next
	m.toasts = append(m.toasts, Toast{ID: id, Event: ev, ShownAt: m.clock()})
	m.shown++
	if len(m.toasts) > m.Max {
		m.toasts = m.toasts[len(m.toasts)-m.Max:]
	}
	return tea.Tick(m.Duration, func(time.Time) tea.Msg {
		return ExpireMsg{ID: id}
	})
}

// Dismiss removes the toast with id, if still visible.
func (m *Model) Dismiss(id uint64) {
	for i, t := range m.toasts {
		if t.ID == id {
			m.toasts = append(m.toasts[:i:i], m.toasts[i+1:]...)
			return
		}
	}
}

// Clear removes every visible toast.
func (m *Model) Clear() {
	m.toasts = nil
}

// Update handles AlertMsg and ExpireMsg; other messages are ignored.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case AlertMsg:
		return m.Push(msg.Event)
	case ExpireMsg:
		m.Dismiss(msg.ID)
	}
	return nil
}

// Visible returns the toasts currently on screen, oldest first.
func (m Model) Visible() []Toast {
	return append([]Toast(nil), m.toasts...)
}

// Messages returns the text of the visible toasts, oldest first.
func (m Model) Messages() []string {
	out := make([]string, len(m.toasts))
	for i, t := range m.toasts {
		out[i] = t.Event.Message
	}
	return out
}

// Shown counts every toast ever pushed.
func (m Model) Shown() int { return m.shown }

// View renders the stack, or "" when empty.
func (m Model) View() string {
	if len(m.toasts) == 0 {
		return ""
	}
	width := m.Width
	if width <= 0 || width > 48 {
		width = 48
	}

	boxes := make([]string, 0, len(m.toasts))
	for _, t := range m.toasts {
		boxes = append(boxes, m.renderToast(t, width))
	}
	return lipgloss.JoinVertical(lipgloss.Right, boxes...)
}

func (m Model) renderToast(t Toast, width int) string {
	color := theme.SeverityColor(string(t.Event.Severity))

	title := lipgloss.NewStyle().Bold(true).Foreground(color).Render("⚠ " + t.Event.Message)

	var meta []string
	if t.Event.VehicleID != "" {
		meta = append(meta, t.Event.VehicleID)
	}
	if t.Event.LaneDeviation != 0 {
		meta = append(meta, fmt.Sprintf("%+.2fm", t.Event.LaneDeviation))
	}
	at := t.Event.ReceivedAt
	if at.IsZero() {
		at = t.ShownAt
	}
	meta = append(meta, humanize.RelTime(at, m.clock(), "ago", "from now"))

	body := lipgloss.JoinVertical(lipgloss.Left,
		title,
		theme.StyleDimmed.Render(strings.Join(meta, " · ")),
	)
	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Render(body)
}

func (m Model) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}
