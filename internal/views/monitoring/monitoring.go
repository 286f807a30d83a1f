// Package monitoring draws the lane view: a road with a car that is
// knocked off-centre by every alert and springs back.
package monitoring

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/lanify/monitor/internal/alert"
	"github.com/lanify/monitor/internal/theme"
)

const (
	fps         = 30
	roadRows    = 7
	maxRoadW    = 61
	minRoadW    = 21
	settleEps   = 0.01
	baseImpulse = 2.0
)

// FrameMsg advances the car animation by one frame.
type FrameMsg time.Time

func frame() tea.Cmd {
	return tea.Tick(time.Second/fps, func(t time.Time) tea.Msg { return FrameMsg(t) })
}

// Model is the monitoring view. Offset is in lane half-widths: -1 is the
// left line, 1 the right.
type Model struct {
	Width int

	spring    harmonica.Spring
	offset    float64
	velocity  float64
	animating bool
	tick      int

	alerts int
	last   alert.Event

	now func() time.Time
}

func New() Model {
	return Model{
		spring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 0.35),
		now:    time.Now,
	}
}

// Nudge pushes the car sideways for ev and starts the animation if it is
// not already running.
func (m *Model) Nudge(ev alert.Event) tea.Cmd {
	m.alerts++
	m.last = ev
	if m.last.ReceivedAt.IsZero() {
		m.last.ReceivedAt = m.clock()
	}

	dir := 1.0
	if m.alerts%2 == 0 {
		dir = -1
	}
	m.velocity += dir * (baseImpulse + 0.4*float64(ev.Severity.Weight()))

	if m.animating {
		return nil
	}
	m.animating = true
	return frame()
}

// Update steps the spring on FrameMsg and keeps ticking until it settles.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(FrameMsg); !ok || !m.animating {
		return nil
	}
	m.tick++
	m.offset, m.velocity = m.spring.Update(m.offset, m.velocity, 0)
	if math.Abs(m.offset) < settleEps && math.Abs(m.velocity) < settleEps {
		m.offset, m.velocity = 0, 0
		m.animating = false
		return nil
	}
	return frame()
}

// Reset clears the counters when monitoring starts again.
func (m *Model) Reset() {
	m.offset, m.velocity = 0, 0
	m.animating = false
	m.alerts = 0
	m.last = alert.Event{}
}

func (m Model) Alerts() int     { return m.alerts }
func (m Model) Offset() float64 { return m.offset }
func (m Model) Animating() bool { return m.animating }

func (m Model) clock() time.Time {
	if m.now == nil {
		return time.Now()
	}
	return m.now()
}

func (m Model) View() string {
	roadW := maxRoadW
	if m.Width > 0 {
		roadW = min(max(m.Width-8, minRoadW), maxRoadW)
	}
	if roadW%2 == 0 {
		roadW--
	}

	edge := lipgloss.NewStyle().Foreground(theme.ColorShoulder)
	marking := lipgloss.NewStyle().Foreground(theme.ColorLaneLine)
	carColor := theme.ColorCar
	if m.animating {
		carColor = theme.ColorCarAlert
	}
	car := lipgloss.NewStyle().Foreground(carColor).Bold(true)

	half := roadW / 2
	clamped := math.Max(-1, math.Min(1, m.offset))
	carCol := half + int(math.Round(clamped*float64(half-2)))

	var rows []string
	for r := 0; r < roadRows; r++ {
		cells := make([]string, roadW)
		for c := range cells {
			cells[c] = " "
		}
		if (r+m.tick)%2 == 0 {
			cells[half] = marking.Render("¦")
		}
		if r == roadRows-2 {
			cells[carCol-1] = car.Render("[")
			cells[carCol] = car.Render("█")
			cells[carCol+1] = car.Render("]")
		}
		rows = append(rows, edge.Render("│")+strings.Join(cells, "")+edge.Render("│"))
	}

	road := lipgloss.NewStyle().Background(theme.ColorAsphalt).Render(strings.Join(rows, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, road, "", m.summary())
}

func (m Model) summary() string {
	if m.alerts == 0 {
		return theme.StyleDimmed.Render("No alerts since monitoring started.")
	}
	count := fmt.Sprintf("%d alert", m.alerts)
	if m.alerts != 1 {
		count += "s"
	}
	last := lipgloss.NewStyle().Foreground(theme.SeverityColor(string(m.last.Severity))).Render(m.last.Message)
	age := humanize.RelTime(m.last.ReceivedAt, m.clock(), "ago", "from now")
	return theme.StyleHeader.Render(count) + "  last: " + last + theme.StyleDimmed.Render(" ("+age+")")
}
