// Package app is the root Bubble Tea model: it routes between the landing
// page and the monitoring view and binds the alert channel to the latter.
package app

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lanify/monitor/internal/channel"
	"github.com/lanify/monitor/internal/config"
	"github.com/lanify/monitor/internal/lifecycle"
	"github.com/lanify/monitor/internal/theme"
	"github.com/lanify/monitor/internal/toast"
	"github.com/lanify/monitor/internal/views/debug"
	"github.com/lanify/monitor/internal/views/landing"
	"github.com/lanify/monitor/internal/views/monitoring"
	"github.com/lanify/monitor/internal/views/status"
)

// Route identifies the page on screen.
type Route int

const (
	RouteHome Route = iota
	RouteMonitoring
)

func (r Route) String() string {
	if r == RouteMonitoring {
		return "monitoring"
	}
	return "home"
}

// Binder is the part of *lifecycle.Binder the app drives.
type Binder interface {
	Activate(ctx context.Context) *lifecycle.Token
	Deactivate(tok *lifecycle.Token)
}

// ConnectionMsg carries a connect or connect_error event into the program.
// Activation is the ID of the activation whose channel produced it.
type ConnectionMsg struct {
	Event      channel.Event
	Activation uint64
}

// Observer returns a lifecycle observer that forwards connection events to
// send, typically (*tea.Program).Send.
func Observer(send func(tea.Msg)) lifecycle.Observer {
	return func(id uint64, ev channel.Event) {
		send(ConnectionMsg{Event: ev, Activation: id})
	}
}

// Model is the root Bubble Tea model.
type Model struct {
	binder Binder
	ctx    context.Context
	keys   KeyMap

	width  int
	height int

	route     Route
	token     *lifecycle.Token
	released  *lifecycle.Token
	showDebug bool

	landing   landing.Model
	monitor   monitoring.Model
	toasts    toast.Model
	statusBar status.Model
	debug     debug.Model
}

// New creates the root model on the landing page.
func New(ctx context.Context, binder Binder, cfg config.ClientConfig) Model {
	return Model{
		binder:    binder,
		ctx:       ctx,
		keys:      DefaultKeyMap(),
		landing:   landing.New(),
		monitor:   monitoring.New(),
		toasts:    toast.New(cfg.ToastDuration, cfg.MaxToasts),
		statusBar: status.New(cfg.Endpoint),
		debug:     debug.New(),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Route reports the page on screen.
func (m Model) Route() Route { return m.route }

// Token is the active monitoring activation, or nil.
func (m Model) Token() *lifecycle.Token { return m.token }

// Released is the most recently deactivated token. After quitting, callers
// wait on its Closed channel so the channel can say goodbye to the server.
func (m Model) Released() *lifecycle.Token { return m.released }

// current reports whether a message tagged with activation belongs to the
// monitoring view on screen.
func (m Model) current(activation uint64) bool {
	return m.route == RouteMonitoring && m.token.Active() && activation == m.token.ID()
}

// Toasts exposes the toast stack for inspection.
func (m Model) Toasts() toast.Model { return m.toasts }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.monitor.Width = msg.Width
		m.toasts.Width = min(msg.Width/2, 48)
		m.landing.SetWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case toast.AlertMsg:
		if !m.current(msg.Activation) {
			// Sent before the view was left.
			m.statusBar.Dropped++
			return m, nil
		}
		m.statusBar.Alerts++
		m.debug.AddEvent(channel.Event{Type: channel.EventAlert, Alert: msg.Event})
		cmd := tea.Batch(m.toasts.Push(msg.Event), m.monitor.Nudge(msg.Event))
		return m, cmd

	case toast.ExpireMsg:
		cmd := m.toasts.Update(msg)
		return m, cmd

	case monitoring.FrameMsg:
		cmd := m.monitor.Update(msg)
		return m, cmd

	case ConnectionMsg:
		if !m.current(msg.Activation) {
			return m, nil
		}
		m.statusBar.Observe(msg.Event)
		m.debug.AddEvent(msg.Event)
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.stopMonitoring()
		return m, tea.Quit
	}

	if m.showDebug {
		switch {
		case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Debug):
			m.showDebug = false
		case key.Matches(msg, m.keys.Up):
			m.debug.ScrollUp(1)
		case key.Matches(msg, m.keys.Down):
			m.debug.ScrollDown(1)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Debug):
		m.showDebug = true

	case key.Matches(msg, m.keys.Dismiss):
		m.toasts.Clear()

	case key.Matches(msg, m.keys.Start):
		if m.route == RouteHome {
			m.startMonitoring()
		}

	case key.Matches(msg, m.keys.Back):
		if m.route == RouteMonitoring {
			m.stopMonitoring()
		}

	case key.Matches(msg, m.keys.Toggle):
		if m.route == RouteHome {
			m.startMonitoring()
		} else {
			m.stopMonitoring()
		}
	}
	return m, nil
}

func (m *Model) startMonitoring() {
	m.route = RouteMonitoring
	m.monitor.Reset()
	m.statusBar.Reset()
	m.statusBar.State = channel.StateConnecting
	m.debug.Add(debug.KindNav, "monitoring")
	m.token = m.binder.Activate(m.ctx)
}

func (m *Model) stopMonitoring() {
	if m.token != nil {
		m.binder.Deactivate(m.token)
		m.released = m.token
		m.token = nil
	}
	if m.route == RouteMonitoring {
		m.debug.Add(debug.KindNav, "home")
	}
	m.route = RouteHome
	m.toasts.Clear()
	m.statusBar.Reset()
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var body string
	switch {
	case m.showDebug:
		body = m.debug.View(m.width, m.height-4)
	case m.route == RouteMonitoring:
		body = m.monitor.View()
	default:
		body = m.landing.View()
	}

	sections := []string{m.statusBar.View(), body}
	if t := m.toasts.View(); t != "" {
		sections = append(sections, lipgloss.PlaceHorizontal(m.width, lipgloss.Right, t))
	}
	sections = append(sections, theme.StyleDimmed.Render(m.help()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) help() string {
	if m.showDebug {
		return helpLine(m.keys.Up, m.keys.Down, m.keys.Back)
	}
	if m.route == RouteMonitoring {
		return helpLine(m.keys.Back, m.keys.Dismiss, m.keys.Debug, m.keys.Quit)
	}
	return helpLine(m.keys.Start, m.keys.Debug, m.keys.Quit)
}
