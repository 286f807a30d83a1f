package toast

import (
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/lanify/monitor/internal/alert"
)

// Presenter turns an alert into a user-visible notification. Present must
// not block for long and never fails: an alert that cannot be shown is
// dropped.
type Presenter interface {
	Present(alert.Event)
}

// ActivationPresenter is a Presenter that also learns which monitoring
// activation received the alert, so its surface can discard alerts that
// belong to one it has already left.
type ActivationPresenter interface {
	Presenter
	PresentFor(activation uint64, ev alert.Event)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(alert.Event)

func (f PresenterFunc) Present(ev alert.Event) { f(ev) }

// Sender is the part of *tea.Program a ProgramPresenter needs.
type Sender interface {
	Send(tea.Msg)
}

// ProgramPresenter forwards alerts to a running Bubble Tea program as
// AlertMsg. Alerts arriving while no program is attached are dropped.
type ProgramPresenter struct {
	mu      sync.RWMutex
	target  Sender
	sent    atomic.Int64
	dropped atomic.Int64
}

func NewProgramPresenter() *ProgramPresenter {
	return &ProgramPresenter{}
}

// Attach makes s the surface alerts are sent to.
func (p *ProgramPresenter) Attach(s Sender) {
	p.mu.Lock()
	p.target = s
	p.mu.Unlock()
}

// Detach removes the current surface.
func (p *ProgramPresenter) Detach() {
	p.Attach(nil)
}

// Present sends ev untagged.
func (p *ProgramPresenter) Present(ev alert.Event) {
	p.PresentFor(0, ev)
}

// PresentFor sends ev tagged with the activation that received it.
func (p *ProgramPresenter) PresentFor(activation uint64, ev alert.Event) {
	p.mu.RLock()
	target := p.target
	p.mu.RUnlock()
	if target == nil {
		p.dropped.Add(1)
		return
	}
	target.Send(AlertMsg{Event: ev, Activation: activation})
	p.sent.Add(1)
}

// Sent counts alerts handed to the program.
func (p *ProgramPresenter) Sent() int64 { return p.sent.Load() }

// Dropped counts alerts discarded for lack of a surface.
func (p *ProgramPresenter) Dropped() int64 { return p.dropped.Load() }

// LogPresenter writes each alert as a log line. It backs headless watching.
type LogPresenter struct {
	log logrus.FieldLogger
}

func NewLogPresenter(log logrus.FieldLogger) *LogPresenter {
	return &LogPresenter{log: log}
}

func (p *LogPresenter) Present(ev alert.Event) {
	if p == nil || p.log == nil {
		return
	}
	fields := logrus.Fields{}
	if ev.VehicleID != "" {
		fields["vehicle"] = ev.VehicleID
	}
	if ev.Severity != "" {
		fields["severity"] = ev.Severity
	}
	if ev.LaneDeviation != 0 {
		fields["deviation"] = ev.LaneDeviation
	}
	p.log.WithFields(fields).Warn(ev.Message)
}
