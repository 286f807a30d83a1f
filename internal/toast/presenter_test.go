package toast

import (
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanify/monitor/internal/alert"
)

type fakeSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (f *fakeSender) Send(msg tea.Msg) {
	f.mu.Lock()
	f.msgs = append(f.msgs, msg)
	f.mu.Unlock()
}

func TestProgramPresenterForwardsInOrder(t *testing.T) {
	p := NewProgramPresenter()
	s := &fakeSender{}
	p.Attach(s)

	p.Present(alert.Event{Message: "first"})
	p.Present(alert.Event{Message: "second"})

	require.Len(t, s.msgs, 2)
	assert.Equal(t, "first", s.msgs[0].(AlertMsg).Event.Message)
	assert.Equal(t, "second", s.msgs[1].(AlertMsg).Event.Message)
	assert.Equal(t, int64(2), p.Sent())
	assert.Equal(t, int64(0), p.Dropped())
}

func TestProgramPresenterTagsActivation(t *testing.T) {
	p := NewProgramPresenter()
	s := &fakeSender{}
	p.Attach(s)

	var _ ActivationPresenter = p
	p.PresentFor(7, alert.Event{Message: "tagged"})
	p.Present(alert.Event{Message: "untagged"})

	require.Len(t, s.msgs, 2)
	assert.Equal(t, AlertMsg{Event: alert.Event{Message: "tagged"}, Activation: 7}, s.msgs[0])
	assert.Equal(t, uint64(0), s.msgs[1].(AlertMsg).Activation)
}

func TestProgramPresenterDropsWithoutSurface(t *testing.T) {
	p := NewProgramPresenter()
	p.Present(alert.Event{Message: "nobody home"})

	s := &fakeSender{}
	p.Attach(s)
	p.Detach()
	p.Present(alert.Event{Message: "still nobody"})

	assert.Empty(t, s.msgs)
	assert.Equal(t, int64(2), p.Dropped())
}

func TestLogPresenter(t *testing.T) {
	log, hook := test.NewNullLogger()
	p := NewLogPresenter(log)

	p.Present(alert.Event{Message: "Lane departure detected", VehicleID: "v1", Severity: alert.SeverityLow})

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "Lane departure detected", entry.Message)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "v1", entry.Data["vehicle"])
}

func TestPresenterFunc(t *testing.T) {
	var got []string
	var p Presenter = PresenterFunc(func(ev alert.Event) { got = append(got, ev.Message) })
	p.Present(alert.Event{Message: "x"})
	assert.Equal(t, []string{"x"}, got)
}
