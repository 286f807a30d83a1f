package toast

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanify/monitor/internal/alert"
)

func TestPushKeepsArrivalOrder(t *testing.T) {
	m := New(time.Minute, 10)
	for _, msg := range []string{"a", "b", "b", "c"} {
		m.Push(alert.Event{Message: msg})
	}
	assert.Equal(t, []string{"a", "b", "b", "c"}, m.Messages())
	assert.Equal(t, 4, m.Shown())
}

func TestOverflowDismissesOldest(t *testing.T) {
	m := New(time.Minute, 3)
	for i := 1; i <= 5; i++ {
		m.Push(alert.Event{Message: fmt.Sprintf("alert %d", i)})
	}
	assert.Equal(t, []string{"alert 3", "alert 4", "alert 5"}, m.Messages())
	assert.Equal(t, 5, m.Shown())
}

func TestToastExpires(t *testing.T) {
	m := New(time.Millisecond, 3)
	cmd := m.Push(alert.Event{Message: "short lived"})
	require.NotNil(t, cmd)

	msg := cmd()
	expire, ok := msg.(ExpireMsg)
	require.True(t, ok, "expected ExpireMsg, got %T", msg)

	m.Update(expire)
	assert.Empty(t, m.Visible())
	assert.Equal(t, "", m.View())
}

func TestExpireUnknownIDIsNoop(t *testing.T) {
	m := New(time.Minute, 3)
	m.Push(alert.Event{Message: "stays"})
	m.Update(ExpireMsg{ID: 999})
	assert.Equal(t, []string{"stays"}, m.Messages())
}

func TestUpdateAlertMsg(t *testing.T) {
	m := New(time.Minute, 3)
	cmd := m.Update(AlertMsg{Event: alert.Event{Message: "via update"}})
	assert.NotNil(t, cmd)
	assert.Equal(t, []string{"via update"}, m.Messages())
}

func TestViewShowsExactMessage(t *testing.T) {
	m := New(time.Minute, 3)
	m.Push(alert.Event{
		Message:    "Lane departure detected",
		VehicleID:  "truck-7",
		Severity:   alert.SeverityHigh,
		ReceivedAt: time.Now(),
	})
	v := m.View()
	assert.Contains(t, v, "Lane departure detected")
	assert.Contains(t, v, "truck-7")
	assert.True(t, strings.Contains(v, "now") || strings.Contains(v, "ago"), v)
}
