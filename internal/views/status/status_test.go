package status

import (
	"errors"
	"strings"
	"testing"

	"github.com/lanify/monitor/internal/channel"
)

func TestObserve(t *testing.T) {
	m := New("http://localhost:5000")

	m.Observe(channel.Event{Type: channel.EventConnectError, Attempt: 2, Err: errors.New("refused")})
	if m.State != channel.StateConnecting || m.Attempt != 2 {
		t.Fatalf("after error: state=%s attempt=%d", m.State, m.Attempt)
	}

	m.Observe(channel.Event{Type: channel.EventConnect, Transport: "websocket"})
	if m.State != channel.StateConnected || m.Transport != "websocket" || m.Attempt != 0 {
		t.Fatalf("after connect: %+v", m)
	}

	m.Observe(channel.Event{Type: channel.EventConnectError, Attempt: 5, Final: true})
	if m.State != channel.StateDormant {
		t.Fatalf("state = %s, want dormant", m.State)
	}

	m.Alerts = 3
	m.Reset()
	if m.State != channel.StateIdle || m.Alerts != 3 {
		t.Errorf("reset: state=%s alerts=%d", m.State, m.Alerts)
	}
}

func TestView(t *testing.T) {
	tests := []struct {
		name string
		m    Model
		want []string
	}{
		{"connected", Model{State: channel.StateConnected, Transport: "polling", Alerts: 4}, []string{"connected via polling", "4 alerts"}},
		{"retrying", Model{State: channel.StateConnecting, Attempt: 3}, []string{"attempt 3 failed"}},
		{"dormant", Model{State: channel.StateDormant, Dropped: 2}, []string{"retries exhausted", "2 dropped"}},
		{"endpoint", Model{Endpoint: "http://feed:5000"}, []string{"idle", "http://feed:5000"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.m.Width = 120
			v := tt.m.View()
			for _, w := range tt.want {
				if !strings.Contains(v, w) {
					t.Errorf("view missing %q:\n%s", w, v)
				}
			}
		})
	}
}
