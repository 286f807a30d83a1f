package debug

import (
	"errors"
	"strings"
	"testing"

	"github.com/lanify/monitor/internal/alert"
	"github.com/lanify/monitor/internal/channel"
)

func TestAddEntry(t *testing.T) {
	m := New()
	m.Add(KindNav, "monitoring")
	if len(m.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(m.Entries))
	}
	if m.Entries[0].Kind != KindNav {
		t.Errorf("expected kind %q, got %q", KindNav, m.Entries[0].Kind)
	}
}

func TestMaxEntries(t *testing.T) {
	m := New()
	for i := 0; i < maxEntries+50; i++ {
		m.Add(KindConn, "msg")
	}
	if len(m.Entries) != maxEntries {
		t.Errorf("expected %d entries, got %d", maxEntries, len(m.Entries))
	}
}

func TestAddEvent(t *testing.T) {
	tests := []struct {
		name     string
		ev       channel.Event
		wantKind string
		want     string
	}{
		{"connect", channel.Event{Type: channel.EventConnect, Transport: "websocket"}, KindConn, "connected via websocket"},
		{"error", channel.Event{Type: channel.EventConnectError, Attempt: 2, Err: errors.New("refused")}, KindErr, "connect_error attempt 2: refused"},
		{"final", channel.Event{Type: channel.EventConnectError, Attempt: 5, Err: errors.New("refused"), Final: true}, KindErr, "connect_error attempt 5: refused (giving up)"},
		{"alert", channel.Event{Type: channel.EventAlert, Alert: alert.Event{Message: "Lane departure detected"}}, KindAlert, "Lane departure detected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			m.AddEvent(tt.ev)
			if len(m.Entries) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(m.Entries))
			}
			e := m.Entries[0]
			if e.Kind != tt.wantKind || e.Message != tt.want {
				t.Errorf("got %s %q, want %s %q", e.Kind, e.Message, tt.wantKind, tt.want)
			}
		})
	}
}

func TestScrollUpDown(t *testing.T) {
	m := New()
	for i := 0; i < 20; i++ {
		m.Add(KindConn, "msg")
	}

	m.ScrollUp(5)
	if m.Offset != 5 {
		t.Errorf("expected offset 5, got %d", m.Offset)
	}
	m.ScrollDown(3)
	if m.Offset != 2 {
		t.Errorf("expected offset 2, got %d", m.Offset)
	}
	m.ScrollDown(10)
	if m.Offset != 0 {
		t.Errorf("expected offset 0, got %d", m.Offset)
	}

	m.ScrollUp(100)
	if m.Offset != 19 {
		t.Errorf("expected offset capped at 19, got %d", m.Offset)
	}
	m.Add(KindConn, "new")
	if m.Offset != 0 {
		t.Error("adding entry should reset scroll to 0")
	}
}

func TestView(t *testing.T) {
	m := New()
	if v := m.View(80, 20); !strings.Contains(v, "No events") {
		t.Error("empty view should show 'No events' message")
	}

	m.Add(KindConn, "connected")
	m.Add(KindErr, "timeout")
	v := m.View(80, 20)
	for _, want := range []string{"connected", "timeout"} {
		if !strings.Contains(v, want) {
			t.Errorf("view should contain %q", want)
		}
	}
}
