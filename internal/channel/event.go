// Package channel implements the alert channel: one logical connection to a
// lanify feed server that delivers named events to registered handlers.
package channel

import (
	"errors"

	"github.com/lanify/monitor/internal/alert"
)

// EventType names an event a handler can subscribe to.
type EventType string

const (
	EventConnect      EventType = "connect"
	EventConnectError EventType = "connect_error"
	EventAlert        EventType = EventType(alert.MsgAlert)
)

// Events lists every event type the channel emits.
var Events = []EventType{EventConnect, EventConnectError, EventAlert}

var (
	// ErrConnectionLost wraps the read error of an established connection.
	ErrConnectionLost = errors.New("connection lost")
	// ErrNoTransport means no configured transport is known.
	ErrNoTransport = errors.New("no usable transport")
)

// Event is delivered to handlers. Which fields are set depends on Type:
// Transport for connect, Err and Attempt for connect_error, Alert for
// alertEvent.
type Event struct {
	Type      EventType
	Transport string
	Attempt   int
	Err       error
	Alert     alert.Event
	// Final marks the connect_error after which the channel goes dormant.
	Final bool
}

// Handler receives events on the channel's event loop.
type Handler func(Event)

// Registration identifies one handler added with On.
type Registration struct {
	Type EventType
	id   uint64
}

// State is the connection lifecycle as observed by callers.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateDormant // retries exhausted, no further automatic attempts
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDormant:
		return "dormant"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}
