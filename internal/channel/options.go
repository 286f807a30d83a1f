package channel

import (
	"time"

	"github.com/lanify/monitor/internal/config"
)

// Transport names accepted in Options.Transports.
const (
	TransportWebSocket = "websocket"
	TransportPolling   = "polling"
)

// Options tunes how the channel connects and reconnects.
type Options struct {
	// Transports in order of preference. Each attempt tries them in turn.
	Transports []string
	// ReconnectionAttempts caps consecutive failed attempts. Zero still
	// allows the first attempt.
	ReconnectionAttempts int
	// Timeout bounds a single connection attempt.
	Timeout              time.Duration
	ReconnectionDelay    time.Duration
	ReconnectionDelayMax time.Duration
	// PollWait is how long a polling request may be held open by the server.
	PollWait time.Duration
	Token    string
}

// DefaultOptions mirrors the canonical monitoring view: websocket only,
// five attempts, ten second timeout.
func DefaultOptions() Options {
	return Options{
		Transports:           []string{TransportWebSocket},
		ReconnectionAttempts: 5,
		Timeout:              10 * time.Second,
		ReconnectionDelay:    time.Second,
		ReconnectionDelayMax: 5 * time.Second,
		PollWait:             25 * time.Second,
	}
}

// OptionsFromConfig builds Options from the client section of the config.
func OptionsFromConfig(cfg config.ClientConfig) Options {
	opts := DefaultOptions()
	if len(cfg.Transports) > 0 {
		opts.Transports = append([]string(nil), cfg.Transports...)
	}
	opts.ReconnectionAttempts = cfg.ReconnectionAttempts
	if cfg.Timeout > 0 {
		opts.Timeout = cfg.Timeout
	}
	if cfg.ReconnectionDelay > 0 {
		opts.ReconnectionDelay = cfg.ReconnectionDelay
	}
	if cfg.ReconnectionDelayMax > 0 {
		opts.ReconnectionDelayMax = cfg.ReconnectionDelayMax
	}
	opts.Token = cfg.Token
	return opts
}

func (o Options) maxAttempts() int {
	return max(1, o.ReconnectionAttempts)
}
