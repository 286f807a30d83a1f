package channel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/lanify/monitor/internal/alert"
)

// Transport opens streams of envelopes from a feed server.
type Transport interface {
	Name() string
	// Dial connects within ctx. The returned stream outlives ctx.
	Dial(ctx context.Context, endpoint string, opts Options) (Stream, error)
}

// Stream yields envelopes in the order the server sent them.
type Stream interface {
	Next(ctx context.Context) (alert.Envelope, error)
	Close() error
}

func transportFor(name string) (Transport, error) {
	switch name {
	case TransportWebSocket:
		return wsTransport{}, nil
	case TransportPolling:
		return pollTransport{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoTransport, name)
}

// socketURL derives the websocket URL from an endpoint such as
// http://localhost:5000 → ws://localhost:5000/ws.
func socketURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/ws") {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	}
	return u.String(), nil
}

// httpBase derives the REST base URL from an endpoint, dropping a trailing /ws.
func httpBase(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "ws", "":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/ws"), "/")
	u.RawQuery = ""
	return u.String(), nil
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
