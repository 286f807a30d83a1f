package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lanify/monitor/internal/alert"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

type wsTransport struct{}

func (wsTransport) Name() string { return TransportWebSocket }

func (wsTransport) Dial(ctx context.Context, endpoint string, opts Options) (Stream, error) {
	target, err := socketURL(endpoint)
	if err != nil {
		return nil, err
	}
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: opts.Timeout,
	}
	conn, resp, err := dialer.DialContext(ctx, target, authHeader(opts.Token))
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", target, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}

	s := &wsStream{conn: conn, closed: make(chan struct{})}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	conn.SetReadDeadline(time.Now().Add(pongTimeout))
	go s.pingLoop()
	return s, nil
}

type wsStream struct {
	conn    *websocket.Conn
	writeMu sync.Mutex // serialises pings with the close frame
	watch   sync.Once
	closed  chan struct{}
	close   sync.Once
}

func (s *wsStream) Next(ctx context.Context) (alert.Envelope, error) {
	s.watch.Do(func() {
		go func() {
			select {
			case <-ctx.Done():
				s.conn.Close()
			case <-s.closed:
			}
		}()
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return alert.Envelope{}, ctx.Err()
			}
			return alert.Envelope{}, err
		}
		var env alert.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			continue
		}
		return env, nil
	}
}

// pingLoop keeps the read deadline alive until the stream is closed.
func (s *wsStream) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.closed:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (s *wsStream) Close() error {
	var err error
	s.close.Do(func() {
		close(s.closed)
		s.writeMu.Lock()
		s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}
