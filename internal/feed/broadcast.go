// Package feed is the lanify alert feed server: REST ingestion of dashcam
// alerts and real-time fan-out to monitoring clients over websocket or
// long-polling.
package feed

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/lanify/monitor/internal/alert"
)

const writeWait = 10 * time.Second

type client struct {
	conn *websocket.Conn
	b    *Broadcaster
	send chan []byte
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.b.RemoveClient(c)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Broadcaster assigns sequence numbers to published alerts, pushes them to
// websocket clients and keeps a bounded backlog for long-polling clients.
type Broadcaster struct {
	pubMu sync.Mutex // one publish at a time keeps per-client order equal to seq order

	mu      sync.RWMutex
	clients map[*client]bool
	seq     uint64
	backlog []alert.Envelope
	limit   int
	wake    chan struct{}

	metrics *Metrics
	log     logrus.FieldLogger
}

func NewBroadcaster(backlog int, metrics *Metrics, log logrus.FieldLogger) *Broadcaster {
	if backlog <= 0 {
		backlog = 256
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Broadcaster{
		clients: make(map[*client]bool),
		limit:   backlog,
		wake:    make(chan struct{}),
		metrics: metrics,
		log:     log,
	}
}

func (b *Broadcaster) AddClient(conn *websocket.Conn) *client {
	c := &client{
		conn: conn,
		b:    b,
		send: make(chan []byte, 64),
	}
	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()
	b.metrics.Clients.Inc()

	go c.writePump()
	return c
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
		b.metrics.Clients.Dec()
	}
	b.mu.Unlock()
}

// Publish sends ev to every client as the next alertEvent.
func (b *Broadcaster) Publish(ev alert.Event) (alert.Envelope, error) {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	b.mu.Lock()
	env, err := alert.NewEnvelope(b.seq+1, ev)
	if err != nil {
		b.mu.Unlock()
		return alert.Envelope{}, err
	}
	data, err := json.Marshal(env)
	if err != nil {
		b.mu.Unlock()
		return alert.Envelope{}, err
	}
	b.seq = env.Seq
	b.backlog = append(b.backlog, env)
	if len(b.backlog) > b.limit {
		b.backlog = b.backlog[len(b.backlog)-b.limit:]
	}
	close(b.wake)
	b.wake = make(chan struct{})

	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.mu.Unlock()

	for _, c := range clients {
		select {
		case c.send <- data:
		default:
			b.log.Warn("ws client too slow, disconnecting")
			b.metrics.Evicted.Inc()
			b.RemoveClient(c)
		}
	}
	b.metrics.Published.Inc()
	return env, nil
}

// Seq returns the sequence number of the latest published alert.
func (b *Broadcaster) Seq() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seq
}

// Since returns backlog entries newer than after, waiting up to wait for one
// to arrive. An after beyond the current sequence (the server restarted) is
// treated as zero. Entries that already fell out of the backlog are lost.
func (b *Broadcaster) Since(ctx context.Context, after uint64, wait time.Duration) []alert.Envelope {
	var timeout <-chan time.Time
	if wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		timeout = t.C
	}

	for {
		b.mu.RLock()
		if after > b.seq {
			after = 0
		}
		var out []alert.Envelope
		for _, env := range b.backlog {
			if env.Seq > after {
				out = append(out, env)
			}
		}
		wake := b.wake
		b.mu.RUnlock()

		if len(out) > 0 || timeout == nil {
			return out
		}
		select {
		case <-wake:
		case <-ctx.Done():
			return nil
		case <-timeout:
			return nil
		}
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Close disconnects every websocket client.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	for c := range b.clients {
		delete(b.clients, c)
		close(c.send)
		b.metrics.Clients.Dec()
	}
	b.mu.Unlock()
}
