package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/lanify/monitor/internal/alert"
)

// Client is one logical connection to a feed server. Handlers run on a
// single event loop goroutine, so they never run concurrently with each
// other and see events in the order the server sent them.
type Client struct {
	endpoint   string
	opts       Options
	log        logrus.FieldLogger
	handlers   *registry
	transports []Transport

	mu       sync.Mutex
	state    State
	attempts int
	started  bool
	cancel   context.CancelFunc
	done     chan struct{}
	doneOnce sync.Once
}

// New creates an idle client for endpoint. Nothing is dialled until Connect.
// Unknown transport names are dropped; if none remain every attempt fails
// with ErrNoTransport.
func New(endpoint string, opts Options, log logrus.FieldLogger) *Client {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	c := &Client{
		endpoint: endpoint,
		opts:     opts,
		log:      log.WithField("endpoint", endpoint),
		handlers: newRegistry(),
		done:     make(chan struct{}),
	}
	for _, name := range opts.Transports {
		t, err := transportFor(name)
		if err != nil {
			c.log.WithError(err).Warn("ignoring transport")
			continue
		}
		c.transports = append(c.transports, t)
	}
	return c
}

// On registers h for every future occurrence of t. Handlers of one type are
// invoked in registration order.
func (c *Client) On(t EventType, h Handler) Registration {
	return c.handlers.add(t, h)
}

// Off removes every handler for t. It is a no-op when none exist.
func (c *Client) Off(t EventType) {
	c.handlers.removeAll(t)
}

// Remove drops the single handler identified by reg.
func (c *Client) Remove(reg Registration) {
	c.handlers.remove(reg)
}

// HandlerCount returns how many handlers are registered for the given types,
// or for all types when none are given.
func (c *Client) HandlerCount(types ...EventType) int {
	return c.handlers.count(types...)
}

// Connect starts the event loop in the background and returns immediately.
// The outcome is reported through connect and connect_error events.
// Calling Connect again, or after Close, does nothing.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true
	ctx, c.cancel = context.WithCancel(ctx)
	go c.run(ctx)
}

// Close stops the event loop and waits for it to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	cancel := c.cancel
	c.started = true
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-c.done
	} else {
		c.doneOnce.Do(func() { close(c.done) })
	}
	c.setState(StateClosed)
	return nil
}

// Done is closed once the event loop has exited, either because the client
// was closed or because it went dormant.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// State reports where the connection is in its lifecycle.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts reports how many connection attempts have been made.
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

func (c *Client) Endpoint() string { return c.endpoint }

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) run(ctx context.Context) {
	defer c.doneOnce.Do(func() { close(c.done) })

	bo := c.newBackOff()
	failures := 0
	for {
		if ctx.Err() != nil {
			c.setState(StateClosed)
			return
		}

		c.setState(StateConnecting)
		stream, transport, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.setState(StateClosed)
				return
			}
			failures++
			c.log.WithError(err).WithField("attempt", failures).Warn("alert channel connect failed")
			final := failures >= c.opts.maxAttempts()
			c.emit(Event{Type: EventConnectError, Attempt: failures, Err: err, Final: final})
			if final {
				c.setState(StateDormant)
				c.log.WithField("attempts", failures).Warn("alert channel giving up")
				return
			}
			if !sleep(ctx, bo.NextBackOff()) {
				c.setState(StateClosed)
				return
			}
			continue
		}

		failures = 0
		bo.Reset()
		c.setState(StateConnected)
		c.log.WithField("transport", transport).Info("alert channel connected")
		c.emit(Event{Type: EventConnect, Transport: transport})

		err = c.consume(ctx, stream)
		stream.Close()
		if ctx.Err() != nil {
			c.setState(StateClosed)
			return
		}

		c.setState(StateConnecting)
		lost := fmt.Errorf("%w: %v", ErrConnectionLost, err)
		c.log.WithError(err).Warn("alert channel lost")
		c.emit(Event{Type: EventConnectError, Err: lost})
		if !sleep(ctx, bo.NextBackOff()) {
			c.setState(StateClosed)
			return
		}
	}
}

// dial makes one attempt, trying each transport in preference order.
func (c *Client) dial(ctx context.Context) (Stream, string, error) {
	c.mu.Lock()
	c.attempts++
	c.mu.Unlock()

	if len(c.transports) == 0 {
		return nil, "", ErrNoTransport
	}

	var errs []error
	for _, t := range c.transports {
		attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		s, err := t.Dial(attemptCtx, c.endpoint, c.opts)
		cancel()
		if err == nil {
			return s, t.Name(), nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
	}
	return nil, "", errors.Join(errs...)
}

func (c *Client) consume(ctx context.Context, stream Stream) error {
	for {
		env, err := stream.Next(ctx)
		if err != nil {
			return err
		}

		switch env.Type {
		case alert.MsgAlert:
			var ev alert.Event
			if err := json.Unmarshal(env.Payload, &ev); err != nil || ev.Message == "" {
				c.log.WithField("seq", env.Seq).Debug("skipping malformed alert")
				continue
			}
			ev.ReceivedAt = time.Now()
			c.emit(Event{Type: EventAlert, Alert: ev})
		default:
			c.log.WithField("type", env.Type).Debug("ignoring message")
		}
	}
}

// emit invokes the handlers registered for ev.Type at the moment of the call.
func (c *Client) emit(ev Event) {
	for _, h := range c.handlers.snapshot(ev.Type) {
		c.invoke(h, ev)
	}
}

func (c *Client) invoke(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithField("event", ev.Type).Errorf("handler panic: %v", r)
		}
	}()
	h(ev)
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.ReconnectionDelay
	b.MaxInterval = max(c.opts.ReconnectionDelayMax, c.opts.ReconnectionDelay)
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
