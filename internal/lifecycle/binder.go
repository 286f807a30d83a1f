// Package lifecycle ties alert channel subscriptions to the lifetime of a
// monitoring view. Each activation owns its own channel and hands back a
// token; deactivating with that token removes exactly the handlers it added
// and disposes of the channel.
package lifecycle

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/lanify/monitor/internal/channel"
	"github.com/lanify/monitor/internal/toast"
)

// Channel is the part of *channel.Client the binder drives.
type Channel interface {
	On(channel.EventType, channel.Handler) channel.Registration
	Remove(channel.Registration)
	Connect(context.Context)
	Close() error
}

// Factory creates the channel owned by one activation.
type Factory func() Channel

// Observer is told about connect and connect_error events, tagged with the
// ID of the activation whose channel produced them.
type Observer func(activation uint64, ev channel.Event)

// Token is returned by Activate and consumed by Deactivate.
type Token struct {
	id     uint64
	ch     Channel
	regs   []channel.Registration
	active atomic.Bool
	closed chan struct{}
}

// ID identifies the activation. IDs start at 1; a nil token reports 0.
func (t *Token) ID() uint64 {
	if t == nil {
		return 0
	}
	return t.id
}

// Channel returns the channel owned by this activation.
func (t *Token) Channel() Channel { return t.ch }

// Active reports whether the token has not been consumed yet.
func (t *Token) Active() bool { return t != nil && t.active.Load() }

// Closed is closed once the activation's channel has been disposed of.
func (t *Token) Closed() <-chan struct{} { return t.closed }

type Binder struct {
	factory   Factory
	presenter toast.Presenter
	observer  Observer
	log       logrus.FieldLogger

	mu      sync.Mutex
	current *Token
	lastID  uint64
}

// NewBinder returns an inactive binder. observer and log may be nil.
func NewBinder(factory Factory, presenter toast.Presenter, observer Observer, log logrus.FieldLogger) *Binder {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Binder{
		factory:   factory,
		presenter: presenter,
		observer:  observer,
		log:       log,
	}
}

// Activate moves the view to Active: it creates a channel, registers one
// handler per event type and starts connecting. A still-active previous
// token is deactivated first so handlers never double up.
func (b *Binder) Activate(ctx context.Context) *Token {
	b.mu.Lock()
	prev := b.current
	b.current = nil
	b.lastID++
	id := b.lastID
	b.mu.Unlock()
	if prev != nil {
		b.log.Debug("re-activation, releasing previous subscription")
		b.Deactivate(prev)
	}

	tok := &Token{id: id, ch: b.factory(), closed: make(chan struct{})}
	tok.active.Store(true)
	tok.regs = []channel.Registration{
		tok.ch.On(channel.EventConnect, b.guard(tok, b.onConnect)),
		tok.ch.On(channel.EventConnectError, b.guard(tok, b.onConnectError)),
		tok.ch.On(channel.EventAlert, b.guard(tok, b.onAlert)),
	}

	b.mu.Lock()
	b.current = tok
	b.mu.Unlock()

	b.log.WithField("activation", id).Info("monitoring view active")
	tok.ch.Connect(ctx)
	return tok
}

// Deactivate moves the view back to Inactive. Handlers are removed before it
// returns; the channel is closed in the background because an in-flight
// handler may be waiting on the caller's goroutine. Nil or already consumed
// tokens are ignored.
func (b *Binder) Deactivate(tok *Token) {
	if tok == nil || !tok.active.CompareAndSwap(true, false) {
		return
	}

	b.mu.Lock()
	if b.current == tok {
		b.current = nil
	}
	b.mu.Unlock()

	for _, reg := range tok.regs {
		tok.ch.Remove(reg)
	}
	tok.regs = nil
	b.log.WithField("activation", tok.id).Info("monitoring view inactive")

	go func() {
		defer close(tok.closed)
		if err := tok.ch.Close(); err != nil {
			b.log.WithError(err).Warn("closing alert channel")
		}
	}()
}

// Active reports whether a view currently holds a subscription.
func (b *Binder) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current != nil
}

// guard drops events that race with deactivation.
func (b *Binder) guard(tok *Token, h func(*Token, channel.Event)) channel.Handler {
	return func(ev channel.Event) {
		if !tok.active.Load() {
			return
		}
		h(tok, ev)
	}
}

func (b *Binder) onConnect(tok *Token, ev channel.Event) {
	b.log.WithField("transport", ev.Transport).Info("alert feed connected")
	b.notify(tok, ev)
}

func (b *Binder) onConnectError(tok *Token, ev channel.Event) {
	b.log.WithError(ev.Err).WithField("attempt", ev.Attempt).Warn("alert feed unavailable")
	b.notify(tok, ev)
}

func (b *Binder) onAlert(tok *Token, ev channel.Event) {
	switch p := b.presenter.(type) {
	case nil:
	case toast.ActivationPresenter:
		p.PresentFor(tok.id, ev.Alert)
	default:
		p.Present(ev.Alert)
	}
}

func (b *Binder) notify(tok *Token, ev channel.Event) {
	if b.observer != nil {
		b.observer(tok.id, ev)
	}
}
