package lifecycle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanify/monitor/internal/alert"
	"github.com/lanify/monitor/internal/channel"
	"github.com/lanify/monitor/internal/toast"
)

// fakeChannel records registrations and lets tests emit events directly.
type fakeChannel struct {
	mu        sync.Mutex
	next      int
	handlers  map[channel.EventType]map[int]channel.Handler
	regs      map[channel.Registration]int
	connected int
	closed    bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		handlers: make(map[channel.EventType]map[int]channel.Handler),
		regs:     make(map[channel.Registration]int),
	}
}

func (f *fakeChannel) On(t channel.EventType, h channel.Handler) channel.Registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	if f.handlers[t] == nil {
		f.handlers[t] = make(map[int]channel.Handler)
	}
	f.handlers[t][f.next] = h
	// Registration's id is unexported, so key on a distinct zero-id value per type.
	reg := channel.Registration{Type: t}
	f.regs[reg] = f.next
	return reg
}

func (f *fakeChannel) Remove(reg channel.Registration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, ok := f.regs[reg]; ok {
		delete(f.handlers[reg.Type], id)
		delete(f.regs, reg)
	}
}

func (f *fakeChannel) Connect(context.Context) {
	f.mu.Lock()
	f.connected++
	f.mu.Unlock()
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeChannel) count(t channel.EventType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers[t])
}

func (f *fakeChannel) total() int {
	n := 0
	for _, t := range channel.Events {
		n += f.count(t)
	}
	return n
}

func (f *fakeChannel) emit(ev channel.Event) {
	f.mu.Lock()
	var hs []channel.Handler
	for _, h := range f.handlers[ev.Type] {
		hs = append(hs, h)
	}
	f.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Present(ev alert.Event) {
	r.mu.Lock()
	r.msgs = append(r.msgs, ev.Message)
	r.mu.Unlock()
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func newTestBinder(p toast.Presenter, obs Observer) (*Binder, *[]*fakeChannel) {
	var made []*fakeChannel
	b := NewBinder(func() Channel {
		f := newFakeChannel()
		made = append(made, f)
		return f
	}, p, obs, nil)
	return b, &made
}

func waitClosed(t *testing.T, tok *Token) {
	t.Helper()
	select {
	case <-tok.Closed():
	case <-time.After(2 * time.Second):
		t.Fatal("channel was not closed")
	}
}

func TestActivateRegistersOneHandlerPerType(t *testing.T) {
	b, made := newTestBinder(&recorder{}, nil)

	tok := b.Activate(context.Background())
	f := (*made)[0]

	for _, typ := range channel.Events {
		assert.Equal(t, 1, f.count(typ), "handlers for %s", typ)
	}
	assert.Equal(t, 3, f.total())
	assert.Equal(t, 1, f.connected)
	assert.True(t, b.Active())
	assert.True(t, tok.Active())
}

func TestDeactivateRemovesEverything(t *testing.T) {
	b, made := newTestBinder(&recorder{}, nil)

	tok := b.Activate(context.Background())
	b.Deactivate(tok)
	waitClosed(t, tok)

	f := (*made)[0]
	assert.Equal(t, 0, f.total())
	assert.True(t, f.closed)
	assert.False(t, b.Active())
	assert.False(t, tok.Active())
}

func TestRepeatedCycles(t *testing.T) {
	b, made := newTestBinder(&recorder{}, nil)

	for i := 0; i < 25; i++ {
		tok := b.Activate(context.Background())
		f := (*made)[i]
		require.Equal(t, 3, f.total(), "cycle %d after activate", i)
		b.Deactivate(tok)
		require.Equal(t, 0, f.total(), "cycle %d after deactivate", i)
	}
	assert.Len(t, *made, 25, "each activation owns a fresh channel")
}

func TestReactivationWithoutDeactivate(t *testing.T) {
	p := &recorder{}
	b, made := newTestBinder(p, nil)

	first := b.Activate(context.Background())
	second := b.Activate(context.Background())
	waitClosed(t, first)

	assert.False(t, first.Active())
	assert.True(t, second.Active())
	assert.Equal(t, 0, (*made)[0].total())
	assert.Equal(t, 3, (*made)[1].total())

	(*made)[0].emit(channel.Event{Type: channel.EventAlert, Alert: alert.Event{Message: "stale"}})
	(*made)[1].emit(channel.Event{Type: channel.EventAlert, Alert: alert.Event{Message: "fresh"}})
	assert.Equal(t, []string{"fresh"}, p.messages(), "exactly one presentation per alert")
}

func TestDeactivateIsIdempotent(t *testing.T) {
	b, _ := newTestBinder(&recorder{}, nil)

	assert.NotPanics(t, func() { b.Deactivate(nil) })

	tok := b.Activate(context.Background())
	b.Deactivate(tok)
	assert.NotPanics(t, func() { b.Deactivate(tok) })
	waitClosed(t, tok)
}

func TestAlertsPresentedInArrivalOrder(t *testing.T) {
	p := &recorder{}
	b, made := newTestBinder(p, nil)
	b.Activate(context.Background())

	want := []string{"Lane departure detected", "Drift left", "Drift left", "Drift right"}
	for _, m := range want {
		(*made)[0].emit(channel.Event{Type: channel.EventAlert, Alert: alert.Event{Message: m}})
	}
	assert.Equal(t, want, p.messages())
}

func TestMountUnmountBeforeAnyEvent(t *testing.T) {
	p := &recorder{}
	b, made := newTestBinder(p, nil)

	tok := b.Activate(context.Background())
	b.Deactivate(tok)

	(*made)[0].emit(channel.Event{Type: channel.EventAlert, Alert: alert.Event{Message: "late"}})
	assert.Empty(t, p.messages())
	assert.Equal(t, 0, (*made)[0].total())
}

func TestGuardDropsInFlightAfterDeactivate(t *testing.T) {
	p := &recorder{}
	b, made := newTestBinder(p, nil)
	tok := b.Activate(context.Background())

	// Capture the alert handler as the event loop would have before removal.
	f := (*made)[0]
	f.mu.Lock()
	var inflight channel.Handler
	for _, h := range f.handlers[channel.EventAlert] {
		inflight = h
	}
	f.mu.Unlock()

	b.Deactivate(tok)
	inflight(channel.Event{Type: channel.EventAlert, Alert: alert.Event{Message: "racing"}})
	assert.Empty(t, p.messages())
}

func TestObserverSeesConnectionEvents(t *testing.T) {
	var mu sync.Mutex
	var seen []channel.EventType
	var ids []uint64
	b, made := newTestBinder(&recorder{}, func(id uint64, ev channel.Event) {
		mu.Lock()
		seen = append(seen, ev.Type)
		ids = append(ids, id)
		mu.Unlock()
	})
	tok := b.Activate(context.Background())

	f := (*made)[0]
	f.emit(channel.Event{Type: channel.EventConnectError, Err: errors.New("refused"), Attempt: 1})
	f.emit(channel.Event{Type: channel.EventConnect, Transport: "websocket"})
	f.emit(channel.Event{Type: channel.EventAlert, Alert: alert.Event{Message: "x"}})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []channel.EventType{channel.EventConnectError, channel.EventConnect}, seen)
	assert.Equal(t, []uint64{tok.ID(), tok.ID()}, ids)
}

func TestWithRealChannelConnectErrorDoesNotPanic(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	errs := make(chan channel.Event, 8)
	var client *channel.Client
	b := NewBinder(func() Channel {
		opts := channel.DefaultOptions()
		opts.ReconnectionAttempts = 2
		opts.ReconnectionDelay = time.Millisecond
		opts.ReconnectionDelayMax = time.Millisecond
		client = channel.New(endpoint, opts, nil)
		return client
	}, &recorder{}, func(_ uint64, ev channel.Event) { errs <- ev }, nil)

	tok := b.Activate(context.Background())
	for i := 0; i < 2; i++ {
		select {
		case ev := <-errs:
			assert.Equal(t, channel.EventConnectError, ev.Type)
		case <-time.After(5 * time.Second):
			t.Fatal("expected connect_error")
		}
	}
	<-client.Done()
	assert.Equal(t, channel.StateDormant, client.State())
	assert.Equal(t, 3, client.HandlerCount())

	b.Deactivate(tok)
	waitClosed(t, tok)
	assert.Equal(t, 0, client.HandlerCount())
}

type taggingRecorder struct {
	mu   sync.Mutex
	tags []uint64
}

func (r *taggingRecorder) Present(alert.Event) {
	r.PresentFor(0, alert.Event{})
}

func (r *taggingRecorder) PresentFor(activation uint64, _ alert.Event) {
	r.mu.Lock()
	r.tags = append(r.tags, activation)
	r.mu.Unlock()
}

func TestActivationsAreNumberedAndTagAlerts(t *testing.T) {
	p := &taggingRecorder{}
	b, made := newTestBinder(p, nil)

	first := b.Activate(context.Background())
	b.Deactivate(first)
	second := b.Activate(context.Background())
	defer b.Deactivate(second)

	assert.NotZero(t, first.ID())
	assert.Greater(t, second.ID(), first.ID())
	assert.Zero(t, (*Token)(nil).ID())

	(*made)[1].emit(channel.Event{Type: channel.EventAlert, Alert: alert.Event{Message: "x"}})

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, []uint64{second.ID()}, p.tags)
}
