package channel

import "sync"

type entry struct {
	id uint64
	fn Handler
}

// registry holds handlers per event type in registration order.
type registry struct {
	mu       sync.Mutex
	next     uint64
	handlers map[EventType][]entry
}

func newRegistry() *registry {
	return &registry{handlers: make(map[EventType][]entry)}
}

func (r *registry) add(t EventType, fn Handler) Registration {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.handlers[t] = append(r.handlers[t], entry{id: r.next, fn: fn})
	return Registration{Type: t, id: r.next}
}

func (r *registry) removeAll(t EventType) {
	r.mu.Lock()
	delete(r.handlers, t)
	r.mu.Unlock()
}

func (r *registry) remove(reg Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.handlers[reg.Type]
	for i, e := range list {
		if e.id == reg.id {
			// Copy so snapshots handed to the event loop stay intact.
			next := make([]entry, 0, len(list)-1)
			next = append(next, list[:i]...)
			next = append(next, list[i+1:]...)
			if len(next) == 0 {
				delete(r.handlers, reg.Type)
			} else {
				r.handlers[reg.Type] = next
			}
			return
		}
	}
}

// snapshot returns the handlers for t as of now.
func (r *registry) snapshot(t EventType) []Handler {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.handlers[t]
	out := make([]Handler, len(list))
	for i, e := range list {
		out[i] = e.fn
	}
	return out
}

func (r *registry) count(types ...EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(types) == 0 {
		n := 0
		for _, list := range r.handlers {
			n += len(list)
		}
		return n
	}
	n := 0
	for _, t := range types {
		n += len(r.handlers[t])
	}
	return n
}
