// Package hub implements the in-process broadcast signal described in
// spec.md §4.2: a typed fan-out from the worker thread to any number of
// subscribers, each holding an opaque connection handle whose disconnect
// is idempotent.
//
// Grounded on the teacher's broadcast/session bookkeeping in websocket.go
// (statsAggregator, atomic counters, sync.Map-free locking) generalised
// from "websocket connections" to "typed event subscribers".
package hub

import (
	"sync"

	"github.com/google/uuid"
)

// ConnID is the opaque handle returned by Connect.
type ConnID uuid.UUID

func (c ConnID) String() string { return uuid.UUID(c).String() }

// Hub is a single-type broadcast signal. T is typically an interface type
// (events.Event or events.VfoEvent). Create one with New: the zero value
// has no subscriber map, and Connect on it panics.
type Hub[T any] struct {
	mu   sync.Mutex
	subs map[ConnID]func(T)
}

// New creates an empty Hub.
func New[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[ConnID]func(T))}
}

// Connect registers a subscriber callback and returns its connection
// handle. The callback MUST NOT block; it should copy the event or hand
// it to another queue, per spec.md §4.2.
func (h *Hub[T]) Connect(fn func(T)) ConnID {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := ConnID(uuid.New())
	h.subs[id] = fn
	return id
}

// Disconnect removes a subscriber. Idempotent: disconnecting an unknown
// or already-disconnected id is a no-op.
func (h *Hub[T]) Disconnect(id ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// Emit calls every connected subscriber synchronously, in no particular
// cross-subscriber order, but each individual subscriber sees every
// emission in the order Emit was called (spec.md invariant 3: FIFO per
// subscriber). The caller is responsible for calling Emit only from the
// single worker thread that owns this Hub, which is what makes the FIFO
// guarantee hold without locking subscriber delivery itself.
func (h *Hub[T]) Emit(event T) {
	h.mu.Lock()
	// Snapshot under the lock so a subscriber disconnecting from within
	// its own callback can't deadlock or mutate the map we're ranging.
	fns := make([]func(T), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}

// EmitTo delivers an event to exactly one connection — used for the
// sync-replay sequence, which spec.md §4.3/§4.4 require to reach only the
// newly attached subscriber.
func (h *Hub[T]) EmitTo(id ConnID, event T) {
	h.mu.Lock()
	fn, ok := h.subs[id]
	h.mu.Unlock()
	if ok {
		fn(event)
	}
}

// DisconnectAll removes every subscriber, used when the whole hub is
// being torn down (e.g. a VFO's removal after its terminal event).
func (h *Hub[T]) DisconnectAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = make(map[ConnID]func(T))
}

// Len reports the current subscriber count (used for metrics).
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
