package events

import (
	"sync"
	"time"
)

// Handler receives events from a Bus
type Handler func(Event)

// Bus fans events out to subscribed handlers. Handlers run on a single
// dispatch goroutine in emit order.
type Bus struct {
	Capacity int

	events chan Event
	done   chan struct{}

	// mu guards closed; Emit holds it for reading while queueing
	mu     sync.RWMutex
	closed bool

	hmu      sync.Mutex
	handlers []Handler

	// now is replaced in tests
	now func() time.Time
}

// NewBus creates a new event bus with the specified capacity
func NewBus(capacity int) *Bus {
	if capacity < 1 {
		capacity = 1
	}
	b := &Bus{
		Capacity: capacity,
		events:   make(chan Event, capacity),
		done:     make(chan struct{}),
		now:      time.Now,
	}
	go b.dispatch()
	return b
}

// Subscribe registers a handler for every subsequent event
func (b *Bus) Subscribe(h Handler) {
	b.hmu.Lock()
	defer b.hmu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Emit stamps the event time (if unset) and queues it for dispatch.
// Events emitted after Close are dropped.
func (b *Bus) Emit(e Event) {
	if e.Time.IsZero() {
		e.Time = b.now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	b.events <- e
}

func (b *Bus) dispatch() {
	defer close(b.done)
	for e := range b.events {
		b.hmu.Lock()
		handlers := b.handlers
		b.hmu.Unlock()
		for _, h := range handlers {
			h(e)
		}
	}
}

// Close stops accepting events and waits for queued ones to be delivered
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		<-b.done
		return nil
	}
	b.closed = true
	close(b.events)
	b.mu.Unlock()

	<-b.done
	return nil
}
