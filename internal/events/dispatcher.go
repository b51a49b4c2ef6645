package events

import (
	"sync"
	"time"
)

// Type identifies a session-level signal.
type Type string

const (
	// TypeSessionExpired fires when a non-login call came back 401 and the
	// identity was torn down. The hosting shell should route the user back
	// to authentication.
	TypeSessionExpired Type = "session.expired"

	// TypeConnectivityLost fires when a call produced no response at all
	// (transport error or timeout). Terminal for the operation; the user
	// must intervene.
	TypeConnectivityLost Type = "connectivity.lost"
)

// Event carries a signal plus a human-readable cause for display.
type Event struct {
	Type  Type
	Cause string
	At    time.Time
}

// Handler consumes a published event.
type Handler func(Event)

// Dispatcher is a synchronous publish/subscribe bus for session signals.
//
// The core never navigates or prints; it publishes here and the hosting
// shell decides what a "redirect" means.
type Dispatcher interface {
	Publish(event Event)
	Subscribe(eventType Type, handler Handler)
}

// inMemoryDispatcher is a simple synchronous dispatcher.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[Type][]Handler
}

// NewDispatcher creates an in-memory dispatcher.
func NewDispatcher() Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[Type][]Handler),
	}
}

// Publish synchronously invokes handlers registered for the event type.
// Handlers run in subscription order on the caller's goroutine.
func (d *inMemoryDispatcher) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	d.mu.RLock()
	handlers := append([]Handler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// Subscribe registers a handler for the given event type.
func (d *inMemoryDispatcher) Subscribe(eventType Type, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}
