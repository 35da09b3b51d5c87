package transport

import (
	"sync"

	"github.com/hxnet/hxnet/event"
)

// Transport moves events between peers. Unreliable events may be dropped silently.
type Transport interface {
	// Send queues an event for delivery to the remote peer(s).
	Send(ev event.Event) error
	// Receive returns every event that arrived since the last call, in arrival order.
	Receive() []event.Event
	Close() error
}

// inbox is a mutex-protected queue of received events.
type inbox struct {
	mu     sync.Mutex
	events []event.Event
}

func (i *inbox) push(evs ...event.Event) {
	i.mu.Lock()
	i.events = append(i.events, evs...)
	i.mu.Unlock()
}

func (i *inbox) drain() []event.Event {
	i.mu.Lock()
	defer i.mu.Unlock()
	evs := i.events
	i.events = nil
	return evs
}

// Fanout sends every event to all of its transports and merges what they receive. The server uses
// one to reach every client.
type Fanout struct {
	mu         sync.Mutex
	transports []Transport
}

// Add adds a transport.
func (f *Fanout) Add(t Transport) {
	f.mu.Lock()
	f.transports = append(f.transports, t)
	f.mu.Unlock()
}

// Send sends ev on every transport and returns the first error encountered.
func (f *Fanout) Send(ev event.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var first error
	for _, t := range f.transports {
		if err := t.Send(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Receive ...
func (f *Fanout) Receive() []event.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var evs []event.Event
	for _, t := range f.transports {
		evs = append(evs, t.Receive()...)
	}
	return evs
}

// Close closes every transport.
func (f *Fanout) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var first error
	for _, t := range f.transports {
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
	}
	f.transports = nil
	return first
}
