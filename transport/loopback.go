package transport

import (
	"sync/atomic"

	"github.com/hxnet/hxnet/event"
	"github.com/hxnet/hxnet/hxerror"
)

// Loopback is one end of an in-process transport. Events are encoded and decoded on the way
// through, exactly as they would be on the wire.
type Loopback struct {
	peer   *Loopback
	in     inbox
	closed atomic.Bool

	// Drop, when set, decides whether an unreliable event is lost in transit.
	Drop func(ev event.Event) bool
}

// NewLoopback returns two connected ends.
func NewLoopback() (*Loopback, *Loopback) {
	a, b := &Loopback{}, &Loopback{}
	a.peer, b.peer = b, a
	return a, b
}

// Send ...
func (l *Loopback) Send(ev event.Event) error {
	if l.closed.Load() {
		return hxerror.New("loopback transport is closed")
	}
	if !event.Reliable(ev) && l.Drop != nil && l.Drop(ev) {
		return nil
	}
	if l.peer.closed.Load() {
		return nil
	}
	evs, err := event.DecodeEvents(ev.Encode())
	if err != nil {
		return err
	}
	l.peer.in.push(evs...)
	return nil
}

// Receive ...
func (l *Loopback) Receive() []event.Event {
	return l.in.drain()
}

// Close ...
func (l *Loopback) Close() error {
	l.closed.Store(true)
	return nil
}
