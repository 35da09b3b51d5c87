package transport

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/getsentry/sentry-go"
	"github.com/hxnet/hxnet/event"
	"github.com/hxnet/hxnet/hxerror"
	"github.com/hxnet/hxnet/worker"
	"github.com/sirupsen/logrus"
	kcp "github.com/xtaci/kcp-go/v5"
	"golang.org/x/time/rate"
)

// MaxFrameSize is the largest frame accepted in either direction.
const MaxFrameSize = 1 << 16

// KCPConfig configures a KCP transport.
type KCPConfig struct {
	// UnreliableRate caps unreliable events per second. Events over the cap are dropped. Zero means no
	// cap.
	UnreliableRate float64
	// UnreliableBurst is how many unreliable events may be sent at once.
	UnreliableBurst int
	// SendQueue is how many frames may wait to be written.
	SendQueue int
}

// DefaultKCPConfig returns a config suited to two hands sending targets and state at 50Hz each.
func DefaultKCPConfig() KCPConfig {
	return KCPConfig{UnreliableRate: 400, UnreliableBurst: 16, SendQueue: 256}
}

// KCP is a Transport over a KCP session. Frames are prefixed by their big-endian length.
type KCP struct {
	log     *logrus.Logger
	conn    net.Conn
	limiter *rate.Limiter
	writes  *worker.Queue

	in      inbox
	dropped atomic.Uint64
	closed  atomic.Bool
	once    sync.Once
	done    chan struct{}
}

// DialKCP connects to a KCP listener.
func DialKCP(log *logrus.Logger, addr string, conf KCPConfig) (*KCP, error) {
	sess, err := kcp.DialWithOptions(addr, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	sess.SetStreamMode(true)
	sess.SetNoDelay(1, 10, 2, 1)
	return newKCP(log, sess, conf), nil
}

// KCPListener accepts KCP transports.
type KCPListener struct {
	log      *logrus.Logger
	listener *kcp.Listener
	conf     KCPConfig
}

// ListenKCP listens for KCP sessions on addr.
func ListenKCP(log *logrus.Logger, addr string, conf KCPConfig) (*KCPListener, error) {
	listener, err := kcp.ListenWithOptions(addr, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	return &KCPListener{log: log, listener: listener, conf: conf}, nil
}

// Accept waits for the next session.
func (l *KCPListener) Accept() (*KCP, error) {
	sess, err := l.listener.AcceptKCP()
	if err != nil {
		return nil, err
	}
	sess.SetStreamMode(true)
	sess.SetNoDelay(1, 10, 2, 1)
	return newKCP(l.log, sess, l.conf), nil
}

// Addr returns the address the listener is bound to.
func (l *KCPListener) Addr() net.Addr {
	return l.listener.Addr()
}

// Close ...
func (l *KCPListener) Close() error {
	return l.listener.Close()
}

func newKCP(log *logrus.Logger, conn net.Conn, conf KCPConfig) *KCP {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	limit := rate.Inf
	if conf.UnreliableRate > 0 {
		limit = rate.Limit(conf.UnreliableRate)
	}
	t := &KCP{
		log:     log,
		conn:    conn,
		limiter: rate.NewLimiter(limit, max(conf.UnreliableBurst, 1)),
		writes:  worker.New(1, max(conf.SendQueue, 1)),
		done:    make(chan struct{}),
	}
	go t.readLoop()
	return t
}

func (t *KCP) readLoop() {
	defer sentry.Recover()
	defer close(t.done)

	for {
		var length uint32
		if err := binary.Read(t.conn, binary.BigEndian, &length); err != nil {
			if !t.closed.Load() {
				t.log.Warnf("kcp read from %s: %v", t.conn.RemoteAddr(), err)
			}
			return
		}
		if length > MaxFrameSize {
			t.log.Warnf("kcp read from %s: %v", t.conn.RemoteAddr(), hxerror.New(hxerror.ErrorInternalFrameTooLarge, length, MaxFrameSize))
			t.Close()
			return
		}
		frame := make([]byte, length)
		if _, err := io.ReadFull(t.conn, frame); err != nil {
			if !t.closed.Load() {
				t.log.Warnf("kcp read from %s: %v", t.conn.RemoteAddr(), err)
			}
			return
		}
		evs, err := event.DecodeEvents(frame)
		if err != nil {
			t.log.Warnf("kcp decode from %s: %v", t.conn.RemoteAddr(), err)
			continue
		}
		t.in.push(evs...)
	}
}

// Send queues ev for writing. Unreliable events over the rate cap, or arriving while the send queue
// is full, are dropped.
func (t *KCP) Send(ev event.Event) error {
	if t.closed.Load() {
		return hxerror.New("kcp transport is closed")
	}
	payload := ev.Encode()
	if len(payload) > MaxFrameSize {
		return hxerror.New(hxerror.ErrorInternalFrameTooLarge, len(payload), MaxFrameSize)
	}
	frame := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[4:], payload)

	write := func() {
		if _, err := t.conn.Write(frame); err != nil && !t.closed.Load() {
			t.log.Warnf("kcp write to %s: %v", t.conn.RemoteAddr(), err)
		}
	}
	if event.Reliable(ev) {
		if !t.writes.Submit(write) {
			return hxerror.New("kcp transport is closed")
		}
		return nil
	}
	if !t.limiter.Allow() || !t.writes.TrySubmit(write) {
		t.dropped.Add(1)
	}
	return nil
}

// Receive ...
func (t *KCP) Receive() []event.Event {
	return t.in.drain()
}

// Dropped returns how many unreliable events were dropped before sending.
func (t *KCP) Dropped() uint64 {
	return t.dropped.Load()
}

// Close closes the session once pending writes are flushed.
func (t *KCP) Close() error {
	var err error
	t.once.Do(func() {
		t.writes.Close()
		t.closed.Store(true)
		err = t.conn.Close()
	})
	return err
}

// Done is closed once the read loop has stopped.
func (t *KCP) Done() <-chan struct{} {
	return t.done
}
