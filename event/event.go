package event

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/hxnet/hxnet/hxerror"
	"github.com/hxnet/hxnet/internal"
	"google.golang.org/protobuf/encoding/protowire"
)

// EventsVersion is bumped whenever the encoding of an event changes.
const EventsVersion = "1"

// headerSize is the size of the event ID, time and payload length preceding every payload.
const headerSize = 8 + 8 + 4

const (
	_ = iota
	EventIDTargets
	EventIDState
	EventIDAuthority
	EventIDTeleport
	EventIDScale
)

// Event is a message exchanged between peers about one hand.
type Event interface {
	ID() byte
	Encode() []byte

	// Time is the sender's clock, in seconds, when the event was produced.
	Time() float64
	Envelope() NopEvent
}

// NopEvent carries the fields common to every event.
type NopEvent struct {
	EvTime float64
	// Hand names the hand the event is about.
	Hand string
	// Epoch is the sender's authority epoch for the hand.
	Epoch uint32
}

// Time ...
func (n NopEvent) Time() float64 {
	return n.EvTime
}

// Envelope ...
func (n NopEvent) Envelope() NopEvent {
	return n
}

// Reliable reports whether an event must be delivered reliably. Targets and state are superseded by
// the next frame and may be dropped.
func Reliable(ev Event) bool {
	switch ev.ID() {
	case EventIDTargets, EventIDState:
		return false
	}
	return true
}

// WriteEventHeader writes the ID, time and payload length of an event.
func WriteEventHeader(ev Event, buf *bytes.Buffer, payloadLen int) {
	binary.Write(buf, binary.LittleEndian, uint64(ev.ID()))
	binary.Write(buf, binary.LittleEndian, math.Float64bits(ev.Time()))
	binary.Write(buf, binary.LittleEndian, uint32(payloadLen))
}

// encode writes the header of ev followed by the envelope and the event-specific payload.
func encode(ev Event, payload []byte) []byte {
	env := ev.Envelope()
	body := protowire.AppendTag(nil, 1, protowire.BytesType)
	body = protowire.AppendString(body, env.Hand)
	body = protowire.AppendTag(body, 2, protowire.VarintType)
	body = protowire.AppendVarint(body, uint64(env.Epoch))
	body = append(body, payload...)

	buf := internal.BufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer internal.BufferPool.Put(buf)

	WriteEventHeader(ev, buf, len(body))
	buf.Write(body)
	return internal.Bytes(buf)
}

// DecodeEvents decodes every event in dat.
func DecodeEvents(dat []byte) ([]Event, error) {
	buf := internal.BufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	buf.Write(dat)
	defer internal.BufferPool.Put(buf)

	events := []Event{}
	for buf.Len() > 0 {
		ev, err := DecodeEvent(buf)
		if err != nil {
			return events, hxerror.New("error decoding event: %v", err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// DecodeEvent decodes the next event in buf.
func DecodeEvent(buf *bytes.Buffer) (Event, error) {
	if buf.Len() < headerSize {
		return nil, hxerror.New(hxerror.ErrorInternalShortEvent, "header")
	}
	id := byte(binary.LittleEndian.Uint64(buf.Next(8)))
	t := math.Float64frombits(binary.LittleEndian.Uint64(buf.Next(8)))
	n := int(binary.LittleEndian.Uint32(buf.Next(4)))
	if buf.Len() < n {
		return nil, hxerror.New(hxerror.ErrorInternalShortEvent, "payload")
	}
	payload := buf.Next(n)

	env := NopEvent{EvTime: t}
	var (
		ev  Event
		err error
	)
	switch id {
	case EventIDTargets:
		e := TargetsEvent{}
		err = decodeFields(payload, env.field(&e.NopEvent, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			if num == 3 && typ == protowire.BytesType {
				return consumeMessage(b, &e.Targets, decodeTargets)
			}
			return skip(num, typ, b)
		}))
		ev = e
	case EventIDState:
		e := StateEvent{}
		err = decodeFields(payload, env.field(&e.NopEvent, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			if num == 3 && typ == protowire.BytesType {
				return consumeMessage(b, &e.State, decodeState)
			}
			return skip(num, typ, b)
		}))
		ev = e
	case EventIDAuthority:
		e := AuthorityEvent{}
		err = decodeFields(payload, env.field(&e.NopEvent, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			if num == 3 && typ == protowire.VarintType {
				v, n := protowire.ConsumeVarint(b)
				e.Authority = authorityFromWire(v)
				return n, parseError(n)
			}
			return skip(num, typ, b)
		}))
		ev = e
	case EventIDTeleport:
		e := TeleportEvent{}
		err = decodeFields(payload, env.field(&e.NopEvent, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			switch {
			case num == 3 && typ == protowire.BytesType:
				return consumeMessage(b, &e.Position, decodeVec3)
			case num == 4 && typ == protowire.BytesType:
				return consumeMessage(b, &e.Orientation, decodeQuat)
			}
			return skip(num, typ, b)
		}))
		ev = e
	case EventIDScale:
		e := ScaleEvent{}
		err = decodeFields(payload, env.field(&e.NopEvent, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			if num == 3 && typ == protowire.Fixed64Type {
				v, n := protowire.ConsumeFixed64(b)
				e.Scale = math.Float64frombits(v)
				return n, parseError(n)
			}
			return skip(num, typ, b)
		}))
		ev = e
	default:
		return nil, hxerror.New(hxerror.ErrorInternalUnknownEvent, id)
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// field decodes the envelope fields shared by every event into dst and hands every other field to
// next.
func (env NopEvent) field(dst *NopEvent, next fieldFunc) fieldFunc {
	*dst = env
	return func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			dst.Hand = v
			return n, parseError(n)
		case num == 2 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			dst.Epoch = uint32(v)
			return n, parseError(n)
		}
		return next(num, typ, b)
	}
}
