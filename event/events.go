package event

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hxnet/hxnet/authority"
	"github.com/hxnet/hxnet/physics"
	"google.golang.org/protobuf/encoding/protowire"
)

// TargetsEvent carries the physics targets of a hand. It is sent unreliably and frequently.
type TargetsEvent struct {
	NopEvent

	Targets physics.Targets
}

func (TargetsEvent) ID() byte {
	return EventIDTargets
}

func (ev TargetsEvent) Encode() []byte {
	return encode(ev, appendMessage(nil, 3, encodeTargets(ev.Targets)))
}

// StateEvent carries the full physics state of a hand. Only the physics authority sends it.
type StateEvent struct {
	NopEvent

	State physics.State
}

func (StateEvent) ID() byte {
	return EventIDState
}

func (ev StateEvent) Encode() []byte {
	return encode(ev, appendMessage(nil, 3, encodeState(ev.State)))
}

// AuthorityEvent announces who is authoritative over a hand. The server sends it reliably whenever
// the authority changes.
type AuthorityEvent struct {
	NopEvent

	Authority authority.Authority
}

func (AuthorityEvent) ID() byte {
	return EventIDAuthority
}

func (ev AuthorityEvent) Encode() []byte {
	return encode(ev, appendVarint(nil, 3, authorityToWire(ev.Authority)))
}

// TeleportEvent asks the physics authority to teleport a hand.
type TeleportEvent struct {
	NopEvent

	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

func (TeleportEvent) ID() byte {
	return EventIDTeleport
}

func (ev TeleportEvent) Encode() []byte {
	b := appendMessage(nil, 3, encodeVec3(ev.Position))
	return encode(ev, appendMessage(b, 4, encodeQuat(ev.Orientation)))
}

// ScaleEvent sets the scale factor of a hand.
type ScaleEvent struct {
	NopEvent

	Scale float64
}

func (ScaleEvent) ID() byte {
	return EventIDScale
}

func (ev ScaleEvent) Encode() []byte {
	b := protowire.AppendTag(nil, 3, protowire.Fixed64Type)
	return encode(ev, protowire.AppendFixed64(b, math.Float64bits(ev.Scale)))
}
