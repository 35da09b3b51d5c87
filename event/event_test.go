package event

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hxnet/hxnet/authority"
	"github.com/hxnet/hxnet/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func sampleState() physics.State {
	return physics.State{
		BodyStates: []physics.RigidBodyState{
			{Position: mgl64.Vec3{1, 2, 3}, Orientation: mgl64.QuatIdent(), LinearVelocity: mgl64.Vec3{0, 0, -1}},
			{Position: mgl64.Vec3{4, 5, 6}, Orientation: mgl64.QuatRotate(1, mgl64.Vec3{0, 0, 1}), AngularVelocity: mgl64.Vec3{0.5, 0, 0}},
		},
		Targets: physics.IdentityTargets(),
		ObjectStates: []physics.ObjectState{
			{Component: "mug", BodyIndex: 2, State: physics.RigidBodyState{Position: mgl64.Vec3{7, 8, 9}, Orientation: mgl64.QuatIdent()}},
		},
		ConstraintStates: []physics.ConstraintState{{
			ID:    -7,
			Scale: mgl64.Vec3{1, 1, 1},
			Spec: physics.ConstraintSpec{
				Kind:         physics.ConstraintKindAnchor,
				Body1:        physics.BodyRef{Component: "right_hand", Bone: "palm"},
				Body2:        physics.BodyRef{Component: "mug"},
				Location:     mgl64.Vec3{0.1, 0.2, 0.3},
				LinearDrive:  physics.Drive{Stiffness: 1e5, Damping: 1e3, MaxForce: 3e3, PositionDrive: true},
				LinearLimit:  physics.LinearLimit{X: physics.MotionLimited, Z: physics.MotionLocked, Limit: 1},
				AngularLimit: physics.AngularLimit{Swing2: physics.MotionLimited, TwistLimit: 45, ConeLimit: 30},
			},
		}},
	}
}

func TestStateEventSurvivesEncoding(t *testing.T) {
	ev := StateEvent{NopEvent: NopEvent{EvTime: 12.5, Hand: "right_hand", Epoch: 3}, State: sampleState()}
	events, err := DecodeEvents(ev.Encode())
	require.NoError(t, err)
	require.Len(t, events, 1)

	got, ok := events[0].(StateEvent)
	require.True(t, ok, "expected a StateEvent, got %T", events[0])
	assert.Equal(t, ev.NopEvent, got.NopEvent)
	assert.Equal(t, ev.State, got.State)
}

func TestDecodeConcatenatedEvents(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(TargetsEvent{NopEvent: NopEvent{EvTime: 1, Hand: "left_hand"}, Targets: physics.IdentityTargets()}.Encode())
	buf.Write(AuthorityEvent{NopEvent: NopEvent{EvTime: 2, Hand: "left_hand", Epoch: 1}, Authority: authority.AuthorityClient}.Encode())
	buf.Write(TeleportEvent{NopEvent: NopEvent{EvTime: 3}, Position: mgl64.Vec3{1, 0, 0}, Orientation: mgl64.QuatIdent()}.Encode())
	buf.Write(ScaleEvent{NopEvent: NopEvent{EvTime: 4}, Scale: 1.2}.Encode())

	events, err := DecodeEvents(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, events, 4)

	assert.Equal(t, physics.IdentityTargets(), events[0].(TargetsEvent).Targets)
	assert.Equal(t, authority.AuthorityClient, events[1].(AuthorityEvent).Authority)
	assert.Equal(t, uint32(1), events[1].Envelope().Epoch)
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, events[2].(TeleportEvent).Position)
	assert.Equal(t, 1.2, events[3].(ScaleEvent).Scale)
	for i, ev := range events {
		assert.Equal(t, float64(i+1), ev.Time())
	}
}

func TestReliability(t *testing.T) {
	assert.False(t, Reliable(TargetsEvent{}))
	assert.False(t, Reliable(StateEvent{}))
	assert.True(t, Reliable(AuthorityEvent{}))
	assert.True(t, Reliable(TeleportEvent{}))
	assert.True(t, Reliable(ScaleEvent{}))
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	enc := ScaleEvent{Scale: 2}.Encode()

	_, err := DecodeEvents(enc[:len(enc)-3])
	assert.Error(t, err, "a truncated payload must fail")

	_, err = DecodeEvents(enc[:10])
	assert.Error(t, err, "a truncated header must fail")

	bad := append([]byte(nil), enc...)
	bad[0] = 0xEE
	_, err = DecodeEvents(bad)
	assert.Error(t, err, "an unknown event ID must fail")
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
	ev := ScaleEvent{NopEvent: NopEvent{Hand: "right_hand"}, Scale: 0.8}
	payload := protowire.AppendTag(nil, 3, protowire.Fixed64Type)
	payload = protowire.AppendFixed64(payload, 0x3FE999999999999A) // 0.8
	payload = protowire.AppendTag(payload, 15, protowire.BytesType)
	payload = protowire.AppendString(payload, "from a newer peer")

	events, err := DecodeEvents(encode(ev, payload))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 0.8, events[0].(ScaleEvent).Scale)
	assert.Equal(t, "right_hand", events[0].Envelope().Hand)
}
