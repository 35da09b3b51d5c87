package event

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hxnet/hxnet/authority"
	"github.com/hxnet/hxnet/hxerror"
	"github.com/hxnet/hxnet/physics"
	"google.golang.org/protobuf/encoding/protowire"
)

type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func decodeFields(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if err := parseError(n); err != nil {
			return err
		}
		b = b[n:]
		n, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func parseError(n int) error {
	if n < 0 {
		return hxerror.New(hxerror.ErrorInternalShortEvent, protowire.ParseError(n).Error())
	}
	return nil
}

func skip(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	return n, parseError(n)
}

func consumeMessage[T any](b []byte, dst *T, decode func([]byte, *T) error) (int, error) {
	v, n := protowire.ConsumeBytes(b)
	if err := parseError(n); err != nil {
		return n, err
	}
	return n, decode(v, dst)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendVarint(b, num, protowire.EncodeBool(v))
}

func consumeDouble(typ protowire.Type, b []byte, dst *float64) (int, error) {
	if typ != protowire.Fixed64Type {
		return 0, hxerror.New(hxerror.ErrorInternalShortEvent, "expected a double")
	}
	v, n := protowire.ConsumeFixed64(b)
	*dst = math.Float64frombits(v)
	return n, parseError(n)
}

func consumeVarint(typ protowire.Type, b []byte, dst *uint64) (int, error) {
	if typ != protowire.VarintType {
		return 0, hxerror.New(hxerror.ErrorInternalShortEvent, "expected a varint")
	}
	v, n := protowire.ConsumeVarint(b)
	*dst = v
	return n, parseError(n)
}

func encodeVec3(v mgl64.Vec3) []byte {
	var b []byte
	for i := range 3 {
		b = appendDouble(b, protowire.Number(i+1), v[i])
	}
	return b
}

func decodeVec3(b []byte, v *mgl64.Vec3) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num >= 1 && num <= 3 {
			return consumeDouble(typ, b, &v[num-1])
		}
		return skip(num, typ, b)
	})
}

func encodeQuat(q mgl64.Quat) []byte {
	b := appendDouble(nil, 1, q.W)
	return appendMessage(b, 2, encodeVec3(q.V))
}

func decodeQuat(b []byte, q *mgl64.Quat) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeDouble(typ, b, &q.W)
		case 2:
			return consumeMessage(b, &q.V, decodeVec3)
		}
		return skip(num, typ, b)
	})
}

func encodeRigidBodyState(s physics.RigidBodyState) []byte {
	b := appendMessage(nil, 1, encodeVec3(s.Position))
	b = appendMessage(b, 2, encodeQuat(s.Orientation))
	b = appendMessage(b, 3, encodeVec3(s.LinearVelocity))
	return appendMessage(b, 4, encodeVec3(s.AngularVelocity))
}

func decodeRigidBodyState(b []byte, s *physics.RigidBodyState) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeMessage(b, &s.Position, decodeVec3)
		case 2:
			return consumeMessage(b, &s.Orientation, decodeQuat)
		case 3:
			return consumeMessage(b, &s.LinearVelocity, decodeVec3)
		case 4:
			return consumeMessage(b, &s.AngularVelocity, decodeVec3)
		}
		return skip(num, typ, b)
	})
}

func encodeTargets(t physics.Targets) []byte {
	b := appendMessage(nil, 1, encodeVec3(t.Middle1Position))
	b = appendMessage(b, 2, encodeQuat(t.Middle1Orientation))
	for _, q := range t.JointOrientations {
		b = appendMessage(b, 3, encodeQuat(q))
	}
	return b
}

func decodeTargets(b []byte, t *physics.Targets) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeMessage(b, &t.Middle1Position, decodeVec3)
		case 2:
			return consumeMessage(b, &t.Middle1Orientation, decodeQuat)
		case 3:
			var q mgl64.Quat
			n, err := consumeMessage(b, &q, decodeQuat)
			t.JointOrientations = append(t.JointOrientations, q)
			return n, err
		}
		return skip(num, typ, b)
	})
}

func encodeBodyRef(r physics.BodyRef) []byte {
	b := appendString(nil, 1, r.Component)
	return appendString(b, 2, string(r.Bone))
}

func decodeBodyRef(b []byte, r *physics.BodyRef) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if typ == protowire.BytesType && (num == 1 || num == 2) {
			v, n := protowire.ConsumeString(b)
			if num == 1 {
				r.Component = v
			} else {
				r.Bone = physics.Bone(v)
			}
			return n, parseError(n)
		}
		return skip(num, typ, b)
	})
}

func encodeDrive(d physics.Drive) []byte {
	b := appendDouble(nil, 1, d.Stiffness)
	b = appendDouble(b, 2, d.Damping)
	b = appendDouble(b, 3, d.MaxForce)
	b = appendBool(b, 4, d.PositionDrive)
	return appendBool(b, 5, d.VelocityDrive)
}

func decodeDrive(b []byte, d *physics.Drive) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var v uint64
		switch num {
		case 1:
			return consumeDouble(typ, b, &d.Stiffness)
		case 2:
			return consumeDouble(typ, b, &d.Damping)
		case 3:
			return consumeDouble(typ, b, &d.MaxForce)
		case 4:
			n, err := consumeVarint(typ, b, &v)
			d.PositionDrive = protowire.DecodeBool(v)
			return n, err
		case 5:
			n, err := consumeVarint(typ, b, &v)
			d.VelocityDrive = protowire.DecodeBool(v)
			return n, err
		}
		return skip(num, typ, b)
	})
}

func encodeLinearLimit(l physics.LinearLimit) []byte {
	b := appendVarint(nil, 1, uint64(l.X))
	b = appendVarint(b, 2, uint64(l.Y))
	b = appendVarint(b, 3, uint64(l.Z))
	return appendDouble(b, 4, l.Limit)
}

func decodeLinearLimit(b []byte, l *physics.LinearLimit) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var v uint64
		switch num {
		case 1, 2, 3:
			n, err := consumeVarint(typ, b, &v)
			axes := [3]*physics.Motion{&l.X, &l.Y, &l.Z}
			*axes[num-1] = physics.Motion(v)
			return n, err
		case 4:
			return consumeDouble(typ, b, &l.Limit)
		}
		return skip(num, typ, b)
	})
}

func encodeAngularLimit(l physics.AngularLimit) []byte {
	b := appendVarint(nil, 1, uint64(l.Twist))
	b = appendVarint(b, 2, uint64(l.Swing1))
	b = appendVarint(b, 3, uint64(l.Swing2))
	b = appendDouble(b, 4, l.TwistLimit)
	return appendDouble(b, 5, l.ConeLimit)
}

func decodeAngularLimit(b []byte, l *physics.AngularLimit) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var v uint64
		switch num {
		case 1, 2, 3:
			n, err := consumeVarint(typ, b, &v)
			axes := [3]*physics.Motion{&l.Twist, &l.Swing1, &l.Swing2}
			*axes[num-1] = physics.Motion(v)
			return n, err
		case 4:
			return consumeDouble(typ, b, &l.TwistLimit)
		case 5:
			return consumeDouble(typ, b, &l.ConeLimit)
		}
		return skip(num, typ, b)
	})
}

func encodeConstraintSpec(s physics.ConstraintSpec) []byte {
	b := appendVarint(nil, 1, uint64(s.Kind))
	b = appendMessage(b, 2, encodeBodyRef(s.Body1))
	b = appendMessage(b, 3, encodeBodyRef(s.Body2))
	b = appendMessage(b, 4, encodeVec3(s.Location))
	b = appendMessage(b, 5, encodeDrive(s.LinearDrive))
	b = appendMessage(b, 6, encodeDrive(s.AngularDrive))
	b = appendMessage(b, 7, encodeLinearLimit(s.LinearLimit))
	b = appendMessage(b, 8, encodeAngularLimit(s.AngularLimit))
	return appendBool(b, 9, s.DisableCollision)
}

func decodeConstraintSpec(b []byte, s *physics.ConstraintSpec) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		var v uint64
		switch num {
		case 1:
			n, err := consumeVarint(typ, b, &v)
			s.Kind = physics.ConstraintKind(v)
			return n, err
		case 2:
			return consumeMessage(b, &s.Body1, decodeBodyRef)
		case 3:
			return consumeMessage(b, &s.Body2, decodeBodyRef)
		case 4:
			return consumeMessage(b, &s.Location, decodeVec3)
		case 5:
			return consumeMessage(b, &s.LinearDrive, decodeDrive)
		case 6:
			return consumeMessage(b, &s.AngularDrive, decodeDrive)
		case 7:
			return consumeMessage(b, &s.LinearLimit, decodeLinearLimit)
		case 8:
			return consumeMessage(b, &s.AngularLimit, decodeAngularLimit)
		case 9:
			n, err := consumeVarint(typ, b, &v)
			s.DisableCollision = protowire.DecodeBool(v)
			return n, err
		}
		return skip(num, typ, b)
	})
}

func encodeObjectState(o physics.ObjectState) []byte {
	b := appendString(nil, 1, o.Component)
	b = appendVarint(b, 2, uint64(o.BodyIndex))
	return appendMessage(b, 3, encodeRigidBodyState(o.State))
}

func decodeObjectState(b []byte, o *physics.ObjectState) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			o.Component = v
			return n, parseError(n)
		case num == 2:
			var v uint64
			n, err := consumeVarint(typ, b, &v)
			o.BodyIndex = int(v)
			return n, err
		case num == 3:
			return consumeMessage(b, &o.State, decodeRigidBodyState)
		}
		return skip(num, typ, b)
	})
}

func encodeConstraintState(c physics.ConstraintState) []byte {
	b := appendVarint(nil, 1, uint64(c.ID))
	b = appendMessage(b, 2, encodeVec3(c.Scale))
	return appendMessage(b, 3, encodeConstraintSpec(c.Spec))
}

func decodeConstraintState(b []byte, c *physics.ConstraintState) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			var v uint64
			n, err := consumeVarint(typ, b, &v)
			c.ID = int64(v)
			return n, err
		case 2:
			return consumeMessage(b, &c.Scale, decodeVec3)
		case 3:
			return consumeMessage(b, &c.Spec, decodeConstraintSpec)
		}
		return skip(num, typ, b)
	})
}

func encodeState(s physics.State) []byte {
	var b []byte
	for _, body := range s.BodyStates {
		b = appendMessage(b, 1, encodeRigidBodyState(body))
	}
	b = appendMessage(b, 2, encodeTargets(s.Targets))
	for _, o := range s.ObjectStates {
		b = appendMessage(b, 3, encodeObjectState(o))
	}
	for _, c := range s.ConstraintStates {
		b = appendMessage(b, 4, encodeConstraintState(c))
	}
	return b
}

func decodeState(b []byte, s *physics.State) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			var body physics.RigidBodyState
			n, err := consumeMessage(b, &body, decodeRigidBodyState)
			s.BodyStates = append(s.BodyStates, body)
			return n, err
		case 2:
			return consumeMessage(b, &s.Targets, decodeTargets)
		case 3:
			var o physics.ObjectState
			n, err := consumeMessage(b, &o, decodeObjectState)
			s.ObjectStates = append(s.ObjectStates, o)
			return n, err
		case 4:
			var c physics.ConstraintState
			n, err := consumeMessage(b, &c, decodeConstraintState)
			s.ConstraintStates = append(s.ConstraintStates, c)
			return n, err
		}
		return skip(num, typ, b)
	})
}

func authorityToWire(a authority.Authority) uint64 {
	return uint64(a)
}

func authorityFromWire(v uint64) authority.Authority {
	if authority.Authority(v) == authority.AuthorityClient {
		return authority.AuthorityClient
	}
	return authority.AuthorityServer
}
