package physics

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/hxnet/hxnet/hxmath"
)

// RigidBodyState is the kinematic state of one rigid body in world space.
type RigidBodyState struct {
	Position        mgl64.Vec3
	Orientation     mgl64.Quat
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3 // Radians per second.
}

// InterpolateRigidBodyState lerps positions and velocities and slerps the orientation.
func InterpolateRigidBodyState(a, b RigidBodyState, alpha float64) RigidBodyState {
	return RigidBodyState{
		Position:        hxmath.LerpVec3(a.Position, b.Position, alpha),
		Orientation:     hxmath.SlerpQuat(a.Orientation, b.Orientation, alpha),
		LinearVelocity:  hxmath.LerpVec3(a.LinearVelocity, b.LinearVelocity, alpha),
		AngularVelocity: hxmath.LerpVec3(a.AngularVelocity, b.AngularVelocity, alpha),
	}
}

// Targets are the goals the constraints driving a hand are steered towards.
type Targets struct {
	// Middle1Position is the world position of the middle finger's first joint.
	Middle1Position mgl64.Vec3
	// Middle1Orientation is the world orientation of the middle finger's first joint.
	Middle1Orientation mgl64.Quat
	// JointOrientations holds one local orientation per finger joint, indexed by JointIndex. A
	// slice of any other length leaves the finger joints untouched.
	JointOrientations []mgl64.Quat
}

// InterpolateTargets blends two sets of targets. Joint orientations are blended up to the shorter
// of the two slices.
func InterpolateTargets(a, b Targets, alpha float64) Targets {
	c := Targets{
		Middle1Position:    hxmath.LerpVec3(a.Middle1Position, b.Middle1Position, alpha),
		Middle1Orientation: hxmath.SlerpQuat(a.Middle1Orientation, b.Middle1Orientation, alpha),
	}
	n := min(len(a.JointOrientations), len(b.JointOrientations))
	c.JointOrientations = make([]mgl64.Quat, n)
	for i := range n {
		c.JointOrientations[i] = hxmath.SlerpQuat(a.JointOrientations[i], b.JointOrientations[i], alpha)
	}
	return c
}

// IdentityTargets returns targets with identity orientations for every joint.
func IdentityTargets() Targets {
	t := Targets{Middle1Orientation: mgl64.QuatIdent(), JointOrientations: make([]mgl64.Quat, JointCount)}
	for i := range t.JointOrientations {
		t.JointOrientations[i] = mgl64.QuatIdent()
	}
	return t
}

// ObjectState is the state of one simulated body of an object near a hand.
type ObjectState struct {
	Component string
	BodyIndex int
	State     RigidBodyState
}

// ConstraintState describes a constraint so another peer can recreate it.
type ConstraintState struct {
	ID    int64
	Scale mgl64.Vec3
	Spec  ConstraintSpec
}

// State is a full snapshot of a hand and the objects it is interacting with.
type State struct {
	BodyStates       []RigidBodyState
	Targets          Targets
	ObjectStates     []ObjectState
	ConstraintStates []ConstraintState
}

// InterpolateState blends two hand states. Object states present in both snapshots are matched by
// component and body index; unmatched ones are dropped. Constraint states are taken from a.
func InterpolateState(a, b State, alpha float64) State {
	n := min(len(a.BodyStates), len(b.BodyStates))
	c := State{
		BodyStates: make([]RigidBodyState, n),
		Targets:    InterpolateTargets(a.Targets, b.Targets, alpha),
	}
	for i := range n {
		c.BodyStates[i] = InterpolateRigidBodyState(a.BodyStates[i], b.BodyStates[i], alpha)
	}

	c.ObjectStates = make([]ObjectState, 0, len(a.ObjectStates))
	for _, as := range a.ObjectStates {
		for _, bs := range b.ObjectStates {
			if as.Component == bs.Component && as.BodyIndex == bs.BodyIndex {
				c.ObjectStates = append(c.ObjectStates, ObjectState{
					Component: as.Component,
					BodyIndex: as.BodyIndex,
					State:     InterpolateRigidBodyState(as.State, bs.State, alpha),
				})
				break
			}
		}
	}

	c.ConstraintStates = a.ConstraintStates
	return c
}
