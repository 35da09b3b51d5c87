package physics

import "github.com/go-gl/mathgl/mgl64"

// ConstraintKind identifies the role a constraint plays.
type ConstraintKind uint8

const (
	ConstraintKindReplicated ConstraintKind = iota
	ConstraintKindStick
	ConstraintKindPinch
	ConstraintKindAnchor
	ConstraintKindDamping
	ConstraintKindPalm
	ConstraintKindJoint
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintKindReplicated:
		return "replicated"
	case ConstraintKindStick:
		return "stick"
	case ConstraintKindPinch:
		return "pinch"
	case ConstraintKindAnchor:
		return "anchor"
	case ConstraintKindDamping:
		return "damping"
	case ConstraintKindPalm:
		return "palm"
	case ConstraintKindJoint:
		return "joint"
	}
	return "unknown"
}

// BodyRef names a body by its component and bone. An empty component refers to the world.
type BodyRef struct {
	Component string
	Bone      Bone
}

// IsWorld reports whether the reference points at the world origin.
func (r BodyRef) IsWorld() bool {
	return r.Component == ""
}

// Motion describes how freely a degree of freedom may move.
type Motion uint8

const (
	MotionFree Motion = iota
	MotionLimited
	MotionLocked
)

// Drive is a spring-damper that pushes a degree of freedom towards a target.
type Drive struct {
	Stiffness float64
	Damping   float64
	MaxForce  float64

	PositionDrive bool
	VelocityDrive bool
}

// Enabled reports whether the drive does anything.
func (d Drive) Enabled() bool {
	return d.PositionDrive || d.VelocityDrive
}

// LinearLimit limits translation along the three axes.
type LinearLimit struct {
	X, Y, Z Motion
	Limit   float64
}

// AngularLimit limits rotation. Angles are in degrees.
type AngularLimit struct {
	Twist      Motion
	Swing1     Motion
	Swing2     Motion
	TwistLimit float64
	ConeLimit  float64
}

// ConstraintSpec fully describes a constraint between two bodies.
type ConstraintSpec struct {
	Kind  ConstraintKind
	Body1 BodyRef
	Body2 BodyRef

	// Location is the world position of the constraint frame.
	Location mgl64.Vec3

	LinearDrive  Drive
	AngularDrive Drive // Slerp drive.

	LinearLimit  LinearLimit
	AngularLimit AngularLimit

	DisableCollision bool
}

// Involves reports whether either side of the constraint is the given component.
func (s ConstraintSpec) Involves(component string) bool {
	return s.Body1.Component == component || s.Body2.Component == component
}
