package constraint

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/hxnet/hxnet/physics"
)

// Parameters control the constraints materialised for grasps.
type Parameters struct {
	// LinearDrive pulls each grasping body towards the object.
	LinearDrive physics.Drive
	// AngularDrive locks the orientation of a pinched object.
	AngularDrive physics.Drive
	// AnchorLinearLimit [cm] is how far an anchored object may travel from the anchor.
	AnchorLinearLimit float64
	// AnchorTwistLimit and AnchorConeLimit [deg] bound rotation about the anchor.
	AnchorTwistLimit float64
	AnchorConeLimit  float64
}

// DefaultParameters returns the constraint parameters used when an object has no override.
func DefaultParameters() Parameters {
	return Parameters{
		LinearDrive:       physics.Drive{Stiffness: 1e5, Damping: 1e3, MaxForce: 3e3, PositionDrive: true, VelocityDrive: true},
		AngularDrive:      physics.Drive{Stiffness: 1e6, Damping: 1e3, MaxForce: 3e4, PositionDrive: true, VelocityDrive: true},
		AnchorLinearLimit: 1,
		AnchorTwistLimit:  45,
		AnchorConeLimit:   45,
	}
}

func (p Parameters) stick(body1, body2 physics.BodyRef, location mgl64.Vec3) physics.ConstraintSpec {
	return physics.ConstraintSpec{
		Kind:        physics.ConstraintKindStick,
		Body1:       body1,
		Body2:       body2,
		Location:    location,
		LinearDrive: p.LinearDrive,
	}
}

func (p Parameters) pinch(body1, body2 physics.BodyRef, location mgl64.Vec3) physics.ConstraintSpec {
	return physics.ConstraintSpec{
		Kind:         physics.ConstraintKindPinch,
		Body1:        body1,
		Body2:        body2,
		Location:     location,
		AngularDrive: p.AngularDrive,
	}
}

func (p Parameters) anchor(body1, body2 physics.BodyRef, location mgl64.Vec3) physics.ConstraintSpec {
	return physics.ConstraintSpec{
		Kind:     physics.ConstraintKindAnchor,
		Body1:    body1,
		Body2:    body2,
		Location: location,
		LinearLimit: physics.LinearLimit{
			X: physics.MotionLimited, Y: physics.MotionLimited, Z: physics.MotionLimited,
			Limit: p.AnchorLinearLimit,
		},
		AngularLimit: physics.AngularLimit{
			Twist: physics.MotionLimited, Swing1: physics.MotionLimited, Swing2: physics.MotionLimited,
			TwistLimit: p.AnchorTwistLimit,
			ConeLimit:  p.AnchorConeLimit,
		},
	}
}
