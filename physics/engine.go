package physics

import "github.com/go-gl/mathgl/mgl64"

// ConstraintID is an engine-issued handle to a live constraint.
type ConstraintID int64

// ConstraintEngine creates and destroys constraints.
type ConstraintEngine interface {
	// CreateConstraint creates a constraint and returns its handle.
	CreateConstraint(spec ConstraintSpec) (ConstraintID, error)
	// DestroyConstraint terminates a constraint. Destroying an unknown handle is a no-op.
	DestroyConstraint(id ConstraintID)
	// SetConstraintEnabled toggles whether a constraint is physically simulated.
	SetConstraintEnabled(id ConstraintID, enabled bool)
	// ConstraintSpec returns the spec a live constraint was created from.
	ConstraintSpec(id ConstraintID) (ConstraintSpec, bool)
}

// BodyEngine reads and writes rigid body state.
type BodyEngine interface {
	// BodyStates returns the states of every body of a component, in body index order.
	BodyStates(component string) []RigidBodyState
	// SetBodyStates teleports every body of a component. It returns false if the number of states
	// does not match the number of bodies.
	SetBodyStates(component string, states []RigidBodyState) bool
	// ObjectStates returns the states of every simulated body of a component.
	ObjectStates(component string) []ObjectState
	// SetObjectState teleports one body of a component.
	SetObjectState(state ObjectState) bool
	// CenterOfMass returns the world centre of mass of a body.
	CenterOfMass(ref BodyRef) (mgl64.Vec3, bool)
	// Simulating reports whether a body is simulated.
	Simulating(ref BodyRef) bool
	// SetLinearVelocity sets the linear velocity of a body.
	SetLinearVelocity(ref BodyRef, velocity mgl64.Vec3)
	// BodyState returns the state of a single body.
	BodyState(ref BodyRef) (RigidBodyState, bool)
	// Volumes returns the world space bounds of every body of a component.
	Volumes(component string) []Volume
}

// Volume is the axis aligned world space bounds of a body.
type Volume struct {
	Body     BodyRef
	Min, Max mgl64.Vec3
}

// TraceHit is the result of a line trace.
type TraceHit struct {
	Body     BodyRef
	Location mgl64.Vec3
}

// HandEngine drives the skeleton of a hand.
type HandEngine interface {
	// SetDriveTarget steers a drive constraint towards a position and orientation.
	SetDriveTarget(id ConstraintID, position mgl64.Vec3, orientation mgl64.Quat)
	// Teleport moves a component without sweeping.
	Teleport(component string, position mgl64.Vec3, orientation mgl64.Quat)
	// SetScale sets the uniform world scale of a component and rebuilds its physics state.
	SetScale(component string, scale float64)
	// SetSimulatePhysics toggles simulation of every body of a component.
	SetSimulatePhysics(component string, simulate bool)
	// LineTrace traces against pawn bodies.
	LineTrace(from, to mgl64.Vec3) (TraceHit, bool)
}

// ReplicationEngine exposes the engine's own movement replication of objects.
type ReplicationEngine interface {
	// MovementReplicated reports whether the engine replicates a component's movement.
	MovementReplicated(component string) bool
	// SetMovementReplicated toggles the engine's movement replication of a component.
	SetMovementReplicated(component string, replicated bool)
	// RemoveReplicationTarget clears any pending replicated target of a component.
	RemoveReplicationTarget(component string)
}

// Engine is everything hxnet needs from the physics engine.
type Engine interface {
	ConstraintEngine
	BodyEngine
	HandEngine
	ReplicationEngine
}
