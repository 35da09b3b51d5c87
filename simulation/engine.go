package simulation

import (
	"fmt"
	"io"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/ethaniccc/float32-cube/cube"
	"github.com/ethaniccc/float32-cube/cube/trace"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/hxnet/hxnet/hxmath"
	"github.com/hxnet/hxnet/physics"
	"github.com/sirupsen/logrus"
)

// Body is one rigid body of a simulated component. Bodies are modelled as cubes for tracing.
type Body struct {
	Bone       physics.Bone
	State      physics.RigidBodyState
	HalfExtent float64
}

// Box returns the world space bounding box of the body.
func (b Body) Box() cube.BBox {
	p, h := b.State.Position, b.HalfExtent
	return cube.Box(
		float32(p[0]-h), float32(p[1]-h), float32(p[2]-h),
		float32(p[0]+h), float32(p[1]+h), float32(p[2]+h),
	)
}

type component struct {
	bodies     []Body
	index      map[physics.Bone]int
	simulating bool
	replicated bool
	scale      float64

	replicationTargets int
}

type constraint struct {
	spec    physics.ConstraintSpec
	enabled bool

	// offset is the position of body 2 relative to body 1 when the constraint was created.
	offset mgl64.Vec3

	hasTarget         bool
	targetPosition    mgl64.Vec3
	targetOrientation mgl64.Quat
}

// Config configures an Engine.
type Config struct {
	Gravity mgl64.Vec3
	// LinearDamping [1/s] bleeds off the velocity of free bodies.
	LinearDamping float64
}

// Engine is a small deterministic rigid body simulation implementing physics.Engine. Drive targets
// are reached by driving velocities, and constraints with a linear drive carry their second body
// along with the first.
type Engine struct {
	log  *logrus.Logger
	conf Config

	components  *orderedmap.OrderedMap[string, *component]
	constraints *orderedmap.OrderedMap[physics.ConstraintID, *constraint]
	nextID      physics.ConstraintID
}

// NewEngine creates an empty Engine.
func NewEngine(log *logrus.Logger, conf Config) *Engine {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Engine{
		log:         log,
		conf:        conf,
		components:  orderedmap.NewOrderedMap[string, *component](),
		constraints: orderedmap.NewOrderedMap[physics.ConstraintID, *constraint](),
		nextID:      1,
	}
}

// AddComponent adds a simulated component. Its bodies keep the order given.
func (e *Engine) AddComponent(name string, bodies ...Body) error {
	if name == "" {
		return fmt.Errorf("component name must not be empty")
	}
	if _, ok := e.components.Get(name); ok {
		return fmt.Errorf("component %s already exists", name)
	}
	c := &component{
		bodies:     append([]Body(nil), bodies...),
		index:      make(map[physics.Bone]int, len(bodies)),
		simulating: true,
		replicated: true,
		scale:      1,
	}
	for i, b := range bodies {
		if b.State.Orientation == (mgl64.Quat{}) {
			c.bodies[i].State.Orientation = mgl64.QuatIdent()
		}
		c.index[b.Bone] = i
	}
	e.components.Set(name, c)
	return nil
}

// RemoveComponent removes a component and every constraint attached to it.
func (e *Engine) RemoveComponent(name string) {
	for _, id := range e.constraints.Keys() {
		c, _ := e.constraints.Get(id)
		if c.spec.Involves(name) {
			e.constraints.Delete(id)
		}
	}
	e.components.Delete(name)
}

// Body returns a body by reference.
func (e *Engine) Body(ref physics.BodyRef) (Body, bool) {
	b := e.body(ref)
	if b == nil {
		return Body{}, false
	}
	return *b, true
}

func (e *Engine) body(ref physics.BodyRef) *Body {
	c, ok := e.components.Get(ref.Component)
	if !ok {
		return nil
	}
	i, ok := c.index[ref.Bone]
	if !ok {
		if ref.Bone != "" || len(c.bodies) == 0 {
			return nil
		}
		i = 0
	}
	return &c.bodies[i]
}

func (e *Engine) CreateConstraint(spec physics.ConstraintSpec) (physics.ConstraintID, error) {
	var b1, b2 *Body
	if !spec.Body1.IsWorld() {
		if b1 = e.body(spec.Body1); b1 == nil {
			return 0, fmt.Errorf("unknown body %s:%s", spec.Body1.Component, spec.Body1.Bone)
		}
	}
	if !spec.Body2.IsWorld() {
		if b2 = e.body(spec.Body2); b2 == nil {
			return 0, fmt.Errorf("unknown body %s:%s", spec.Body2.Component, spec.Body2.Bone)
		}
	}
	c := &constraint{spec: spec, enabled: true}
	if b1 != nil && b2 != nil {
		c.offset = b2.State.Position.Sub(b1.State.Position)
	}
	id := e.nextID
	e.nextID++
	e.constraints.Set(id, c)
	e.log.Debugf("created %s constraint %d", spec.Kind, id)
	return id, nil
}

func (e *Engine) DestroyConstraint(id physics.ConstraintID) {
	e.constraints.Delete(id)
}

func (e *Engine) SetConstraintEnabled(id physics.ConstraintID, enabled bool) {
	if c, ok := e.constraints.Get(id); ok {
		c.enabled = enabled
	}
}

func (e *Engine) ConstraintSpec(id physics.ConstraintID) (physics.ConstraintSpec, bool) {
	c, ok := e.constraints.Get(id)
	if !ok {
		return physics.ConstraintSpec{}, false
	}
	return c.spec, true
}

// ConstraintEnabled reports whether a constraint exists and is enabled.
func (e *Engine) ConstraintEnabled(id physics.ConstraintID) bool {
	c, ok := e.constraints.Get(id)
	return ok && c.enabled
}

// Constraints returns the handles of every live constraint in creation order.
func (e *Engine) Constraints() []physics.ConstraintID {
	return e.constraints.Keys()
}

func (e *Engine) BodyStates(name string) []physics.RigidBodyState {
	c, ok := e.components.Get(name)
	if !ok {
		return nil
	}
	states := make([]physics.RigidBodyState, len(c.bodies))
	for i, b := range c.bodies {
		states[i] = b.State
	}
	return states
}

func (e *Engine) SetBodyStates(name string, states []physics.RigidBodyState) bool {
	c, ok := e.components.Get(name)
	if !ok || len(states) != len(c.bodies) {
		return false
	}
	for i := range c.bodies {
		c.bodies[i].State = states[i]
	}
	return true
}

func (e *Engine) ObjectStates(name string) []physics.ObjectState {
	c, ok := e.components.Get(name)
	if !ok || !c.simulating {
		return nil
	}
	states := make([]physics.ObjectState, len(c.bodies))
	for i, b := range c.bodies {
		states[i] = physics.ObjectState{Component: name, BodyIndex: i, State: b.State}
	}
	return states
}

func (e *Engine) SetObjectState(state physics.ObjectState) bool {
	c, ok := e.components.Get(state.Component)
	if !ok || state.BodyIndex < 0 || state.BodyIndex >= len(c.bodies) {
		return false
	}
	c.bodies[state.BodyIndex].State = state.State
	return true
}

func (e *Engine) CenterOfMass(ref physics.BodyRef) (mgl64.Vec3, bool) {
	b := e.body(ref)
	if b == nil {
		return mgl64.Vec3{}, false
	}
	return b.State.Position, true
}

func (e *Engine) BodyState(ref physics.BodyRef) (physics.RigidBodyState, bool) {
	b := e.body(ref)
	if b == nil {
		return physics.RigidBodyState{}, false
	}
	return b.State, true
}

func (e *Engine) Volumes(name string) []physics.Volume {
	c, ok := e.components.Get(name)
	if !ok {
		return nil
	}
	volumes := make([]physics.Volume, len(c.bodies))
	for i, b := range c.bodies {
		h := mgl64.Vec3{b.HalfExtent, b.HalfExtent, b.HalfExtent}
		volumes[i] = physics.Volume{
			Body: physics.BodyRef{Component: name, Bone: b.Bone},
			Min:  b.State.Position.Sub(h),
			Max:  b.State.Position.Add(h),
		}
	}
	return volumes
}

func (e *Engine) Simulating(ref physics.BodyRef) bool {
	c, ok := e.components.Get(ref.Component)
	return ok && c.simulating && e.body(ref) != nil
}

func (e *Engine) SetLinearVelocity(ref physics.BodyRef, velocity mgl64.Vec3) {
	if b := e.body(ref); b != nil {
		b.State.LinearVelocity = velocity
	}
}

func (e *Engine) SetDriveTarget(id physics.ConstraintID, position mgl64.Vec3, orientation mgl64.Quat) {
	c, ok := e.constraints.Get(id)
	if !ok {
		return
	}
	c.hasTarget = true
	c.targetPosition, c.targetOrientation = position, orientation
}

func (e *Engine) Teleport(name string, position mgl64.Vec3, orientation mgl64.Quat) {
	c, ok := e.components.Get(name)
	if !ok || len(c.bodies) == 0 {
		return
	}
	root := c.bodies[0].State
	rotation := orientation.Mul(root.Orientation.Inverse())
	for i := range c.bodies {
		s := &c.bodies[i].State
		s.Position = position.Add(rotation.Rotate(s.Position.Sub(root.Position)))
		s.Orientation = rotation.Mul(s.Orientation).Normalize()
		s.LinearVelocity, s.AngularVelocity = mgl64.Vec3{}, mgl64.Vec3{}
	}
}

func (e *Engine) SetScale(name string, scale float64) {
	c, ok := e.components.Get(name)
	if !ok || scale <= 0 || len(c.bodies) == 0 {
		return
	}
	factor := scale / c.scale
	root := c.bodies[0].State.Position
	for i := range c.bodies {
		b := &c.bodies[i]
		b.State.Position = root.Add(b.State.Position.Sub(root).Mul(factor))
		b.HalfExtent *= factor
	}
	c.scale = scale
}

// Scale returns the scale of a component.
func (e *Engine) Scale(name string) float64 {
	c, ok := e.components.Get(name)
	if !ok {
		return 0
	}
	return c.scale
}

func (e *Engine) SetSimulatePhysics(name string, simulate bool) {
	if c, ok := e.components.Get(name); ok {
		c.simulating = simulate
	}
}

// LineTrace returns the nearest body whose box the segment from..to crosses. Bodies containing from
// are ignored.
func (e *Engine) LineTrace(from, to mgl64.Vec3) (physics.TraceHit, bool) {
	var (
		best  physics.TraceHit
		dist  = -1.0
		start = toVec32(from)
		end   = toVec32(to)
	)
	for el := e.components.Front(); el != nil; el = el.Next() {
		for _, b := range el.Value.bodies {
			box := b.Box()
			if box.Vec3Within(start) {
				continue
			}
			result, ok := trace.BBoxIntercept(box, start, end)
			if !ok {
				continue
			}
			hit := toVec64(result.Position())
			if d := hit.Sub(from).Len(); dist < 0 || d < dist {
				dist = d
				best = physics.TraceHit{Body: physics.BodyRef{Component: el.Key, Bone: b.Bone}, Location: hit}
			}
		}
	}
	return best, dist >= 0
}

func (e *Engine) MovementReplicated(name string) bool {
	c, ok := e.components.Get(name)
	return ok && c.replicated
}

func (e *Engine) SetMovementReplicated(name string, replicated bool) {
	if c, ok := e.components.Get(name); ok {
		c.replicated = replicated
	}
}

func (e *Engine) RemoveReplicationTarget(name string) {
	if c, ok := e.components.Get(name); ok {
		c.replicationTargets++
	}
}

// ReplicationTargetsRemoved counts calls to RemoveReplicationTarget for a component.
func (e *Engine) ReplicationTargetsRemoved(name string) int {
	c, ok := e.components.Get(name)
	if !ok {
		return 0
	}
	return c.replicationTargets
}

// Step advances the simulation by dt seconds.
func (e *Engine) Step(dt float64) {
	if dt <= 0 {
		return
	}
	damping := 1 / (1 + dt*e.conf.LinearDamping)
	for el := e.components.Front(); el != nil; el = el.Next() {
		if !el.Value.simulating {
			continue
		}
		for i := range el.Value.bodies {
			s := &el.Value.bodies[i].State
			s.LinearVelocity = s.LinearVelocity.Add(e.conf.Gravity.Mul(dt)).Mul(damping)
		}
	}

	for el := e.constraints.Front(); el != nil; el = el.Next() {
		c := el.Value
		if !c.enabled || !c.hasTarget {
			continue
		}
		b := e.body(c.spec.Body1)
		if b == nil {
			continue
		}
		if c.spec.LinearDrive.Enabled() {
			gain := min(1/dt, driveGain(c.spec.LinearDrive))
			b.State.LinearVelocity = c.targetPosition.Sub(b.State.Position).Mul(gain)
		}
		if c.spec.AngularDrive.Enabled() {
			alpha := hxmath.ClampFloat(dt*driveGain(c.spec.AngularDrive), 0, 1)
			b.State.Orientation = hxmath.SlerpQuat(b.State.Orientation, c.targetOrientation, alpha)
		}
	}

	for el := e.components.Front(); el != nil; el = el.Next() {
		if !el.Value.simulating {
			continue
		}
		for i := range el.Value.bodies {
			s := &el.Value.bodies[i].State
			s.Position = s.Position.Add(s.LinearVelocity.Mul(dt))
		}
	}

	// Bodies held by a drive follow the body holding them.
	for el := e.constraints.Front(); el != nil; el = el.Next() {
		c := el.Value
		if !c.enabled || c.hasTarget || !c.spec.LinearDrive.Enabled() || c.spec.Body1.IsWorld() || c.spec.Body2.IsWorld() {
			continue
		}
		b1, b2 := e.body(c.spec.Body1), e.body(c.spec.Body2)
		if b1 == nil || b2 == nil || !e.Simulating(c.spec.Body2) {
			continue
		}
		b2.State.Position = b1.State.Position.Add(c.offset)
		b2.State.LinearVelocity = b1.State.LinearVelocity
	}
}

func driveGain(d physics.Drive) float64 {
	if d.Damping <= 0 {
		return d.Stiffness
	}
	return d.Stiffness / d.Damping
}

func toVec32(v mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

func toVec64(v mgl32.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}

var _ physics.Engine = (*Engine)(nil)
