package contact

import (
	"io"

	"github.com/chewxy/math32"
	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/hxnet/hxnet/hxerror"
	"github.com/hxnet/hxnet/physics"
	"github.com/hxnet/hxnet/registry"
	"github.com/sirupsen/logrus"
)

// BodyCallbacks names the actuators a body drives when it is in contact.
type BodyCallbacks struct {
	Peripheral    PeripheralID
	Tactors       []TactorID
	Retractuators []RetractuatorID
}

// Sample is a geometric proximity sample taken by a tactor ray.
type Sample struct {
	Peripheral PeripheralID
	Tactor     TactorID
	Direction  mgl32.Vec3
	Object     registry.ID
	Distance   float32
	HitPoint   mgl32.Vec3
	HitNormal  mgl32.Vec3
	UV         mgl32.Vec2
}

type body struct {
	params    BodyParameters
	part      physics.BodyPart
	callbacks BodyCallbacks

	// impulse is the magnitude of impulse accumulated this tick, split by object.
	impulse map[registry.ID]float64
}

type tactor struct {
	params TactorParameters
	owner  registry.ID
}

type retractuator struct {
	params  RetractuatorParameters
	owners  []registry.ID
	force   float64
	engaged bool
}

type peripheral struct {
	tactors       *orderedmap.OrderedMap[TactorID, *tactor]
	retractuators *orderedmap.OrderedMap[RetractuatorID, *retractuator]
	compression   *CompressionFilter
	samples       map[TactorID][]Sample
}

// Interpreter accumulates contact evidence during a tick and turns it into haptic frames when the
// tick is committed.
type Interpreter struct {
	log         *logrus.Logger
	model       ForceModel
	compression CompressionParameters

	objects     map[registry.ID]ObjectParameters
	bodies      map[registry.ID]*body
	peripherals *orderedmap.OrderedMap[PeripheralID, *peripheral]
}

// NewInterpreter creates an Interpreter. A nil force model falls back to DefaultForceModel.
func NewInterpreter(log *logrus.Logger, model ForceModel, compression CompressionParameters) *Interpreter {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	if model == nil {
		model = DefaultForceModel
	}
	return &Interpreter{
		log:         log,
		model:       model,
		compression: compression,
		objects:     make(map[registry.ID]ObjectParameters),
		bodies:      make(map[registry.ID]*body),
		peripherals: orderedmap.NewOrderedMap[PeripheralID, *peripheral](),
	}
}

// RegisterObject registers the haptic parameters of an object. It returns false if the object is
// already registered and force is not set.
func (in *Interpreter) RegisterObject(id registry.ID, params ObjectParameters, force bool) bool {
	if !id.Valid() {
		return false
	}
	if _, ok := in.objects[id]; ok && !force {
		return false
	}
	in.objects[id] = params
	return true
}

// ObjectRegistered reports whether an object is registered.
func (in *Interpreter) ObjectRegistered(id registry.ID) bool {
	_, ok := in.objects[id]
	return ok
}

// RegisterBody registers a hand body along with the actuators it drives. It returns false if the
// body is already registered and force is not set.
func (in *Interpreter) RegisterBody(id registry.ID, params BodyParameters, part physics.BodyPart, callbacks BodyCallbacks, force bool) bool {
	if !id.Valid() {
		return false
	}
	if _, ok := in.bodies[id]; ok && !force {
		return false
	}
	in.bodies[id] = &body{params: params, part: part, callbacks: callbacks, impulse: make(map[registry.ID]float64)}

	p := in.peripheral(callbacks.Peripheral)
	for _, t := range callbacks.Tactors {
		if tc, ok := p.tactors.Get(t); ok {
			tc.owner = id
		} else {
			p.tactors.Set(t, &tactor{params: DefaultTactorParameters(), owner: id})
		}
	}
	for _, r := range callbacks.Retractuators {
		rc, ok := p.retractuators.Get(r)
		if !ok {
			rc = &retractuator{params: DefaultRetractuatorParameters()}
			p.retractuators.Set(r, rc)
		}
		if !containsID(rc.owners, id) {
			rc.owners = append(rc.owners, id)
		}
	}
	return true
}

// BodyRegistered reports whether a body is registered.
func (in *Interpreter) BodyRegistered(id registry.ID) bool {
	_, ok := in.bodies[id]
	return ok
}

// RegisterTactor sets the parameters of a tactor.
func (in *Interpreter) RegisterTactor(pid PeripheralID, tid TactorID, params TactorParameters) {
	p := in.peripheral(pid)
	if tc, ok := p.tactors.Get(tid); ok {
		tc.params = params
		return
	}
	p.tactors.Set(tid, &tactor{params: params})
}

// RegisterRetractuator sets the parameters of a retractuator.
func (in *Interpreter) RegisterRetractuator(pid PeripheralID, rid RetractuatorID, params RetractuatorParameters) {
	p := in.peripheral(pid)
	if rc, ok := p.retractuators.Get(rid); ok {
		rc.params = params
		return
	}
	p.retractuators.Set(rid, &retractuator{params: params})
}

// AddContact accumulates one collision impulse between an object and a body for the current tick.
func (in *Interpreter) AddContact(object, bodyID registry.ID, impulse mgl64.Vec3) error {
	b, ok := in.bodies[bodyID]
	if !ok {
		return hxerror.New(hxerror.ErrorBodyNotRegistered, bodyID)
	}
	if _, ok := in.objects[object]; !ok {
		return hxerror.New(hxerror.ErrorObjectUnknown, object)
	}
	b.impulse[object] += impulse.Len()
	return nil
}

// AddSampleResult records a geometric proximity sample for the current tick.
func (in *Interpreter) AddSampleResult(s Sample) error {
	if _, ok := in.objects[s.Object]; !ok {
		return hxerror.New(hxerror.ErrorObjectUnknown, s.Object)
	}
	p, ok := in.peripherals.Get(s.Peripheral)
	if !ok {
		return hxerror.New(hxerror.ErrorUnknownTactor, s.Peripheral, s.Tactor)
	}
	if _, ok := p.tactors.Get(s.Tactor); !ok {
		return hxerror.New(hxerror.ErrorUnknownTactor, s.Peripheral, s.Tactor)
	}
	p.samples[s.Tactor] = append(p.samples[s.Tactor], s)
	return nil
}

// CompressionScale returns the current compression scale of a peripheral, or 1 if the peripheral is
// unknown.
func (in *Interpreter) CompressionScale(pid PeripheralID) float32 {
	if p, ok := in.peripherals.Get(pid); ok {
		return p.compression.Scale()
	}
	return 1
}

// Engaged reports whether a retractuator is currently engaged.
func (in *Interpreter) Engaged(pid PeripheralID, rid RetractuatorID) bool {
	if p, ok := in.peripherals.Get(pid); ok {
		if rc, ok := p.retractuators.Get(rid); ok {
			return rc.engaged
		}
	}
	return false
}

// Commit turns everything accumulated since the last commit into one HapticFrame per contacted
// peripheral and clears the accumulated state.
func (in *Interpreter) Commit(dt float64) []HapticFrame {
	var frames []HapticFrame
	for el := in.peripherals.Front(); el != nil; el = el.Next() {
		if frame, ok := in.commitPeripheral(el.Key, el.Value, dt); ok {
			frames = append(frames, frame)
		}
	}

	for _, b := range in.bodies {
		clear(b.impulse)
	}
	for el := in.peripherals.Front(); el != nil; el = el.Next() {
		clear(el.Value.samples)
	}
	return frames
}

func (in *Interpreter) commitPeripheral(pid PeripheralID, p *peripheral, dt float64) (HapticFrame, bool) {
	frame := HapticFrame{Peripheral: pid}
	contacted := false

	var (
		ids    []TactorID
		raw    []float32
		limits []float32
	)
	for el := p.tactors.Front(); el != nil; el = el.Next() {
		h, ok := in.tactorHeight(el.Value, p.samples[el.Key], dt)
		if !ok {
			continue
		}
		ids = append(ids, el.Key)
		raw = append(raw, h)
		limits = append(limits, el.Value.params.MaxHeightTarget)
	}
	heights := p.compression.Apply(raw, limits)
	for i, id := range ids {
		frame.Tactors = append(frame.Tactors, TactorTarget{Tactor: id, Height: heights[i]})
	}
	contacted = len(ids) > 0
	frame.CompressionScale = p.compression.Scale()

	for el := p.retractuators.Front(); el != nil; el = el.Next() {
		rc := el.Value
		force, inContact := in.retractuatorForce(rc, dt)
		wasEngaged := rc.engaged
		rc.update(force, inContact, dt)
		if rc.engaged || wasEngaged || inContact {
			frame.Retractuators = append(frame.Retractuators, RetractuatorTarget{
				Retractuator: el.Key,
				Engaged:      rc.engaged,
				Force:        rc.force,
			})
			contacted = true
		}
	}
	return frame, contacted
}

// tactorHeight computes the raw, uncompressed height request of a tactor. It returns false if the
// tactor is not in contact.
func (in *Interpreter) tactorHeight(t *tactor, samples []Sample, dt float64) (float32, bool) {
	b, ok := in.bodies[t.owner]
	if !ok {
		return 0, false
	}
	force, object, hasForce := in.bodyForce(b, dt, func(o ObjectParameters) bool { return o.TriggersTactileFeedback })

	var (
		geometric    float64
		hasGeometric bool
	)
	for _, s := range samples {
		o, ok := in.objects[s.Object]
		if !ok || !o.TriggersTactileFeedback {
			continue
		}
		p := b.params.BaseContactTolerance + o.BaseContactTolerance - float64(s.Distance)
		if p <= 0 {
			continue
		}
		// Soft surfaces give way under load, so less of the penetration reaches the finger.
		p = max(0, p-(b.params.Compliance+o.Compliance)*force)
		if !hasGeometric || p > geometric {
			geometric = p
		}
		hasGeometric = true
	}

	var forceHeight float32
	if hasForce {
		forceHeight = in.model.Height(force, b.params, object) * t.params.DynamicScaling
	}
	switch {
	case hasGeometric && hasForce:
		return math32.Min(float32(geometric), forceHeight), true
	case hasGeometric:
		return float32(geometric), true
	case hasForce:
		return forceHeight, true
	}
	return 0, false
}

// bodyForce returns the force on a body this tick from objects accepted by filter, along with the
// parameters of the object contributing most.
func (in *Interpreter) bodyForce(b *body, dt float64, filter func(ObjectParameters) bool) (float64, ObjectParameters, bool) {
	if dt <= 0 {
		return 0, ObjectParameters{}, false
	}
	var (
		total     float64
		strongest float64
		params    ObjectParameters
		found     bool
	)
	for id, impulse := range b.impulse {
		o, ok := in.objects[id]
		if !ok || !filter(o) || impulse <= 0 {
			continue
		}
		total += impulse
		if !found || impulse > strongest {
			strongest, params = impulse, o
		}
		found = true
	}
	return total / dt, params, found
}

func (in *Interpreter) retractuatorForce(r *retractuator, dt float64) (float64, bool) {
	var (
		total     float64
		inContact bool
	)
	for _, id := range r.owners {
		b, ok := in.bodies[id]
		if !ok {
			continue
		}
		f, _, ok := in.bodyForce(b, dt, func(o ObjectParameters) bool { return o.TriggersForceFeedback })
		if ok {
			total += f
			inContact = true
		}
	}
	return total, inContact
}

func (in *Interpreter) peripheral(pid PeripheralID) *peripheral {
	if p, ok := in.peripherals.Get(pid); ok {
		return p
	}
	p := &peripheral{
		tactors:       orderedmap.NewOrderedMap[TactorID, *tactor](),
		retractuators: orderedmap.NewOrderedMap[RetractuatorID, *retractuator](),
		compression:   NewCompressionFilter(in.compression),
		samples:       make(map[TactorID][]Sample),
	}
	in.peripherals.Set(pid, p)
	return p
}

func containsID(ids []registry.ID, id registry.ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
