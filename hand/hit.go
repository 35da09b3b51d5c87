package hand

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/hxnet/hxnet/physics"
	"github.com/hxnet/hxnet/registry"
)

// dampingReach [m] is how far below an object's centre of mass the hand must be for the object to
// count as resting on it.
const dampingReach = 0.3

var up = mgl64.Vec3{0, 0, 1}

// Hit is a collision between a body of the hand and something else, as reported by the physics
// engine.
type Hit struct {
	Bone          physics.Bone
	Other         physics.BodyRef
	CollisionType string
	Location      mgl64.Vec3
	Normal        mgl64.Vec3
	Impulse       mgl64.Vec3
}

type damper struct {
	id      physics.ConstraintID
	spec    physics.ConstraintSpec
	touched bool
}

// NotifyHit feeds a collision to contact interpretation and grasp detection. Haptic output is only
// produced for hands worn on this machine, but grasps are detected everywhere.
func (h *Hand) NotifyHit(hit Hit) {
	if !h.enabled || hit.Other.IsWorld() || hit.Other.Component == h.conf.Name {
		return
	}
	body, ok := h.bodies[hit.Bone]
	if !ok {
		return
	}
	object, ok := h.core.TryRegisterObject(hit.Other.Component, hit.Other.Bone, hit.CollisionType, false)
	if !ok {
		return
	}
	if h.conf.LocallyControlled {
		if err := h.core.AddContact(object, body, hit.Impulse); err != nil {
			h.log.Debugf("%s: %v", h.conf.Name, err)
		}
	}
	if err := h.core.Detector().AddGraspContact(object, body, hit.Location, hit.Impulse); err != nil {
		h.log.Debugf("%s: %v", h.conf.Name, err)
	}
	h.damp(body, object, hit.Other)
}

// damp slows down objects resting on the palm.
func (h *Hand) damp(body, object registry.ID, other physics.BodyRef) {
	switch h.parts[body] {
	case physics.BodyPartPalm, physics.BodyPartProximal:
	default:
		return
	}
	if d, ok := h.damping[object]; ok {
		d.touched = true
		return
	}
	settings := h.core.Settings().DampingFor(other.Component)
	if !settings.Enabled || !h.engine.Simulating(other) {
		return
	}
	com, ok := h.engine.CenterOfMass(other)
	if !ok {
		return
	}
	below, ok := h.engine.LineTrace(com, com.Sub(up.Mul(dampingReach*h.scale)))
	if !ok || below.Body.Component != h.conf.Name {
		return
	}

	palm := physics.BodyRef{Component: h.conf.Name, Bone: h.conf.Bones.Palm}
	spec := settings.DampingSpec(palm, other, com)
	id, err := h.engine.CreateConstraint(spec)
	if err != nil {
		h.log.Warnf("%s: creating damping constraint: %v", h.conf.Name, err)
		return
	}
	h.damping[object] = &damper{id: id, spec: spec, touched: true}
	h.replicator.ConstraintCreated(id, spec)
}

// expireDamping removes the damping of objects that were not touched since the last call.
func (h *Hand) expireDamping() {
	for object, d := range h.damping {
		if d.touched {
			d.touched = false
			continue
		}
		h.engine.DestroyConstraint(d.id)
		h.replicator.ConstraintDestroyed(d.id, d.spec)
		delete(h.damping, object)
	}
}

func (h *Hand) clearDamping() {
	for object, d := range h.damping {
		h.engine.DestroyConstraint(d.id)
		h.replicator.ConstraintDestroyed(d.id, d.spec)
		delete(h.damping, object)
	}
}

// Damped reports whether an object is currently damped by the hand.
func (h *Hand) Damped(object registry.ID) bool {
	_, ok := h.damping[object]
	return ok
}
