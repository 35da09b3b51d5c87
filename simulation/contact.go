package simulation

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/hxnet/hxnet/physics"
)

// Contact is an overlap between a body of one component and a body of another.
type Contact struct {
	Bone  physics.Bone
	Other physics.BodyRef
	// Location is halfway between the two bodies.
	Location mgl64.Vec3
	// Normal points from the body towards the other body.
	Normal mgl64.Vec3
	// Impulse is what the body exerts on the other body over the step.
	Impulse mgl64.Vec3
}

// Contacts returns every overlap between the bodies of a component and the bodies of every other
// component. Impulses grow linearly with penetration depth.
func (e *Engine) Contacts(name string, stiffness, dt float64) []Contact {
	c, ok := e.components.Get(name)
	if !ok {
		return nil
	}
	var contacts []Contact
	for _, b := range c.bodies {
		box := b.Box()
		for el := e.components.Front(); el != nil; el = el.Next() {
			if el.Key == name {
				continue
			}
			for _, o := range el.Value.bodies {
				if !box.IntersectsWith(o.Box()) {
					continue
				}
				diff := o.State.Position.Sub(b.State.Position)
				normal := up
				if l := diff.Len(); l > 0 {
					normal = diff.Mul(1 / l)
				}
				depth := b.HalfExtent + o.HalfExtent - diff.Len()
				contacts = append(contacts, Contact{
					Bone:     b.Bone,
					Other:    physics.BodyRef{Component: el.Key, Bone: o.Bone},
					Location: b.State.Position.Add(diff.Mul(0.5)),
					Normal:   normal,
					Impulse:  normal.Mul(stiffness * max(depth, 0) * dt),
				})
			}
		}
	}
	return contacts
}

var up = mgl64.Vec3{0, 0, 1}
