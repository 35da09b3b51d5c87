package hand

import (
	"math"

	"github.com/ethaniccc/float32-cube/cube"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/hxnet/hxnet/contact"
	"github.com/hxnet/hxnet/physics"
)

// tactorReach [m] is how far past the pad of a segment its tactor looks for objects, at scale 1.
const tactorReach = 0.02

// padDirection is the direction tactors face in the local frame of their segment.
var padDirection = mgl64.Vec3{0, 0, -1}

// palmTactors places the palm tactors across the palm, as fractions of its half extents.
var palmTactors = [...]mgl64.Vec2{{-0.5, -0.5}, {0.5, -0.5}, {-0.5, 0.5}, {0.5, 0.5}}

// TraceTactors looks for objects in the hand's zone within reach of every tactor and records what
// it finds as contact samples. Only hands worn on this machine trace. It returns the number of
// samples recorded and must run before the core commits the tick.
func (h *Hand) TraceTactors() int {
	if !h.enabled || !h.conf.LocallyControlled {
		return 0
	}
	volumes := h.objectVolumes()
	if len(volumes) == 0 {
		return 0
	}
	return h.core.Interpreter().Trace(h.tactorRays(), volumes)
}

// objectVolumes returns the bounds of every body of every object in the zone. Objects that were
// never touched are registered on the way.
func (h *Hand) objectVolumes() []contact.ObjectVolume {
	var volumes []contact.ObjectVolume
	for _, component := range h.zone.Objects() {
		for _, v := range h.engine.Volumes(component) {
			id, ok := h.core.ObjectID(component, v.Body.Bone)
			if !ok {
				if id, ok = h.core.TryRegisterObject(component, v.Body.Bone, "", false); !ok {
					continue
				}
			}
			volumes = append(volumes, contact.ObjectVolume{
				Object: id,
				Box: cube.Box(
					float32(v.Min[0]), float32(v.Min[1]), float32(v.Min[2]),
					float32(v.Max[0]), float32(v.Max[1]), float32(v.Max[2]),
				),
			})
		}
	}
	return volumes
}

func (h *Hand) tactorRays() []contact.TactorRay {
	extents := make(map[physics.Bone]mgl64.Vec3)
	for _, v := range h.engine.Volumes(h.conf.Name) {
		extents[v.Body.Bone] = v.Max.Sub(v.Min).Mul(0.5)
	}

	bones := h.conf.Bones
	rays := make([]contact.TactorRay, 0, physics.JointCount+len(palmTactors))
	base := contact.TactorID(physics.JointCount)
	for i, offset := range palmTactors {
		if ray, ok := h.tactorRay(bones.Palm, extents, base+contact.TactorID(i), offset); ok {
			rays = append(rays, ray)
		}
	}
	for f := physics.FingerThumb; f < physics.FingerCount; f++ {
		for j := physics.JointProximal; j < physics.JointsPerFinger; j++ {
			tactor := contact.TactorID(physics.JointIndex(f, j))
			if ray, ok := h.tactorRay(bones.Joints[f][j], extents, tactor, mgl64.Vec2{}); ok {
				rays = append(rays, ray)
			}
		}
	}
	return rays
}

// tactorRay casts from the pad of a segment, shifted across the pad by offset.
func (h *Hand) tactorRay(bone physics.Bone, extents map[physics.Bone]mgl64.Vec3, tactor contact.TactorID, offset mgl64.Vec2) (contact.TactorRay, bool) {
	half, ok := extents[bone]
	if !ok {
		return contact.TactorRay{}, false
	}
	state, ok := h.engine.BodyState(physics.BodyRef{Component: h.conf.Name, Bone: bone})
	if !ok {
		return contact.TactorRay{}, false
	}
	direction := state.Orientation.Rotate(padDirection).Normalize()
	origin := state.Position.Add(state.Orientation.Rotate(mgl64.Vec3{offset[0] * half[0], offset[1] * half[1], 0}))
	origin = origin.Add(direction.Mul(exitDistance(half, direction)))
	return contact.TactorRay{
		Peripheral: h.conf.Peripheral,
		Tactor:     tactor,
		Origin:     mgl32.Vec3{float32(origin[0]), float32(origin[1]), float32(origin[2])},
		Direction:  mgl32.Vec3{float32(direction[0]), float32(direction[1]), float32(direction[2])},
		Length:     float32(tactorReach * h.scale),
	}, true
}

// exitDistance is how far a ray from the centre of a box with the given half extents travels
// before leaving it.
func exitDistance(half, direction mgl64.Vec3) float64 {
	t := math.Inf(1)
	for i := 0; i < 3; i++ {
		if d := math.Abs(direction[i]); d > 1e-9 {
			t = min(t, half[i]/d)
		}
	}
	if math.IsInf(t, 1) {
		return 0
	}
	return t
}
