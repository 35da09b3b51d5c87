package hand

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/hxnet/hxnet/physics"
)

// driver lets the replicator steer the hand.
type driver struct {
	h *Hand
}

func (d driver) ApplyTargets(targets physics.Targets) {
	h := d.h
	h.targets = targets
	if h.palm != 0 {
		h.engine.SetDriveTarget(h.palm, targets.Middle1Position, targets.Middle1Orientation)
	}
	if len(targets.JointOrientations) != physics.JointCount {
		return
	}
	for i, id := range h.joints {
		if id != 0 {
			h.engine.SetDriveTarget(id, mgl64.Vec3{}, targets.JointOrientations[i])
		}
	}
}

func (d driver) Teleport(position mgl64.Vec3, orientation mgl64.Quat) {
	h := d.h
	h.engine.Teleport(h.conf.Name, position, orientation)
	if h.palm != 0 {
		h.engine.SetDriveTarget(h.palm, position, orientation)
	}
	h.targets.Middle1Position, h.targets.Middle1Orientation = position, orientation
}

func (d driver) SetScale(scale float64) {
	if scale <= 0 {
		d.h.log.Warnf("ignoring scale %f for %s", scale, d.h.conf.Name)
		return
	}
	d.h.rescale = scale
}

func (d driver) Scale() float64 {
	return d.h.scale
}
