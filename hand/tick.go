package hand

import (
	"cmp"
	"slices"

	"github.com/hxnet/hxnet/authority"
	"github.com/hxnet/hxnet/physics"
)

// TickPrimary runs before physics steps. A pending scale is applied, objects that entered the
// authority zone stop following the engine's replication, and buffered frames are played back.
func (h *Hand) TickPrimary(now, dt float64) {
	if !h.enabled {
		return
	}
	h.now = now
	if h.rescale > 0 {
		h.engine.SetScale(h.conf.Name, h.rescale)
		h.scale, h.rescale = h.rescale, 0
	}
	h.zone.FlushDeferred()
	h.replicator.Tick(now, dt)
}

// UpdateTargets feeds freshly tracked targets. Only the machine controlling the hand tracks it.
func (h *Hand) UpdateTargets(targets physics.Targets) {
	if !h.enabled || !h.conf.LocallyControlled {
		return
	}
	h.targets = targets
	h.replicator.UpdateTargets(h.now, targets)
}

// TickSecondary runs once physics has stepped and the core has ticked. Stale damping is removed, the
// server re-evaluates who is authoritative, and the authority sends its state.
func (h *Hand) TickSecondary(now float64) {
	if !h.enabled {
		return
	}
	h.now = now
	h.expireDamping()
	if h.conf.Server {
		h.arbiter.Evaluate(h.zone, h.core.Table())
	}
	h.replicator.TickSecondary(now, h.targets)
}

func (h *Hand) palmRef() physics.BodyRef {
	return physics.BodyRef{Component: h.conf.Name, Bone: h.conf.Bones.Palm}
}

// UpdateOverlaps recomputes what overlaps the hand's authority zone: objects whose centre of mass
// lies within the zone radius of the palm, and other pawns' hands whose zones intersect this one.
// Every change is collected first and applied afterwards.
func (h *Hand) UpdateOverlaps(objects []string, others []*Hand) {
	center, ok := h.engine.CenterOfMass(h.palmRef())
	if !ok || !h.enabled {
		return
	}
	radius := h.zone.Radius()
	current := make(map[authority.Overlap]struct{})
	for _, c := range objects {
		p, ok := h.engine.CenterOfMass(physics.BodyRef{Component: c})
		if ok && p.Sub(center).Len() <= radius {
			current[authority.Overlap{Kind: authority.OverlapObject, Component: c}] = struct{}{}
		}
	}
	for _, o := range others {
		if o == h || !o.enabled || o.conf.Pawn == h.conf.Pawn {
			continue
		}
		p, ok := o.engine.CenterOfMass(o.palmRef())
		if ok && p.Sub(center).Len() <= radius+o.zone.Radius() {
			current[authority.Overlap{Kind: authority.OverlapHandZone, Pawn: o.conf.Pawn}] = struct{}{}
		}
	}

	var ended, began []authority.Overlap
	for o := range h.overlaps {
		if _, ok := current[o]; !ok {
			ended = append(ended, o)
		}
	}
	for o := range current {
		if _, ok := h.overlaps[o]; !ok {
			began = append(began, o)
		}
	}
	slices.SortFunc(ended, compareOverlaps)
	slices.SortFunc(began, compareOverlaps)
	for _, o := range ended {
		h.zone.End(o)
	}
	for _, o := range began {
		h.zone.Begin(o)
	}
	h.overlaps = current
}

func compareOverlaps(a, b authority.Overlap) int {
	return cmp.Or(
		cmp.Compare(a.Kind, b.Kind),
		cmp.Compare(a.Pawn, b.Pawn),
		cmp.Compare(a.Component, b.Component),
	)
}
