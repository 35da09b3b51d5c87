package authority

import (
	"io"
	"slices"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/hxnet/hxnet/physics"
	"github.com/sirupsen/logrus"
)

// OverlapKind distinguishes what entered or left a zone.
type OverlapKind byte

const (
	// OverlapHandZone is the authority zone of another hand.
	OverlapHandZone OverlapKind = iota
	// OverlapObject is a physically simulated object.
	OverlapObject
)

// Overlap is something that entered or left an authority zone.
type Overlap struct {
	Kind OverlapKind
	// Pawn owns the overlapping hand zone.
	Pawn PawnID
	// Component names the overlapping object.
	Component string
}

// ZoneConfig configures a Zone.
type ZoneConfig struct {
	Pawn PawnID
	// Radius is the nominal radius of the zone.
	Radius float64
	// Hysteresis enlarges the radius by this fraction while another hand's zone overlaps.
	Hysteresis float64
	// Server is set when the zone lives on the server.
	Server bool
}

// Zone is the region around a hand inside which objects count towards authority decisions.
type Zone struct {
	log    *logrus.Logger
	conf   ZoneConfig
	table  *Table
	engine physics.ReplicationEngine

	radius   float64
	overlaps int
	objects  *orderedmap.OrderedMap[string, int]

	deferred []string
}

// NewZone creates a Zone that records object occupancy in table.
func NewZone(log *logrus.Logger, conf ZoneConfig, table *Table, engine physics.ReplicationEngine) *Zone {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Zone{
		log:     log,
		conf:    conf,
		table:   table,
		engine:  engine,
		radius:  conf.Radius,
		objects: orderedmap.NewOrderedMap[string, int](),
	}
}

// Begin records something entering the zone.
func (z *Zone) Begin(o Overlap) {
	switch o.Kind {
	case OverlapHandZone:
		if o.Pawn == z.conf.Pawn {
			return
		}
		z.overlaps++
		if z.overlaps == 1 {
			z.radius = z.conf.Radius * (1 + z.conf.Hysteresis)
		}
	case OverlapObject:
		n, _ := z.objects.Get(o.Component)
		z.objects.Set(o.Component, n+1)

		pawns, count := z.table.Add(o.Component, z.conf.Pawn)
		if z.conf.Server || pawns != 1 || count != 1 || !z.engine.MovementReplicated(o.Component) {
			return
		}
		// Simulated locally from here on.
		z.engine.SetMovementReplicated(o.Component, false)
		z.table.MarkReplicating(o.Component)
		z.deferred = append(z.deferred, o.Component)
	}
}

// End records something leaving the zone.
func (z *Zone) End(o Overlap) {
	switch o.Kind {
	case OverlapHandZone:
		if o.Pawn == z.conf.Pawn || z.overlaps == 0 {
			return
		}
		z.overlaps--
		if z.overlaps == 0 {
			z.radius = z.conf.Radius
		}
	case OverlapObject:
		n, ok := z.objects.Get(o.Component)
		if !ok {
			return
		}
		if n <= 1 {
			z.objects.Delete(o.Component)
		} else {
			z.objects.Set(o.Component, n-1)
		}

		empty, wasReplicating := z.table.Remove(o.Component, z.conf.Pawn)
		if empty && wasReplicating && !z.conf.Server {
			z.engine.SetMovementReplicated(o.Component, true)
		}
	}
}

// FlushDeferred removes the replication targets of objects that entered the zone since the last
// flush. It must be called outside of overlap callbacks.
func (z *Zone) FlushDeferred() {
	for _, c := range z.deferred {
		z.engine.RemoveReplicationTarget(c)
	}
	z.deferred = z.deferred[:0]
}

// Pending returns the objects waiting for FlushDeferred.
func (z *Zone) Pending() []string {
	return slices.Clone(z.deferred)
}

// Objects returns the objects currently in the zone, in the order they entered.
func (z *Zone) Objects() []string {
	return z.objects.Keys()
}

// Contains reports whether an object is in the zone.
func (z *Zone) Contains(component string) bool {
	_, ok := z.objects.Get(component)
	return ok
}

// HandOverlaps returns the number of other hands' zones overlapping this one.
func (z *Zone) HandOverlaps() int {
	return z.overlaps
}

// Radius returns the effective radius of the zone.
func (z *Zone) Radius() float64 {
	return z.radius
}

// Pawn returns the pawn owning the zone.
func (z *Zone) Pawn() PawnID {
	return z.conf.Pawn
}

// Clear leaves every object and hand zone.
func (z *Zone) Clear() {
	for _, c := range z.objects.Keys() {
		n, _ := z.objects.Get(c)
		for i := 0; i < n; i++ {
			z.End(Overlap{Kind: OverlapObject, Component: c})
		}
	}
	z.overlaps = 0
	z.radius = z.conf.Radius
	z.deferred = z.deferred[:0]
	z.log.Debugf("authority zone of %s cleared", z.conf.Pawn)
}
