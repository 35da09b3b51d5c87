package grasp

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/hxnet/hxnet/registry"
)

// ID identifies a grasp for its whole lifetime.
type ID int64

// Kind is the kind of a grasp transition.
type Kind uint8

const (
	KindCreate Kind = iota
	KindUpdate
	KindDestroy
)

// String ...
func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindUpdate:
		return "update"
	case KindDestroy:
		return "destroy"
	}
	return "unknown"
}

// Grasp is a set of hand bodies judged to be holding an object.
type Grasp struct {
	ID     ID
	Object registry.ID
	// Parent is the lowest common ancestor of the participating bodies.
	Parent registry.ID
	Bodies []registry.ID
	Score  float64
	// Location is the estimated contact centroid in world space.
	Location mgl64.Vec3
	// Anchor is set when Parent is an anchor body.
	Anchor bool
}

// Pinch reports whether exactly two bodies participate, which allows rotational constraints.
func (g Grasp) Pinch() bool {
	return len(g.Bodies) == 2
}

// Transition is one entry of the grasp history.
type Transition struct {
	Kind  Kind
	Grasp Grasp
}
