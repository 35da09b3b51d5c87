package grasp

import (
	"io"
	"slices"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/hxnet/hxnet/hxerror"
	"github.com/hxnet/hxnet/hxmath"
	"github.com/hxnet/hxnet/registry"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// scoreEpsilon is the contribution below which a body is forgotten.
const scoreEpsilon = 1e-6

type bodyNode struct {
	parent registry.ID
	root   registry.ID
	depth  int
	order  int
	anchor bool
}

type groupKey struct {
	object registry.ID
	root   registry.ID
}

// group tracks the contact between one object and the bodies of one hierarchy.
type group struct {
	key    groupKey
	scores map[registry.ID]float64

	// Contact received since the last update.
	impulse  map[registry.ID]float64
	location mgl64.Vec3
	weight   float64

	centroid mgl64.Vec3
	grasp    *Grasp
}

// Detector turns grasp contact into grasp transitions. Contact is accumulated with AddGraspContact,
// Update evaluates every object once per tick, and the resulting transitions stay in History until
// ClearHistory is called.
type Detector struct {
	log    *logrus.Logger
	params Parameters

	bodies  map[registry.ID]*bodyNode
	objects map[registry.ID]ObjectParameters
	groups  *orderedmap.OrderedMap[groupKey, *group]

	nextID  ID
	history []Transition
}

// NewDetector creates a Detector.
func NewDetector(log *logrus.Logger, params Parameters) *Detector {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Detector{
		log:     log,
		params:  params,
		bodies:  make(map[registry.ID]*bodyNode),
		objects: make(map[registry.ID]ObjectParameters),
		groups:  orderedmap.NewOrderedMap[groupKey, *group](),
	}
}

// Parameters returns the detector's parameters.
func (d *Detector) Parameters() Parameters {
	return d.params
}

// SetParameters replaces the detector's parameters. Live grasps are evaluated against the new
// parameters on the next update.
func (d *Detector) SetParameters(params Parameters) {
	d.params = params
}

// RegisterBody registers a hand body below parent. The root of a hierarchy is registered with
// registry.InvalidID as its parent. Parents must be registered before their children.
func (d *Detector) RegisterBody(id, parent registry.ID, anchor bool) error {
	if !id.Valid() {
		return hxerror.New(hxerror.ErrorBodyNotRegistered, id)
	}
	node := &bodyNode{parent: parent, root: id, anchor: anchor, order: len(d.bodies)}
	if existing, ok := d.bodies[id]; ok {
		node.order = existing.order
	}
	if parent.Valid() {
		p, ok := d.bodies[parent]
		if !ok {
			return hxerror.New(hxerror.ErrorBodyNotRegistered, parent)
		}
		node.root, node.depth = p.root, p.depth+1
	}
	d.bodies[id] = node
	return nil
}

// RegisterObject registers or replaces the grasp parameters of an object.
func (d *Detector) RegisterObject(id registry.ID, params ObjectParameters) bool {
	if !id.Valid() {
		return false
	}
	d.objects[id] = params
	return true
}

// AddGraspContact records one contact between a registered body and a registered object for the
// current tick.
func (d *Detector) AddGraspContact(object, body registry.ID, location mgl64.Vec3, impulse mgl64.Vec3) error {
	node, ok := d.bodies[body]
	if !ok {
		return hxerror.New(hxerror.ErrorBodyNotRegistered, body)
	}
	if _, ok := d.objects[object]; !ok {
		return hxerror.New(hxerror.ErrorObjectUnknown, object)
	}
	key := groupKey{object: object, root: node.root}
	g, ok := d.groups.Get(key)
	if !ok {
		g = &group{key: key, scores: make(map[registry.ID]float64), impulse: make(map[registry.ID]float64)}
		d.groups.Set(key, g)
	}
	magnitude := impulse.Len()
	g.impulse[body] += magnitude
	g.location = g.location.Add(location.Mul(magnitude))
	g.weight += magnitude
	if g.weight == 0 {
		// Resting contact with no impulse still locates the grasp.
		g.centroid = location
	}
	return nil
}

// Update advances every score by dt and appends the resulting transitions to the history.
func (d *Detector) Update(dt float64) {
	retention := hxmath.Retention(dt, d.params.TimeConstant)
	var stale []groupKey
	for el := d.groups.Front(); el != nil; el = el.Next() {
		g := el.Value
		d.updateGroup(g, retention)
		if g.grasp == nil && len(g.scores) == 0 {
			stale = append(stale, el.Key)
		}
	}
	for _, key := range stale {
		d.groups.Delete(key)
	}
}

func (d *Detector) updateGroup(g *group, retention float64) {
	for body, s := range g.scores {
		g.scores[body] = s * retention
	}
	for body, j := range g.impulse {
		g.scores[body] += j
	}
	for body, s := range g.scores {
		if s < scoreEpsilon {
			delete(g.scores, body)
		}
	}
	if g.weight > 0 {
		g.centroid = g.location.Mul(1 / g.weight)
	}
	clear(g.impulse)
	g.location, g.weight = mgl64.Vec3{}, 0

	score := hxmath.Sum(lo.Values(g.scores))
	participating := d.participating(g)
	threshold, hysteresis := d.thresholds(g.key.object)

	if g.grasp == nil {
		if !d.graspable(g.key.object) || score < threshold || len(participating) == 0 {
			return
		}
		d.nextID++
		g.grasp = d.describe(d.nextID, g, participating, score)
		d.record(KindCreate, *g.grasp)
		return
	}

	if score < threshold*hysteresis {
		released := *g.grasp
		released.Score = score
		g.grasp = nil
		d.record(KindDestroy, released)
		return
	}
	g.grasp.Score = score
	g.grasp.Location = g.centroid
	if len(participating) > 0 && !slices.Equal(participating, g.grasp.Bodies) {
		g.grasp = d.describe(g.grasp.ID, g, participating, score)
		d.record(KindUpdate, *g.grasp)
	}
}

func (d *Detector) describe(id ID, g *group, bodies []registry.ID, score float64) *Grasp {
	parent := d.commonAncestor(bodies)
	anchor := false
	if node, ok := d.bodies[parent]; ok {
		anchor = node.anchor
	}
	return &Grasp{
		ID:       id,
		Object:   g.key.object,
		Parent:   parent,
		Bodies:   bodies,
		Score:    score,
		Location: g.centroid,
		Anchor:   anchor,
	}
}

func (d *Detector) record(kind Kind, g Grasp) {
	d.log.Debugf("grasp %d %s: object=%s bodies=%d score=%.3f", g.ID, kind, g.Object, len(g.Bodies), g.Score)
	g.Bodies = slices.Clone(g.Bodies)
	d.history = append(d.history, Transition{Kind: kind, Grasp: g})
}

// participating returns the bodies of a group with enough contribution, in registration order.
func (d *Detector) participating(g *group) []registry.ID {
	bodies := lo.Filter(lo.Keys(g.scores), func(id registry.ID, _ int) bool {
		return g.scores[id] >= d.params.ParticipationFloor
	})
	slices.SortFunc(bodies, func(a, b registry.ID) int {
		return d.bodies[a].order - d.bodies[b].order
	})
	return bodies
}

func (d *Detector) commonAncestor(bodies []registry.ID) registry.ID {
	if len(bodies) == 0 {
		return registry.InvalidID
	}
	lca := bodies[0]
	for _, b := range bodies[1:] {
		lca = d.ancestor(lca, b)
	}
	return lca
}

func (d *Detector) ancestor(a, b registry.ID) registry.ID {
	na, nb := d.bodies[a], d.bodies[b]
	for na.depth > nb.depth {
		a = na.parent
		na = d.bodies[a]
	}
	for nb.depth > na.depth {
		b = nb.parent
		nb = d.bodies[b]
	}
	for a != b {
		a, b = na.parent, nb.parent
		na, nb = d.bodies[a], d.bodies[b]
	}
	return a
}

func (d *Detector) graspable(object registry.ID) bool {
	return d.objects[object].CanBeGrasped
}

func (d *Detector) thresholds(object registry.ID) (float64, float64) {
	threshold, hysteresis := d.params.Threshold, d.params.ReleaseHysteresis
	if o, ok := d.objects[object]; ok {
		if o.Threshold != nil {
			threshold = *o.Threshold
		}
		if o.ReleaseHysteresis != nil {
			hysteresis = *o.ReleaseHysteresis
		}
	}
	return threshold, hxmath.ClampFloat(hysteresis, 0, 1)
}

// History returns the transitions recorded since the last ClearHistory, in the order they happened.
func (d *Detector) History() []Transition {
	return d.history
}

// ClearHistory discards the recorded transitions.
func (d *Detector) ClearHistory() {
	d.history = d.history[:0]
}

// Score returns the current score between an object and the hierarchy a body belongs to.
func (d *Detector) Score(object, body registry.ID) float64 {
	node, ok := d.bodies[body]
	if !ok {
		return 0
	}
	g, ok := d.groups.Get(groupKey{object: object, root: node.root})
	if !ok {
		return 0
	}
	return hxmath.Sum(lo.Values(g.scores))
}

// Grasps returns every live grasp, ordered by when its object was first touched.
func (d *Detector) Grasps() []Grasp {
	var grasps []Grasp
	for el := d.groups.Front(); el != nil; el = el.Next() {
		if g := el.Value.grasp; g != nil {
			grasps = append(grasps, *g)
		}
	}
	return grasps
}

// ReleaseHierarchy forgets the contact of every body below root. Its live grasps are recorded as
// destroyed.
func (d *Detector) ReleaseHierarchy(root registry.ID) {
	var stale []groupKey
	for el := d.groups.Front(); el != nil; el = el.Next() {
		if el.Key.root != root {
			continue
		}
		if g := el.Value.grasp; g != nil {
			d.record(KindDestroy, *g)
		}
		stale = append(stale, el.Key)
	}
	for _, key := range stale {
		d.groups.Delete(key)
	}
}

// Reset forgets all bodies, contact and grasps. Objects stay registered. Live grasps are reported as
// destroyed so their constraints get released.
func (d *Detector) Reset() {
	for el := d.groups.Front(); el != nil; el = el.Next() {
		if g := el.Value.grasp; g != nil {
			d.record(KindDestroy, *g)
		}
	}
	d.groups = orderedmap.NewOrderedMap[groupKey, *group]()
	d.bodies = make(map[registry.ID]*bodyNode)
}
