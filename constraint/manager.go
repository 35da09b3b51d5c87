package constraint

import (
	"io"
	"slices"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/hxnet/hxnet/grasp"
	"github.com/hxnet/hxnet/hxerror"
	"github.com/hxnet/hxnet/physics"
	"github.com/hxnet/hxnet/registry"
	"github.com/sirupsen/logrus"
)

// Resolver maps registered IDs to the engine bodies they stand for.
type Resolver interface {
	BodyRef(id registry.ID) (physics.BodyRef, bool)
}

// Observer is told about every constraint the manager creates or destroys.
type Observer interface {
	ConstraintCreated(id physics.ConstraintID, spec physics.ConstraintSpec)
	ConstraintDestroyed(id physics.ConstraintID, spec physics.ConstraintSpec)
}

// Events are the callbacks fired for grasp transitions. Any of them may be nil.
type Events struct {
	OnGrasp   func(g grasp.Grasp)
	OnRelease func(g grasp.Grasp)
	OnUpdate  func(g grasp.Grasp)
}

type live struct {
	id   physics.ConstraintID
	spec physics.ConstraintSpec
}

// record holds the constraints materialised for one grasp, in creation order.
type record struct {
	grasp       grasp.Grasp
	constraints []live
}

type notification struct {
	created bool
	live
}

// Manager materialises grasps as constraints.
type Manager struct {
	log      *logrus.Logger
	engine   physics.ConstraintEngine
	resolver Resolver
	params   Parameters

	overrides map[registry.ID]Parameters
	records   registry.Arena[*record]
	grasps    *orderedmap.OrderedMap[grasp.ID, registry.Handle]

	observers []Observer
	events    []Events

	pending []notification
	fired   []func()
}

// NewManager creates a Manager.
func NewManager(log *logrus.Logger, engine physics.ConstraintEngine, resolver Resolver, params Parameters) *Manager {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	return &Manager{
		log:       log,
		engine:    engine,
		resolver:  resolver,
		params:    params,
		overrides: make(map[registry.ID]Parameters),
		grasps:    orderedmap.NewOrderedMap[grasp.ID, registry.Handle](),
	}
}

// SetObjectParameters overrides the constraint parameters used for an object.
func (m *Manager) SetObjectParameters(object registry.ID, params Parameters) {
	m.overrides[object] = params
}

// AddObserver registers an observer of constraint creation and destruction.
func (m *Manager) AddObserver(o Observer) {
	m.observers = append(m.observers, o)
}

// RemoveObserver stops notifying an observer.
func (m *Manager) RemoveObserver(o Observer) {
	m.observers = slices.DeleteFunc(m.observers, func(x Observer) bool { return x == o })
}

// Subscribe registers grasp event callbacks.
func (m *Manager) Subscribe(e Events) {
	m.events = append(m.events, e)
}

// Process applies a grasp history. Transitions are applied in order; observers and event
// callbacks run once every transition has been applied.
func (m *Manager) Process(history []grasp.Transition) {
	for _, tr := range history {
		switch tr.Kind {
		case grasp.KindCreate:
			m.create(tr.Grasp)
		case grasp.KindUpdate:
			m.update(tr.Grasp)
		case grasp.KindDestroy:
			m.destroy(tr.Grasp)
		}
	}
	m.flush()
}

// ReleaseAll destroys every grasp the manager holds.
func (m *Manager) ReleaseAll() {
	for _, id := range m.grasps.Keys() {
		if h, ok := m.grasps.Get(id); ok {
			if r, ok := m.records.Get(h); ok {
				m.destroy(r.grasp)
			}
		}
	}
	m.flush()
}

// Grasp returns a live grasp.
func (m *Manager) Grasp(id grasp.ID) (grasp.Grasp, bool) {
	r, ok := m.record(id)
	if !ok {
		return grasp.Grasp{}, false
	}
	return r.grasp, true
}

// Constraints returns the constraints held for a grasp, in creation order.
func (m *Manager) Constraints(id grasp.ID) []physics.ConstraintID {
	r, ok := m.record(id)
	if !ok {
		return nil
	}
	ids := make([]physics.ConstraintID, len(r.constraints))
	for i, c := range r.constraints {
		ids[i] = c.id
	}
	return ids
}

// Len returns the number of live grasps.
func (m *Manager) Len() int {
	return m.grasps.Len()
}

func (m *Manager) record(id grasp.ID) (*record, bool) {
	h, ok := m.grasps.Get(id)
	if !ok {
		return nil, false
	}
	return m.records.Get(h)
}

func (m *Manager) create(g grasp.Grasp) {
	if _, ok := m.grasps.Get(g.ID); ok {
		m.log.Errorf(hxerror.ErrorGraspCreateExists, g.ID)
		return
	}
	r := &record{grasp: g}
	if err := m.materialise(r); err != nil {
		m.log.Errorf("grasp %d: %v", g.ID, err)
	}
	m.grasps.Set(g.ID, m.records.Insert(r))
	m.fire(func(e Events) func(grasp.Grasp) { return e.OnGrasp }, g)
}

func (m *Manager) update(g grasp.Grasp) {
	r, ok := m.record(g.ID)
	if !ok {
		m.log.Errorf(hxerror.ErrorGraspUpdateMissing, g.ID)
		return
	}
	m.release(r)
	r.grasp = g
	if err := m.materialise(r); err != nil {
		m.log.Errorf("grasp %d: %v", g.ID, err)
	}
	m.fire(func(e Events) func(grasp.Grasp) { return e.OnUpdate }, g)
}

func (m *Manager) destroy(g grasp.Grasp) {
	h, ok := m.grasps.Get(g.ID)
	if !ok {
		m.log.Errorf(hxerror.ErrorGraspDestroyMissing, g.ID)
		return
	}
	r, _ := m.records.Remove(h)
	m.grasps.Delete(g.ID)
	if r != nil {
		m.release(r)
	}
	m.fire(func(e Events) func(grasp.Grasp) { return e.OnRelease }, g)
}

// materialise creates the stick, pinch and anchor constraints of a grasp. If any of them cannot be
// created, the ones already created are released again and the grasp holds none.
func (m *Manager) materialise(r *record) (err error) {
	defer func() {
		if err != nil {
			m.release(r)
		}
	}()

	params := m.params
	if o, ok := m.overrides[r.grasp.Object]; ok {
		params = o
	}
	object, ok := m.resolver.BodyRef(r.grasp.Object)
	if !ok {
		return hxerror.New(hxerror.ErrorObjectUnknown, r.grasp.Object)
	}

	for _, b := range r.grasp.Bodies {
		body, ok := m.resolver.BodyRef(b)
		if !ok {
			return hxerror.New(hxerror.ErrorBodyNotRegistered, b)
		}
		if err := m.add(r, params.stick(body, object, r.grasp.Location)); err != nil {
			return err
		}
	}
	if !r.grasp.Pinch() && !r.grasp.Anchor {
		return nil
	}
	parent, ok := m.resolver.BodyRef(r.grasp.Parent)
	if !ok {
		return hxerror.New(hxerror.ErrorBodyNotRegistered, r.grasp.Parent)
	}
	if r.grasp.Pinch() {
		if err := m.add(r, params.pinch(parent, object, r.grasp.Location)); err != nil {
			return err
		}
	}
	if r.grasp.Anchor {
		if err := m.add(r, params.anchor(parent, object, r.grasp.Location)); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) add(r *record, spec physics.ConstraintSpec) error {
	id, err := m.engine.CreateConstraint(spec)
	if err != nil {
		return err
	}
	c := live{id: id, spec: spec}
	r.constraints = append(r.constraints, c)
	m.pending = append(m.pending, notification{created: true, live: c})
	return nil
}

// release destroys the constraints of a grasp in reverse creation order.
func (m *Manager) release(r *record) {
	for _, c := range slices.Backward(r.constraints) {
		m.engine.DestroyConstraint(c.id)
		m.pending = append(m.pending, notification{live: c})
	}
	r.constraints = r.constraints[:0]
}

func (m *Manager) fire(pick func(Events) func(grasp.Grasp), g grasp.Grasp) {
	for _, e := range m.events {
		if fn := pick(e); fn != nil {
			m.fired = append(m.fired, func() { fn(g) })
		}
	}
}

func (m *Manager) flush() {
	pending, fired := m.pending, m.fired
	m.pending, m.fired = nil, nil
	for _, n := range pending {
		for _, o := range m.observers {
			if n.created {
				o.ConstraintCreated(n.id, n.spec)
			} else {
				o.ConstraintDestroyed(n.id, n.spec)
			}
		}
	}
	for _, fn := range fired {
		fn()
	}
}
