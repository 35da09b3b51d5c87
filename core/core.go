package core

import (
	"io"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hxnet/hxnet/authority"
	"github.com/hxnet/hxnet/constraint"
	"github.com/hxnet/hxnet/contact"
	"github.com/hxnet/hxnet/grasp"
	"github.com/hxnet/hxnet/hxerror"
	"github.com/hxnet/hxnet/physics"
	"github.com/hxnet/hxnet/registry"
	"github.com/hxnet/hxnet/settings"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// Renderer sends haptic frames to the hardware.
type Renderer interface {
	Render(peripheral contact.PeripheralID, frame contact.PneumaticFrame) error
}

// Hand is what the core needs to know about a hand to keep at most one enabled, locally controlled
// hand per side.
type Hand interface {
	Side() physics.Side
	LocallyControlled() bool
	Enabled() bool
}

type object struct {
	ref           physics.BodyRef
	collisionType string
}

// Core owns the state shared by every hand on a machine: body and object registration, contact
// interpretation, grasp detection, grasp constraints and the authority occupancy table.
type Core struct {
	log      *logrus.Logger
	engine   physics.Engine
	renderer Renderer
	settings settings.Settings

	bodies  *registry.Table[physics.BodyRef]
	objects *registry.Table[object]
	known   map[physics.BodyRef]registry.ID

	interpreter *contact.Interpreter
	detector    *grasp.Detector
	manager     *constraint.Manager
	table       *authority.Table

	handMu sync.Mutex
	hands  []Hand

	restartOnce sync.Once
	onRestart   func(message string)
}

// Config configures a Core.
type Config struct {
	Settings    settings.Settings
	ForceModel  contact.ForceModel
	Compression contact.CompressionParameters
	// OnRestartRequired surfaces the restart-required message to the user. It is called at most
	// once per Core.
	OnRestartRequired func(message string)
}

// DefaultConfig returns a Config using default settings.
func DefaultConfig() Config {
	return Config{
		Settings:    settings.DefaultSettings(),
		ForceModel:  contact.DefaultForceModel,
		Compression: contact.DefaultCompressionParameters(),
	}
}

// New creates a Core. The renderer may be nil, in which case haptic frames are dropped.
func New(log *logrus.Logger, engine physics.Engine, renderer Renderer, conf Config) *Core {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	c := &Core{
		log:         log,
		engine:      engine,
		renderer:    renderer,
		settings:    conf.Settings,
		bodies:      registry.NewTable[physics.BodyRef](),
		objects:     registry.NewTable[object](),
		known:       make(map[physics.BodyRef]registry.ID),
		interpreter: contact.NewInterpreter(log, conf.ForceModel, conf.Compression),
		detector:    grasp.NewDetector(log, conf.Settings.GraspParameters()),
		table:       authority.NewTable(),
		onRestart:   conf.OnRestartRequired,
	}
	c.manager = constraint.NewManager(log, engine, c, conf.Settings.ConstraintParameters(""))
	return c
}

// TryRegisterObject registers the body of component named by bone as a contactable object. An
// object that is already registered keeps its ID unless force is set, in which case its parameters
// are rebuilt. It fails if the body has no physical representation yet; callers typically retry on
// a later tick.
func (c *Core) TryRegisterObject(component string, bone physics.Bone, collisionType string, force bool) (registry.ID, bool) {
	ref := physics.BodyRef{Component: component, Bone: bone}
	if id, ok := c.known[ref]; ok && !force {
		return id, true
	}
	if ref.IsWorld() {
		return registry.InvalidID, false
	}
	if _, ok := c.engine.CenterOfMass(ref); !ok {
		c.log.Debugf(hxerror.ErrorObjectNotRegistered, component, 0)
		return registry.InvalidID, false
	}

	id := registry.MakeID(component+"/"+string(bone), 0)
	if _, ok := c.objects.Register(id, object{ref: ref, collisionType: collisionType}, force); !ok && !force {
		return id, true
	}
	c.known[ref] = id
	c.interpreter.RegisterObject(id, c.settings.ContactObjectParameters(component, collisionType), true)
	c.detector.RegisterObject(id, c.settings.GraspObjectParameters(component, collisionType))
	c.manager.SetObjectParameters(id, c.settings.ConstraintParameters(component))
	return id, true
}

// BodyRegistration describes a hand body.
type BodyRegistration struct {
	Ref       physics.BodyRef
	Params    contact.BodyParameters
	Part      physics.BodyPart
	Callbacks contact.BodyCallbacks
	// Parent is the body this one hangs from in the grasp hierarchy, or registry.InvalidID for a root.
	Parent registry.ID
	Anchor bool
}

// RegisterBody registers a hand body under id. Re-registering a body replaces it, which is what
// happens when the physics of its skeleton is rebuilt.
func (c *Core) RegisterBody(id registry.ID, b BodyRegistration) error {
	if !id.Valid() {
		return hxerror.New(hxerror.ErrorBodyNotRegistered, id)
	}
	if err := c.detector.RegisterBody(id, b.Parent, b.Anchor); err != nil {
		return err
	}
	c.bodies.Register(id, b.Ref, true)
	c.interpreter.RegisterBody(id, b.Params, b.Part, b.Callbacks, true)
	return nil
}

// BodyRef maps a registered body or object ID to the engine body it stands for.
func (c *Core) BodyRef(id registry.ID) (physics.BodyRef, bool) {
	if ref, ok := c.bodies.Lookup(id); ok {
		return ref, true
	}
	if o, ok := c.objects.Lookup(id); ok {
		return o.ref, true
	}
	return physics.BodyRef{}, false
}

// ObjectID returns the ID of a registered object.
func (c *Core) ObjectID(component string, bone physics.Bone) (registry.ID, bool) {
	id, ok := c.known[physics.BodyRef{Component: component, Bone: bone}]
	return id, ok
}

// constraintObserving is implemented by hands that keep their own record of grasp constraints.
type constraintObserving interface {
	ConstraintObserver() constraint.Observer
}

// AddHand adds a hand. A second enabled, locally controlled hand of the same side is rejected.
func (c *Core) AddHand(h Hand) error {
	c.handMu.Lock()
	defer c.handMu.Unlock()
	if h.Enabled() && h.LocallyControlled() {
		if lo.ContainsBy(c.hands, func(o Hand) bool {
			return o != h && o.Enabled() && o.LocallyControlled() && o.Side() == h.Side()
		}) {
			return hxerror.New(hxerror.ErrorDuplicateHand, h.Side())
		}
	}
	if lo.Contains(c.hands, h) {
		return nil
	}
	c.hands = append(c.hands, h)
	if o, ok := h.(constraintObserving); ok {
		c.manager.AddObserver(o.ConstraintObserver())
	}
	return nil
}

// RemoveHand removes a hand. It no longer hears about grasp constraints.
func (c *Core) RemoveHand(h Hand) {
	c.handMu.Lock()
	defer c.handMu.Unlock()
	if !lo.Contains(c.hands, h) {
		return
	}
	c.hands = lo.Without(c.hands, h)
	if o, ok := h.(constraintObserving); ok {
		c.manager.RemoveObserver(o.ConstraintObserver())
	}
}

// ReleaseGrasps destroys the grasps held by the bodies below root right away.
func (c *Core) ReleaseGrasps(root registry.ID) {
	c.detector.ReleaseHierarchy(root)
	c.manager.Process(c.detector.History())
	c.detector.ClearHistory()
}

// Hands returns every hand added to the core.
func (c *Core) Hands() []Hand {
	c.handMu.Lock()
	defer c.handMu.Unlock()
	return append([]Hand(nil), c.hands...)
}

// RestartRequired surfaces the restart-required message. Only the first call in the lifetime of the
// core has an effect; it returns true if this call surfaced it.
func (c *Core) RestartRequired() bool {
	shown := false
	c.restartOnce.Do(func() {
		shown = true
		c.log.Error(hxerror.ErrorRestartRequired)
		if c.onRestart != nil {
			c.onRestart(hxerror.ErrorRestartRequired)
		}
	})
	return shown
}

// AddContact feeds one collision between a hand body and an object to the contact interpreter.
func (c *Core) AddContact(object, body registry.ID, impulse mgl64.Vec3) error {
	return c.interpreter.AddContact(object, body, impulse)
}

// Tick runs the shared part of a physics tick: haptic frames are committed and rendered, grasps
// are re-evaluated and their constraints updated.
func (c *Core) Tick(dt float64) {
	for _, f := range c.interpreter.Commit(dt) {
		if c.renderer == nil {
			continue
		}
		if err := c.renderer.Render(f.Peripheral, f.Pneumatic()); err != nil {
			c.log.Errorf(hxerror.ErrorInternalRenderFailed, f.Peripheral, err)
		}
	}
	c.detector.Update(dt)
	c.manager.Process(c.detector.History())
	c.detector.ClearHistory()
}

// Engine returns the physics engine.
func (c *Core) Engine() physics.Engine {
	return c.engine
}

// Settings returns the settings the core was created with.
func (c *Core) Settings() settings.Settings {
	return c.settings
}

// Interpreter returns the contact interpreter.
func (c *Core) Interpreter() *contact.Interpreter {
	return c.interpreter
}

// Detector returns the grasp detector.
func (c *Core) Detector() *grasp.Detector {
	return c.detector
}

// Manager returns the grasp constraint manager.
func (c *Core) Manager() *constraint.Manager {
	return c.manager
}

// Table returns the authority occupancy table shared by every hand.
func (c *Core) Table() *authority.Table {
	return c.table
}
