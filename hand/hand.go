package hand

import (
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hxnet/hxnet/authority"
	"github.com/hxnet/hxnet/constraint"
	"github.com/hxnet/hxnet/contact"
	"github.com/hxnet/hxnet/core"
	"github.com/hxnet/hxnet/event"
	"github.com/hxnet/hxnet/hxerror"
	"github.com/hxnet/hxnet/physics"
	"github.com/hxnet/hxnet/registry"
	"github.com/hxnet/hxnet/replication"
	"github.com/sirupsen/logrus"
)

// Config configures a Hand.
type Config struct {
	// Name is the component name of the hand's skeleton in the physics engine.
	Name string
	Side physics.Side
	Pawn authority.PawnID

	Server            bool
	LocallyControlled bool
	Mode              authority.Mode

	Bones      physics.HandBones
	Peripheral contact.PeripheralID
	Body       contact.BodyParameters

	ZoneRadius     float64
	ZoneHysteresis float64

	Replication replication.Config
}

// DefaultConfig returns the configuration of a hand with the default skeleton.
func DefaultConfig(name string, side physics.Side, pawn authority.PawnID) Config {
	return Config{
		Name:           name,
		Side:           side,
		Pawn:           pawn,
		Mode:           authority.ModeDynamic,
		Bones:          physics.DefaultHandBones(),
		Peripheral:     contact.PeripheralID(side) + 1,
		Body:           contact.BodyParameters{BaseContactTolerance: 0.001},
		ZoneRadius:     0.5,
		ZoneHysteresis: 0.1,
		Replication:    replication.DefaultConfig(name, side),
	}
}

// Hand is one simulated haptic hand. Collisions reported for its bodies feed the shared core, and
// its physics are kept consistent with its copies on other machines.
type Hand struct {
	log    *logrus.Logger
	conf   Config
	core   *core.Core
	engine physics.Engine

	zone       *authority.Zone
	arbiter    *authority.Arbiter
	replicator *replication.Replicator

	enabled bool

	root     registry.ID
	bodies   map[physics.Bone]registry.ID
	parts    map[registry.ID]physics.BodyPart
	palm     physics.ConstraintID
	joints   [physics.JointCount]physics.ConstraintID
	targets  physics.Targets
	scale    float64
	rescale  float64
	damping  map[registry.ID]*damper
	overlaps map[authority.Overlap]struct{}
	now      float64
}

// New creates a Hand and adds it to c. The hand's physics are set up by InitPhysics.
func New(log *logrus.Logger, c *core.Core, transport replication.Sender, conf Config) (*Hand, error) {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	conf.Replication.Hand, conf.Replication.Side = conf.Name, conf.Side
	conf.Replication.Server, conf.Replication.LocallyControlled = conf.Server, conf.LocallyControlled

	h := &Hand{
		log:      log,
		conf:     conf,
		core:     c,
		engine:   c.Engine(),
		enabled:  true,
		bodies:   make(map[physics.Bone]registry.ID),
		parts:    make(map[registry.ID]physics.BodyPart),
		targets:  physics.IdentityTargets(),
		scale:    1,
		damping:  make(map[registry.ID]*damper),
		overlaps: make(map[authority.Overlap]struct{}),
	}
	h.zone = authority.NewZone(log, authority.ZoneConfig{
		Pawn:       conf.Pawn,
		Radius:     conf.ZoneRadius,
		Hysteresis: conf.ZoneHysteresis,
		Server:     conf.Server,
	}, c.Table(), h.engine)
	h.arbiter = authority.NewArbiter(log, conf.Mode)

	r, err := replication.New(log, conf.Replication, h.engine, transport, driver{h}, h.zone, h.arbiter)
	if err != nil {
		return nil, fmt.Errorf("creating replicator: %w", err)
	}
	h.replicator = r

	if err := c.AddHand(h); err != nil {
		return nil, err
	}
	return h, nil
}

// InitPhysics registers every body of the hand and creates the drives that steer it. It is called
// whenever the physics of the skeleton are (re)built. A missing joint disables the hand for the rest
// of the session.
func (h *Hand) InitPhysics() error {
	if !h.enabled {
		return hxerror.New("hand %s is disabled", h.conf.Name)
	}
	if err := h.registerBones(); err != nil {
		h.HardDisable(err.Error())
		return err
	}
	if err := h.createDrives(); err != nil {
		h.HardDisable(err.Error())
		return err
	}
	return nil
}

// registerBones registers the hand's bodies in a hierarchy: the whole hand at the root, the palm
// below it, and each finger as a chain below the palm. The whole hand and the palm are anchors.
func (h *Hand) registerBones() error {
	bones := h.conf.Bones
	index := 0
	register := func(bone physics.Bone, part physics.BodyPart, parent registry.ID, anchor bool, callbacks contact.BodyCallbacks) (registry.ID, error) {
		ref := physics.BodyRef{Component: h.conf.Name, Bone: bone}
		if _, ok := h.engine.CenterOfMass(ref); !ok {
			return registry.InvalidID, hxerror.New(hxerror.ErrorInternalMissingJoint, bone)
		}
		id := registry.MakeID(h.conf.Name, index)
		index++
		err := h.core.RegisterBody(id, core.BodyRegistration{
			Ref:       ref,
			Params:    h.conf.Body,
			Part:      part,
			Callbacks: callbacks,
			Parent:    parent,
			Anchor:    anchor,
		})
		if err != nil {
			return registry.InvalidID, err
		}
		h.parts[id] = part
		if bone != "" {
			h.bodies[bone] = id
		}
		return id, nil
	}

	root, err := register("", physics.BodyPartUnknown, registry.InvalidID, true, contact.BodyCallbacks{})
	if err != nil {
		return err
	}
	h.root = root
	palm, err := register(bones.Palm, physics.BodyPartPalm, root, true, h.callbacks(-1, -1))
	if err != nil {
		return err
	}
	parts := [physics.JointsPerFinger]physics.BodyPart{physics.BodyPartProximal, physics.BodyPartMedial, physics.BodyPartDistal}
	for f := physics.FingerThumb; f < physics.FingerCount; f++ {
		parent := palm
		for j := physics.JointProximal; j < physics.JointsPerFinger; j++ {
			id, err := register(bones.Joints[f][j], parts[j], parent, false, h.callbacks(int(f), int(j)))
			if err != nil {
				return err
			}
			parent = id
		}
	}
	return nil
}

// callbacks assigns tactors to bodies: one per finger segment and four on the palm. Each finger's
// retractuator is driven by its distal segment.
func (h *Hand) callbacks(finger, joint int) contact.BodyCallbacks {
	cb := contact.BodyCallbacks{Peripheral: h.conf.Peripheral}
	if finger < 0 {
		base := contact.TactorID(physics.JointCount)
		cb.Tactors = []contact.TactorID{base, base + 1, base + 2, base + 3}
		return cb
	}
	cb.Tactors = []contact.TactorID{contact.TactorID(physics.JointIndex(physics.Finger(finger), physics.FingerJoint(joint)))}
	if physics.FingerJoint(joint) == physics.JointDistal {
		cb.Retractuators = []contact.RetractuatorID{contact.RetractuatorID(finger)}
	}
	return cb
}

func (h *Hand) createDrives() error {
	h.destroyDrives()
	bones := h.conf.Bones
	params := h.core.Settings().ConstraintParameters("")

	palm, err := h.engine.CreateConstraint(physics.ConstraintSpec{
		Kind:         physics.ConstraintKindPalm,
		Body1:        physics.BodyRef{Component: h.conf.Name, Bone: bones.Middle1()},
		LinearDrive:  params.LinearDrive,
		AngularDrive: params.AngularDrive,
	})
	if err != nil {
		return hxerror.New(hxerror.ErrorInternalMissingJoint, bones.Middle1())
	}
	h.palm = palm

	for f := physics.FingerThumb; f < physics.FingerCount; f++ {
		parent := bones.Palm
		for j := physics.JointProximal; j < physics.JointsPerFinger; j++ {
			bone := bones.Joints[f][j]
			id, err := h.engine.CreateConstraint(physics.ConstraintSpec{
				Kind:             physics.ConstraintKindJoint,
				Body1:            physics.BodyRef{Component: h.conf.Name, Bone: bone},
				Body2:            physics.BodyRef{Component: h.conf.Name, Bone: parent},
				AngularDrive:     params.AngularDrive,
				DisableCollision: true,
			})
			if err != nil {
				return hxerror.New(hxerror.ErrorInternalMissingJoint, bone)
			}
			h.joints[physics.JointIndex(f, j)] = id
			parent = bone
		}
	}
	return nil
}

func (h *Hand) destroyDrives() {
	if h.palm != 0 {
		h.engine.DestroyConstraint(h.palm)
		h.palm = 0
	}
	for i, id := range h.joints {
		if id != 0 {
			h.engine.DestroyConstraint(id)
			h.joints[i] = 0
		}
	}
}

// HardDisable disables the hand for the rest of the session: it stops ticking and stops simulating
// physics, and the restart-required message is surfaced.
func (h *Hand) HardDisable(reason string) {
	if !h.enabled {
		return
	}
	h.enabled = false
	h.log.Errorf("%s hand disabled: %s", h.conf.Side, reason)
	h.destroyDrives()
	h.clearDamping()
	h.core.ReleaseGrasps(h.root)
	h.zone.Clear()
	h.overlaps = make(map[authority.Overlap]struct{})
	h.engine.SetSimulatePhysics(h.conf.Name, false)
	h.core.RestartRequired()
}

// Teleport moves the hand without sweeping. Only the physics authority teleports; anywhere else the
// request is forwarded to it.
func (h *Hand) Teleport(position mgl64.Vec3, orientation mgl64.Quat) {
	if !h.enabled {
		return
	}
	h.replicator.Teleport(position, orientation)
}

// SetScale sets the scale factor of the hand on every machine. It takes effect at the start of the
// next primary tick.
func (h *Hand) SetScale(scale float64) error {
	if scale <= 0 {
		return hxerror.New(hxerror.ErrorInvalidHandScale, scale)
	}
	h.replicator.SetScale(scale)
	return nil
}

// Scale returns the scale factor currently applied to the hand.
func (h *Hand) Scale() float64 {
	return h.scale
}

// Handle routes an event received from the network.
func (h *Hand) Handle(ev event.Event) {
	if h.enabled {
		h.replicator.Handle(ev)
	}
}

// Name returns the component name of the hand.
func (h *Hand) Name() string {
	return h.conf.Name
}

func (h *Hand) Side() physics.Side {
	return h.conf.Side
}

func (h *Hand) LocallyControlled() bool {
	return h.conf.LocallyControlled
}

func (h *Hand) Enabled() bool {
	return h.enabled
}

// Pawn returns the pawn the hand belongs to.
func (h *Hand) Pawn() authority.PawnID {
	return h.conf.Pawn
}

// BodyID returns the ID of a bone of the hand.
func (h *Hand) BodyID(bone physics.Bone) (registry.ID, bool) {
	id, ok := h.bodies[bone]
	return id, ok
}

// Zone returns the hand's authority zone.
func (h *Hand) Zone() *authority.Zone {
	return h.zone
}

// Arbiter returns the hand's authority arbiter.
func (h *Hand) Arbiter() *authority.Arbiter {
	return h.arbiter
}

// Replicator returns the hand's replicator.
func (h *Hand) Replicator() *replication.Replicator {
	return h.replicator
}

// ConstraintObserver returns what keeps the hand's record of grasp constraints.
func (h *Hand) ConstraintObserver() constraint.Observer {
	return h.replicator
}

// IsPhysicsAuthority reports whether this machine is the ground truth for the hand.
func (h *Hand) IsPhysicsAuthority() bool {
	return h.replicator.IsPhysicsAuthority()
}
