package replication

import (
	"context"
	"io"
	"slices"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/hxnet/hxnet/authority"
	"github.com/hxnet/hxnet/buffer"
	"github.com/hxnet/hxnet/event"
	"github.com/hxnet/hxnet/physics"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Driver is the hand a Replicator replicates.
type Driver interface {
	// ApplyTargets drives the hand towards a set of physics targets.
	ApplyTargets(targets physics.Targets)
	// Teleport moves the hand without sweeping.
	Teleport(position mgl64.Vec3, orientation mgl64.Quat)
	// SetScale schedules a new scale factor for the hand.
	SetScale(scale float64)
	// Scale returns the current scale factor of the hand.
	Scale() float64
}

// Sender delivers events to peers. A transport.Transport satisfies it.
type Sender interface {
	Send(ev event.Event) error
}

// Zone is the part of an authority zone the Replicator reads.
type Zone interface {
	Contains(component string) bool
	Objects() []string
}

// Config configures a Replicator.
type Config struct {
	// Hand is the component name of the hand.
	Hand string
	Side physics.Side
	// Server is set on the server.
	Server bool
	// LocallyControlled is set on the machine whose user wears the hand.
	LocallyControlled bool

	// TargetsFrequency and StateFrequency [Hz] cap transmissions of each kind.
	TargetsFrequency float64
	StateFrequency   float64
	// TargetsBufferDuration and StateBufferDuration [s] are the lag each playback aims for.
	TargetsBufferDuration float64
	StateBufferDuration   float64
	// BufferCapacity is the number of frames each playback holds.
	BufferCapacity int
}

// DefaultConfig returns the default configuration for a hand.
func DefaultConfig(hand string, side physics.Side) Config {
	return Config{
		Hand:                  hand,
		Side:                  side,
		TargetsFrequency:      50,
		StateFrequency:        50,
		TargetsBufferDuration: 0.05,
		StateBufferDuration:   0.05,
		BufferCapacity:        buffer.DefaultCapacity,
	}
}

// Replicator keeps one hand consistent between the server and clients. The authoritative side sends
// targets and state; the other side buffers them and plays them back.
type Replicator struct {
	log       *logrus.Logger
	conf      Config
	engine    physics.Engine
	transport Sender
	driver    Driver
	zone      Zone
	arbiter   *authority.Arbiter
	metrics   *metrics
	attrs     metric.MeasurementOption

	targets *buffer.Playback[physics.Targets]
	state   *buffer.Playback[physics.State]

	targetsSchedule *Schedule
	stateSchedule   *Schedule

	local      *orderedmap.OrderedMap[physics.ConstraintID, physics.ConstraintSpec]
	replicated *orderedmap.OrderedMap[int64, physics.ConstraintID]

	needsDisable bool
	now          float64
}

// New creates a Replicator. The arbiter's authority changes are handled by the Replicator.
func New(log *logrus.Logger, conf Config, engine physics.Engine, transport Sender, driver Driver, zone Zone, arbiter *authority.Arbiter) (*Replicator, error) {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	m, err := newMetrics()
	if err != nil {
		return nil, err
	}
	capacity := conf.BufferCapacity
	if capacity <= 0 {
		capacity = buffer.DefaultCapacity
	}
	staggered := conf.Side == physics.SideLeft
	r := &Replicator{
		log:             log,
		conf:            conf,
		engine:          engine,
		transport:       transport,
		driver:          driver,
		zone:            zone,
		arbiter:         arbiter,
		metrics:         m,
		attrs:           metric.WithAttributes(attribute.String("hand", conf.Hand)),
		targets:         buffer.NewPlayback(capacity, conf.TargetsBufferDuration, physics.InterpolateTargets),
		state:           buffer.NewPlayback(capacity, conf.StateBufferDuration, physics.InterpolateState),
		targetsSchedule: NewSchedule(conf.TargetsFrequency, staggered),
		stateSchedule:   NewSchedule(conf.StateFrequency, staggered),
		local:           orderedmap.NewOrderedMap[physics.ConstraintID, physics.ConstraintSpec](),
		replicated:      orderedmap.NewOrderedMap[int64, physics.ConstraintID](),
	}
	arbiter.OnChange(r.onAuthorityChanged)
	return r, nil
}

// IsPhysicsAuthority reports whether this machine is the ground truth for the hand.
func (r *Replicator) IsPhysicsAuthority() bool {
	return authority.IsPhysicsAuthority(r.conf.Server, r.conf.LocallyControlled, r.arbiter.Authority())
}

// Tick runs the primary tick at time now. Off the authority it plays back buffered frames: the
// server plays back the targets sent by the owning client while it is authoritative, and every
// other non-authoritative machine plays back state.
func (r *Replicator) Tick(now, dt float64) {
	r.now = now
	switch {
	case r.conf.Server && !r.conf.LocallyControlled && r.IsPhysicsAuthority():
		if targets, ok := r.targets.Advance(dt); ok {
			r.driver.ApplyTargets(targets)
		}
	case !r.IsPhysicsAuthority():
		if state, ok := r.state.Advance(dt); ok {
			r.applyState(state)
		}
	}
}

// UpdateTargets is called with freshly tracked targets on the machine controlling the hand. The
// authority applies them directly; otherwise they are sent to the server at the targets frequency.
func (r *Replicator) UpdateTargets(now float64, targets physics.Targets) {
	r.now = now
	if r.IsPhysicsAuthority() {
		r.driver.ApplyTargets(targets)
		return
	}
	if r.targetsSchedule.Due(now) {
		r.send(event.TargetsEvent{NopEvent: r.envelope(), Targets: targets})
	}
}

// TickSecondary runs after physics has stepped. The authority sends its state at the state frequency:
// the server to every client, a client to the server.
func (r *Replicator) TickSecondary(now float64, targets physics.Targets) {
	r.now = now
	if !r.IsPhysicsAuthority() || !r.stateSchedule.Due(now) {
		return
	}
	r.send(event.StateEvent{NopEvent: r.envelope(), State: r.CaptureState(targets)})
}

// CaptureState gathers the state of the hand, of every object in its zone and of every local
// constraint that can be replicated.
func (r *Replicator) CaptureState(targets physics.Targets) physics.State {
	s := physics.State{
		BodyStates: r.engine.BodyStates(r.conf.Hand),
		Targets:    targets,
	}
	for _, c := range r.zone.Objects() {
		s.ObjectStates = append(s.ObjectStates, r.engine.ObjectStates(c)...)
	}
	scale := r.driver.Scale()
	for el := r.local.Front(); el != nil; el = el.Next() {
		if !r.replicable(el.Value) {
			continue
		}
		s.ConstraintStates = append(s.ConstraintStates, physics.ConstraintState{
			ID:    int64(el.Key),
			Scale: mgl64.Vec3{scale, scale, scale},
			Spec:  el.Value,
		})
	}
	return s
}

// replicable reports whether a constraint only involves the hand, the world and objects in the zone.
func (r *Replicator) replicable(spec physics.ConstraintSpec) bool {
	hand1, hand2 := spec.Body1.Component == r.conf.Hand, spec.Body2.Component == r.conf.Hand
	switch {
	case hand1 && hand2:
		return true
	case hand1:
		return spec.Body2.IsWorld() || r.zone.Contains(spec.Body2.Component)
	case hand2:
		return spec.Body1.IsWorld() || r.zone.Contains(spec.Body1.Component)
	}
	return false
}

// Handle routes an inbound event. Routing depends on this machine's current belief about authority,
// not on the sender's.
func (r *Replicator) Handle(ev event.Event) {
	env := ev.Envelope()
	if env.Hand != r.conf.Hand {
		return
	}
	kind := metric.WithAttributes(attribute.Int("event", int(ev.ID())))
	r.metrics.received.Add(context.Background(), 1, r.attrs, kind)
	if env.Epoch != r.arbiter.Epoch() {
		r.metrics.epochMismatches.Add(context.Background(), 1, r.attrs)
	}

	switch ev := ev.(type) {
	case event.TargetsEvent:
		// Targets only ever flow from the owning client to the server.
		if r.conf.Server && !r.conf.LocallyControlled {
			push(r, r.targets, ev.Time(), ev.Targets)
		}
	case event.StateEvent:
		if !r.conf.Server {
			r.receiveMulticast(ev)
			return
		}
		if r.IsPhysicsAuthority() && !r.conf.LocallyControlled {
			push(r, r.targets, ev.Time(), ev.State.Targets)
			return
		}
		r.multicast(ev)
	case event.AuthorityEvent:
		if !r.conf.Server {
			r.arbiter.Set(ev.Authority)
		}
	case event.TeleportEvent:
		if r.IsPhysicsAuthority() {
			r.driver.Teleport(ev.Position, ev.Orientation)
			r.targets.Reset()
		} else if r.conf.Server {
			r.send(ev)
		}
	case event.ScaleEvent:
		r.driver.SetScale(ev.Scale)
		if r.conf.Server {
			r.send(ev)
		}
	}
}

// multicast applies a state frame on the server and forwards it to every client.
func (r *Replicator) multicast(ev event.StateEvent) {
	r.receiveMulticast(ev)
	r.send(ev)
}

func (r *Replicator) receiveMulticast(ev event.StateEvent) {
	if !r.IsPhysicsAuthority() {
		push(r, r.state, ev.Time(), ev.State)
	}
}

func push[T any](r *Replicator, p *buffer.Playback[T], time float64, payload T) {
	if !p.Push(time, payload) {
		r.metrics.outOfOrder.Add(context.Background(), 1, r.attrs)
	}
}

// Teleport asks the authority to teleport the hand. The authority teleports immediately.
func (r *Replicator) Teleport(position mgl64.Vec3, orientation mgl64.Quat) {
	if r.IsPhysicsAuthority() {
		r.driver.Teleport(position, orientation)
		r.targets.Reset()
		return
	}
	r.send(event.TeleportEvent{NopEvent: r.envelope(), Position: position, Orientation: orientation})
}

// SetScale sets the scale factor of the hand locally and on every peer.
func (r *Replicator) SetScale(scale float64) {
	r.driver.SetScale(scale)
	r.send(event.ScaleEvent{NopEvent: r.envelope(), Scale: scale})
}

// applyState applies a frame of state played back from the authority.
func (r *Replicator) applyState(s physics.State) {
	r.driver.ApplyTargets(s.Targets)
	if len(s.BodyStates) > 0 && !r.engine.SetBodyStates(r.conf.Hand, s.BodyStates) {
		r.log.Debugf("%s: body count mismatch, skipping body states", r.conf.Hand)
	}
	for _, o := range s.ObjectStates {
		r.engine.SetObjectState(o)
	}
	if r.needsDisable {
		r.setLocalConstraintsEnabled(false)
		r.needsDisable = false
	}
	r.updateReplicatedConstraints(s.ConstraintStates)
}

// updateReplicatedConstraints mirrors the authority's constraints: ones not seen before are created
// and ones no longer present are destroyed.
func (r *Replicator) updateReplicatedConstraints(states []physics.ConstraintState) {
	present := make(map[int64]struct{}, len(states))
	for _, cs := range states {
		present[cs.ID] = struct{}{}
		if _, ok := r.replicated.Get(cs.ID); ok {
			continue
		}
		spec := cs.Spec
		spec.Kind = physics.ConstraintKindReplicated
		id, err := r.engine.CreateConstraint(spec)
		if err != nil {
			r.log.Errorf("%s: creating replicated constraint %d: %v", r.conf.Hand, cs.ID, err)
			continue
		}
		r.replicated.Set(cs.ID, id)
	}
	stale := lo.Filter(r.replicated.Keys(), func(id int64, _ int) bool {
		_, ok := present[id]
		return !ok
	})
	for _, remote := range stale {
		id, _ := r.replicated.Get(remote)
		r.engine.DestroyConstraint(id)
		r.replicated.Delete(remote)
	}
}

func (r *Replicator) clearReplicatedConstraints() {
	for el := r.replicated.Front(); el != nil; el = el.Next() {
		r.engine.DestroyConstraint(el.Value)
	}
	r.replicated = orderedmap.NewOrderedMap[int64, physics.ConstraintID]()
}

func (r *Replicator) setLocalConstraintsEnabled(enabled bool) {
	for el := r.local.Front(); el != nil; el = el.Next() {
		r.engine.SetConstraintEnabled(el.Key, enabled)
	}
}

// onAuthorityChanged hands physics over between machines. Local constraints are not disabled here:
// they are disabled once the first state frame from the new authority is applied.
func (r *Replicator) onAuthorityChanged(previous, current authority.Authority) {
	r.metrics.authorityFlips.Add(context.Background(), 1, r.attrs)
	r.log.Debugf("%s: authority %s -> %s, local authority=%v", r.conf.Hand, previous, current, r.IsPhysicsAuthority())
	switch {
	case r.IsPhysicsAuthority():
		r.clearReplicatedConstraints()
		r.setLocalConstraintsEnabled(true)
		r.needsDisable = false
		if r.conf.Server {
			r.targets.Reset()
		}
	case r.conf.LocallyControlled:
		r.needsDisable = true
		r.state.Reset()
	case r.conf.Server:
		r.needsDisable = true
	}
	if r.conf.Server {
		r.send(event.AuthorityEvent{NopEvent: r.envelope(), Authority: current})
	}
}

// ConstraintCreated records a constraint involving the hand as local.
func (r *Replicator) ConstraintCreated(id physics.ConstraintID, spec physics.ConstraintSpec) {
	if !spec.Involves(r.conf.Hand) {
		return
	}
	r.local.Set(id, spec)
	if !r.IsPhysicsAuthority() && !r.needsDisable {
		r.engine.SetConstraintEnabled(id, false)
	}
}

// ConstraintDestroyed forgets a local constraint.
func (r *Replicator) ConstraintDestroyed(id physics.ConstraintID, _ physics.ConstraintSpec) {
	r.local.Delete(id)
}

// LocalConstraints returns the local constraints in creation order.
func (r *Replicator) LocalConstraints() []physics.ConstraintID {
	return r.local.Keys()
}

// ReplicatedConstraints returns the engine handles of constraints mirrored from the authority.
func (r *Replicator) ReplicatedConstraints() []physics.ConstraintID {
	ids := make([]physics.ConstraintID, 0, r.replicated.Len())
	for el := r.replicated.Front(); el != nil; el = el.Next() {
		ids = append(ids, el.Value)
	}
	return slices.Clip(ids)
}

// NeedsDisable reports whether local constraints are waiting to be disabled.
func (r *Replicator) NeedsDisable() bool {
	return r.needsDisable
}

// TargetsPlayback and StatePlayback expose the playback buffers.
func (r *Replicator) TargetsPlayback() *buffer.Playback[physics.Targets] {
	return r.targets
}

func (r *Replicator) StatePlayback() *buffer.Playback[physics.State] {
	return r.state
}

func (r *Replicator) envelope() event.NopEvent {
	return event.NopEvent{EvTime: r.now, Hand: r.conf.Hand, Epoch: r.arbiter.Epoch()}
}

func (r *Replicator) send(ev event.Event) {
	if r.transport == nil {
		return
	}
	if err := r.transport.Send(ev); err != nil {
		r.log.Warnf("%s: sending event %d: %v", r.conf.Hand, ev.ID(), err)
		return
	}
	r.metrics.sent.Add(context.Background(), 1, r.attrs, metric.WithAttributes(attribute.Int("event", int(ev.ID()))))
}
