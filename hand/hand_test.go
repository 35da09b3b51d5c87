package hand

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hxnet/hxnet/authority"
	"github.com/hxnet/hxnet/contact"
	"github.com/hxnet/hxnet/core"
	"github.com/hxnet/hxnet/physics"
	"github.com/hxnet/hxnet/simulation"
	"github.com/hxnet/hxnet/transport"
)

func addSkeleton(t *testing.T, e *simulation.Engine, name string, origin mgl64.Vec3) {
	t.Helper()
	bones := physics.DefaultHandBones()
	bodies := []simulation.Body{{Bone: bones.Palm, State: physics.RigidBodyState{Position: origin}, HalfExtent: 0.05}}
	for f := physics.FingerThumb; f < physics.FingerCount; f++ {
		for j := physics.JointProximal; j < physics.JointsPerFinger; j++ {
			offset := mgl64.Vec3{0.02 * float64(j+1), 0.02 * float64(f), 0}
			bodies = append(bodies, simulation.Body{
				Bone:       bones.Joints[f][j],
				State:      physics.RigidBodyState{Position: origin.Add(offset)},
				HalfExtent: 0.005,
			})
		}
	}
	if err := e.AddComponent(name, bodies...); err != nil {
		t.Fatalf("adding %s: %v", name, err)
	}
}

func newWorld(t *testing.T, conf core.Config) (*core.Core, *simulation.Engine) {
	t.Helper()
	engine := simulation.NewEngine(nil, simulation.Config{})
	return core.New(nil, engine, nil, conf), engine
}

func newHand(t *testing.T, c *core.Core, conf Config) *Hand {
	t.Helper()
	h, err := New(nil, c, nil, conf)
	if err != nil {
		t.Fatalf("creating hand: %v", err)
	}
	if err := h.InitPhysics(); err != nil {
		t.Fatalf("initialising hand: %v", err)
	}
	return h
}

func serverConfig(name string, pawn authority.PawnID) Config {
	conf := DefaultConfig(name, physics.SideRight, pawn)
	conf.Server = true
	return conf
}

func TestInitPhysics(t *testing.T) {
	c, engine := newWorld(t, core.DefaultConfig())
	addSkeleton(t, engine, "right_hand", mgl64.Vec3{})
	h := newHand(t, c, serverConfig("right_hand", "p1"))

	if _, ok := h.BodyID("palm"); !ok {
		t.Fatal("palm not registered")
	}
	if _, ok := h.BodyID("pinky3"); !ok {
		t.Fatal("pinky tip not registered")
	}
	if n := len(engine.Constraints()); n != 1+physics.JointCount {
		t.Fatalf("expected %d drives, got %d", 1+physics.JointCount, n)
	}
	if err := h.InitPhysics(); err != nil {
		t.Fatalf("reinitialising: %v", err)
	}
	if n := len(engine.Constraints()); n != 1+physics.JointCount {
		t.Fatalf("expected drives to be rebuilt, got %d", n)
	}
}

func TestMissingJointDisablesHand(t *testing.T) {
	var restarts int
	conf := core.DefaultConfig()
	conf.OnRestartRequired = func(string) { restarts++ }
	c, engine := newWorld(t, conf)
	for _, name := range []string{"left_hand", "right_hand"} {
		if err := engine.AddComponent(name, simulation.Body{Bone: "palm"}); err != nil {
			t.Fatalf("adding %s: %v", name, err)
		}
		h, err := New(nil, c, nil, serverConfig(name, "p1"))
		if err != nil {
			t.Fatalf("creating hand: %v", err)
		}
		if err := h.InitPhysics(); err == nil {
			t.Fatal("expected a missing joint to fail initialisation")
		}
		if h.Enabled() {
			t.Fatal("expected the hand to be disabled")
		}
		h.TickPrimary(0, 0.01)
		h.TickSecondary(0)
	}
	if restarts != 1 {
		t.Fatalf("expected the restart message once, got %d", restarts)
	}
	if len(engine.Constraints()) != 0 {
		t.Fatal("disabled hands left drives behind")
	}
}

func TestDuplicateLocalHandRejected(t *testing.T) {
	c, _ := newWorld(t, core.DefaultConfig())
	conf := DefaultConfig("right_hand", physics.SideRight, "p1")
	conf.LocallyControlled = true
	if _, err := New(nil, c, nil, conf); err != nil {
		t.Fatalf("creating first hand: %v", err)
	}
	conf.Name = "other_right_hand"
	if _, err := New(nil, c, nil, conf); err == nil {
		t.Fatal("expected a second local right hand to be rejected")
	}
}

func TestRemoteHandGrasps(t *testing.T) {
	c, engine := newWorld(t, core.DefaultConfig())
	addSkeleton(t, engine, "right_hand", mgl64.Vec3{})
	if err := engine.AddComponent("cup", simulation.Body{State: physics.RigidBodyState{Position: mgl64.Vec3{0.1, 0, 0}}, HalfExtent: 0.03}); err != nil {
		t.Fatalf("adding cup: %v", err)
	}
	h := newHand(t, c, serverConfig("right_hand", "p1"))

	const dt = 1.0 / 90
	for tick := 0; tick < 10; tick++ {
		h.NotifyHit(Hit{Bone: "index3", Other: physics.BodyRef{Component: "cup"}, Impulse: mgl64.Vec3{0, 0, -5}})
		c.Tick(dt)
	}
	if c.Manager().Len() != 1 {
		t.Fatalf("expected a grasp, got %d", c.Manager().Len())
	}
	if n := len(h.Replicator().LocalConstraints()); n != 1 {
		t.Fatalf("expected the stick constraint to be tracked as local, got %d", n)
	}
	cup, _ := c.ObjectID("cup", "")
	if c.Interpreter().CompressionScale(h.conf.Peripheral) != 1 {
		t.Fatal("a remote hand produced haptic output")
	}
	if h.Damped(cup) {
		t.Fatal("a fingertip should not damp")
	}
}

func TestScaleAppliedNextTick(t *testing.T) {
	c, engine := newWorld(t, core.DefaultConfig())
	addSkeleton(t, engine, "right_hand", mgl64.Vec3{})
	h := newHand(t, c, serverConfig("right_hand", "p1"))

	if err := h.SetScale(0); err == nil {
		t.Fatal("expected a zero scale to be rejected")
	}
	if err := h.SetScale(2); err != nil {
		t.Fatalf("setting scale: %v", err)
	}
	if h.Scale() != 1 {
		t.Fatal("scale applied before the next tick")
	}
	h.TickPrimary(0, 0.01)
	if h.Scale() != 2 || engine.Scale("right_hand") != 2 {
		t.Fatalf("expected scale 2, got %f", h.Scale())
	}
}

func TestAuthorityTeleports(t *testing.T) {
	c, engine := newWorld(t, core.DefaultConfig())
	addSkeleton(t, engine, "right_hand", mgl64.Vec3{})
	h := newHand(t, c, serverConfig("right_hand", "p1"))

	target := mgl64.Vec3{1, 2, 3}
	h.Teleport(target, mgl64.QuatIdent())
	palm, _ := engine.Body(physics.BodyRef{Component: "right_hand", Bone: "palm"})
	if !palm.State.Position.ApproxEqualThreshold(target, 1e-9) {
		t.Fatalf("expected the palm at %v, got %v", target, palm.State.Position)
	}
}

func TestContactDamping(t *testing.T) {
	c, engine := newWorld(t, core.DefaultConfig())
	addSkeleton(t, engine, "right_hand", mgl64.Vec3{})
	if err := engine.AddComponent("cup", simulation.Body{State: physics.RigidBodyState{Position: mgl64.Vec3{0, 0, 0.1}}, HalfExtent: 0.04}); err != nil {
		t.Fatalf("adding cup: %v", err)
	}
	h := newHand(t, c, serverConfig("right_hand", "p1"))

	h.NotifyHit(Hit{Bone: "palm", Other: physics.BodyRef{Component: "cup"}, Impulse: mgl64.Vec3{0, 0, -1}})
	cup, _ := c.ObjectID("cup", "")
	if !h.Damped(cup) {
		t.Fatal("expected the cup resting on the palm to be damped")
	}
	if n := len(h.Replicator().LocalConstraints()); n != 1 {
		t.Fatalf("expected the damping constraint to be local, got %d", n)
	}

	h.TickSecondary(0)
	if !h.Damped(cup) {
		t.Fatal("damping removed in the tick it was touched")
	}
	h.TickSecondary(0.01)
	if h.Damped(cup) {
		t.Fatal("expected damping to be removed once the cup was no longer touched")
	}
	if n := len(h.Replicator().LocalConstraints()); n != 0 {
		t.Fatalf("expected no local constraints, got %d", n)
	}
}

func TestOverlapsDriveAuthority(t *testing.T) {
	c, engine := newWorld(t, core.DefaultConfig())
	addSkeleton(t, engine, "p1_hand", mgl64.Vec3{})
	addSkeleton(t, engine, "p2_hand", mgl64.Vec3{5, 0, 0})
	if err := engine.AddComponent("cup", simulation.Body{State: physics.RigidBodyState{Position: mgl64.Vec3{0.2, 0, 0}}}); err != nil {
		t.Fatalf("adding cup: %v", err)
	}
	a := newHand(t, c, serverConfig("p1_hand", "p1"))
	b := newHand(t, c, serverConfig("p2_hand", "p2"))
	hands := []*Hand{a, b}

	a.UpdateOverlaps([]string{"cup"}, hands)
	b.UpdateOverlaps([]string{"cup"}, hands)
	if !a.Zone().Contains("cup") || b.Zone().Contains("cup") {
		t.Fatal("expected only the first hand's zone to contain the cup")
	}
	a.TickSecondary(0)
	if a.Arbiter().Authority() != authority.AuthorityClient {
		t.Fatal("expected an uncontested hand to be client authoritative")
	}

	engine.Teleport("p2_hand", mgl64.Vec3{0.8, 0, 0}, mgl64.QuatIdent())
	a.UpdateOverlaps([]string{"cup"}, hands)
	if a.Zone().HandOverlaps() != 1 {
		t.Fatal("expected the hand zones to overlap")
	}
	a.TickSecondary(0.01)
	if a.Arbiter().Authority() != authority.AuthorityServer {
		t.Fatal("expected overlapping hands to be server authoritative")
	}

	engine.SetObjectState(physics.ObjectState{Component: "cup", State: physics.RigidBodyState{Position: mgl64.Vec3{0, 3, 0}, Orientation: mgl64.QuatIdent()}})
	a.UpdateOverlaps([]string{"cup"}, hands)
	if a.Zone().Contains("cup") {
		t.Fatal("expected the cup to leave the zone")
	}
}

func TestClientAuthorityReplicatesState(t *testing.T) {
	serverEnd, clientEnd := transport.NewLoopback()

	serverCore, serverEngine := newWorld(t, core.DefaultConfig())
	addSkeleton(t, serverEngine, "right_hand", mgl64.Vec3{})
	serverHand, err := New(nil, serverCore, serverEnd, serverConfig("right_hand", "p1"))
	if err != nil {
		t.Fatalf("creating server hand: %v", err)
	}
	if err := serverHand.InitPhysics(); err != nil {
		t.Fatalf("initialising server hand: %v", err)
	}

	clientCore, clientEngine := newWorld(t, core.DefaultConfig())
	addSkeleton(t, clientEngine, "right_hand", mgl64.Vec3{})
	conf := DefaultConfig("right_hand", physics.SideRight, "p1")
	conf.LocallyControlled = true
	clientHand, err := New(nil, clientCore, clientEnd, conf)
	if err != nil {
		t.Fatalf("creating client hand: %v", err)
	}
	if err := clientHand.InitPhysics(); err != nil {
		t.Fatalf("initialising client hand: %v", err)
	}

	serverHand.TickSecondary(0)
	for _, ev := range clientEnd.Receive() {
		clientHand.Handle(ev)
	}
	if !clientHand.IsPhysicsAuthority() || serverHand.IsPhysicsAuthority() {
		t.Fatal("expected the client to become the physics authority")
	}

	target := mgl64.Vec3{1, 2, 3}
	clientHand.Teleport(target, mgl64.QuatIdent())
	clientHand.TickSecondary(0.02)
	for _, ev := range serverEnd.Receive() {
		serverHand.Handle(ev)
	}
	serverHand.TickPrimary(0.03, 0.01)

	palm, _ := serverEngine.Body(physics.BodyRef{Component: "right_hand", Bone: "palm"})
	if !palm.State.Position.ApproxEqualThreshold(target, 1e-9) {
		t.Fatalf("expected the server's palm at %v, got %v", target, palm.State.Position)
	}
}

type recordingRenderer struct {
	frames map[contact.PeripheralID]contact.PneumaticFrame
}

func (r *recordingRenderer) Render(peripheral contact.PeripheralID, frame contact.PneumaticFrame) error {
	r.frames[peripheral] = frame
	return nil
}

func TestTactorTraceWithoutImpulse(t *testing.T) {
	engine := simulation.NewEngine(nil, simulation.Config{})
	renderer := &recordingRenderer{frames: make(map[contact.PeripheralID]contact.PneumaticFrame)}
	c := core.New(nil, engine, renderer, core.DefaultConfig())
	addSkeleton(t, engine, "right_hand", mgl64.Vec3{})
	// Half a millimetre below the pad of the first index segment, out of reach of every other tactor.
	err := engine.AddComponent("coin", simulation.Body{
		State:      physics.RigidBodyState{Position: mgl64.Vec3{0.02, 0.02, -0.0155}},
		HalfExtent: 0.01,
	})
	if err != nil {
		t.Fatalf("adding coin: %v", err)
	}

	conf := DefaultConfig("right_hand", physics.SideRight, "p1")
	conf.LocallyControlled = true
	h := newHand(t, c, conf)
	h.UpdateOverlaps([]string{"coin"}, nil)

	if n := h.TraceTactors(); n != 1 {
		t.Fatalf("expected one sample, got %d", n)
	}
	c.Tick(1.0 / 90)

	frame, ok := renderer.frames[conf.Peripheral]
	if !ok {
		t.Fatal("expected a frame for the hand's peripheral")
	}
	tactor := contact.TactorID(physics.JointIndex(physics.FingerIndex, physics.JointProximal))
	if height := frame.TactorHeights[tactor]; height <= 0 || height > 0.0005+1e-6 {
		t.Fatalf("expected a height of about 0.0005 from the sample alone, got %v", height)
	}
	if len(frame.TactorHeights) != 1 {
		t.Fatalf("expected only the index tactor to be raised, got %v", frame.TactorHeights)
	}
}

func TestRemoteHandDoesNotTrace(t *testing.T) {
	c, engine := newWorld(t, core.DefaultConfig())
	addSkeleton(t, engine, "right_hand", mgl64.Vec3{})
	if err := engine.AddComponent("coin", simulation.Body{
		State:      physics.RigidBodyState{Position: mgl64.Vec3{0.02, 0.02, -0.0155}},
		HalfExtent: 0.01,
	}); err != nil {
		t.Fatalf("adding coin: %v", err)
	}
	h := newHand(t, c, serverConfig("right_hand", "p1"))
	h.UpdateOverlaps([]string{"coin"}, nil)
	if n := h.TraceTactors(); n != 0 {
		t.Fatalf("expected a remote hand not to trace, got %d samples", n)
	}
}

func graspCup(t *testing.T, c *core.Core, h *Hand) {
	t.Helper()
	const dt = 1.0 / 90
	for tick := 0; tick < 10; tick++ {
		h.NotifyHit(Hit{Bone: "index3", Other: physics.BodyRef{Component: "cup"}, Impulse: mgl64.Vec3{0, 0, -5}})
		c.Tick(dt)
	}
	if c.Manager().Len() != 1 {
		t.Fatalf("expected a grasp, got %d", c.Manager().Len())
	}
}

func TestHardDisableReleasesGrasps(t *testing.T) {
	c, engine := newWorld(t, core.DefaultConfig())
	addSkeleton(t, engine, "right_hand", mgl64.Vec3{})
	if err := engine.AddComponent("cup", simulation.Body{State: physics.RigidBodyState{Position: mgl64.Vec3{0.1, 0, 0}}, HalfExtent: 0.03}); err != nil {
		t.Fatalf("adding cup: %v", err)
	}
	h := newHand(t, c, serverConfig("right_hand", "p1"))
	graspCup(t, c, h)

	h.HardDisable("joint torn off")
	if c.Manager().Len() != 0 || len(c.Detector().Grasps()) != 0 {
		t.Fatal("expected the grasp to be released immediately")
	}
	if n := len(engine.Constraints()); n != 0 {
		t.Fatalf("expected no constraints left on the disabled hand, got %d", n)
	}
	if n := len(h.Replicator().LocalConstraints()); n != 0 {
		t.Fatalf("expected the replicator to see the release, got %d local constraints", n)
	}

	c.Tick(1.0 / 90)
	if c.Manager().Len() != 0 {
		t.Fatal("expected no grasp to come back")
	}
}

func TestRemovedHandStopsObserving(t *testing.T) {
	c, engine := newWorld(t, core.DefaultConfig())
	addSkeleton(t, engine, "right_hand", mgl64.Vec3{})
	if err := engine.AddComponent("cup", simulation.Body{State: physics.RigidBodyState{Position: mgl64.Vec3{0.1, 0, 0}}, HalfExtent: 0.03}); err != nil {
		t.Fatalf("adding cup: %v", err)
	}
	h := newHand(t, c, serverConfig("right_hand", "p1"))
	c.RemoveHand(h)
	if len(c.Hands()) != 0 {
		t.Fatal("expected the hand to be removed")
	}

	graspCup(t, c, h)
	if n := len(h.Replicator().LocalConstraints()); n != 0 {
		t.Fatalf("expected a removed hand not to track constraints, got %d", n)
	}
}
