package core

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hxnet/hxnet/contact"
	"github.com/hxnet/hxnet/physics"
	"github.com/hxnet/hxnet/registry"
	"github.com/hxnet/hxnet/simulation"
)

type recordingRenderer struct {
	frames int
	fail   bool
}

func (r *recordingRenderer) Render(contact.PeripheralID, contact.PneumaticFrame) error {
	r.frames++
	if r.fail {
		return errors.New("peripheral unplugged")
	}
	return nil
}

type fakeHand struct {
	side    physics.Side
	local   bool
	enabled bool
}

func (h *fakeHand) Side() physics.Side      { return h.side }
func (h *fakeHand) LocallyControlled() bool { return h.local }
func (h *fakeHand) Enabled() bool           { return h.enabled }

func newCore(t *testing.T, renderer Renderer) (*Core, *simulation.Engine) {
	t.Helper()
	engine := simulation.NewEngine(nil, simulation.Config{})
	if err := engine.AddComponent("right_hand", simulation.Body{Bone: "palm"}, simulation.Body{Bone: "index1"}); err != nil {
		t.Fatalf("adding hand: %v", err)
	}
	if err := engine.AddComponent("cup", simulation.Body{}); err != nil {
		t.Fatalf("adding cup: %v", err)
	}
	return New(nil, engine, renderer, DefaultConfig()), engine
}

func TestTryRegisterObject(t *testing.T) {
	c, _ := newCore(t, nil)
	if _, ok := c.TryRegisterObject("ghost", "", "", false); ok {
		t.Fatal("registered an object with no physical representation")
	}

	id, ok := c.TryRegisterObject("cup", "", "PhysicsBody", false)
	if !ok || !id.Valid() {
		t.Fatal("failed to register the cup")
	}
	again, ok := c.TryRegisterObject("cup", "", "PhysicsBody", false)
	if !ok || again != id {
		t.Fatalf("expected the same ID on re-registration, got %v and %v", id, again)
	}
	if ref, ok := c.BodyRef(id); !ok || ref.Component != "cup" {
		t.Fatalf("unexpected body ref %+v", ref)
	}
	if !c.Interpreter().ObjectRegistered(id) {
		t.Fatal("expected the contact interpreter to know the cup")
	}
}

func TestAddHandRejectsDuplicate(t *testing.T) {
	c, _ := newCore(t, nil)
	right := &fakeHand{side: physics.SideRight, local: true, enabled: true}
	if err := c.AddHand(right); err != nil {
		t.Fatalf("adding first hand: %v", err)
	}
	if err := c.AddHand(&fakeHand{side: physics.SideRight, local: true, enabled: true}); err == nil {
		t.Fatal("expected a second local right hand to be rejected")
	}
	if err := c.AddHand(&fakeHand{side: physics.SideLeft, local: true, enabled: true}); err != nil {
		t.Fatalf("adding left hand: %v", err)
	}
	if err := c.AddHand(&fakeHand{side: physics.SideRight, local: false, enabled: true}); err != nil {
		t.Fatalf("adding remote right hand: %v", err)
	}
	if len(c.Hands()) != 3 {
		t.Fatalf("expected 3 hands, got %d", len(c.Hands()))
	}

	right.enabled = false
	if err := c.AddHand(&fakeHand{side: physics.SideRight, local: true, enabled: true}); err != nil {
		t.Fatalf("expected a disabled hand not to block: %v", err)
	}
}

func TestRestartRequiredOnce(t *testing.T) {
	var messages []string
	conf := DefaultConfig()
	conf.OnRestartRequired = func(m string) { messages = append(messages, m) }
	c := New(nil, simulation.NewEngine(nil, simulation.Config{}), nil, conf)

	if !c.RestartRequired() {
		t.Fatal("expected the first call to surface the message")
	}
	if c.RestartRequired() {
		t.Fatal("expected the message to be surfaced only once")
	}
	if len(messages) != 1 {
		t.Fatalf("expected one message, got %d", len(messages))
	}
}

func TestTickPipeline(t *testing.T) {
	renderer := &recordingRenderer{fail: true}
	c, engine := newCore(t, renderer)

	palm, finger := registry.MakeID("right_hand", 0), registry.MakeID("right_hand", 1)
	if err := c.RegisterBody(palm, BodyRegistration{Ref: physics.BodyRef{Component: "right_hand", Bone: "palm"}, Part: physics.BodyPartPalm, Anchor: true}); err != nil {
		t.Fatalf("registering palm: %v", err)
	}
	if err := c.RegisterBody(finger, BodyRegistration{
		Ref:       physics.BodyRef{Component: "right_hand", Bone: "index1"},
		Part:      physics.BodyPartProximal,
		Callbacks: contact.BodyCallbacks{Peripheral: 1, Tactors: []contact.TactorID{1}},
		Parent:    palm,
	}); err != nil {
		t.Fatalf("registering finger: %v", err)
	}
	cup, ok := c.TryRegisterObject("cup", "", "", false)
	if !ok {
		t.Fatal("failed to register the cup")
	}

	const dt = 1.0 / 90
	impulse := mgl64.Vec3{0, 0, -5}
	for tick := 1; tick <= 10; tick++ {
		if err := c.AddContact(cup, finger, impulse); err != nil {
			t.Fatalf("adding contact: %v", err)
		}
		if err := c.Detector().AddGraspContact(cup, finger, mgl64.Vec3{}, impulse); err != nil {
			t.Fatalf("adding grasp contact: %v", err)
		}
		c.Tick(dt)
	}

	if renderer.frames != 10 {
		t.Fatalf("expected a render attempt every tick despite failures, got %d", renderer.frames)
	}
	if c.Manager().Len() != 1 {
		t.Fatalf("expected one live grasp, got %d", c.Manager().Len())
	}
	if len(engine.Constraints()) != 1 {
		t.Fatalf("expected one stick constraint, got %d", len(engine.Constraints()))
	}
	if len(c.Detector().History()) != 0 {
		t.Fatal("expected the grasp history to be cleared after the tick")
	}
}

func TestRegisterBodyNeedsParent(t *testing.T) {
	c, _ := newCore(t, nil)
	err := c.RegisterBody(registry.MakeID("right_hand", 1), BodyRegistration{Parent: registry.MakeID("right_hand", 0)})
	if err == nil {
		t.Fatal("expected an unregistered parent to be rejected")
	}
	if err := c.RegisterBody(registry.InvalidID, BodyRegistration{}); err == nil {
		t.Fatal("expected the sentinel ID to be rejected")
	}
}
