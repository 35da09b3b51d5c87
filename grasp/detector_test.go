package grasp

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hxnet/hxnet/registry"
	"github.com/samber/lo"
)

const tick = 1.0 / 90

type testHand struct {
	whole, palm, index1, index2, thumb2 registry.ID
}

func newTestDetector(t *testing.T) (*Detector, testHand, registry.ID) {
	t.Helper()
	d := NewDetector(nil, DefaultParameters())
	h := testHand{
		whole:  registry.MakeID("right_hand", 0),
		palm:   registry.MakeID("right_hand", 1),
		index1: registry.MakeID("right_hand", 2),
		index2: registry.MakeID("right_hand", 3),
		thumb2: registry.MakeID("right_hand", 4),
	}
	for _, b := range []struct {
		id, parent registry.ID
		anchor     bool
	}{
		{h.whole, registry.InvalidID, true},
		{h.palm, h.whole, false},
		{h.index1, h.whole, false},
		{h.index2, h.index1, false},
		{h.thumb2, h.whole, false},
	} {
		if err := d.RegisterBody(b.id, b.parent, b.anchor); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	object := registry.MakeID("mug", 0)
	d.RegisterObject(object, DefaultObjectParameters())
	return d, h, object
}

func (d *Detector) takeHistory() []Transition {
	h := append([]Transition(nil), d.History()...)
	d.ClearHistory()
	return h
}

func TestRegisterBodyRequiresParent(t *testing.T) {
	d := NewDetector(nil, DefaultParameters())
	if err := d.RegisterBody(registry.MakeID("hand", 1), registry.MakeID("hand", 0), false); err == nil {
		t.Fatalf("expected an error for an unregistered parent")
	}
	if err := d.RegisterBody(registry.InvalidID, registry.InvalidID, false); err == nil {
		t.Fatalf("expected an error for the invalid ID")
	}
}

func TestAddGraspContactRejectsUnknownParticipants(t *testing.T) {
	d, h, object := newTestDetector(t)
	if err := d.AddGraspContact(registry.MakeID("ghost", 0), h.palm, mgl64.Vec3{}, mgl64.Vec3{0, 0, -5}); err == nil {
		t.Fatalf("expected an error for an unregistered object")
	}
	if err := d.AddGraspContact(object, registry.MakeID("stranger", 0), mgl64.Vec3{}, mgl64.Vec3{0, 0, -5}); err == nil {
		t.Fatalf("expected an error for an unregistered body")
	}
}

func TestGraspScenario(t *testing.T) {
	d, h, object := newTestDetector(t)
	impulse := mgl64.Vec3{0, 0, -5}

	created := 0
	for i := 1; i <= 10; i++ {
		if err := d.AddGraspContact(object, h.index2, mgl64.Vec3{0, 0, 1}, impulse); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		d.Update(tick)
		score := d.Score(object, h.index2)
		history := d.takeHistory()
		for _, tr := range history {
			if tr.Kind != KindCreate {
				t.Fatalf("tick %d: unexpected %s", i, tr.Kind)
			}
			created++
			if score < 18 {
				t.Fatalf("tick %d: created at score %.3f below the threshold", i, score)
			}
		}
		if score >= 18 && created == 0 {
			t.Fatalf("tick %d: score %.3f reached the threshold without a create", i, score)
		}
		if i == 6 && created != 1 {
			t.Fatalf("expected the grasp to be created on tick 6")
		}
	}
	if created != 1 {
		t.Fatalf("expected exactly one create, got %d", created)
	}

	destroyed, destroyTick := 0, 0
	for i := 1; i <= 20; i++ {
		magnitude := 5 * float64(20-i) / 20
		if magnitude > 0 {
			_ = d.AddGraspContact(object, h.index2, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, -magnitude})
		}
		d.Update(tick)
		score := d.Score(object, h.index2)
		for _, tr := range d.takeHistory() {
			if tr.Kind != KindDestroy {
				t.Fatalf("decay tick %d: unexpected %s", i, tr.Kind)
			}
			destroyed++
			destroyTick = i
			if score >= 13.5 {
				t.Fatalf("decay tick %d: destroyed at score %.3f above release", i, score)
			}
		}
		if score < 13.5 && destroyed == 0 {
			t.Fatalf("decay tick %d: score %.3f fell below release without a destroy", i, score)
		}
	}
	if destroyed != 1 || destroyTick != 13 {
		t.Fatalf("expected one destroy on decay tick 13, got %d on tick %d", destroyed, destroyTick)
	}
}

func TestGraspHysteresisIdempotence(t *testing.T) {
	d, h, object := newTestDetector(t)
	for i := 0; i < 10; i++ {
		_ = d.AddGraspContact(object, h.palm, mgl64.Vec3{}, mgl64.Vec3{5, 0, 0})
		d.Update(tick)
	}
	if history := d.takeHistory(); len(history) != 1 || history[0].Kind != KindCreate {
		t.Fatalf("expected a single create, got %+v", history)
	}

	// A steady 3N impulse settles at a score of about 15, between release (13.5) and create (18).
	for i := 0; i < 500; i++ {
		_ = d.AddGraspContact(object, h.palm, mgl64.Vec3{}, mgl64.Vec3{3, 0, 0})
		d.Update(tick)
		if history := d.takeHistory(); len(history) != 0 {
			t.Fatalf("tick %d: unexpected transitions %+v at score %.3f", i, history, d.Score(object, h.palm))
		}
	}
	if s := d.Score(object, h.palm); s <= 13.5 || s >= 18 {
		t.Fatalf("expected the score to settle between release and create, got %.3f", s)
	}
	if len(d.Grasps()) != 1 {
		t.Fatalf("expected the grasp to persist")
	}
}

func TestPinchAndAnchorAndUpdate(t *testing.T) {
	d, h, object := newTestDetector(t)
	for i := 0; i < 10; i++ {
		_ = d.AddGraspContact(object, h.index2, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{5, 0, 0})
		_ = d.AddGraspContact(object, h.thumb2, mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{-5, 0, 0})
		d.Update(tick)
	}
	history := d.takeHistory()
	if len(history) != 1 || history[0].Kind != KindCreate {
		t.Fatalf("expected a single create, got %+v", history)
	}
	g := history[0].Grasp
	if !g.Pinch() || g.Parent != h.whole || !g.Anchor {
		t.Fatalf("expected an anchored pinch under the whole hand, got %+v", g)
	}
	if !g.Location.ApproxEqualThreshold(mgl64.Vec3{}, 1e-9) {
		t.Fatalf("expected the centroid between both contacts, got %v", g.Location)
	}

	// The palm joins: the body set changes without a release.
	for i := 0; i < 3; i++ {
		_ = d.AddGraspContact(object, h.index2, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{5, 0, 0})
		_ = d.AddGraspContact(object, h.thumb2, mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{-5, 0, 0})
		_ = d.AddGraspContact(object, h.palm, mgl64.Vec3{0, -1, 0}, mgl64.Vec3{0, 5, 0})
		d.Update(tick)
	}
	history = d.takeHistory()
	if len(history) != 1 || history[0].Kind != KindUpdate || history[0].Grasp.ID != g.ID {
		t.Fatalf("expected one update of grasp %d, got %+v", g.ID, history)
	}
	if len(history[0].Grasp.Bodies) != 3 || history[0].Grasp.Pinch() {
		t.Fatalf("expected three participating bodies, got %+v", history[0].Grasp.Bodies)
	}
}

func TestSingleFingerParentIsThatFinger(t *testing.T) {
	d, h, object := newTestDetector(t)
	for i := 0; i < 10; i++ {
		_ = d.AddGraspContact(object, h.index1, mgl64.Vec3{}, mgl64.Vec3{5, 0, 0})
		_ = d.AddGraspContact(object, h.index2, mgl64.Vec3{}, mgl64.Vec3{5, 0, 0})
		d.Update(tick)
	}
	history := d.takeHistory()
	if len(history) != 1 {
		t.Fatalf("expected one transition, got %d", len(history))
	}
	if g := history[0].Grasp; g.Parent != h.index1 || g.Anchor {
		t.Fatalf("expected the proximal segment to parent an unanchored grasp, got %+v", g)
	}
}

func TestObjectOverrides(t *testing.T) {
	d, h, object := newTestDetector(t)
	d.RegisterObject(object, ObjectParameters{CanBeGrasped: false})
	for i := 0; i < 30; i++ {
		_ = d.AddGraspContact(object, h.palm, mgl64.Vec3{}, mgl64.Vec3{5, 0, 0})
		d.Update(tick)
	}
	if len(d.History()) != 0 {
		t.Fatalf("an ungraspable object must never be grasped")
	}

	light := registry.MakeID("feather", 0)
	d.RegisterObject(light, ObjectParameters{CanBeGrasped: true, Threshold: lo.ToPtr(4.0)})
	_ = d.AddGraspContact(light, h.palm, mgl64.Vec3{}, mgl64.Vec3{5, 0, 0})
	d.Update(tick)
	if history := d.takeHistory(); len(history) != 1 || history[0].Grasp.Object != light {
		t.Fatalf("expected the lowered threshold to create immediately, got %+v", history)
	}
}

func TestHistoryOrderAndReset(t *testing.T) {
	d, h, object := newTestDetector(t)
	other := registry.MakeID("plate", 0)
	d.RegisterObject(other, DefaultObjectParameters())
	for i := 0; i < 10; i++ {
		_ = d.AddGraspContact(object, h.palm, mgl64.Vec3{}, mgl64.Vec3{5, 0, 0})
		_ = d.AddGraspContact(other, h.index2, mgl64.Vec3{}, mgl64.Vec3{5, 0, 0})
		d.Update(tick)
	}
	history := d.takeHistory()
	if len(history) != 2 || history[0].Grasp.Object != object || history[1].Grasp.Object != other {
		t.Fatalf("expected creates in contact order, got %+v", history)
	}
	if history[0].Grasp.ID >= history[1].Grasp.ID {
		t.Fatalf("expected increasing grasp IDs")
	}

	d.Reset()
	history = d.takeHistory()
	if len(history) != 2 || history[0].Kind != KindDestroy || history[1].Kind != KindDestroy {
		t.Fatalf("expected both grasps destroyed on reset, got %+v", history)
	}
	if len(d.Grasps()) != 0 {
		t.Fatalf("expected no live grasps after reset")
	}
}

func TestZeroReleaseHysteresisHoldsGrasp(t *testing.T) {
	d, h, _ := newTestDetector(t)
	sticky := registry.MakeID("magnet", 0)
	d.RegisterObject(sticky, ObjectParameters{CanBeGrasped: true, ReleaseHysteresis: lo.ToPtr(0.0)})
	for i := 0; i < 10; i++ {
		_ = d.AddGraspContact(sticky, h.palm, mgl64.Vec3{}, mgl64.Vec3{5, 0, 0})
		d.Update(tick)
	}
	if history := d.takeHistory(); len(history) != 1 || history[0].Kind != KindCreate {
		t.Fatalf("expected the grasp to be created, got %+v", history)
	}

	// Without contacts the score decays towards zero, which never drops below a release line of zero.
	for i := 0; i < 200; i++ {
		d.Update(tick)
	}
	for _, tr := range d.takeHistory() {
		if tr.Kind == KindDestroy {
			t.Fatalf("expected a release hysteresis of zero to hold the grasp, got %+v", tr)
		}
	}
	if len(d.Grasps()) != 1 {
		t.Fatalf("expected the grasp to stay live, got %d", len(d.Grasps()))
	}
}
