package authority

import (
	"math"
	"sync"
	"testing"
)

type fakeReplication struct {
	replicated map[string]bool
	removed    []string
}

func newFakeReplication(components ...string) *fakeReplication {
	f := &fakeReplication{replicated: make(map[string]bool)}
	for _, c := range components {
		f.replicated[c] = true
	}
	return f
}

func (f *fakeReplication) MovementReplicated(c string) bool { return f.replicated[c] }

func (f *fakeReplication) SetMovementReplicated(c string, r bool) { f.replicated[c] = r }

func (f *fakeReplication) RemoveReplicationTarget(c string) { f.removed = append(f.removed, c) }

func newServerZone(table *Table, pawn PawnID) *Zone {
	return NewZone(nil, ZoneConfig{Pawn: pawn, Radius: 10, Hysteresis: 0.1, Server: true}, table, newFakeReplication())
}

func object(c string) Overlap {
	return Overlap{Kind: OverlapObject, Component: c}
}

func TestArbitrationSymmetry(t *testing.T) {
	table := NewTable()
	a, b := newServerZone(table, "alice"), newServerZone(table, "bob")
	a.Begin(object("cup"))
	b.Begin(object("plate"))

	for _, z := range []*Zone{a, b} {
		if got := Resolve(ModeDynamic, z, table); got != AuthorityClient {
			t.Fatalf("%s: expected client authority, got %s", z.Pawn(), got)
		}
	}
}

func TestContestedObjectForcesServer(t *testing.T) {
	table := NewTable()
	a, b, c := newServerZone(table, "alice"), newServerZone(table, "bob"), newServerZone(table, "carol")
	a.Begin(object("ball"))
	b.Begin(object("ball"))
	c.Begin(object("box"))
	if Resolve(ModeDynamic, c, table) != AuthorityClient {
		t.Fatalf("carol should be client authoritative before touching the ball")
	}

	c.Begin(object("ball"))
	arbiters := map[*Zone]*Arbiter{a: NewArbiter(nil, ModeDynamic), b: NewArbiter(nil, ModeDynamic), c: NewArbiter(nil, ModeDynamic)}
	for z, arb := range arbiters {
		arb.Evaluate(z, table)
		if arb.Authority() != AuthorityServer {
			t.Fatalf("%s: expected server authority", z.Pawn())
		}
	}

	// Once the others leave, the remaining pawn gets authority back.
	a.End(object("ball"))
	b.End(object("ball"))
	if got := Resolve(ModeDynamic, c, table); got != AuthorityClient {
		t.Fatalf("expected client authority once uncontested, got %s", got)
	}
}

func TestHandZoneOverlapForcesServerAndGrowsRadius(t *testing.T) {
	table := NewTable()
	z := newServerZone(table, "alice")

	z.Begin(Overlap{Kind: OverlapHandZone, Pawn: "alice"})
	if z.HandOverlaps() != 0 || z.Radius() != 10 {
		t.Fatalf("the pawn's own zones must be ignored")
	}

	z.Begin(Overlap{Kind: OverlapHandZone, Pawn: "bob"})
	z.Begin(Overlap{Kind: OverlapHandZone, Pawn: "bob"})
	if math.Abs(z.Radius()-11) > 1e-9 {
		t.Fatalf("expected the enlarged radius 11, got %v", z.Radius())
	}
	if Resolve(ModeDynamic, z, table) != AuthorityServer {
		t.Fatalf("expected server authority while hands overlap")
	}

	z.End(Overlap{Kind: OverlapHandZone, Pawn: "bob"})
	if math.Abs(z.Radius()-11) > 1e-9 {
		t.Fatalf("the radius must stay enlarged while any overlap remains")
	}
	z.End(Overlap{Kind: OverlapHandZone, Pawn: "bob"})
	z.End(Overlap{Kind: OverlapHandZone, Pawn: "bob"})
	if z.Radius() != 10 || z.HandOverlaps() != 0 {
		t.Fatalf("expected the nominal radius once overlaps end, got %v", z.Radius())
	}
}

func TestFixedModes(t *testing.T) {
	table := NewTable()
	z := newServerZone(table, "alice")
	z.Begin(Overlap{Kind: OverlapHandZone, Pawn: "bob"})
	if Resolve(ModeClient, z, table) != AuthorityClient {
		t.Fatalf("client mode must ignore zone occupancy")
	}
	if Resolve(ModeServer, newServerZone(table, "carol"), table) != AuthorityServer {
		t.Fatalf("server mode must ignore zone occupancy")
	}
	if NewArbiter(nil, ModeDynamic).Authority() != AuthorityServer {
		t.Fatalf("hands must start server authoritative")
	}
}

func TestArbiterNotifiesChanges(t *testing.T) {
	arb := NewArbiter(nil, ModeDynamic)
	var changes []Authority
	arb.OnChange(func(_, current Authority) { changes = append(changes, current) })
	arb.Set(AuthorityServer)
	arb.Set(AuthorityClient)
	arb.Set(AuthorityClient)
	arb.SetMode(ModeServer)
	if len(changes) != 2 || changes[0] != AuthorityClient || changes[1] != AuthorityServer {
		t.Fatalf("unexpected changes %v", changes)
	}
	if arb.Epoch() != 2 {
		t.Fatalf("expected epoch 2, got %d", arb.Epoch())
	}
}

func TestClientZoneDefersReplicationTargetRemoval(t *testing.T) {
	table := NewTable()
	engine := newFakeReplication("cup")
	z := NewZone(nil, ZoneConfig{Pawn: "alice", Radius: 10}, table, engine)

	z.Begin(object("cup"))
	z.Begin(object("cup"))
	if engine.MovementReplicated("cup") {
		t.Fatalf("expected movement replication to be disabled")
	}
	if len(engine.removed) != 0 || len(z.Pending()) != 1 {
		t.Fatalf("replication target removal must wait for the flush")
	}
	z.FlushDeferred()
	if len(engine.removed) != 1 || engine.removed[0] != "cup" || len(z.Pending()) != 0 {
		t.Fatalf("expected the cup's replication target removed, got %v", engine.removed)
	}

	z.End(object("cup"))
	if engine.MovementReplicated("cup") {
		t.Fatalf("movement replication must stay off while the cup is still in the zone")
	}
	z.End(object("cup"))
	if !engine.MovementReplicated("cup") || table.Len() != 0 || z.Contains("cup") {
		t.Fatalf("expected movement replication restored once the last pawn left")
	}
}

func TestIsPhysicsAuthority(t *testing.T) {
	cases := []struct {
		server, local bool
		authority     Authority
		want          bool
	}{
		{true, false, AuthorityServer, true},
		{true, false, AuthorityClient, false},
		{false, true, AuthorityClient, true},
		{false, true, AuthorityServer, false},
		{true, true, AuthorityClient, true},
		{false, false, AuthorityClient, false},
	}
	for _, c := range cases {
		if got := IsPhysicsAuthority(c.server, c.local, c.authority); got != c.want {
			t.Fatalf("IsPhysicsAuthority(%v, %v, %s) = %v, want %v", c.server, c.local, c.authority, got, c.want)
		}
	}
}

func TestTableConcurrentAccess(t *testing.T) {
	table := NewTable()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(pawn PawnID) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				table.Add("ball", pawn)
			}
			for j := 0; j < 100; j++ {
				table.Remove("ball", pawn)
			}
		}(PawnID(rune('a' + i)))
	}
	wg.Wait()
	if table.Len() != 0 {
		t.Fatalf("expected the table to be empty, got %d objects", table.Len())
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{ModeDynamic, ModeClient, ModeServer} {
		if got, ok := ParseMode(m.String()); !ok || got != m {
			t.Fatalf("round trip of %s failed", m)
		}
	}
	if _, ok := ParseMode("sometimes"); ok {
		t.Fatalf("expected an unknown mode to fail")
	}
}
