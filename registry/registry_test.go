package registry

import "testing"

func TestMakeIDDeterministic(t *testing.T) {
	a := MakeID("hand_left", 3)
	b := MakeID("hand_left", 3)
	if a != b {
		t.Fatalf("expected identical IDs, got %v and %v", a, b)
	}
	if a == MakeID("hand_left", 4) || a == MakeID("hand_right", 3) {
		t.Fatalf("different owners or indices must give different IDs")
	}
	if !a.Valid() {
		t.Fatalf("derived IDs must never be the sentinel")
	}
}

func TestArenaStaleHandles(t *testing.T) {
	var a Arena[string]
	h1 := a.Insert("first")
	if v, ok := a.Get(h1); !ok || v != "first" {
		t.Fatalf("expected first, got %q (ok=%v)", v, ok)
	}
	if _, ok := a.Remove(h1); !ok {
		t.Fatalf("expected removal to succeed")
	}
	h2 := a.Insert("second")
	if _, ok := a.Get(h1); ok {
		t.Fatalf("stale handle resolved after its slot was reused")
	}
	if v, ok := a.Get(h2); !ok || v != "second" {
		t.Fatalf("expected second, got %q (ok=%v)", v, ok)
	}
	if _, ok := a.Remove(h1); ok {
		t.Fatalf("removing through a stale handle must fail")
	}
	if a.Len() != 1 {
		t.Fatalf("expected 1 live value, got %d", a.Len())
	}
	if _, ok := a.Get(Handle{}); ok {
		t.Fatalf("zero handle must not resolve")
	}
}

func TestArenaAll(t *testing.T) {
	var a Arena[int]
	handles := make([]Handle, 0, 4)
	for i := range 4 {
		handles = append(handles, a.Insert(i))
	}
	a.Remove(handles[1])

	sum := 0
	for h, v := range a.All() {
		got, ok := a.Get(h)
		if !ok || got != v {
			t.Fatalf("All yielded an unresolvable handle")
		}
		sum += v
	}
	if sum != 0+2+3 {
		t.Fatalf("unexpected sum %d", sum)
	}
}

func TestTableRegister(t *testing.T) {
	tbl := NewTable[string]()
	id := MakeID("cup", 0)

	h1, ok := tbl.Register(id, "v1", false)
	if !ok {
		t.Fatalf("first registration should succeed")
	}
	if _, ok := tbl.Register(id, "v2", false); ok {
		t.Fatalf("duplicate registration without force should fail")
	}
	if v, _ := tbl.Lookup(id); v != "v1" {
		t.Fatalf("failed duplicate must not replace the value, got %q", v)
	}

	h2, ok := tbl.Register(id, "v3", true)
	if !ok || h1 == h2 {
		t.Fatalf("forced registration should replace the value with a new handle")
	}
	if _, ok := tbl.Resolve(h1); ok {
		t.Fatalf("handle to the replaced value must be stale")
	}
	if v, _ := tbl.Lookup(id); v != "v3" {
		t.Fatalf("expected v3, got %q", v)
	}

	if _, ok := tbl.Register(InvalidID, "x", true); ok {
		t.Fatalf("the sentinel ID must never register")
	}

	tbl.Reset()
	if tbl.Len() != 0 || tbl.Contains(id) {
		t.Fatalf("reset must clear the table")
	}
	if _, ok := tbl.Resolve(h2); ok {
		t.Fatalf("handles must be stale after reset")
	}
}
