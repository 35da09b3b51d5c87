package authority

import (
	"sync"

	"github.com/samber/lo"
)

// PawnID identifies the player a hand belongs to.
type PawnID string

type occupancy struct {
	pawns          map[PawnID]int
	wasReplicating bool
}

// Table tracks, for every object, how many overlap events each pawn currently has with it. It is
// shared between every hand on a machine.
type Table struct {
	mu      sync.Mutex
	objects map[string]*occupancy
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{objects: make(map[string]*occupancy)}
}

// Add records one overlap between a pawn and an object. It returns the number of distinct pawns
// overlapping the object and the pawn's own overlap count, both after the addition.
func (t *Table) Add(component string, pawn PawnID) (pawns int, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.objects[component]
	if !ok {
		o = &occupancy{pawns: make(map[PawnID]int)}
		t.objects[component] = o
	}
	o.pawns[pawn]++
	return len(o.pawns), o.pawns[pawn]
}

// Remove removes one overlap between a pawn and an object. When the last overlap of the last pawn is
// removed the object is forgotten, and Remove reports whether its movement had been replicated
// before the first pawn arrived.
func (t *Table) Remove(component string, pawn PawnID) (empty bool, wasReplicating bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	o, ok := t.objects[component]
	if !ok {
		return false, false
	}
	if n, ok := o.pawns[pawn]; ok {
		if n <= 1 {
			delete(o.pawns, pawn)
		} else {
			o.pawns[pawn] = n - 1
		}
	}
	if len(o.pawns) > 0 {
		return false, false
	}
	delete(t.objects, component)
	return true, o.wasReplicating
}

// MarkReplicating remembers that an object's movement was replicated before pawns overlapped it.
func (t *Table) MarkReplicating(component string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if o, ok := t.objects[component]; ok {
		o.wasReplicating = true
	}
}

// Pawns returns the number of distinct pawns overlapping an object.
func (t *Table) Pawns(component string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if o, ok := t.objects[component]; ok {
		return len(o.pawns)
	}
	return 0
}

// Contested reports whether any of the given objects is overlapped by more than one pawn.
func (t *Table) Contested(components []string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return lo.SomeBy(components, func(c string) bool {
		o, ok := t.objects[c]
		return ok && len(o.pawns) > 1
	})
}

// Len returns the number of objects overlapped by at least one pawn.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.objects)
}
