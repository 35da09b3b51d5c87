package registry

// Table maps IDs to registered values stored in an Arena.
type Table[V any] struct {
	arena Arena[V]
	byID  map[ID]Handle
}

// NewTable creates an empty table.
func NewTable[V any]() *Table[V] {
	return &Table[V]{byID: make(map[ID]Handle)}
}

// Register stores v under id. If id is already registered the call fails unless force is set, in
// which case the previous value is replaced and handles to it become stale.
func (t *Table[V]) Register(id ID, v V, force bool) (Handle, bool) {
	if !id.Valid() {
		return Handle{}, false
	}
	if h, ok := t.byID[id]; ok {
		if !force {
			return h, false
		}
		t.arena.Remove(h)
	}
	h := t.arena.Insert(v)
	t.byID[id] = h
	return h, true
}

// Lookup returns the value registered under id.
func (t *Table[V]) Lookup(id ID) (V, bool) {
	h, ok := t.byID[id]
	if !ok {
		var zero V
		return zero, false
	}
	return t.arena.Get(h)
}

// Handle returns the current handle of id.
func (t *Table[V]) Handle(id ID) (Handle, bool) {
	h, ok := t.byID[id]
	return h, ok
}

// Resolve returns the value behind a handle, failing for stale handles.
func (t *Table[V]) Resolve(h Handle) (V, bool) {
	return t.arena.Get(h)
}

// Contains reports whether id is registered.
func (t *Table[V]) Contains(id ID) bool {
	_, ok := t.byID[id]
	return ok
}

// Remove unregisters id.
func (t *Table[V]) Remove(id ID) bool {
	h, ok := t.byID[id]
	if !ok {
		return false
	}
	delete(t.byID, id)
	_, ok = t.arena.Remove(h)
	return ok
}

// Len returns the number of registered IDs.
func (t *Table[V]) Len() int {
	return len(t.byID)
}

// Reset unregisters everything. Outstanding handles become stale.
func (t *Table[V]) Reset() {
	for id, h := range t.byID {
		t.arena.Remove(h)
		delete(t.byID, id)
	}
}
