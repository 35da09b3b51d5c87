package registry

import "iter"

// Handle refers to a slot in an Arena. A handle whose slot has since been freed and reused no longer
// resolves.
type Handle struct {
	index      uint32
	generation uint32
}

// Valid reports whether the handle was ever issued.
func (h Handle) Valid() bool {
	return h.generation != 0
}

type slot[T any] struct {
	value      T
	generation uint32
	live       bool
}

// Arena stores values in dense slots addressed by generation-checked handles.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

// Insert stores v and returns its handle.
func (a *Arena[T]) Insert(v T) Handle {
	var index uint32
	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		index = uint32(len(a.slots))
		a.slots = append(a.slots, slot[T]{})
	}
	s := &a.slots[index]
	s.generation++
	s.value, s.live = v, true
	a.live++
	return Handle{index: index, generation: s.generation}
}

// Get resolves a handle. Stale or never-issued handles do not resolve.
func (a *Arena[T]) Get(h Handle) (T, bool) {
	var zero T
	if !h.Valid() || int(h.index) >= len(a.slots) {
		return zero, false
	}
	s := a.slots[h.index]
	if !s.live || s.generation != h.generation {
		return zero, false
	}
	return s.value, true
}

// Set replaces the value behind a live handle.
func (a *Arena[T]) Set(h Handle, v T) bool {
	if _, ok := a.Get(h); !ok {
		return false
	}
	a.slots[h.index].value = v
	return true
}

// Remove frees the slot behind a handle. It returns false if the handle was stale.
func (a *Arena[T]) Remove(h Handle) (T, bool) {
	v, ok := a.Get(h)
	if !ok {
		return v, false
	}
	var zero T
	a.slots[h.index].value, a.slots[h.index].live = zero, false
	a.free = append(a.free, h.index)
	a.live--
	return v, true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	return a.live
}

// All yields every live handle and value in slot order.
func (a *Arena[T]) All() iter.Seq2[Handle, T] {
	return func(yield func(Handle, T) bool) {
		for i, s := range a.slots {
			if !s.live {
				continue
			}
			if !yield(Handle{index: uint32(i), generation: s.generation}, s.value) {
				return
			}
		}
	}
}
