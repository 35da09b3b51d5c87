package buffer

// LookupKind describes how a playback time relates to the buffered samples.
type LookupKind uint8

const (
	// LookupEmpty means nothing has been buffered yet.
	LookupEmpty LookupKind = iota
	// LookupExact means a sample lies exactly at the requested time, or the time equals the newest
	// sample. A and B are the same sample.
	LookupExact
	// LookupBracket means A and B surround the requested time and should be interpolated by Alpha.
	LookupBracket
	// LookupClamped means the requested time precedes the oldest sample. A and B are the oldest one.
	LookupClamped
	// LookupInsufficient means the requested time is newer than anything buffered. Callers must skip
	// the update rather than extrapolate.
	LookupInsufficient
)

func (k LookupKind) String() string {
	switch k {
	case LookupEmpty:
		return "empty"
	case LookupExact:
		return "exact"
	case LookupBracket:
		return "bracket"
	case LookupClamped:
		return "clamped"
	case LookupInsufficient:
		return "insufficient"
	}
	return "unknown"
}

// Lookup is the result of RingBuffer.SampleAt.
type Lookup[T any] struct {
	Kind  LookupKind
	A, B  Sample[T]
	Alpha float64
}

// Usable reports whether the lookup carries something that may be applied.
func (l Lookup[T]) Usable() bool {
	return l.Kind == LookupExact || l.Kind == LookupBracket || l.Kind == LookupClamped
}

// SampleAt locates time within the buffered window.
func (rb *RingBuffer[T]) SampleAt(time float64) Lookup[T] {
	oldest, ok := rb.Oldest()
	if !ok {
		return Lookup[T]{Kind: LookupEmpty}
	}
	newest, _ := rb.Newest()

	switch {
	case time < oldest.Time:
		return Lookup[T]{Kind: LookupClamped, A: oldest, B: oldest}
	case time > newest.Time:
		return Lookup[T]{Kind: LookupInsufficient, A: newest, B: newest}
	}

	a := oldest
	for index := 1; index < rb.size; index++ {
		b := rb.items[(rb.tail+index)%len(rb.items)]
		if b.Time > time {
			if a.Time == time {
				break
			}
			return Lookup[T]{
				Kind:  LookupBracket,
				A:     a,
				B:     b,
				Alpha: (time - a.Time) / (b.Time - a.Time),
			}
		}
		a = b
	}
	return Lookup[T]{Kind: LookupExact, A: a, B: a}
}
