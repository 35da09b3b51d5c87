package buffer

import (
	"math/rand"
	"testing"
)

func TestRingBufferDropsOutOfOrder(t *testing.T) {
	rb := NewRingBuffer[int](8)
	pushes := []struct {
		time     float64
		accepted bool
	}{
		{0.1, true},
		{0.2, true},
		{0.15, false},
		{0.2, true},
		{0.05, false},
		{0.3, true},
	}
	for i, p := range pushes {
		if got := rb.Push(p.time, i); got != p.accepted {
			t.Fatalf("push %d at %v: accepted=%v, want %v", i, p.time, got, p.accepted)
		}
	}
	if rb.Len() != 4 {
		t.Fatalf("expected 4 retained samples, got %d", rb.Len())
	}

	last := -1.0
	for s := range rb.Iter() {
		if s.Time < last {
			t.Fatalf("buffer content is not monotonic: %v after %v", s.Time, last)
		}
		last = s.Time
	}
}

func TestRingBufferMonotonicUnderRandomPushes(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rb := NewRingBuffer[float64](16)

	var accepted []float64
	maxRetained := -1.0
	for range 500 {
		ts := rng.Float64() * 100
		before := rb.Len()
		ok := rb.Push(ts, ts)
		if ts < maxRetained {
			if ok {
				t.Fatalf("push at %v accepted after %v", ts, maxRetained)
			}
			if rb.Len() != before {
				t.Fatalf("dropped push changed the buffer length")
			}
			continue
		}
		if !ok {
			t.Fatalf("in-order push at %v was dropped", ts)
		}
		maxRetained = ts
		accepted = append(accepted, ts)
	}

	want := accepted
	if len(want) > rb.Capacity() {
		want = want[len(want)-rb.Capacity():]
	}
	i := 0
	for s := range rb.Iter() {
		if s.Payload != want[i] {
			t.Fatalf("sample %d: got %v, want %v", i, s.Payload, want[i])
		}
		i++
	}
}

func TestRingBufferCapacityBound(t *testing.T) {
	const capacity = DefaultCapacity
	rb := NewRingBuffer[int](capacity)
	const n = capacity*2 + 17
	for i := range n {
		rb.Push(float64(i), i)
	}
	if rb.Len() != capacity {
		t.Fatalf("expected %d retained, got %d", capacity, rb.Len())
	}
	oldest, _ := rb.Oldest()
	newest, _ := rb.Newest()
	if oldest.Payload != n-capacity || newest.Payload != n-1 {
		t.Fatalf("expected window [%d, %d], got [%d, %d]", n-capacity, n-1, oldest.Payload, newest.Payload)
	}
	for i := range capacity {
		s, err := rb.Get(i)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Payload != n-capacity+i {
			t.Fatalf("index %d: got %d, want %d", i, s.Payload, n-capacity+i)
		}
	}
	if _, err := rb.Get(capacity); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestRingBufferZeroCapacityPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for zero capacity")
		}
	}()
	NewRingBuffer[int](0)
}

func TestSampleAt(t *testing.T) {
	rb := NewRingBuffer[float64](4)
	if got := rb.SampleAt(1).Kind; got != LookupEmpty {
		t.Fatalf("expected empty lookup, got %v", got)
	}

	rb.Push(1, 10)
	rb.Push(2, 20)
	rb.Push(4, 40)

	cases := []struct {
		time  float64
		kind  LookupKind
		a, b  float64
		alpha float64
	}{
		{0.5, LookupClamped, 10, 10, 0},
		{1, LookupExact, 10, 10, 0},
		{1.5, LookupBracket, 10, 20, 0.5},
		{2, LookupExact, 20, 20, 0},
		{3, LookupBracket, 20, 40, 0.5},
		{4, LookupExact, 40, 40, 0},
		{4.1, LookupInsufficient, 40, 40, 0},
	}
	for _, c := range cases {
		l := rb.SampleAt(c.time)
		if l.Kind != c.kind || l.A.Payload != c.a || l.B.Payload != c.b || l.Alpha != c.alpha {
			t.Fatalf("SampleAt(%v) = %v (%v, %v, %v), want %v (%v, %v, %v)",
				c.time, l.Kind, l.A.Payload, l.B.Payload, l.Alpha, c.kind, c.a, c.b, c.alpha)
		}
	}
}

func TestSampleAtInterpolation(t *testing.T) {
	rb := NewRingBuffer[float64](DefaultCapacity)
	rb.Push(0.0, 0)
	rb.Push(0.1, 1)

	l := rb.SampleAt(0.05)
	if l.Kind != LookupBracket {
		t.Fatalf("expected bracket, got %v", l.Kind)
	}
	x := l.A.Payload + (l.B.Payload-l.A.Payload)*l.Alpha
	if x < 0.5-1e-9 || x > 0.5+1e-9 {
		t.Fatalf("expected x=0.5, got %v", x)
	}
}

func TestDiscardBefore(t *testing.T) {
	rb := NewRingBuffer[int](8)
	for i := range 5 {
		rb.Push(float64(i), i)
	}
	if n := rb.DiscardBefore(2.5); n != 2 {
		t.Fatalf("expected 2 discarded samples, got %d", n)
	}
	oldest, _ := rb.Oldest()
	if oldest.Payload != 2 {
		t.Fatalf("expected sample 2 to bracket 2.5, got %d", oldest.Payload)
	}
	rb.DiscardBefore(100)
	if rb.Len() != 1 {
		t.Fatalf("newest sample must always be kept, have %d", rb.Len())
	}
}
