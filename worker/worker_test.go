package worker

import (
	"sync/atomic"
	"testing"
)

func TestSingleWorkerPreservesOrder(t *testing.T) {
	q := New(1, 16)
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		if !q.Submit(func() { got = append(got, i) }) {
			t.Fatalf("submit %d failed", i)
		}
	}
	q.Close()
	for i, v := range got {
		if v != i {
			t.Fatalf("expected %d at position %d, got %d", i, i, v)
		}
	}
	if len(got) != 100 {
		t.Fatalf("expected 100 jobs to run, got %d", len(got))
	}
}

func TestPanicsDoNotKillWorkers(t *testing.T) {
	q := New(2, 4)
	var ran atomic.Int32
	q.Submit(func() { panic("boom") })
	q.Submit(func() { ran.Add(1) })
	q.Close()
	if ran.Load() != 1 {
		t.Fatalf("expected the job after the panic to run")
	}
}

func TestClosedQueueRejects(t *testing.T) {
	q := New(1, 1)
	q.Close()
	q.Close()
	if q.Submit(func() {}) || q.TrySubmit(func() {}) {
		t.Fatalf("a closed queue must reject work")
	}
}
