package worker

import (
	"sync"

	"github.com/getsentry/sentry-go"
)

// Queue runs submitted functions on a fixed set of goroutines. A Queue with a single goroutine runs
// functions in the order they were submitted.
type Queue struct {
	jobs chan func()
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New starts a Queue with the given number of goroutines and room for size pending functions.
func New(workers, size int) *Queue {
	q := &Queue{jobs: make(chan func(), size)}
	for i := 0; i < max(workers, 1); i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for f := range q.jobs {
		q.run(f)
	}
}

func (q *Queue) run(f func()) {
	defer sentry.Recover()
	f()
}

// Submit queues f, blocking while the queue is full. It returns false if the queue is closed.
func (q *Queue) Submit(f func()) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	q.jobs <- f
	return true
}

// TrySubmit queues f unless the queue is full or closed.
func (q *Queue) TrySubmit(f func()) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.jobs <- f:
		return true
	default:
		return false
	}
}

// Close stops accepting functions and waits for the queued ones to finish.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	q.wg.Wait()
}
