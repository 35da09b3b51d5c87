package buffer

import (
	"iter"

	"github.com/hxnet/hxnet/assert"
	"github.com/hxnet/hxnet/hxerror"
)

// DefaultCapacity is the number of snapshots a hand keeps per buffer.
const DefaultCapacity = 128

// Sample is a payload stamped with the time it was produced at.
type Sample[T any] struct {
	Time    float64
	Payload T
}

// RingBuffer is a fixed-capacity circular buffer of samples whose times never decrease from the
// oldest entry to the newest one. When full, pushing evicts the oldest sample.
type RingBuffer[T any] struct {
	items []Sample[T]
	head  int // Points to the next write position
	tail  int // Points to the oldest sample
	size  int // Current number of samples
}

// NewRingBuffer creates a ring buffer holding at most capacity samples.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	assert.IsTrue(capacity > 0, hxerror.ErrorInternalZeroCapacity, capacity)
	return &RingBuffer[T]{items: make([]Sample[T], capacity)}
}

// Push appends a sample if the buffer is empty or time is not older than the newest sample. It
// returns false when the sample was dropped for being out of order.
func (rb *RingBuffer[T]) Push(time float64, payload T) bool {
	if newest, ok := rb.Newest(); ok && time < newest.Time {
		// Out-of-order samples are dropped, not reordered.
		return false
	}

	rb.items[rb.head] = Sample[T]{Time: time, Payload: payload}
	if rb.size == len(rb.items) {
		// Make sure the buffer doesn't eat itself.
		rb.tail = rb.next(rb.tail)
	} else {
		rb.size++
	}
	rb.head = rb.next(rb.head)
	return true
}

// Get returns the sample at logical position index (0 = oldest), or an error if out of range.
func (rb *RingBuffer[T]) Get(index int) (Sample[T], error) {
	if index < 0 || index >= rb.size {
		return Sample[T]{}, hxerror.New("ringbuffer: get %d out of range [0, %d)", index, rb.size)
	}
	return rb.items[(rb.tail+index)%len(rb.items)], nil
}

// Iter yields the retained samples from oldest to newest.
func (rb *RingBuffer[T]) Iter() iter.Seq[Sample[T]] {
	return func(yield func(Sample[T]) bool) {
		for index := range rb.size {
			if !yield(rb.items[(rb.tail+index)%len(rb.items)]) {
				return
			}
		}
	}
}

// Oldest returns the oldest retained sample.
func (rb *RingBuffer[T]) Oldest() (Sample[T], bool) {
	if rb.size == 0 {
		return Sample[T]{}, false
	}
	return rb.items[rb.tail], true
}

// Newest returns the most recently pushed sample.
func (rb *RingBuffer[T]) Newest() (Sample[T], bool) {
	if rb.size == 0 {
		return Sample[T]{}, false
	}
	return rb.items[rb.prev(rb.head)], true
}

// DiscardBefore drops samples that can no longer bracket time, always keeping the newest sample
// at or before it.
func (rb *RingBuffer[T]) DiscardBefore(time float64) int {
	discarded := 0
	for rb.size > 1 && rb.items[rb.next(rb.tail)].Time < time {
		rb.items[rb.tail] = Sample[T]{}
		rb.tail = rb.next(rb.tail)
		rb.size--
		discarded++
	}
	return discarded
}

// Len returns the number of retained samples.
func (rb *RingBuffer[T]) Len() int {
	return rb.size
}

// Capacity returns the maximum number of samples the buffer can hold.
func (rb *RingBuffer[T]) Capacity() int {
	return len(rb.items)
}

// Clear removes all samples from the buffer.
func (rb *RingBuffer[T]) Clear() {
	clear(rb.items)
	rb.head, rb.tail, rb.size = 0, 0, 0
}

func (rb *RingBuffer[T]) next(i int) int {
	return (i + 1) % len(rb.items)
}

func (rb *RingBuffer[T]) prev(i int) int {
	return (i - 1 + len(rb.items)) % len(rb.items)
}
