package buffer

// Interpolator blends two payloads, alpha = 0 giving a and alpha = 1 giving b.
type Interpolator[T any] func(a, b T, alpha float64) T

// Playback couples a RingBuffer with a PlaybackClock and replays the buffered samples at the
// clock's follow time.
type Playback[T any] struct {
	buf         *RingBuffer[T]
	clock       PlaybackClock
	interpolate Interpolator[T]
}

// NewPlayback creates a playback with the given capacity and target buffer duration in seconds.
func NewPlayback[T any](capacity int, targetBufferDuration float64, interpolate Interpolator[T]) *Playback[T] {
	return &Playback[T]{
		buf:         NewRingBuffer[T](capacity),
		clock:       PlaybackClock{TargetBufferDuration: targetBufferDuration},
		interpolate: interpolate,
	}
}

// Push buffers a payload received with the given origin time. It returns false if the payload was
// older than the newest buffered one and was dropped.
func (p *Playback[T]) Push(time float64, payload T) bool {
	return p.buf.Push(time, payload)
}

// Advance moves the follow time forward by dt and returns the payload to apply for this tick. The
// boolean is false when nothing is buffered or when applying would require extrapolation.
func (p *Playback[T]) Advance(dt float64) (T, bool) {
	var zero T
	oldest, ok := p.buf.Oldest()
	if !ok {
		return zero, false
	}
	newest, _ := p.buf.Newest()

	t, ok := p.clock.Advance(dt, oldest.Time, newest.Time)
	if !ok {
		return zero, false
	}

	lookup := p.buf.SampleAt(t)
	if !lookup.Usable() {
		return zero, false
	}
	p.buf.DiscardBefore(t)

	if lookup.Kind != LookupBracket || p.interpolate == nil {
		return lookup.A.Payload, true
	}
	return p.interpolate(lookup.A.Payload, lookup.B.Payload, lookup.Alpha), true
}

// Reset discards every buffered sample and rewinds the clock so playback restarts with the next push.
func (p *Playback[T]) Reset() {
	p.buf.Clear()
	p.clock.Reset()
}

// Started reports whether anything has been buffered since the last reset.
func (p *Playback[T]) Started() bool {
	return p.buf.Len() > 0
}

// FollowTime returns the clock's current playback time.
func (p *Playback[T]) FollowTime() float64 {
	return p.clock.FollowTime()
}

// Buffer exposes the underlying ring buffer.
func (p *Playback[T]) Buffer() *RingBuffer[T] {
	return p.buf
}
