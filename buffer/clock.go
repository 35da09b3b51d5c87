package buffer

// PlaybackClock maintains a virtual follow time that trails the newest buffered sample. When a
// target buffer duration is configured, the clock runs faster while it lags behind by more than that
// duration and slower while it is closer, which absorbs jitter in network arrival times.
type PlaybackClock struct {
	// TargetBufferDuration is the lag in seconds the clock aims to keep behind the newest sample.
	// Values <= 0 make the clock advance at the native rate.
	TargetBufferDuration float64

	followTime float64
}

// FollowTime returns the current playback time.
func (c *PlaybackClock) FollowTime() float64 {
	return c.followTime
}

// Reset moves the follow time back to zero.
func (c *PlaybackClock) Reset() {
	c.followTime = 0
}

// Advance moves the clock forward by dt given the oldest and newest buffered sample times. It never
// lets the follow time precede oldest or pass newest. The returned boolean is false when the advance
// would have passed the newest sample, in which case the caller must skip its update this tick.
func (c *PlaybackClock) Advance(dt, oldest, newest float64) (float64, bool) {
	if c.TargetBufferDuration > 0 {
		lag := newest - c.followTime
		c.followTime += dt * lag / c.TargetBufferDuration
	} else {
		c.followTime += dt
	}

	if c.followTime < oldest {
		c.followTime = oldest
	} else if c.followTime > newest {
		// This is where we would extrapolate.
		c.followTime = newest
		return c.followTime, false
	}
	return c.followTime, true
}
