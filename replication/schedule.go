package replication

import "math"

// Schedule caps how often something is transmitted. Staggered schedules are offset by half a period
// so the two hands of a player do not send on the same tick.
type Schedule struct {
	period float64
	phase  float64

	last    float64
	started bool
}

// NewSchedule creates a schedule firing at most frequency times per second. A frequency of zero or
// less fires on every call.
func NewSchedule(frequency float64, staggered bool) *Schedule {
	s := &Schedule{}
	if frequency > 0 {
		s.period = 1 / frequency
		if staggered {
			s.phase = s.period / 2
		}
	}
	return s
}

// Due reports whether a transmission should happen at now, and if so records it.
func (s *Schedule) Due(now float64) bool {
	if s.period <= 0 {
		s.last, s.started = now, true
		return true
	}
	if s.started && s.slot(now) <= s.slot(s.last) {
		return false
	}
	if !s.started && now < s.phase {
		return false
	}
	s.last, s.started = now, true
	return true
}

// Reset forgets the last transmission.
func (s *Schedule) Reset() {
	s.last, s.started = 0, false
}

func (s *Schedule) slot(t float64) float64 {
	return math.Floor((t - s.phase) / s.period)
}
