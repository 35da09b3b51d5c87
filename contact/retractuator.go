package contact

import "github.com/hxnet/hxnet/hxmath"

// update feeds one tick of force into the retractuator's low-pass filter and decides whether it is
// engaged. An engaged retractuator releases when contact is lost, or when the filtered force falls
// faster than the release threshold while still in contact.
func (r *retractuator) update(force float64, inContact bool, dt float64) {
	if dt <= 0 {
		return
	}
	previous := r.force
	r.force = force + (r.force-force)*hxmath.Retention(dt, r.params.FilterStrength)
	derivative := (r.force - previous) / dt

	switch {
	case !inContact:
		r.engaged = false
	case r.engaged && derivative < -r.params.ReleaseThreshold:
		r.engaged = false
	case !r.engaged && r.force > r.params.ActuationThreshold && derivative >= -r.params.ReleaseThreshold:
		r.engaged = true
	}
}
