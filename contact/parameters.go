package contact

// TactorParameters tune how a single tactor renders contact.
type TactorParameters struct {
	// DynamicScaling scales the force-derived part of the height request, from 0 to 1.
	DynamicScaling float32
	// MaxHeightTarget is the physical travel of the tactor in metres.
	MaxHeightTarget float32
}

// DefaultTactorParameters returns the parameters tactors are registered with by default.
func DefaultTactorParameters() TactorParameters {
	return TactorParameters{DynamicScaling: 1, MaxHeightTarget: 0.0015}
}

// RetractuatorParameters tune when a retractuator engages and releases.
type RetractuatorParameters struct {
	// ActuationThreshold is the filtered force [N] above which the retractuator engages.
	ActuationThreshold float64
	// FilterStrength is the time constant [s] of the force low-pass filter.
	FilterStrength float64
	// ReleaseThreshold is the rate [N/s] at which the filtered force must be falling for an engaged
	// retractuator to release while still in contact.
	ReleaseThreshold float64
}

// DefaultRetractuatorParameters returns the default retractuator parameters.
func DefaultRetractuatorParameters() RetractuatorParameters {
	return RetractuatorParameters{ActuationThreshold: 1, FilterStrength: 0.05, ReleaseThreshold: 20}
}

// BodyParameters describe how a hand body perceives contact.
type BodyParameters struct {
	// BaseContactTolerance [m] is added to an object's tolerance; samples closer than the sum count
	// as contact.
	BaseContactTolerance float64
	// Compliance [m/N] is how far the body gives way per newton of contact force.
	Compliance float64
}

// ObjectParameters describe how an object is perceived when touched.
type ObjectParameters struct {
	TriggersTactileFeedback bool
	TriggersForceFeedback   bool
	// BaseContactTolerance [m] is added to the body's tolerance.
	BaseContactTolerance float64
	// Compliance [m/N] is how far the object gives way per newton of contact force.
	Compliance float64
}

// DefaultObjectParameters returns the parameters objects are registered with by default.
func DefaultObjectParameters() ObjectParameters {
	return ObjectParameters{TriggersTactileFeedback: true, TriggersForceFeedback: true}
}

// CompressionParameters tune the per-peripheral compression filter.
type CompressionParameters struct {
	// AttackRatio (0, 1] multiplies the scale on every tick a raw request exceeds the travel of its
	// tactor. Smaller values shrink faster.
	AttackRatio float32
	// ReleaseRatio [1, inf) multiplies the scale on every tick all raw requests are comfortably
	// within range. Larger values grow faster.
	ReleaseRatio float32
	// Headroom is the fraction of travel below which requests count as comfortably within range.
	Headroom float32
}

// DefaultCompressionParameters returns the default compression filter tuning.
func DefaultCompressionParameters() CompressionParameters {
	return CompressionParameters{AttackRatio: 0.5, ReleaseRatio: 1.05, Headroom: 0.1}
}
