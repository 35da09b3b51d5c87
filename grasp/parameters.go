package grasp

// Parameters tune grasp detection.
type Parameters struct {
	// Threshold is the score at which a grasp is created.
	Threshold float64
	// ReleaseHysteresis in [0, 1] scales Threshold to give the score below which a grasp is
	// destroyed.
	ReleaseHysteresis float64
	// TimeConstant [s] is how quickly the contribution of a body decays once it stops pushing.
	TimeConstant float64
	// ParticipationFloor is the contribution a body needs to count as part of a grasp.
	ParticipationFloor float64
}

// DefaultParameters returns the default grasp detection parameters.
func DefaultParameters() Parameters {
	return Parameters{Threshold: 18, ReleaseHysteresis: 0.75, TimeConstant: 0.05, ParticipationFloor: 1}
}

// ObjectParameters override grasp detection for a single object. Unset thresholds fall back to the
// detector's parameters.
type ObjectParameters struct {
	CanBeGrasped      bool
	Threshold         *float64
	ReleaseHysteresis *float64
}

// DefaultObjectParameters returns parameters for an ordinary graspable object.
func DefaultObjectParameters() ObjectParameters {
	return ObjectParameters{CanBeGrasped: true}
}
