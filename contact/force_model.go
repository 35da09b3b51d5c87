package contact

// ForceModel converts the contact force on a body into a raw tactor height request.
type ForceModel interface {
	// Height returns the raw height [m] a tactor should rise to for the given force [N].
	Height(force float64, body BodyParameters, object ObjectParameters) float32
}

// LinearForceModel raises tactors proportionally to force, softened by compliance.
type LinearForceModel struct {
	// Gain [m/N] is how far a tactor rises per newton of contact force.
	Gain float64
}

// Height ...
func (m LinearForceModel) Height(force float64, body BodyParameters, object ObjectParameters) float32 {
	if force <= 0 {
		return 0
	}
	compliance := body.Compliance + object.Compliance
	return float32(force * m.Gain / (1 + compliance/m.Gain))
}

// DefaultForceModel is used when an Interpreter is created without one.
var DefaultForceModel ForceModel = LinearForceModel{Gain: 0.0002}
