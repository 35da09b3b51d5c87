package hxerror

const (
	ErrorRestartRequired = "A HaptX hand failed to initialize and has been disabled. Restart the session to use it again."

	ErrorGraspDestroyMissing = "Attempted to destroy grasp %d, but it didn't exist."
	ErrorGraspUpdateMissing  = "Attempted to update grasp %d, but it didn't exist."
	ErrorGraspCreateExists   = "Attempted to create grasp %d, but it already exists."

	ErrorBodyNotRegistered   = "Body %s is not registered."
	ErrorObjectNotRegistered = "Object %s:%d could not be registered."
	ErrorObjectUnknown       = "Object %s is not registered."
	ErrorUnknownTactor       = "Tactor %d:%d is not registered."
	ErrorDuplicateHand       = "Another enabled %s hand is already locally controlled."
	ErrorInvalidHandScale    = "Hand scale factor must be greater than zero, got %f."

	ErrorInternalZeroCapacity    = "Error: ring buffer capacity must be positive, got %d."
	ErrorInternalUnknownEvent    = "Error: unknown event id %d."
	ErrorInternalShortEvent      = "Error: event payload truncated (%s)."
	ErrorInternalFrameTooLarge   = "Error: frame of %d bytes exceeds the %d byte limit."
	ErrorInternalRenderFailed    = "Error: rendering to peripheral %d failed: %v"
	ErrorInternalMissingJoint    = "Error: required joint %s is missing."
	ErrorInternalNilCollaborator = "Error: %s must not be nil."
)
