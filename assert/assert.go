package assert

import "github.com/hxnet/hxnet/hxerror"

// IsTrue panics with an HxError built from message and args when ok is false. It is reserved for
// invariants whose violation indicates a programming error.
func IsTrue(ok bool, message string, args ...interface{}) {
	if !ok {
		panic(hxerror.New(message, args...))
	}
}

// NotNil panics when v is nil.
func NotNil(v any, name string) {
	IsTrue(v != nil, hxerror.ErrorInternalNilCollaborator, name)
}
