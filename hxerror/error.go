package hxerror

import "fmt"

// HxError is the error type produced throughout hxnet.
type HxError struct {
	Err string
}

// New formats a new HxError.
func New(format string, args ...any) *HxError {
	if len(args) == 0 {
		return &HxError{Err: format}
	}
	return &HxError{Err: fmt.Sprintf(format, args...)}
}

func (e *HxError) Error() string {
	return e.Err
}
