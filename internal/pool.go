package internal

import (
	"bytes"
	"sync"
)

// BufferPool holds scratch buffers for encoding events and frames.
var BufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer([]byte{})
	},
}

// Bytes copies the contents of a pooled buffer so the buffer can be returned to the pool.
func Bytes(buf *bytes.Buffer) []byte {
	return append([]byte(nil), buf.Bytes()...)
}
