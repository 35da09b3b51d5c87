package registry

import (
	"encoding/binary"
	"strconv"

	"github.com/zeebo/xxh3"
)

// ID is a 64-bit identifier of a body or object, derived from the identity of its owner and a
// local index.
type ID int64

// InvalidID is reserved for bodies and objects that are not registered.
const InvalidID ID = 0

// MakeID derives the ID of the index'th body owned by owner.
func MakeID(owner string, index int) ID {
	buf := make([]byte, 0, len(owner)+8)
	buf = append(buf, owner...)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(index))
	id := ID(xxh3.Hash(buf))
	if id == InvalidID {
		// Never hand out the sentinel.
		id = 1
	}
	return id
}

// Valid reports whether the ID is not the sentinel.
func (id ID) Valid() bool {
	return id != InvalidID
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 16)
}
