package store

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/guyvdb/drepo/fault"
)

// ParseId parses the decimal form of a record id. Ids are positive.
func ParseId(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w '%s': %w", fault.ErrInvalidId, s, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w '%s': must be positive", fault.ErrInvalidId, s)
	}
	return id, nil
}

// idKey encodes an id as a big endian key so that bolt cursors walk
// records in id order.
func idKey(id int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

func keyId(key []byte) int64 {
	if len(key) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(key))
}
