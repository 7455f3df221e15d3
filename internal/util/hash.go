package util

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// HashBytes returns the xxhash of buf as 16 hex characters.
func HashBytes(buf []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(buf))
}
