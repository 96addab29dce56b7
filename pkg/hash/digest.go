package hash

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Strings returns a hex blake2b-256 digest of the ordered values. Each value
// is length-prefixed, so ["a|b"] and ["a", "b"] never collide.
func Strings(values []string) string {
	h, _ := blake2b.New256(nil)

	var size [8]byte
	for _, v := range values {
		binary.BigEndian.PutUint64(size[:], uint64(len(v)))
		h.Write(size[:])
		h.Write([]byte(v))
	}

	return hex.EncodeToString(h.Sum(nil))
}

