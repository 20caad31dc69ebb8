package dma

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// TraceDigest returns the Keccak-256 digest of a trace or op-log buffer,
// encoding each word little-endian before hashing. Downstream consumers
// that need to commit to a trace without shipping the whole buffer can
// compare digests instead.
func TraceDigest(words []uint64) [32]byte {
	h := sha3.NewLegacyKeccak256()
	var buf [8]byte
	for _, w := range words {
		binary.LittleEndian.PutUint64(buf[:], w)
		h.Write(buf[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
