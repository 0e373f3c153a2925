package crypto

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// HashSize is the byte length of a snapshot hash.
const HashSize = 32

// Hash is a binding digest over an ordered sequence of ciphertext handles.
type Hash [HashSize]byte

// Equal compares two hashes for equality.
func (h Hash) Equal(other Hash) bool {
	return h == other
}

// String returns a hex-encoded representation of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// SnapshotHash computes the Keccak-256 digest binding a decryption request to
// the exact ciphertext handles it covers. The protocol identity salt is mixed
// in first so digests from different deployments never collide; handle order
// is significant.
func SnapshotHash(protocolID string, handles ...Handle) Hash {
	d := sha3.NewLegacyKeccak256()
	d.Write([]byte(protocolID))
	for _, h := range handles {
		d.Write(h.Bytes())
	}

	var out Hash
	copy(out[:], d.Sum(nil))
	return out
}
