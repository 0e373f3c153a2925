package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
)

// Address identifies an actor in the protocol: the owner, a provider, or any
// external caller. Addresses are opaque byte strings; the wallet layer that
// produces them is an external collaborator.
type Address []byte

// NewAddressFromBytes creates an Address from a byte slice.
// The input is copied to ensure immutability.
func NewAddressFromBytes(data []byte) Address {
	a := make([]byte, len(data))
	copy(a, data)
	return Address(a)
}

// NewAddressFromString creates an Address from a hex-encoded string.
func NewAddressFromString(data string) (Address, error) {
	rawBytes, err := hex.DecodeString(data)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address hex: %w", err)
	}
	return NewAddressFromBytes(rawBytes), nil
}

// Bytes returns the address as a byte slice.
func (a Address) Bytes() []byte {
	return a
}

// Equal compares two addresses for equality.
func (a Address) Equal(other Address) bool {
	return len(a) == len(other) && subtle.ConstantTimeCompare(a, other) == 1
}

// String returns a hex-encoded representation of the address.
// This is used for logging and as a map key.
func (a Address) String() string {
	return hex.EncodeToString(a)
}

// HandleSize is the byte length of a ciphertext handle.
const HandleSize = 32

// Handle is an opaque reference to an encrypted value held by the external
// homomorphic encryption capability. Handles support no local inspection;
// they can only be combined through the capability's Add and Mul operations
// or passed to the decryption oracle.
type Handle []byte

// NewRandomHandle generates a fresh handle identifier. Only the encryption
// capability should mint handles; everything else receives them.
func NewRandomHandle() (Handle, error) {
	h := make([]byte, HandleSize)
	if _, err := io.ReadFull(rand.Reader, h); err != nil {
		return nil, fmt.Errorf("failed to generate handle: %w", err)
	}
	return Handle(h), nil
}

// NewHandleFromString creates a Handle from a hex-encoded string, as received
// over the wire from a contributing provider.
func NewHandleFromString(data string) (Handle, error) {
	rawBytes, err := hex.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("invalid handle hex: %w", err)
	}
	if len(rawBytes) != HandleSize {
		return nil, fmt.Errorf("invalid handle length %d, want %d", len(rawBytes), HandleSize)
	}
	return Handle(rawBytes), nil
}

// Bytes returns the handle as a byte slice.
func (h Handle) Bytes() []byte {
	return h
}

// Equal compares two handles for equality.
func (h Handle) Equal(other Handle) bool {
	return len(h) == len(other) && subtle.ConstantTimeCompare(h, other) == 1
}

// String returns a hex-encoded representation of the handle.
func (h Handle) String() string {
	return hex.EncodeToString(h)
}
