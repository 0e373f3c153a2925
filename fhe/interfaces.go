package fhe

import (
	"github.com/editaylors7/Dungeon-Gen-FHE/crypto"
)

// RequestID is the opaque identifier the decryption oracle assigns to an
// outstanding decryption request.
type RequestID string

// Engine is the homomorphic encryption capability consumed by the protocol.
// The protocol never observes plaintext through this interface; it only
// combines opaque handles.
type Engine interface {
	// Zero returns a handle encrypting the additive identity.
	Zero() (crypto.Handle, error)

	// Add returns a handle encrypting the sum of the two operands.
	Add(a, b crypto.Handle) (crypto.Handle, error)

	// Mul returns a handle encrypting the product of the two operands.
	Mul(a, b crypto.Handle) (crypto.Handle, error)
}

// Oracle is the external decryption capability. RequestDecryption registers
// the handles for asynchronous decryption and returns immediately; the
// cleartexts arrive later through the protocol's callback entry point.
type Oracle interface {
	RequestDecryption(handles []crypto.Handle) (RequestID, error)
}

// Verifier authenticates a decryption result. The proof must bind the
// cleartext values to the request they answer.
type Verifier interface {
	Verify(id RequestID, values []uint64, proof []byte) bool
}
