package fhe

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/editaylors7/Dungeon-Gen-FHE/crypto"
)

// InMemoryEngine implements the Engine interface for testing purposes.
// Plaintexts are kept in a private table keyed by handle; callers only ever
// see the handles, matching the visibility a real encryption backend would
// enforce.
type InMemoryEngine struct {
	mu         sync.Mutex
	plaintexts map[string]uint64
}

// NewInMemoryEngine creates an empty in-memory encryption capability.
func NewInMemoryEngine() *InMemoryEngine {
	return &InMemoryEngine{
		plaintexts: make(map[string]uint64),
	}
}

// Encrypt mints a handle for a plaintext value. This is the provider-side
// operation that happens outside the protocol core; it exists on the stub so
// tests and demos can fabricate contributions.
func (e *InMemoryEngine) Encrypt(value uint64) (crypto.Handle, error) {
	h, err := crypto.NewRandomHandle()
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.plaintexts[h.String()] = value
	e.mu.Unlock()
	return h, nil
}

// Zero returns a handle encrypting zero.
func (e *InMemoryEngine) Zero() (crypto.Handle, error) {
	return e.Encrypt(0)
}

// Add returns a fresh handle encrypting the sum of the operands.
func (e *InMemoryEngine) Add(a, b crypto.Handle) (crypto.Handle, error) {
	return e.combine(a, b, func(x, y uint64) uint64 { return x + y })
}

// Mul returns a fresh handle encrypting the product of the operands.
func (e *InMemoryEngine) Mul(a, b crypto.Handle) (crypto.Handle, error) {
	return e.combine(a, b, func(x, y uint64) uint64 { return x * y })
}

func (e *InMemoryEngine) combine(a, b crypto.Handle, op func(uint64, uint64) uint64) (crypto.Handle, error) {
	h, err := crypto.NewRandomHandle()
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	va, ok := e.plaintexts[a.String()]
	if !ok {
		return nil, fmt.Errorf("unknown handle %s", a)
	}
	vb, ok := e.plaintexts[b.String()]
	if !ok {
		return nil, fmt.Errorf("unknown handle %s", b)
	}

	e.plaintexts[h.String()] = op(va, vb)
	return h, nil
}

// decrypt reveals the plaintext behind a handle. Only the oracle may reach
// this; the Engine interface deliberately does not expose it.
func (e *InMemoryEngine) decrypt(h crypto.Handle) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	v, ok := e.plaintexts[h.String()]
	if !ok {
		return 0, fmt.Errorf("unknown handle %s", h)
	}
	return v, nil
}

// InMemoryOracle implements the Oracle and Verifier interfaces for testing.
// It records pending requests and reveals their plaintexts on Fulfill,
// authenticating the result with an HMAC proof under a per-instance key.
type InMemoryOracle struct {
	engine *InMemoryEngine

	mu       sync.Mutex
	proofKey []byte
	pending  map[RequestID][]crypto.Handle
}

// NewInMemoryOracle creates an oracle bound to the given engine instance.
func NewInMemoryOracle(engine *InMemoryEngine) (*InMemoryOracle, error) {
	proofKey := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, proofKey); err != nil {
		return nil, fmt.Errorf("failed to generate proof key: %w", err)
	}

	return &InMemoryOracle{
		engine:   engine,
		proofKey: proofKey,
		pending:  make(map[RequestID][]crypto.Handle),
	}, nil
}

// RequestDecryption registers the handles for later decryption and returns
// an opaque request id. The handles are snapshotted at call time; later
// mutation of the caller's state does not affect the pending request.
func (o *InMemoryOracle) RequestDecryption(handles []crypto.Handle) (RequestID, error) {
	if len(handles) == 0 {
		return "", errors.New("no handles to decrypt")
	}

	snapshot := make([]crypto.Handle, len(handles))
	copy(snapshot, handles)

	id := RequestID(uuid.NewString())

	o.mu.Lock()
	o.pending[id] = snapshot
	o.mu.Unlock()
	return id, nil
}

// Fulfill decrypts the handles of a pending request and returns the
// cleartext values with an authenticating proof. The request stays pending
// until fulfilled exactly once; the caller delivers the result to the
// protocol's callback entry point.
func (o *InMemoryOracle) Fulfill(id RequestID) ([]uint64, []byte, error) {
	o.mu.Lock()
	handles, ok := o.pending[id]
	if ok {
		delete(o.pending, id)
	}
	o.mu.Unlock()

	if !ok {
		return nil, nil, fmt.Errorf("unknown request %s", id)
	}

	values := make([]uint64, len(handles))
	for i, h := range handles {
		v, err := o.engine.decrypt(h)
		if err != nil {
			return nil, nil, fmt.Errorf("decrypting handle %d: %w", i, err)
		}
		values[i] = v
	}

	return values, o.proveResult(id, values), nil
}

// PendingCount returns the number of requests awaiting fulfillment.
func (o *InMemoryOracle) PendingCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

// Verify checks that a proof authenticates the cleartext values for the
// given request id.
func (o *InMemoryOracle) Verify(id RequestID, values []uint64, proof []byte) bool {
	return hmac.Equal(proof, o.proveResult(id, values))
}

func (o *InMemoryOracle) proveResult(id RequestID, values []uint64) []byte {
	h := hmac.New(sha256.New, o.proofKey)
	h.Write([]byte(id))
	for _, v := range values {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	return h.Sum(nil)
}
