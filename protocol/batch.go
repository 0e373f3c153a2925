package protocol

import (
	"fmt"

	"github.com/editaylors7/Dungeon-Gen-FHE/crypto"
	"github.com/editaylors7/Dungeon-Gen-FHE/fhe"
)

// Batch is one contribution window. Its accumulators hold the running
// homomorphic sums of every accepted contribution; Seed is set by the first
// seed generation on the batch and replaced by subsequent ones.
type Batch struct {
	ID   uint64
	Open bool

	// Accumulators, always valid handles (initialized to ciphertext zero).
	Strength  crypto.Handle
	Agility   crypto.Handle
	Intellect crypto.Handle

	// Seed is nil until GenerateSeed runs on the batch.
	Seed crypto.Handle
}

// snapshot returns a shallow copy for read access outside the coordinator
// lock. Handles are immutable once assigned, so sharing them is safe.
func (b *Batch) snapshot() Batch {
	return *b
}

// batchLedger tracks every batch ever opened, keyed by id. Superseded
// batches are retained: a pending decryption may still reference them.
type batchLedger struct {
	currentID uint64
	batches   map[uint64]*Batch
}

func newBatchLedger() *batchLedger {
	return &batchLedger{batches: make(map[uint64]*Batch)}
}

// current returns the current batch, or nil before the first open.
func (l *batchLedger) current() *Batch {
	return l.batches[l.currentID]
}

// byID returns the batch with the given id, or nil.
func (l *batchLedger) byID(id uint64) *Batch {
	return l.batches[id]
}

// openNext creates a new current batch with zeroed accumulators. If the
// current batch is still open it is retired first; batch ids are never
// reused.
func (l *batchLedger) openNext(engine fhe.Engine) (*Batch, error) {
	if cur := l.current(); cur != nil && cur.Open {
		cur.Open = false
	}
	l.currentID++

	strength, err := engine.Zero()
	if err != nil {
		return nil, fmt.Errorf("initializing strength accumulator: %w", err)
	}
	agility, err := engine.Zero()
	if err != nil {
		return nil, fmt.Errorf("initializing agility accumulator: %w", err)
	}
	intellect, err := engine.Zero()
	if err != nil {
		return nil, fmt.Errorf("initializing intellect accumulator: %w", err)
	}

	b := &Batch{
		ID:        l.currentID,
		Open:      true,
		Strength:  strength,
		Agility:   agility,
		Intellect: intellect,
	}
	l.batches[b.ID] = b
	return b, nil
}

// requireCurrentOpen returns the current batch if it matches id and is open.
func (l *batchLedger) requireCurrentOpen(id uint64) (*Batch, error) {
	cur := l.current()
	if cur == nil || cur.ID != id || !cur.Open {
		return nil, ErrBatchClosed
	}
	return cur, nil
}

// snapshotHandles returns the ordered handle sequence covered by a
// decryption request: the three accumulators followed by the seed.
func (b *Batch) snapshotHandles() []crypto.Handle {
	return []crypto.Handle{b.Strength, b.Agility, b.Intellect, b.Seed}
}
