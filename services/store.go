package services

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/editaylors7/Dungeon-Gen-FHE/fhe"
	"github.com/editaylors7/Dungeon-Gen-FHE/protocol"
)

// Store persists the audit trail of the decryption protocol: every issued
// context and every finalized result. The coordinator's in-memory aggregate
// remains the source of truth; the store is written behind it from the
// event feed so an operator can audit or rebuild history.
type Store interface {
	// SaveContext records a newly issued decryption context.
	SaveContext(ctx context.Context, id fhe.RequestID, dc protocol.DecryptionContext) error

	// SaveResult records a finalized decryption and marks its context
	// processed.
	SaveResult(ctx context.Context, rec ResultRecord) error

	// GetContext returns a stored context by request id.
	GetContext(ctx context.Context, id fhe.RequestID) (protocol.DecryptionContext, error)

	// GetResult returns a finalized result by request id.
	GetResult(ctx context.Context, id fhe.RequestID) (ResultRecord, error)

	// ListResults returns all finalized results, oldest first.
	ListResults(ctx context.Context) ([]ResultRecord, error)

	// Close releases store resources.
	Close() error
}

// ErrNotFound reports a missing context or result record.
var ErrNotFound = fmt.Errorf("record not found")

// MemoryStore is the in-process Store used by tests and single-node demos.
type MemoryStore struct {
	mu       sync.RWMutex
	contexts map[fhe.RequestID]protocol.DecryptionContext
	results  map[fhe.RequestID]ResultRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contexts: make(map[fhe.RequestID]protocol.DecryptionContext),
		results:  make(map[fhe.RequestID]ResultRecord),
	}
}

func (s *MemoryStore) SaveContext(_ context.Context, id fhe.RequestID, dc protocol.DecryptionContext) error {
	s.mu.Lock()
	s.contexts[id] = dc
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) SaveResult(_ context.Context, rec ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results[rec.RequestID] = rec
	if dc, ok := s.contexts[rec.RequestID]; ok {
		dc.Processed = true
		s.contexts[rec.RequestID] = dc
	}
	return nil
}

func (s *MemoryStore) GetContext(_ context.Context, id fhe.RequestID) (protocol.DecryptionContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dc, ok := s.contexts[id]
	if !ok {
		return protocol.DecryptionContext{}, fmt.Errorf("context %s: %w", id, ErrNotFound)
	}
	return dc, nil
}

func (s *MemoryStore) GetResult(_ context.Context, id fhe.RequestID) (ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.results[id]
	if !ok {
		return ResultRecord{}, fmt.Errorf("result %s: %w", id, ErrNotFound)
	}
	return rec, nil
}

func (s *MemoryStore) ListResults(_ context.Context) ([]ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ResultRecord, 0, len(s.results))
	for _, rec := range s.results {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.Before(out[j].CompletedAt) })
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
