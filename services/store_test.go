package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/editaylors7/Dungeon-Gen-FHE/crypto"
	"github.com/editaylors7/Dungeon-Gen-FHE/fhe"
	"github.com/editaylors7/Dungeon-Gen-FHE/protocol"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	id := fhe.RequestID("req-1")
	h, err := crypto.NewRandomHandle()
	require.NoError(t, err)
	dc := protocol.DecryptionContext{
		BatchID:   3,
		StateHash: crypto.SnapshotHash("test/v1", h),
	}

	_, err = store.GetContext(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SaveContext(ctx, id, dc))
	got, err := store.GetContext(ctx, id)
	require.NoError(t, err)
	require.Equal(t, dc, got)

	rec := ResultRecord{
		RequestID:   id,
		BatchID:     3,
		Values:      protocol.RevealedValues{Strength: 9, Agility: 8, Intellect: 6, Seed: 78},
		CompletedAt: time.Now(),
	}
	require.NoError(t, store.SaveResult(ctx, rec))

	// Saving the result marks the mirrored context processed.
	got, err = store.GetContext(ctx, id)
	require.NoError(t, err)
	require.True(t, got.Processed)

	fetched, err := store.GetResult(ctx, id)
	require.NoError(t, err)
	require.Equal(t, rec.Values, fetched.Values)

	_, err = store.GetResult(ctx, "req-missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreListOrdered(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()

	for i, id := range []fhe.RequestID{"c", "a", "b"} {
		require.NoError(t, store.SaveResult(ctx, ResultRecord{
			RequestID:   id,
			BatchID:     uint64(i + 1),
			CompletedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	recs, err := store.ListResults(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.Equal(t, fhe.RequestID("c"), recs[0].RequestID)
	require.Equal(t, fhe.RequestID("b"), recs[2].RequestID)
}
