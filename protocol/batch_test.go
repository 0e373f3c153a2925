package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSingleActiveBatch(t *testing.T) {
	env := newTestEnv(t)
	provider := env.addProvider(t, "provider-a")

	first, err := env.coord.OpenBatch(env.owner)
	require.NoError(t, err)
	require.NoError(t, env.submit(t, provider, first, 5, 3, 4))

	firstSnapshot, ok := env.coord.BatchByID(first)
	require.True(t, ok)

	// Opening while the first is still open retires it under a strictly
	// larger id.
	second, err := env.coord.OpenBatch(env.owner)
	require.NoError(t, err)
	require.Greater(t, second, first)

	retired, ok := env.coord.BatchByID(first)
	require.True(t, ok)
	require.False(t, retired.Open)

	// The retired batch's accumulators are untouched and closed to further
	// submissions.
	require.True(t, retired.Strength.Equal(firstSnapshot.Strength))
	require.True(t, retired.Agility.Equal(firstSnapshot.Agility))
	require.True(t, retired.Intellect.Equal(firstSnapshot.Intellect))
	require.ErrorIs(t, env.submit(t, provider, first, 1, 1, 1), ErrBatchClosed)

	cur, ok := env.coord.CurrentBatch()
	require.True(t, ok)
	require.Equal(t, second, cur.ID)
	require.True(t, cur.Open)
}

func TestBatchIDsNeverReused(t *testing.T) {
	env := newTestEnv(t)

	seen := make(map[uint64]bool)
	for i := 0; i < 5; i++ {
		id, err := env.coord.OpenBatch(env.owner)
		require.NoError(t, err)
		require.False(t, seen[id])
		seen[id] = true

		if i%2 == 0 {
			require.NoError(t, env.coord.CloseBatch(env.owner))
		}
	}
}

func TestCloseBatch(t *testing.T) {
	env := newTestEnv(t)

	// Nothing to close before the first open.
	require.ErrorIs(t, env.coord.CloseBatch(env.owner), ErrBatchClosed)

	_, err := env.coord.OpenBatch(env.owner)
	require.NoError(t, err)
	require.NoError(t, env.coord.CloseBatch(env.owner))

	// Closing twice fails: the current batch is no longer open.
	require.ErrorIs(t, env.coord.CloseBatch(env.owner), ErrBatchClosed)
}

func TestAccumulatorsStartAtZero(t *testing.T) {
	env := newTestEnv(t)
	provider := env.addProvider(t, "provider-a")

	batchID, err := env.coord.OpenBatch(env.owner)
	require.NoError(t, err)
	require.NoError(t, env.submit(t, provider, batchID, 5, 3, 4))

	// Decrypt through the oracle: the sums equal the single contribution,
	// proving the accumulators started as ciphertext zero.
	requestID, err := env.coord.GenerateSeed(env.owner, batchID)
	require.NoError(t, err)
	values, proof, err := env.oracle.Fulfill(requestID)
	require.NoError(t, err)

	revealed, err := env.coord.OnDecryptionResult(requestID, values, proof)
	require.NoError(t, err)
	require.Equal(t, uint64(5), revealed.Strength)
	require.Equal(t, uint64(3), revealed.Agility)
	require.Equal(t, uint64(4), revealed.Intellect)
}
