package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubmitCooldownBoundary(t *testing.T) {
	env := newTestEnv(t)
	provider := env.addProvider(t, "provider-a")
	batchID, err := env.coord.OpenBatch(env.owner)
	require.NoError(t, err)

	require.NoError(t, env.submit(t, provider, batchID, 1, 1, 1))

	// One second short of the cooldown fails; the boundary itself succeeds.
	env.clock.Advance(30*time.Second - time.Second)
	require.ErrorIs(t, env.submit(t, provider, batchID, 1, 1, 1), ErrCooldownActive)

	env.clock.Advance(time.Second)
	require.NoError(t, env.submit(t, provider, batchID, 1, 1, 1))
}

func TestCooldownsIndependentPerAction(t *testing.T) {
	env := newTestEnv(t)
	provider := env.addProvider(t, "provider-a")
	batchID, err := env.coord.OpenBatch(env.owner)
	require.NoError(t, err)

	// A submission does not consume the seed-generation cooldown.
	require.NoError(t, env.submit(t, provider, batchID, 1, 1, 1))
	_, err = env.coord.GenerateSeed(provider, batchID)
	require.NoError(t, err)

	// But each action's own cooldown is active.
	require.ErrorIs(t, env.submit(t, provider, batchID, 1, 1, 1), ErrCooldownActive)
	_, err = env.coord.GenerateSeed(provider, batchID)
	require.ErrorIs(t, err, ErrCooldownActive)
}

func TestCooldownsIndependentPerAddress(t *testing.T) {
	env := newTestEnv(t)
	providerA := env.addProvider(t, "provider-a")
	providerB := env.addProvider(t, "provider-b")
	batchID, err := env.coord.OpenBatch(env.owner)
	require.NoError(t, err)

	require.NoError(t, env.submit(t, providerA, batchID, 1, 1, 1))
	require.NoError(t, env.submit(t, providerB, batchID, 1, 1, 1))
}

func TestFailedSubmitDoesNotBurnCooldown(t *testing.T) {
	env := newTestEnv(t)
	provider := env.addProvider(t, "provider-a")
	batchID, err := env.coord.OpenBatch(env.owner)
	require.NoError(t, err)
	require.NoError(t, env.coord.CloseBatch(env.owner))

	// Rejected by batch state, after the cooldown check passed.
	require.ErrorIs(t, env.submit(t, provider, batchID, 1, 1, 1), ErrBatchClosed)

	// The cooldown was not advanced by the failed call.
	newBatch, err := env.coord.OpenBatch(env.owner)
	require.NoError(t, err)
	require.NoError(t, env.submit(t, provider, newBatch, 1, 1, 1))
}

func TestSetCooldownTakesEffect(t *testing.T) {
	env := newTestEnv(t)
	provider := env.addProvider(t, "provider-a")
	batchID, err := env.coord.OpenBatch(env.owner)
	require.NoError(t, err)

	require.NoError(t, env.coord.SetCooldown(env.owner, 5*time.Second))
	require.NoError(t, env.submit(t, provider, batchID, 1, 1, 1))

	env.clock.Advance(4 * time.Second)
	require.ErrorIs(t, env.submit(t, provider, batchID, 1, 1, 1), ErrCooldownActive)

	env.clock.Advance(time.Second)
	require.NoError(t, env.submit(t, provider, batchID, 1, 1, 1))
}
