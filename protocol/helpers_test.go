package protocol

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/editaylors7/Dungeon-Gen-FHE/crypto"
	"github.com/editaylors7/Dungeon-Gen-FHE/fhe"
)

// testClock is a manually driven time source for cooldown tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	coord  *Coordinator
	engine *fhe.InMemoryEngine
	oracle *fhe.InMemoryOracle
	clock  *testClock
	owner  crypto.Address
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	engine := fhe.NewInMemoryEngine()
	oracle, err := fhe.NewInMemoryOracle(engine)
	require.NoError(t, err)

	clock := newTestClock()
	owner := crypto.NewAddressFromBytes([]byte("owner"))

	coord, err := NewCoordinator(Config{
		Owner:    owner,
		Cooldown: 30 * time.Second,
		Clock:    clock.Now,
	}, engine, oracle, oracle, nil)
	require.NoError(t, err)

	return &testEnv{coord: coord, engine: engine, oracle: oracle, clock: clock, owner: owner}
}

// addProvider registers a provider address with the owner.
func (env *testEnv) addProvider(t *testing.T, name string) crypto.Address {
	t.Helper()

	addr := crypto.NewAddressFromBytes([]byte(name))
	require.NoError(t, env.coord.AddProvider(env.owner, addr))
	return addr
}

// submit encrypts and submits one contribution for the given provider.
func (env *testEnv) submit(t *testing.T, provider crypto.Address, batchID, s, a, i uint64) error {
	t.Helper()

	hs, err := env.engine.Encrypt(s)
	require.NoError(t, err)
	ha, err := env.engine.Encrypt(a)
	require.NoError(t, err)
	hi, err := env.engine.Encrypt(i)
	require.NoError(t, err)

	return env.coord.SubmitContribution(provider, batchID, hs, ha, hi)
}
