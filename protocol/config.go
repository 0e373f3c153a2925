package protocol

import (
	"time"

	"github.com/editaylors7/Dungeon-Gen-FHE/crypto"
	"github.com/editaylors7/Dungeon-Gen-FHE/fhe"
)

// DefaultProtocolID is the identity salt mixed into every snapshot hash.
// Deployments that fork the protocol should change it so decryption results
// can never be replayed across deployments.
const DefaultProtocolID = "dungeon-gen-fhe/v1"

// DefaultCooldown is the per-address interval between rate-limited actions
// when the owner has not configured one.
const DefaultCooldown = 60 * time.Second

// SeedDeriver combines the three attribute accumulators into the seed
// ciphertext. The default formula is an acknowledged placeholder; swapping
// it does not touch the snapshot or callback machinery.
type SeedDeriver func(engine fhe.Engine, strength, agility, intellect crypto.Handle) (crypto.Handle, error)

// DefaultSeedDeriver computes seed = strength*agility + intellect
// homomorphically.
func DefaultSeedDeriver(engine fhe.Engine, strength, agility, intellect crypto.Handle) (crypto.Handle, error) {
	product, err := engine.Mul(strength, agility)
	if err != nil {
		return nil, err
	}
	return engine.Add(product, intellect)
}

// Config carries the deployment parameters of a coordinator.
type Config struct {
	// Owner is the initial administrative address.
	Owner crypto.Address

	// Cooldown is the initial per-address interval between rate-limited
	// actions. Zero selects DefaultCooldown.
	Cooldown time.Duration

	// ProtocolID is the snapshot-hash identity salt. Empty selects
	// DefaultProtocolID.
	ProtocolID string

	// SeedDeriver overrides the seed combination formula. Nil selects
	// DefaultSeedDeriver.
	SeedDeriver SeedDeriver

	// Clock overrides the time source, used by tests to drive cooldown
	// boundaries deterministically. Nil selects time.Now.
	Clock func() time.Time
}
