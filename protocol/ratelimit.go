package protocol

import (
	"time"

	"github.com/editaylors7/Dungeon-Gen-FHE/crypto"
)

// actionKind discriminates the independently rate-limited actions. Submitting
// a contribution never consumes the seed-generation cooldown and vice versa.
type actionKind string

const (
	actionSubmit       actionKind = "submit"
	actionGenerateSeed actionKind = "generate_seed"
)

// rateLimiter tracks the last successful invocation per (address, action).
// The check and the advance are split so a gated operation that fails any
// later check never burns the caller's cooldown: check runs with the other
// gates, advance runs with the state mutation.
type rateLimiter struct {
	last map[string]map[actionKind]time.Time
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{last: make(map[string]map[actionKind]time.Time)}
}

// check fails with ErrCooldownActive if now is before the cooldown horizon
// for the given address and action. It does not record anything.
func (rl *rateLimiter) check(addr crypto.Address, action actionKind, now time.Time, cooldown time.Duration) error {
	if actions, ok := rl.last[addr.String()]; ok {
		if at, ok := actions[action]; ok && now.Before(at.Add(cooldown)) {
			return ErrCooldownActive
		}
	}
	return nil
}

// advance records a successful invocation. Called only once the whole
// operation is committed.
func (rl *rateLimiter) advance(addr crypto.Address, action actionKind, now time.Time) {
	key := addr.String()
	if rl.last[key] == nil {
		rl.last[key] = make(map[actionKind]time.Time)
	}
	rl.last[key][action] = now
}
