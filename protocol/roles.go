package protocol

import (
	"time"

	"github.com/editaylors7/Dungeon-Gen-FHE/crypto"
)

// accessControl holds the role state: one owner with full administrative
// capability, a roster of providers allowed to contribute, the pause flag
// gating all provider-facing operations, and the shared cooldown duration.
//
// Role changes are not retroactive: a pending decryption issued by a
// since-removed provider stays valid, and gating is evaluated at call time.
type accessControl struct {
	owner     crypto.Address
	providers map[string]bool
	paused    bool
	cooldown  time.Duration
}

func newAccessControl(owner crypto.Address, cooldown time.Duration) *accessControl {
	return &accessControl{
		owner:     owner,
		providers: make(map[string]bool),
		cooldown:  cooldown,
	}
}

// requireOwner gates administrative operations.
func (ac *accessControl) requireOwner(caller crypto.Address) error {
	if !ac.owner.Equal(caller) {
		return ErrNotOwner
	}
	return nil
}

// requireNotPaused is the first gate of every provider-facing operation.
func (ac *accessControl) requireNotPaused() error {
	if ac.paused {
		return ErrPaused
	}
	return nil
}

// requireProvider gates contribution submission.
func (ac *accessControl) requireProvider(caller crypto.Address) error {
	if !ac.providers[caller.String()] {
		return ErrNotProvider
	}
	return nil
}

// requireOwnerOrProvider gates seed generation.
func (ac *accessControl) requireOwnerOrProvider(caller crypto.Address) error {
	if ac.owner.Equal(caller) || ac.providers[caller.String()] {
		return nil
	}
	return ErrNotProvider
}

func (ac *accessControl) isProvider(addr crypto.Address) bool {
	return ac.providers[addr.String()]
}

// Mutators below are idempotent: re-setting an existing value is permitted
// and has no further effect.

func (ac *accessControl) transferOwnership(newOwner crypto.Address) {
	ac.owner = newOwner
}

func (ac *accessControl) addProvider(addr crypto.Address) {
	ac.providers[addr.String()] = true
}

func (ac *accessControl) removeProvider(addr crypto.Address) {
	delete(ac.providers, addr.String())
}

func (ac *accessControl) setPaused(paused bool) {
	ac.paused = paused
}

func (ac *accessControl) setCooldown(d time.Duration) {
	ac.cooldown = d
}
