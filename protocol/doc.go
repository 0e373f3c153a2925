// Package protocol implements the coordination core of Dungeon-Gen-FHE: a
// set of mutually untrusted providers contribute encrypted party attributes
// into per-batch homomorphic accumulators, and the aggregate is later
// revealed through an asynchronous, externally fulfilled decryption request.
//
// # State machine
//
// All mutable state lives in one Coordinator aggregate: role state (owner,
// provider roster, pause flag, cooldown), per-address rate-limit timestamps,
// the batch ledger, and the table of pending decryption contexts. Every
// entry point executes atomically under the coordinator mutex and either
// fully applies or leaves no trace, so error precedence is observable and
// fixed: Paused, then Role, then Cooldown, then BatchState.
//
// # The request/response race
//
// A batch is deliberately not required to be closed before its decryption is
// requested: providers may keep contributing while the oracle works. Instead
// of locking across the asynchronous window, GenerateSeed stores a Keccak-256
// digest over the exact four ciphertext handles it sent (three accumulators
// plus the derived seed, salted with the protocol identity). When the result
// arrives, OnDecryptionResult recomputes the digest over the batch's current
// handles; a contribution accepted in between changes the accumulator
// handles, the digests diverge, and the callback fails with ErrStateMismatch
// even when its proof is cryptographically valid. A context is marked
// processed exactly once, so a second delivery of the same request id fails
// with ErrReplayAttempt.
//
// There is no retry or cancellation: a rejected callback is terminal for its
// request id, and a fresh GenerateSeed call produces a new, consistent
// snapshot. An oracle that never answers leaves only the context record
// behind.
package protocol
