package protocol

import "errors"

// Error kinds surfaced by the protocol state machine. Every gated operation
// fails fast with one of these: either the whole operation applies or none
// of its state changes do. Callers match with errors.Is.
var (
	// ErrNotOwner rejects administrative calls from anyone but the owner.
	ErrNotOwner = errors.New("caller is not the owner")

	// ErrNotProvider rejects contributions from addresses outside the
	// provider roster.
	ErrNotProvider = errors.New("caller is not a registered provider")

	// ErrPaused rejects provider-facing operations while the protocol is
	// paused. Checked before any other gate.
	ErrPaused = errors.New("protocol is paused")

	// ErrCooldownActive rejects rate-limited actions invoked before the
	// per-address cooldown has elapsed.
	ErrCooldownActive = errors.New("cooldown still active")

	// ErrBatchClosed rejects operations that require the targeted batch to
	// be the current, open batch.
	ErrBatchClosed = errors.New("batch is not open")

	// ErrInvalidBatchID rejects decryption callbacks referencing an unknown
	// request or a batch that no longer exists.
	ErrInvalidBatchID = errors.New("unknown request or batch")

	// ErrReplayAttempt rejects a decryption callback whose request was
	// already finalized. Security-critical: never downgraded.
	ErrReplayAttempt = errors.New("decryption result already processed")

	// ErrStateMismatch rejects a decryption callback whose snapshot no
	// longer matches the batch's current ciphertexts, i.e. contributions
	// landed after the request was issued. Security-critical: never
	// downgraded.
	ErrStateMismatch = errors.New("accumulator state changed since decryption was requested")

	// ErrInvalidProof rejects a decryption callback whose proof does not
	// authenticate the cleartexts for the request.
	ErrInvalidProof = errors.New("decryption proof is not valid")
)
