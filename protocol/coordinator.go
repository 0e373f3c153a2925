package protocol

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/editaylors7/Dungeon-Gen-FHE/crypto"
	"github.com/editaylors7/Dungeon-Gen-FHE/fhe"
)

// DecryptionContext binds a pending decryption request to the batch and the
// exact ciphertext state it was issued against. Contexts are never deleted;
// a processed context is the replay-protection record for its request id.
type DecryptionContext struct {
	BatchID   uint64
	StateHash crypto.Hash
	Processed bool
}

// Coordinator is the protocol state aggregate. Every entry point executes as
// an atomic, serialized unit under one mutex: no partial mutation is ever
// observable, and a failed gate leaves all state untouched.
//
// The only asynchronous element is the externally fulfilled decryption:
// GenerateSeed registers a pending context and returns; the oracle actor
// delivers the result later through OnDecryptionResult. No lock is held
// across that window. Correctness against the submit/decrypt race comes from
// the snapshot-hash comparison, not from exclusion.
type Coordinator struct {
	mu sync.Mutex

	log      *slog.Logger
	engine   fhe.Engine
	oracle   fhe.Oracle
	verifier fhe.Verifier

	protocolID string
	derive     SeedDeriver
	now        func() time.Time

	roles    *accessControl
	limiter  *rateLimiter
	ledger   *batchLedger
	contexts map[fhe.RequestID]*DecryptionContext

	feed *eventFeed
}

// NewCoordinator creates a coordinator over the given capabilities.
func NewCoordinator(cfg Config, engine fhe.Engine, oracle fhe.Oracle, verifier fhe.Verifier, log *slog.Logger) (*Coordinator, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if oracle == nil {
		return nil, fmt.Errorf("oracle cannot be nil")
	}
	if verifier == nil {
		return nil, fmt.Errorf("verifier cannot be nil")
	}
	if len(cfg.Owner) == 0 {
		return nil, fmt.Errorf("owner address cannot be empty")
	}

	if log == nil {
		log = slog.Default()
	}
	cooldown := cfg.Cooldown
	if cooldown == 0 {
		cooldown = DefaultCooldown
	}
	protocolID := cfg.ProtocolID
	if protocolID == "" {
		protocolID = DefaultProtocolID
	}
	derive := cfg.SeedDeriver
	if derive == nil {
		derive = DefaultSeedDeriver
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &Coordinator{
		log:        log,
		engine:     engine,
		oracle:     oracle,
		verifier:   verifier,
		protocolID: protocolID,
		derive:     derive,
		now:        now,
		roles:      newAccessControl(cfg.Owner, cooldown),
		limiter:    newRateLimiter(),
		ledger:     newBatchLedger(),
		contexts:   make(map[fhe.RequestID]*DecryptionContext),
		feed:       newEventFeed(),
	}, nil
}

// Subscribe registers for lifecycle events until ctx is done.
func (c *Coordinator) Subscribe(ctx context.Context) <-chan Event {
	return c.feed.subscribe(ctx)
}

// --- Administration (AccessControl) ---

// TransferOwnership hands administrative capability to a new address.
func (c *Coordinator) TransferOwnership(caller, newOwner crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.roles.requireOwner(caller); err != nil {
		return err
	}
	c.roles.transferOwnership(newOwner)
	c.log.Info("ownership transferred", "newOwner", newOwner.String())
	return nil
}

// AddProvider adds an address to the provider roster.
func (c *Coordinator) AddProvider(caller, addr crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.roles.requireOwner(caller); err != nil {
		return err
	}
	c.roles.addProvider(addr)
	c.log.Info("provider added", "provider", addr.String())
	return nil
}

// RemoveProvider removes an address from the provider roster. Not
// retroactive: contributions the address already made stand.
func (c *Coordinator) RemoveProvider(caller, addr crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.roles.requireOwner(caller); err != nil {
		return err
	}
	c.roles.removeProvider(addr)
	c.log.Info("provider removed", "provider", addr.String())
	return nil
}

// SetPaused toggles the pause flag gating all provider-facing operations.
func (c *Coordinator) SetPaused(caller crypto.Address, paused bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.roles.requireOwner(caller); err != nil {
		return err
	}
	c.roles.setPaused(paused)
	c.log.Info("pause flag set", "paused", paused)
	return nil
}

// SetCooldown updates the shared cooldown duration for rate-limited actions.
func (c *Coordinator) SetCooldown(caller crypto.Address, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.roles.requireOwner(caller); err != nil {
		return err
	}
	c.roles.setCooldown(d)
	c.log.Info("cooldown set", "cooldown", d)
	return nil
}

// IsProvider reports roster membership at the time of the call.
func (c *Coordinator) IsProvider(addr crypto.Address) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roles.isProvider(addr)
}

// --- Batch lifecycle (BatchLedger) ---

// OpenBatch opens a new contribution window with zeroed accumulators and
// makes it current. A still-open current batch is retired first; ids are
// never reused.
func (c *Coordinator) OpenBatch(caller crypto.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.roles.requireNotPaused(); err != nil {
		return 0, err
	}
	if err := c.roles.requireOwner(caller); err != nil {
		return 0, err
	}

	b, err := c.ledger.openNext(c.engine)
	if err != nil {
		return 0, err
	}

	c.log.Info("batch opened", "batchId", b.ID)
	c.feed.publish(Event{Kind: EventBatchOpened, BatchID: b.ID, Time: c.now()})
	return b.ID, nil
}

// CloseBatch closes the current batch. Closing is not a precondition for
// decryption; it only stops further contributions.
func (c *Coordinator) CloseBatch(caller crypto.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.roles.requireOwner(caller); err != nil {
		return err
	}

	cur := c.ledger.current()
	if cur == nil || !cur.Open {
		return ErrBatchClosed
	}
	cur.Open = false

	c.log.Info("batch closed", "batchId", cur.ID)
	c.feed.publish(Event{Kind: EventBatchClosed, BatchID: cur.ID, Time: c.now()})
	return nil
}

// CurrentBatch returns a copy of the current batch.
func (c *Coordinator) CurrentBatch() (Batch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.ledger.current()
	if cur == nil {
		return Batch{}, false
	}
	return cur.snapshot(), true
}

// BatchByID returns a copy of the batch with the given id.
func (c *Coordinator) BatchByID(id uint64) (Batch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.ledger.byID(id)
	if b == nil {
		return Batch{}, false
	}
	return b.snapshot(), true
}

// --- Contributions (AggregationEngine) ---

// SubmitContribution folds a provider's encrypted attribute values into the
// current batch's accumulators. Gate order: pause, role, cooldown, batch
// state. The cooldown timestamp advances only when the whole operation
// commits, so a rejected submission never burns the caller's cooldown.
//
// The contribution values are never observed in plaintext here; the handles
// are combined through the encryption capability and the stored accumulator
// handles are replaced with the results.
func (c *Coordinator) SubmitContribution(provider crypto.Address, batchID uint64, strength, agility, intellect crypto.Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if err := c.roles.requireNotPaused(); err != nil {
		return err
	}
	if err := c.roles.requireProvider(provider); err != nil {
		return err
	}
	if err := c.limiter.check(provider, actionSubmit, now, c.roles.cooldown); err != nil {
		return err
	}
	batch, err := c.ledger.requireCurrentOpen(batchID)
	if err != nil {
		return err
	}

	// Combine into fresh handles first; the accumulators are replaced only
	// once all three additions succeeded.
	newStrength, err := c.engine.Add(batch.Strength, strength)
	if err != nil {
		return fmt.Errorf("accumulating strength: %w", err)
	}
	newAgility, err := c.engine.Add(batch.Agility, agility)
	if err != nil {
		return fmt.Errorf("accumulating agility: %w", err)
	}
	newIntellect, err := c.engine.Add(batch.Intellect, intellect)
	if err != nil {
		return fmt.Errorf("accumulating intellect: %w", err)
	}

	batch.Strength = newStrength
	batch.Agility = newAgility
	batch.Intellect = newIntellect
	c.limiter.advance(provider, actionSubmit, now)

	c.log.Info("contribution recorded", "batchId", batch.ID, "provider", provider.String())
	c.feed.publish(Event{Kind: EventPartyAttributesSubmitted, BatchID: batch.ID, Provider: provider, Time: now})
	return nil
}

// --- Decryption request (DecryptionOracleBridge) ---

// GenerateSeed derives the seed ciphertext for the batch, snapshots the four
// current handles, and asks the oracle to decrypt them. The batch stays open:
// contributions may keep landing while the request is outstanding, which is
// exactly what the snapshot hash detects at callback time. Accumulators are
// never mutated here.
func (c *Coordinator) GenerateSeed(caller crypto.Address, batchID uint64) (fhe.RequestID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if err := c.roles.requireNotPaused(); err != nil {
		return "", err
	}
	if err := c.roles.requireOwnerOrProvider(caller); err != nil {
		return "", err
	}
	if err := c.limiter.check(caller, actionGenerateSeed, now, c.roles.cooldown); err != nil {
		return "", err
	}
	batch, err := c.ledger.requireCurrentOpen(batchID)
	if err != nil {
		return "", err
	}

	seed, err := c.derive(c.engine, batch.Strength, batch.Agility, batch.Intellect)
	if err != nil {
		return "", fmt.Errorf("deriving seed: %w", err)
	}

	// Same ordering as snapshotHandles. The batch's seed handle is replaced
	// only once the oracle accepted the request: a failed request must leave
	// the batch untouched, or it would invalidate the snapshots of requests
	// still pending on it.
	handles := []crypto.Handle{batch.Strength, batch.Agility, batch.Intellect, seed}
	stateHash := crypto.SnapshotHash(c.protocolID, handles...)

	requestID, err := c.oracle.RequestDecryption(handles)
	if err != nil {
		return "", fmt.Errorf("requesting decryption: %w", err)
	}

	batch.Seed = seed
	c.contexts[requestID] = &DecryptionContext{
		BatchID:   batch.ID,
		StateHash: stateHash,
	}
	c.limiter.advance(caller, actionGenerateSeed, now)

	c.log.Info("seed generated, decryption requested",
		"batchId", batch.ID, "requestId", string(requestID), "stateHash", stateHash.String())
	c.feed.publish(Event{Kind: EventDungeonSeedGenerated, BatchID: batch.ID, Time: now})
	c.feed.publish(Event{Kind: EventDecryptionRequested, BatchID: batch.ID, RequestID: requestID, Time: now})
	return requestID, nil
}

// Context returns a copy of the decryption context for a request id.
func (c *Coordinator) Context(id fhe.RequestID) (DecryptionContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dc, ok := c.contexts[id]
	if !ok {
		return DecryptionContext{}, false
	}
	return *dc, true
}

// --- Decryption callback (CallbackVerifier) ---

// OnDecryptionResult is the single fulfillment entry point for the oracle
// actor. The checks run in fixed order: unknown request or vanished batch,
// replay, state mismatch against the batch's current handles, then proof
// verification. Each rejection is terminal for the request id; a fresh
// GenerateSeed call is required to obtain a new consistent snapshot.
func (c *Coordinator) OnDecryptionResult(requestID fhe.RequestID, values []uint64, proof []byte) (*RevealedValues, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dc, ok := c.contexts[requestID]
	if !ok {
		return nil, fmt.Errorf("%w: request %s", ErrInvalidBatchID, requestID)
	}
	batch := c.ledger.byID(dc.BatchID)
	if batch == nil {
		return nil, fmt.Errorf("%w: batch %d", ErrInvalidBatchID, dc.BatchID)
	}

	if dc.Processed {
		c.log.Warn("replayed decryption result rejected", "requestId", string(requestID))
		return nil, fmt.Errorf("%w: request %s", ErrReplayAttempt, requestID)
	}

	// The race guard: recompute over the handles as they stand now. Any
	// contribution accepted after the snapshot fails this check even when
	// the proof itself is valid.
	currentHash := crypto.SnapshotHash(c.protocolID, batch.snapshotHandles()...)
	if !currentHash.Equal(dc.StateHash) {
		c.log.Warn("stale decryption result rejected",
			"requestId", string(requestID), "batchId", batch.ID,
			"snapshotHash", dc.StateHash.String(), "currentHash", currentHash.String())
		return nil, fmt.Errorf("%w: request %s", ErrStateMismatch, requestID)
	}

	if len(values) != 4 || !c.verifier.Verify(requestID, values, proof) {
		return nil, fmt.Errorf("%w: request %s", ErrInvalidProof, requestID)
	}

	revealed := &RevealedValues{
		Strength:  values[0],
		Agility:   values[1],
		Intellect: values[2],
		Seed:      values[3],
	}
	dc.Processed = true

	c.log.Info("decryption finalized",
		"batchId", batch.ID, "requestId", string(requestID),
		"strength", revealed.Strength, "agility", revealed.Agility,
		"intellect", revealed.Intellect, "seed", revealed.Seed)
	c.feed.publish(Event{
		Kind:      EventDecryptionCompleted,
		BatchID:   batch.ID,
		RequestID: requestID,
		Values:    revealed,
		Time:      c.now(),
	})
	return revealed, nil
}
