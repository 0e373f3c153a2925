package services

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/editaylors7/Dungeon-Gen-FHE/crypto"
	"github.com/editaylors7/Dungeon-Gen-FHE/fhe"
	"github.com/editaylors7/Dungeon-Gen-FHE/protocol"
)

// AdminRequest identifies the caller of an owner-gated operation. The
// protocol core decides whether the address actually holds the owner
// capability; wallet/session authentication happens upstream.
type AdminRequest struct {
	Caller string `json:"caller"`
}

// RosterRequest adds or removes a provider address.
type RosterRequest struct {
	Caller   string `json:"caller"`
	Provider string `json:"provider"`
}

// OwnershipRequest hands the owner capability to a new address.
type OwnershipRequest struct {
	Caller   string `json:"caller"`
	NewOwner string `json:"new_owner"`
}

// PauseRequest sets the pause flag.
type PauseRequest struct {
	Caller string `json:"caller"`
	Paused bool   `json:"paused"`
}

// CooldownRequest sets the shared cooldown duration in seconds.
type CooldownRequest struct {
	Caller          string `json:"caller"`
	CooldownSeconds uint64 `json:"cooldown_seconds"`
}

// ContributionRequest submits three encrypted attribute values into a batch.
// The handles reference ciphertexts already registered with the encryption
// capability; no plaintext crosses this API.
type ContributionRequest struct {
	Provider  string `json:"provider"`
	BatchID   uint64 `json:"batch_id"`
	Strength  string `json:"strength"`
	Agility   string `json:"agility"`
	Intellect string `json:"intellect"`
}

// SeedRequest asks for seed derivation and decryption of a batch's state.
type SeedRequest struct {
	Caller  string `json:"caller"`
	BatchID uint64 `json:"batch_id"`
}

// SeedResponse returns the oracle request id for a decryption request.
type SeedResponse struct {
	RequestID string `json:"request_id"`
}

// CallbackRequest delivers a decryption result from the oracle actor.
type CallbackRequest struct {
	RequestID string   `json:"request_id"`
	Values    []uint64 `json:"values"`
	Proof     []byte   `json:"proof"`
}

// BatchResponse describes a batch: lifecycle state plus the accumulator
// handles as opaque identifiers. Plaintext aggregates are never exposed here.
type BatchResponse struct {
	BatchID   uint64 `json:"batch_id"`
	Open      bool   `json:"open"`
	Strength  string `json:"strength"`
	Agility   string `json:"agility"`
	Intellect string `json:"intellect"`
	Seed      string `json:"seed,omitempty"`
}

// ContextResponse describes a decryption context for auditing.
type ContextResponse struct {
	RequestID string `json:"request_id"`
	BatchID   uint64 `json:"batch_id"`
	StateHash string `json:"state_hash"`
	Processed bool   `json:"processed"`
}

// ResultRecord is a finalized decryption persisted for auditability.
type ResultRecord struct {
	RequestID   fhe.RequestID           `json:"request_id"`
	BatchID     uint64                  `json:"batch_id"`
	Values      protocol.RevealedValues `json:"values"`
	CompletedAt time.Time               `json:"completed_at"`
}

// StatusResponse is the generic success/error envelope.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func newBatchResponse(b protocol.Batch) BatchResponse {
	resp := BatchResponse{
		BatchID:   b.ID,
		Open:      b.Open,
		Strength:  b.Strength.String(),
		Agility:   b.Agility.String(),
		Intellect: b.Intellect.String(),
	}
	if b.Seed != nil {
		resp.Seed = b.Seed.String()
	}
	return resp
}

// DecodeMessage decodes a JSON message from a reader.
func DecodeMessage[T any](reader io.Reader) (*T, error) {
	var msg T
	err := json.NewDecoder(reader).Decode(&msg)
	return &msg, err
}

func parseAddress(field, value string) (crypto.Address, error) {
	addr, err := crypto.NewAddressFromString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", field, err)
	}
	if len(addr) == 0 {
		return nil, fmt.Errorf("missing %s", field)
	}
	return addr, nil
}
