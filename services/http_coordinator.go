package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/editaylors7/Dungeon-Gen-FHE/crypto"
	"github.com/editaylors7/Dungeon-Gen-FHE/fhe"
	"github.com/editaylors7/Dungeon-Gen-FHE/metrics"
	"github.com/editaylors7/Dungeon-Gen-FHE/protocol"
)

// CoordinatorConfig configures the HTTP coordinator service.
type CoordinatorConfig struct {
	// OracleToken authenticates the oracle actor on the callback route.
	// Empty disables the check (local testing only).
	OracleToken string

	// Log is the structured logger. Nil selects slog.Default.
	Log *slog.Logger
}

// HTTPCoordinator exposes the protocol coordinator over HTTP and mirrors
// its decryption audit trail into a Store.
type HTTPCoordinator struct {
	coord *protocol.Coordinator
	store Store
	cfg   *CoordinatorConfig
	log   *slog.Logger
}

// NewHTTPCoordinator wraps a coordinator with HTTP transport and
// write-behind persistence.
func NewHTTPCoordinator(coord *protocol.Coordinator, store Store, cfg *CoordinatorConfig) (*HTTPCoordinator, error) {
	if coord == nil {
		return nil, errors.New("coordinator cannot be nil")
	}
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	if cfg == nil {
		cfg = &CoordinatorConfig{}
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	return &HTTPCoordinator{coord: coord, store: store, cfg: cfg, log: log}, nil
}

// Start launches the event persister. It runs until ctx is done, mirroring
// decryption contexts and finalized results into the store and bumping
// counters for the security-relevant outcomes.
func (h *HTTPCoordinator) Start(ctx context.Context) {
	events := h.coord.Subscribe(ctx)
	go func() {
		for ev := range events {
			h.persistEvent(ctx, ev)
		}
	}()
}

func (h *HTTPCoordinator) persistEvent(ctx context.Context, ev protocol.Event) {
	switch ev.Kind {
	case protocol.EventBatchOpened:
		metrics.IncBatchOpened()
	case protocol.EventPartyAttributesSubmitted:
		metrics.IncContribution()
	case protocol.EventDecryptionRequested:
		metrics.IncDecryptionRequested()
		if dc, ok := h.coord.Context(ev.RequestID); ok {
			if err := h.store.SaveContext(ctx, ev.RequestID, dc); err != nil {
				h.log.Error("failed to persist decryption context", "requestId", string(ev.RequestID), "err", err)
			}
		}
	case protocol.EventDecryptionCompleted:
		metrics.IncDecryptionCompleted()
		if ev.Values == nil {
			return
		}
		rec := ResultRecord{
			RequestID:   ev.RequestID,
			BatchID:     ev.BatchID,
			Values:      *ev.Values,
			CompletedAt: ev.Time,
		}
		if err := h.store.SaveResult(ctx, rec); err != nil {
			h.log.Error("failed to persist decryption result", "requestId", string(ev.RequestID), "err", err)
		}
	}
}

// RegisterRoutes registers the coordinator routes with the router.
func (h *HTTPCoordinator) RegisterRoutes(r chi.Router) {
	// Owner administration
	r.Post("/admin/batch/open", h.handleOpenBatch)
	r.Post("/admin/batch/close", h.handleCloseBatch)
	r.Post("/admin/providers", h.handleAddProvider)
	r.Delete("/admin/providers", h.handleRemoveProvider)
	r.Post("/admin/pause", h.handlePause)
	r.Post("/admin/cooldown", h.handleCooldown)
	r.Post("/admin/ownership", h.handleOwnership)

	// Provider operations
	r.Post("/batch/contributions", h.handleSubmitContribution)
	r.Post("/batch/seed", h.handleGenerateSeed)

	// Oracle fulfillment
	r.Post("/oracle/callback", h.handleOracleCallback)

	// Read access for frontends and indexers
	r.Get("/batch/current", h.handleCurrentBatch)
	r.Get("/batch/{id}", h.handleBatchByID)
	r.Get("/contexts/{request_id}", h.handleGetContext)
	r.Get("/results/{request_id}", h.handleGetResult)
	r.Get("/results", h.handleListResults)
}

// writeJSON writes a JSON response body with the given status.
func (h *HTTPCoordinator) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error("failed to encode response", "err", err)
	}
}

// writeProtocolError maps protocol error kinds to HTTP statuses. The
// security-critical rejections are logged and counted, never swallowed.
func (h *HTTPCoordinator) writeProtocolError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, protocol.ErrNotOwner), errors.Is(err, protocol.ErrNotProvider):
		status = http.StatusForbidden
	case errors.Is(err, protocol.ErrPaused):
		status = http.StatusServiceUnavailable
	case errors.Is(err, protocol.ErrCooldownActive):
		status = http.StatusTooManyRequests
	case errors.Is(err, protocol.ErrReplayAttempt):
		metrics.IncReplayRejected()
		status = http.StatusConflict
	case errors.Is(err, protocol.ErrStateMismatch):
		metrics.IncStateMismatch()
		status = http.StatusConflict
	case errors.Is(err, protocol.ErrInvalidBatchID):
		status = http.StatusNotFound
	case errors.Is(err, protocol.ErrInvalidProof):
		status = http.StatusForbidden
	}
	h.writeJSON(w, status, StatusResponse{Status: "error", Message: err.Error()})
}

func (h *HTTPCoordinator) handleOpenBatch(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	req, err := DecodeMessage[AdminRequest](r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	batchID, err := h.coord.OpenBatch(caller)
	if err != nil {
		h.writeProtocolError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]uint64{"batch_id": batchID})
}

func (h *HTTPCoordinator) handleCloseBatch(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	req, err := DecodeMessage[AdminRequest](r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.coord.CloseBatch(caller); err != nil {
		h.writeProtocolError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "success"})
}

func (h *HTTPCoordinator) handleAddProvider(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	req, err := DecodeMessage[RosterRequest](r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	provider, err := parseAddress("provider", req.Provider)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.coord.AddProvider(caller, provider); err != nil {
		h.writeProtocolError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "success"})
}

func (h *HTTPCoordinator) handleRemoveProvider(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	req, err := DecodeMessage[RosterRequest](r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	provider, err := parseAddress("provider", req.Provider)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.coord.RemoveProvider(caller, provider); err != nil {
		h.writeProtocolError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "success"})
}

func (h *HTTPCoordinator) handlePause(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	req, err := DecodeMessage[PauseRequest](r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.coord.SetPaused(caller, req.Paused); err != nil {
		h.writeProtocolError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "success"})
}

func (h *HTTPCoordinator) handleCooldown(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	req, err := DecodeMessage[CooldownRequest](r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.coord.SetCooldown(caller, time.Duration(req.CooldownSeconds)*time.Second); err != nil {
		h.writeProtocolError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "success"})
}

func (h *HTTPCoordinator) handleOwnership(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	req, err := DecodeMessage[OwnershipRequest](r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	newOwner, err := parseAddress("new_owner", req.NewOwner)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.coord.TransferOwnership(caller, newOwner); err != nil {
		h.writeProtocolError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "success"})
}

func (h *HTTPCoordinator) handleSubmitContribution(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	req, err := DecodeMessage[ContributionRequest](r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}
	provider, err := parseAddress("provider", req.Provider)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	handles := make([]crypto.Handle, 0, 3)
	for _, field := range []struct{ name, value string }{
		{"strength", req.Strength},
		{"agility", req.Agility},
		{"intellect", req.Intellect},
	} {
		handle, err := crypto.NewHandleFromString(field.value)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid %s handle: %v", field.name, err), http.StatusBadRequest)
			return
		}
		handles = append(handles, handle)
	}

	if err := h.coord.SubmitContribution(provider, req.BatchID, handles[0], handles[1], handles[2]); err != nil {
		h.writeProtocolError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "success"})
}

func (h *HTTPCoordinator) handleGenerateSeed(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	req, err := DecodeMessage[SeedRequest](r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}
	caller, err := parseAddress("caller", req.Caller)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	requestID, err := h.coord.GenerateSeed(caller, req.BatchID)
	if err != nil {
		h.writeProtocolError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, SeedResponse{RequestID: string(requestID)})
}

// handleOracleCallback is the single fulfillment entry point for the oracle
// actor. The bearer token restricts who may deliver results; the proof
// check inside the coordinator authenticates what they deliver.
func (h *HTTPCoordinator) handleOracleCallback(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	if h.cfg.OracleToken != "" && r.Header.Get("Authorization") != "Bearer "+h.cfg.OracleToken {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	req, err := DecodeMessage[CallbackRequest](r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to decode request: %v", err), http.StatusBadRequest)
		return
	}

	revealed, err := h.coord.OnDecryptionResult(fhe.RequestID(req.RequestID), req.Values, req.Proof)
	if err != nil {
		h.writeProtocolError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, revealed)
}

func (h *HTTPCoordinator) handleCurrentBatch(w http.ResponseWriter, r *http.Request) {
	batch, ok := h.coord.CurrentBatch()
	if !ok {
		http.Error(w, "no batch opened yet", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, newBatchResponse(batch))
}

func (h *HTTPCoordinator) handleBatchByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid batch id", http.StatusBadRequest)
		return
	}

	batch, ok := h.coord.BatchByID(id)
	if !ok {
		http.Error(w, "batch not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, newBatchResponse(batch))
}

func (h *HTTPCoordinator) handleGetContext(w http.ResponseWriter, r *http.Request) {
	requestID := fhe.RequestID(chi.URLParam(r, "request_id"))

	dc, ok := h.coord.Context(requestID)
	if !ok {
		http.Error(w, "context not found", http.StatusNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, ContextResponse{
		RequestID: string(requestID),
		BatchID:   dc.BatchID,
		StateHash: dc.StateHash.String(),
		Processed: dc.Processed,
	})
}

func (h *HTTPCoordinator) handleGetResult(w http.ResponseWriter, r *http.Request) {
	requestID := fhe.RequestID(chi.URLParam(r, "request_id"))

	rec, err := h.store.GetResult(r.Context(), requestID)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "result not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *HTTPCoordinator) handleListResults(w http.ResponseWriter, r *http.Request) {
	recs, err := h.store.ListResults(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, recs)
}
