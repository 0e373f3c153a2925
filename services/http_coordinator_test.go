package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/editaylors7/Dungeon-Gen-FHE/crypto"
	"github.com/editaylors7/Dungeon-Gen-FHE/fhe"
	"github.com/editaylors7/Dungeon-Gen-FHE/protocol"
)

type coordinatorFixture struct {
	router chi.Router
	http   *HTTPCoordinator
	coord  *protocol.Coordinator
	engine *fhe.InMemoryEngine
	oracle *fhe.InMemoryOracle
	store  *MemoryStore
	owner  crypto.Address
}

func setupCoordinator(t *testing.T, oracleToken string) *coordinatorFixture {
	t.Helper()

	engine := fhe.NewInMemoryEngine()
	oracle, err := fhe.NewInMemoryOracle(engine)
	require.NoError(t, err)

	owner := crypto.NewAddressFromBytes([]byte("owner"))
	coord, err := protocol.NewCoordinator(protocol.Config{
		Owner:    owner,
		Cooldown: time.Nanosecond,
	}, engine, oracle, oracle, nil)
	require.NoError(t, err)

	store := NewMemoryStore()
	hc, err := NewHTTPCoordinator(coord, store, &CoordinatorConfig{OracleToken: oracleToken})
	require.NoError(t, err)

	r := chi.NewRouter()
	hc.RegisterRoutes(r)

	return &coordinatorFixture{
		router: r,
		http:   hc,
		coord:  coord,
		engine: engine,
		oracle: oracle,
		store:  store,
		owner:  owner,
	}
}

func (f *coordinatorFixture) postJSON(t *testing.T, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *coordinatorFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (f *coordinatorFixture) encrypt(t *testing.T, v uint64) string {
	t.Helper()

	h, err := f.engine.Encrypt(v)
	require.NoError(t, err)
	return h.String()
}

func TestHTTPEndToEnd(t *testing.T) {
	f := setupCoordinator(t, "")
	providerA := crypto.NewAddressFromBytes([]byte("provider-a"))
	providerB := crypto.NewAddressFromBytes([]byte("provider-b"))

	// Open a batch and register both providers through the API.
	rec := f.postJSON(t, "/admin/batch/open", AdminRequest{Caller: f.owner.String()}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var opened map[string]uint64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opened))
	batchID := opened["batch_id"]

	for _, p := range []crypto.Address{providerA, providerB} {
		rec = f.postJSON(t, "/admin/providers", RosterRequest{Caller: f.owner.String(), Provider: p.String()}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	// Both providers contribute.
	rec = f.postJSON(t, "/batch/contributions", ContributionRequest{
		Provider: providerA.String(),
		BatchID:  batchID,
		Strength: f.encrypt(t, 5), Agility: f.encrypt(t, 3), Intellect: f.encrypt(t, 4),
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.postJSON(t, "/batch/contributions", ContributionRequest{
		Provider: providerB.String(),
		BatchID:  batchID,
		Strength: f.encrypt(t, 4), Agility: f.encrypt(t, 5), Intellect: f.encrypt(t, 2),
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Generate the seed.
	rec = f.postJSON(t, "/batch/seed", SeedRequest{Caller: f.owner.String(), BatchID: batchID}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var seedResp SeedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &seedResp))

	// The oracle fulfills and posts the callback.
	values, proof, err := f.oracle.Fulfill(fhe.RequestID(seedResp.RequestID))
	require.NoError(t, err)

	rec = f.postJSON(t, "/oracle/callback", CallbackRequest{
		RequestID: seedResp.RequestID,
		Values:    values,
		Proof:     proof,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var revealed protocol.RevealedValues
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &revealed))
	require.Equal(t, protocol.RevealedValues{Strength: 9, Agility: 8, Intellect: 6, Seed: 78}, revealed)

	// A replayed callback is rejected with 409.
	rec = f.postJSON(t, "/oracle/callback", CallbackRequest{
		RequestID: seedResp.RequestID,
		Values:    values,
		Proof:     proof,
	}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHTTPErrorMapping(t *testing.T) {
	f := setupCoordinator(t, "")
	stranger := crypto.NewAddressFromBytes([]byte("stranger"))

	// Non-owner admin call: 403.
	rec := f.postJSON(t, "/admin/batch/open", AdminRequest{Caller: stranger.String()}, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// Open a batch, then pause: provider calls see 503.
	rec = f.postJSON(t, "/admin/batch/open", AdminRequest{Caller: f.owner.String()}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.postJSON(t, "/admin/pause", PauseRequest{Caller: f.owner.String(), Paused: true}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.postJSON(t, "/batch/seed", SeedRequest{Caller: stranger.String(), BatchID: 1}, nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// Malformed handle: 400.
	rec = f.postJSON(t, "/admin/pause", PauseRequest{Caller: f.owner.String(), Paused: false}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.postJSON(t, "/batch/contributions", ContributionRequest{
		Provider: stranger.String(), BatchID: 1,
		Strength: "zz", Agility: "zz", Intellect: "zz",
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown request id on callback: 404.
	rec = f.postJSON(t, "/oracle/callback", CallbackRequest{RequestID: "missing", Values: []uint64{1, 2, 3, 4}}, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOracleCallbackTokenGate(t *testing.T) {
	f := setupCoordinator(t, "secret-token")

	rec := f.postJSON(t, "/oracle/callback", CallbackRequest{RequestID: "x"}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.postJSON(t, "/oracle/callback", CallbackRequest{RequestID: "x"},
		map[string]string{"Authorization": "Bearer wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Correct token passes the gate and reaches the protocol check.
	rec = f.postJSON(t, "/oracle/callback", CallbackRequest{RequestID: "x", Values: []uint64{1, 2, 3, 4}},
		map[string]string{"Authorization": "Bearer secret-token"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBatchReadRoutes(t *testing.T) {
	f := setupCoordinator(t, "")

	rec := f.get(t, "/batch/current")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.postJSON(t, "/admin/batch/open", AdminRequest{Caller: f.owner.String()}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.get(t, "/batch/current")
	require.Equal(t, http.StatusOK, rec.Code)
	var batch BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
	require.True(t, batch.Open)
	require.NotEmpty(t, batch.Strength)
	require.Empty(t, batch.Seed)

	rec = f.get(t, "/batch/999")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventPersister(t *testing.T) {
	f := setupCoordinator(t, "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.http.Start(ctx)

	provider := crypto.NewAddressFromBytes([]byte("provider-a"))
	require.NoError(t, f.coord.AddProvider(f.owner, provider))

	batchID, err := f.coord.OpenBatch(f.owner)
	require.NoError(t, err)

	hs, err := f.engine.Encrypt(9)
	require.NoError(t, err)
	ha, err := f.engine.Encrypt(8)
	require.NoError(t, err)
	hi, err := f.engine.Encrypt(6)
	require.NoError(t, err)
	require.NoError(t, f.coord.SubmitContribution(provider, batchID, hs, ha, hi))

	requestID, err := f.coord.GenerateSeed(f.owner, batchID)
	require.NoError(t, err)
	values, proof, err := f.oracle.Fulfill(requestID)
	require.NoError(t, err)
	_, err = f.coord.OnDecryptionResult(requestID, values, proof)
	require.NoError(t, err)

	// The persister mirrors context and result asynchronously.
	require.Eventually(t, func() bool {
		rec, err := f.store.GetResult(context.Background(), requestID)
		return err == nil && rec.Values.Seed == 78
	}, time.Second, 10*time.Millisecond)

	dc, err := f.store.GetContext(context.Background(), requestID)
	require.NoError(t, err)
	require.Equal(t, batchID, dc.BatchID)
	require.True(t, dc.Processed)
}
