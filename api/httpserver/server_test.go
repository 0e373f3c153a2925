package httpserver

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *BaseServer {
	t.Helper()

	srv, err := New(&HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      slog.New(slog.NewTextHandler(io.Discard, nil)),
		DrainDuration:            10 * time.Millisecond,
		GracefulShutdownDuration: time.Second,
	})
	require.NoError(t, err)
	return srv
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestLivenessAndReadiness(t *testing.T) {
	srv := newTestServer(t)

	require.Equal(t, http.StatusOK, get(t, srv.srv.Handler, "/livez").Code)
	require.Equal(t, http.StatusOK, get(t, srv.srv.Handler, "/readyz").Code)
}

func TestDrainTogglesReadiness(t *testing.T) {
	srv := newTestServer(t)

	require.Equal(t, http.StatusOK, get(t, srv.srv.Handler, "/drain").Code)
	require.Equal(t, http.StatusServiceUnavailable, get(t, srv.srv.Handler, "/readyz").Code)

	require.Equal(t, http.StatusOK, get(t, srv.srv.Handler, "/undrain").Code)
	require.Equal(t, http.StatusOK, get(t, srv.srv.Handler, "/readyz").Code)
}
