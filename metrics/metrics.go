// Package metrics exposes protocol counters in Prometheus text format.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

var (
	contributionsTotal       = metrics.NewCounter("dungeonfhe_contributions_total")
	batchesOpenedTotal       = metrics.NewCounter("dungeonfhe_batches_opened_total")
	decryptionRequestedTotal = metrics.NewCounter("dungeonfhe_decryption_requests_total")
	decryptionCompletedTotal = metrics.NewCounter("dungeonfhe_decryption_completed_total")
	replayRejectedTotal      = metrics.NewCounter("dungeonfhe_replay_rejected_total")
	stateMismatchTotal       = metrics.NewCounter("dungeonfhe_state_mismatch_total")
)

// IncContribution counts an accepted contribution.
func IncContribution() { contributionsTotal.Inc() }

// IncBatchOpened counts a batch lifecycle start.
func IncBatchOpened() { batchesOpenedTotal.Inc() }

// IncDecryptionRequested counts an issued decryption request.
func IncDecryptionRequested() { decryptionRequestedTotal.Inc() }

// IncDecryptionCompleted counts a finalized decryption.
func IncDecryptionCompleted() { decryptionCompletedTotal.Inc() }

// IncReplayRejected counts a rejected replay delivery.
func IncReplayRejected() { replayRejectedTotal.Inc() }

// IncStateMismatch counts a rejected stale-snapshot delivery.
func IncStateMismatch() { stateMismatchTotal.Inc() }

// MetricsServer serves the Prometheus text endpoint on its own listener so
// operational scraping stays off the API port.
type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server for the given address. An empty address
// returns a server whose ListenAndServe is a no-op.
func New(namespace, addr string) (*MetricsServer, error) {
	if namespace == "" {
		return nil, fmt.Errorf("metrics namespace cannot be empty")
	}
	if addr == "" {
		return &MetricsServer{}, nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	return &MetricsServer{
		srv: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}, nil
}

// ListenAndServe blocks serving the metrics endpoint.
func (m *MetricsServer) ListenAndServe() error {
	if m.srv == nil {
		return http.ErrServerClosed
	}
	return m.srv.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if m.srv == nil {
		return nil
	}
	return m.srv.Shutdown(ctx)
}
