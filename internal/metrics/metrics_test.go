package metrics

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestNilRecorderMethodsAreSafe(t *testing.T) {
	var r *Recorder
	r.AddEntriesProcessed(5)
	r.ObserveProofDuration(time.Second)
	r.SetWorkerPoolSize(4)
}

func scrape(t *testing.T, r *Recorder) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}).ServeHTTP(rec, req)
	return rec.Body.String()
}

func TestRecorderTracksEntriesProcessed(t *testing.T) {
	r := NewRecorder()
	r.AddEntriesProcessed(3)
	r.AddEntriesProcessed(4)

	body := scrape(t, r)
	if !strings.Contains(body, "zeroledge_entries_processed_total 7") {
		t.Fatalf("expected entries_processed_total to read 7, got body:\n%s", body)
	}
}

func TestRecorderTracksWorkerPoolSize(t *testing.T) {
	r := NewRecorder()
	r.SetWorkerPoolSize(8)

	body := scrape(t, r)
	if !strings.Contains(body, "zeroledge_worker_pool_size 8") {
		t.Fatalf("expected worker_pool_size to read 8, got body:\n%s", body)
	}
}

func TestServeShutsDownOnContextCancel(t *testing.T) {
	r := NewRecorder()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- r.Serve(ctx, "127.0.0.1:0") }()

	// Serve binds an ephemeral port asynchronously; give it a moment, then
	// cancel and confirm it returns cleanly rather than hanging.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Serve returned an error on shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Serve did not return within the timeout after context cancellation")
	}
}
