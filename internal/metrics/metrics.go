// Package metrics provides optional Prometheus instrumentation for the
// generator's worker pool (spec §5), wiring github.com/prometheus/client_golang
// -- a genuine indirect dependency of the teacher repo, exercised here for
// the first time in this tree. Metrics are entirely optional: a nil
// *Recorder is always safe to pass around, and RunGenerate (internal/pipeline)
// only touches it when the caller opted in with -metrics-addr.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the counters and histograms exported at /metrics.
type Recorder struct {
	entriesProcessed prometheus.Counter
	proofDuration    prometheus.Histogram
	workerPoolSize   prometheus.Gauge

	registry *prometheus.Registry
	srv      *http.Server
}

// NewRecorder registers a fresh set of metrics on a private registry (not
// the global DefaultRegisterer, so repeated construction in tests never
// panics on duplicate registration).
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		entriesProcessed: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "zeroledge_entries_processed_total",
			Help: "Total number of ledger entries processed by the generator.",
		}),
		proofDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "zeroledge_proof_duration_seconds",
			Help:    "Wall-clock duration of a full proof-generation run.",
			Buckets: prometheus.DefBuckets,
		}),
		workerPoolSize: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "zeroledge_worker_pool_size",
			Help: "Number of compute-pool workers in the running generator.",
		}),
	}
	return r
}

// AddEntriesProcessed increments the entries-processed counter by n.
func (r *Recorder) AddEntriesProcessed(n int) {
	if r == nil {
		return
	}
	r.entriesProcessed.Add(float64(n))
}

// ObserveProofDuration records the duration of one full generation run.
func (r *Recorder) ObserveProofDuration(d time.Duration) {
	if r == nil {
		return
	}
	r.proofDuration.Observe(d.Seconds())
}

// SetWorkerPoolSize records the resolved worker count for the running pass.
func (r *Recorder) SetWorkerPoolSize(n int) {
	if r == nil {
		return
	}
	r.workerPoolSize.Set(float64(n))
}

// Serve starts an HTTP server exposing /metrics on addr. It runs until ctx
// is cancelled, at which point it is shut down with a short grace period.
// Intended to run in its own goroutine alongside the generator's worker
// pool, started only when -metrics-addr is set.
func (r *Recorder) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	r.srv = &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return r.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
