// Package pipeline implements the producer/consumer orchestrator of spec
// §5: a compute pool that streams (id, balance) pairs from a shared ledger
// source, drives LBP then LEP per entry, and folds finished entries into a
// private per-worker partial ledger; an optional ingest pool that
// pre-populates a shared incremental-state map before the compute pool
// starts; and the single-threaded DBP phase that runs once, after every
// compute worker has joined, over the merged ledger's aggregates.
//
// Grounded on wyf-ACCEPT-eth2030/pkg/core/vm/parallel_executor.go for the
// Go idiom (sync.WaitGroup fan-out/join, atomic.Uint64 counters, a worker
// count defaulting to runtime.NumCPU()) and on original_source/zlgenerate.cpp
// (calcLoop, incrLoop, main()'s thread-spawn/join/merge sequence) for the
// locking granularity: four independent locks (ledger-in, proof-out,
// entries-out, incr-out), none held across cryptographic work, strings
// copied under the lock and parsed after release.
package pipeline

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/jackdoerner/zeroledge/internal/dbp"
	"github.com/jackdoerner/zeroledge/internal/ledger"
	"github.com/jackdoerner/zeroledge/internal/metrics"
	"github.com/jackdoerner/zeroledge/internal/wire"
	"github.com/jackdoerner/zeroledge/internal/zlcrypto"
	"github.com/jackdoerner/zeroledge/internal/zllog"
)

// Orchestrator runs the generator's worker pools over shared cryptographic
// parameters. Bases (g, h, f) and the protocol widths (V, W) are read-only
// after construction, per spec §5's "shared resources" note; the four
// locks below are the only shared mutable endpoints besides the atomics.
type Orchestrator struct {
	Workers int
	Batch   int
	V, W    int
	Metrics *metrics.Recorder

	ledgerMu  sync.Mutex
	proofMu   sync.Mutex
	entriesMu sync.Mutex
	incrMu    sync.Mutex

	entryIndex atomic.Uint64
	entryCount atomic.Uint64
}

// NewOrchestrator returns an Orchestrator. A non-positive workers count
// defaults to runtime.NumCPU() at RunGenerate time, not here, so a zero
// value can be constructed and configured before the worker count is known.
func NewOrchestrator(workers, batch, v, w int) *Orchestrator {
	return &Orchestrator{Workers: workers, Batch: batch, V: v, W: w}
}

// EntryCount returns the number of entries processed so far; safe to read
// concurrently with a running generate pass (e.g. for a progress reporter).
func (o *Orchestrator) EntryCount() uint64 { return o.entryCount.Load() }

// GenerateInput bundles RunGenerate's per-call configuration: the shared
// generators, the declared asset total, the proof timestamp, the ledger
// source, and the (possibly nil) optional output/input streams spec §6
// names (entries opener, incremental export, incremental import).
type GenerateInput struct {
	G, H, F     zlcrypto.Point
	TotalAssets uint64
	ProofTime   int64
	Source      *wire.LedgerSource
	ProofOut    *wire.Writer
	EntriesOut  io.Writer
	IncrOut     io.Writer
	IncrIn      io.Reader
}

// RunGenerate drives the full generation pipeline: optional ingest pool,
// compute pool, partial-ledger merge, and the single-threaded DBP phase.
// It returns the merged ledger (with DBC/DBP populated) once every section
// of the proof has been written and the writer closed.
func (o *Orchestrator) RunGenerate(ctx context.Context, rnd io.Reader, in GenerateInput) (*ledger.Ledger, error) {
	log := zllog.Default().Module("pipeline")
	workers := o.Workers
	if workers <= 0 {
		workers = defaultWorkers()
	}
	if o.Metrics != nil {
		o.Metrics.SetWorkerPoolSize(workers)
	}

	g, h, f := in.G, in.H, in.F

	if err := in.ProofOut.WriteHeader(in.TotalAssets, in.ProofTime, o.V, g, h, f); err != nil {
		return nil, err
	}

	var incrWriter *wire.IncrWriter
	if in.IncrOut != nil {
		var err error
		incrWriter, err = wire.NewIncrWriter(in.IncrOut, in.ProofTime, o.V)
		if err != nil {
			return nil, err
		}
	}

	var incrMap map[string]*ledger.IncrEntry
	if in.IncrIn != nil {
		var err error
		incrMap, err = o.runIngest(workers, in.IncrIn)
		if err != nil {
			return nil, err
		}
		log.Info("incremental import complete", "entries", len(incrMap))
	}

	partials := make([]*ledger.Ledger, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		partials[w] = ledger.NewLedger(g, h, f, o.V, o.W)
		wg.Add(1)
		go func(partial *ledger.Ledger) {
			defer wg.Done()
			o.computeLoop(ctx, rnd, g, h, f, in.Source, incrMap, in.ProofOut, in.EntriesOut, incrWriter, partial, log)
		}(partials[w])
	}
	wg.Wait()

	master := ledger.NewLedger(g, h, f, o.V, o.W)
	for _, p := range partials {
		master.AppendLedger(p)
	}

	master.ComputeSums(in.TotalAssets)
	master.GenerateCommitments()

	dbpProc := dbp.NewProcessor(o.W)
	if err := dbpProc.GenProofs(rnd, master); err != nil {
		return nil, err
	}

	if err := in.ProofOut.BeginDifferenceSection(); err != nil {
		return nil, err
	}
	for i := 0; i < o.V; i++ {
		if err := in.ProofOut.WriteDifferenceBit(master.DBC[i], master.DBP[i]); err != nil {
			return nil, err
		}
	}
	if err := in.ProofOut.Close(); err != nil {
		return nil, err
	}
	if incrWriter != nil {
		if err := incrWriter.Close(); err != nil {
			return nil, err
		}
	}

	return master, nil
}
