package pipeline

import (
	"context"
	"io"
	"runtime"

	"github.com/jackdoerner/zeroledge/internal/lbp"
	"github.com/jackdoerner/zeroledge/internal/ledger"
	"github.com/jackdoerner/zeroledge/internal/lep"
	"github.com/jackdoerner/zeroledge/internal/wire"
	"github.com/jackdoerner/zeroledge/internal/zlcrypto"
	"github.com/jackdoerner/zeroledge/internal/zllog"
)

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n < 1 {
		return 1
	}
	return n
}

// computeLoop is one compute-pool worker: acquire the ledger lock, read up
// to Batch (id, balance) pairs, release it, then run LBP and LEP for each
// entry with no lock held, append to the worker's private partial ledger,
// and finally emit the batch's proof/entries/incremental records under
// their own locks (spec §5). A malformed balance token ends this worker's
// loop (spec §7 kind 2): the worker returns, leaving the remainder of the
// stream to whichever workers are still reading it.
func (o *Orchestrator) computeLoop(
	ctx context.Context,
	rnd io.Reader,
	g, h, f zlcrypto.Point,
	src *wire.LedgerSource,
	incrMap map[string]*ledger.IncrEntry,
	proofOut *wire.Writer,
	entriesOut io.Writer,
	incrWriter *wire.IncrWriter,
	partial *ledger.Ledger,
	log *zllog.Logger,
) {
	lepP := lep.NewProcessor(o.W)
	lbpP := lbp.NewProcessor(o.W)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		o.ledgerMu.Lock()
		batch := src.ReadBatch(o.Batch)
		o.ledgerMu.Unlock()
		if len(batch) == 0 {
			return
		}

		finished := make([]*ledger.LedgerEntry, 0, len(batch))
		for _, rec := range batch {
			balance, err := wire.ParseDecimalUint64(rec.BalanceTok)
			if err != nil {
				log.Warn("malformed ledger record, ending worker loop", "id", rec.ID, "err", err)
				o.emit(proofOut, entriesOut, incrWriter, finished)
				return
			}

			e := ledger.NewLedgerEntry(rec.ID, balance, o.V)
			if prev, ok := incrMap[rec.ID]; ok {
				e.Incremental = true
				e.Prev = prev
			}

			for i := 0; i < o.V; i++ {
				r, err := zlcrypto.RandScalar(rnd)
				if err != nil {
					log.Error("random source failure, ending worker loop", "err", err)
					o.emit(proofOut, entriesOut, incrWriter, finished)
					return
				}
				e.SetR(i, r)
			}
			e.ComputeR()

			lbpP.GenCommitments(e, g, h, f)
			if err := lbpP.GenProofs(rnd, e, g, h, f); err != nil {
				log.Error("random source failure, ending worker loop", "err", err)
				o.emit(proofOut, entriesOut, incrWriter, finished)
				return
			}
			lepP.GenCommitment(e, g, h, f)
			if err := lepP.GenProof(rnd, e, g, h, f); err != nil {
				log.Error("random source failure, ending worker loop", "err", err)
				o.emit(proofOut, entriesOut, incrWriter, finished)
				return
			}

			partial.AddEntry(e)
			finished = append(finished, e)
		}

		o.emit(proofOut, entriesOut, incrWriter, finished)
	}
}

// emit writes a finished batch's records under each record kind's own
// lock, in sequence (proof, then entries, then incremental), assigning
// each entry's index under the proof lock at the moment of emission, per
// spec §5: "the entries-opener file and incremental-export file carry an
// integer index assigned under the proof lock at the moment of emission".
func (o *Orchestrator) emit(proofOut *wire.Writer, entriesOut io.Writer, incrWriter *wire.IncrWriter, entries []*ledger.LedgerEntry) {
	if len(entries) == 0 {
		return
	}

	indices := make([]uint64, len(entries))
	o.proofMu.Lock()
	for i, e := range entries {
		indices[i] = o.entryIndex.Add(1) - 1
		_ = proofOut.WriteEntry(e)
	}
	o.proofMu.Unlock()
	o.entryCount.Add(uint64(len(entries)))
	if o.Metrics != nil {
		o.Metrics.AddEntriesProcessed(len(entries))
	}

	if entriesOut != nil {
		o.entriesMu.Lock()
		for i, e := range entries {
			_ = wire.WriteOpenerRecord(entriesOut, wire.OpenerRecord{
				Index: int(indices[i]), ID: e.ID, Balance: e.Balance, R: e.R,
			})
		}
		o.entriesMu.Unlock()
	}

	if incrWriter != nil {
		o.incrMu.Lock()
		for i, e := range entries {
			_ = incrWriter.WriteEntry(int(indices[i]), e)
		}
		o.incrMu.Unlock()
	}
}
