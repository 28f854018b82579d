package pipeline

import (
	"sync"

	"github.com/jackdoerner/zeroledge/internal/dbp"
	"github.com/jackdoerner/zeroledge/internal/lbp"
	"github.com/jackdoerner/zeroledge/internal/ledger"
	"github.com/jackdoerner/zeroledge/internal/lep"
	"github.com/jackdoerner/zeroledge/internal/wire"
	"github.com/jackdoerner/zeroledge/internal/zlcrypto"
)

// VerifyReport is the per-category verdict set of spec §7 kind 3: every
// check runs and every verdict is reported, regardless of whether earlier
// checks failed (cryptographic failures never abort verification).
type VerifyReport struct {
	Bases                 bool
	KnownEntries          bool
	EntryProofs           bool
	BitProofs             bool
	CommitmentEquivalency bool
	DifferenceBitProofs   bool
	TotalEquivalency      bool
}

// Valid reports whether every category in the report passed.
func (r *VerifyReport) Valid() bool {
	return r.Bases && r.KnownEntries && r.EntryProofs && r.BitProofs &&
		r.CommitmentEquivalency && r.DifferenceBitProofs && r.TotalEquivalency
}

// VerifyEntries checks, across Workers goroutines, each entry's LEP proof
// (spec §4.2), its v LBP bit proofs (spec §4.3), and the I1 structural
// identity (spec §3) tying the two together. Per spec §5's "final DBP
// phase runs single-threaded after all workers join", this is the
// corresponding verifier-side parallel phase; difference-bit and
// total-equivalency checks run single-threaded afterwards since they
// operate on ledger-wide aggregates rather than per-entry state.
func (o *Orchestrator) VerifyEntries(g, h, f zlcrypto.Point, entries []*ledger.LedgerEntry) (entryProofsOK, bitProofsOK, commitmentEquivOK bool) {
	workers := o.Workers
	if workers <= 0 {
		workers = defaultWorkers()
	}
	if workers > len(entries) && len(entries) > 0 {
		workers = len(entries)
	}
	if workers < 1 {
		workers = 1
	}

	lepP := lep.NewProcessor(o.W)
	lbpP := lbp.NewProcessor(o.W)

	type result struct{ entryOK, bitOK, commitOK bool }
	results := make([]result, len(entries))

	idxCh := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxCh {
				e := entries[i]
				reconstructBitChallenges(lbpP, g, h, f, e)
				results[i] = result{
					entryOK:  lepP.VerifyProof(g, h, f, e),
					bitOK:    lbpP.VerifyProofs(g, h, f, e),
					commitOK: e.VerifyCommitmentEquivalency(),
				}
			}
		}()
	}
	for i := range entries {
		idxCh <- i
	}
	close(idxCh)
	wg.Wait()

	entryProofsOK, bitProofsOK, commitmentEquivOK = true, true, true
	for _, r := range results {
		entryProofsOK = entryProofsOK && r.entryOK
		bitProofsOK = bitProofsOK && r.bitOK
		commitmentEquivOK = commitmentEquivOK && r.commitOK
	}
	return
}

// reconstructBitChallenges fills in C2 for every bit proof of e. The wire
// reader only stores C1 per spec §6 ("only one challenge share, c1, on the
// wire"); the other half is recomputed here as Lxor(c, c1, w), exactly as
// the file comment of internal/wire/proof.go specifies for callers that
// hold the processor.
func reconstructBitChallenges(lbpP *lbp.Processor, g, h, f zlcrypto.Point, e *ledger.LedgerEntry) {
	for i := range e.LBP {
		c := lbpP.ChallengeProof(g, h, f, e.LBC[i], &e.LBP[i])
		e.LBP[i].C2 = zlcrypto.Lxor(c, e.LBP[i].C1, lbpP.W)
	}
}

// VerifyDifferenceBits checks every difference-bit OR-proof (I3) and the
// ledger-wide I2/total-equivalency identities in a single pass: it
// recomputes TotalCommitment from the entries' LEC values (the only place
// that sum is available to a verifier, since per-entry balances are never
// revealed), derives DifferenceCommitment = assets*h - TotalCommitment
// from it, and checks that against sum_i 2^i * DBC_i over the wire's own
// difference-bit commitments.
func (o *Orchestrator) VerifyDifferenceBits(g, h, f zlcrypto.Point, assets uint64, entries []*ledger.LedgerEntry, diffBits []wire.DifferenceBit) (differenceBitProofsOK, totalEquivalencyOK bool) {
	dbpP := dbp.NewProcessor(o.W)

	l := ledger.NewLedger(g, h, f, o.V, o.W)
	l.DBC = make([]zlcrypto.Point, len(diffBits))
	for i, db := range diffBits {
		l.DBC[i] = db.DBC
	}

	differenceBitProofsOK = true
	for i := range diffBits {
		proof := diffBits[i].Proof
		c := dbpP.ChallengeProof(l, i, &proof)
		proof.C2 = zlcrypto.Lxor(c, proof.C1, o.W)
		if !dbpP.VerifyProof(l, i, &proof) {
			differenceBitProofsOK = false
		}
	}

	totalCommitment := zlcrypto.Identity()
	for _, e := range entries {
		totalCommitment = totalCommitment.Add(e.LEC)
	}
	differenceCommitment := h.ScalarMult(zlcrypto.ScalarFromUint64(assets)).Sub(totalCommitment)

	sum := zlcrypto.Identity()
	for i, db := range diffBits {
		sum = sum.Add(db.DBC.ScalarMult(zlcrypto.PowTwo(i)))
	}
	totalEquivalencyOK = sum.Equal(differenceCommitment)
	return
}

// VerifyOpeners checks the entries-opener file of spec §6 against the
// proof's entry list, matching by Index. The wire reader builds its
// entries without any identifier (internal/wire/proof.go sets only V and
// the commitment/proof fields), so IDHash and IDHashPrime are still the
// zero scalar at this point; the opener record carries the
// identifier precisely so it can be reconstructed here, mirroring
// NewLedgerEntry's x/x' derivation, before VerifyKnownValues is run.
// Called only under -k; with no openers supplied, the check is vacuously
// true (no inclusion claim was made).
func VerifyOpeners(g, h, f zlcrypto.Point, entries []*ledger.LedgerEntry, openers []wire.OpenerRecord) bool {
	for _, rec := range openers {
		if rec.Index < 0 || rec.Index >= len(entries) {
			return false
		}
		e := entries[rec.Index]
		e.IDHash = zlcrypto.ChallengeHash(256, []byte(rec.ID))
		e.IDHashPrime = zlcrypto.TwoPowMinusOne(e.V).Mul(e.IDHash)
		if !e.VerifyKnownValues(g, h, f, rec.Balance, rec.R) {
			return false
		}
	}
	return true
}
