// Package lep implements the Ledger Entry Proof processor (spec §4.2): a
// Schnorr-style Σ-protocol, compiled non-interactively via Fiat-Shamir,
// proving knowledge of the opening (x', v_e, r_e) of a single entry's
// commitment LEC_e. Processor holds no per-entry mutable state; every
// method takes the entry (and its shared generators) explicitly, following
// the "stateless transformer" design note in spec §9.
package lep

import (
	"io"

	"github.com/jackdoerner/zeroledge/internal/ledger"
	"github.com/jackdoerner/zeroledge/internal/zlcrypto"
)

// Processor runs the LEP commit/prove/verify steps at a fixed challenge
// width w.
type Processor struct {
	W int
}

// NewProcessor returns a Processor using a w-bit Fiat-Shamir challenge.
func NewProcessor(w int) *Processor {
	return &Processor{W: w}
}

// GenCommitment sets e.LEC. If e is marked incremental and carries prior
// state, it takes the incremental shortcut of spec §4.2: LEC is obtained
// by adjusting the previous proof's LEC for the balance/nonce delta
// instead of recomputing from scratch.
func (p *Processor) GenCommitment(e *ledger.LedgerEntry, g, h, f zlcrypto.Point) {
	if e.Incremental && e.Prev != nil {
		lec := e.Prev.LEC
		if e.Balance != e.Prev.Balance {
			dv := zlcrypto.ScalarFromUint64(e.Balance).Sub(zlcrypto.ScalarFromUint64(e.Prev.Balance))
			lec = lec.Add(h.ScalarMult(dv))
		}
		dr := e.R.Sub(e.Prev.R)
		lec = lec.Add(f.ScalarMult(dr))
		e.LEC = lec
		return
	}
	e.LEC = g.ScalarMult(e.IDHashPrime).
		Add(h.ScalarMult(zlcrypto.ScalarFromUint64(e.Balance))).
		Add(f.ScalarMult(e.R))
}

// BeginProof draws the commit-phase nonces and computes gamma. In the
// incremental case a single fresh scalar b_incr rescales the previous
// proof's (b1, b2, b3, gamma) triple, collapsing three scalar
// multiplications into one (spec §4.2).
func (p *Processor) BeginProof(rnd io.Reader, e *ledger.LedgerEntry, g, h, f zlcrypto.Point) (ledger.LedgerEntryProof, error) {
	var proof ledger.LedgerEntryProof

	if e.Incremental && e.Prev != nil {
		bIncr, err := zlcrypto.RandScalar(rnd)
		if err != nil {
			return proof, err
		}
		proof.B1 = bIncr.Mul(e.Prev.LEPB1)
		proof.B2 = bIncr.Mul(e.Prev.LEPB2)
		proof.B3 = bIncr.Mul(e.Prev.LEPB3)
		proof.Gamma = e.Prev.LEPGamma.ScalarMult(bIncr)
		return proof, nil
	}

	b1, err := zlcrypto.RandScalar(rnd)
	if err != nil {
		return proof, err
	}
	b2, err := zlcrypto.RandScalar(rnd)
	if err != nil {
		return proof, err
	}
	b3, err := zlcrypto.RandScalar(rnd)
	if err != nil {
		return proof, err
	}
	proof.B1, proof.B2, proof.B3 = b1, b2, b3
	proof.Gamma = g.ScalarMult(b1).Add(h.ScalarMult(b2)).Add(f.ScalarMult(b3))
	return proof, nil
}

// ChallengeProof computes c = H(g || h || f || LEC_e || gamma) over
// compressed point encodings, per spec §4.1/§4.2/§9, and records it on
// proof.
func (p *Processor) ChallengeProof(g, h, f zlcrypto.Point, e *ledger.LedgerEntry, proof *ledger.LedgerEntryProof) zlcrypto.Scalar {
	c := zlcrypto.ChallengeHash(p.W,
		g.CompressedBytes(), h.CompressedBytes(), f.CompressedBytes(),
		e.LEC.CompressedBytes(), proof.Gamma.CompressedBytes())
	proof.C = c
	return c
}

// CompleteProof computes the responses z1, z2, z3 given the challenge
// already recorded on proof.
func (p *Processor) CompleteProof(e *ledger.LedgerEntry, proof *ledger.LedgerEntryProof) {
	c := proof.C
	proof.Z1 = proof.B1.Add(c.Mul(e.IDHashPrime))
	proof.Z2 = proof.B2.Add(c.Mul(zlcrypto.ScalarFromUint64(e.Balance)))
	proof.Z3 = proof.B3.Add(c.Mul(e.R))
}

// GenProof runs begin, challenge and complete in sequence and stores the
// result on e.LEP.
func (p *Processor) GenProof(rnd io.Reader, e *ledger.LedgerEntry, g, h, f zlcrypto.Point) error {
	proof, err := p.BeginProof(rnd, e, g, h, f)
	if err != nil {
		return err
	}
	p.ChallengeProof(g, h, f, e, &proof)
	p.CompleteProof(e, &proof)
	e.LEP = proof
	return nil
}

// VerifyProof recomputes the challenge from the transcript and checks
// z1*g + z2*h + z3*f == c*LEC_e + gamma.
func (p *Processor) VerifyProof(g, h, f zlcrypto.Point, e *ledger.LedgerEntry) bool {
	proof := e.LEP
	c := p.ChallengeProof(g, h, f, e, &proof)

	lhs := g.ScalarMult(proof.Z1).Add(h.ScalarMult(proof.Z2)).Add(f.ScalarMult(proof.Z3))
	rhs := e.LEC.ScalarMult(c).Add(proof.Gamma)
	return lhs.Equal(rhs)
}
