// Package lbp implements the Ledger Bit Proof processor (spec §4.3): for
// each value bit of an entry, an OR-proof that the committed bit opens to
// 0 or 1, without revealing which. The construction is two parallel
// Schnorr branches, one real and one simulated, with challenges split so
// that c1 xor c2 equals the Fiat-Shamir challenge c.
package lbp

import (
	"io"

	"github.com/jackdoerner/zeroledge/internal/ledger"
	"github.com/jackdoerner/zeroledge/internal/zlcrypto"
)

// Processor runs the LBP commit/prove/verify steps at a fixed challenge
// width w.
type Processor struct {
	W int
}

// NewProcessor returns a Processor using a w-bit Fiat-Shamir challenge.
func NewProcessor(w int) *Processor {
	return &Processor{W: w}
}

// GenCommitment sets e.LBC[i] for bit i. Incremental entries adjust the
// previous proof's LBC_i for the nonce/bit delta instead of recomputing
// from scratch (spec §4.3).
func (p *Processor) GenCommitment(e *ledger.LedgerEntry, i int, g, h, f zlcrypto.Point) {
	bit := zlcrypto.ScalarFromUint64(uint64(e.Bits[i]))

	if e.Incremental && e.Prev != nil {
		lbc := e.Prev.LBC[i]
		dr := e.RBits[i].Sub(e.Prev.LBPR[i])
		lbc = lbc.Add(f.ScalarMult(dr))
		if e.Bits[i] != e.Prev.Bit[i] {
			db := bit.Sub(zlcrypto.ScalarFromUint64(uint64(e.Prev.Bit[i])))
			lbc = lbc.Add(h.ScalarMult(db))
		}
		e.LBC[i] = lbc
		return
	}

	e.LBC[i] = g.ScalarMult(e.IDHash).Add(f.ScalarMult(e.RBits[i])).Add(h.ScalarMult(bit))
}

// GenCommitments populates LBC for all v bits of e.
func (p *Processor) GenCommitments(e *ledger.LedgerEntry, g, h, f zlcrypto.Point) {
	for i := 0; i < e.V; i++ {
		p.GenCommitment(e, i, g, h, f)
	}
}

// BeginProof draws the real branch's nonces and simulates the other
// branch, per spec §4.3. Which branch is real depends on e.Bits[i]; the
// incremental shortcut additionally requires the previous proof's bit to
// match the current one (the OR-proof structure has no shortcut across a
// bit flip, since the real branch switches sides).
func (p *Processor) BeginProof(rnd io.Reader, e *ledger.LedgerEntry, i int, g, h, f zlcrypto.Point) (ledger.LedgerBitProof, error) {
	var proof ledger.LedgerBitProof
	lbc := e.LBC[i]
	one := zlcrypto.ScalarFromUint64(1)

	if e.Bits[i] == 0 {
		// Real branch 1: knowledge of (x, r_{e,i}) opening LBC_i as a
		// commitment to 0.
		if e.Incremental && e.Prev != nil && e.Prev.Bit[i] == 0 {
			bIncr, err := zlcrypto.RandScalar(rnd)
			if err != nil {
				return proof, err
			}
			proof.B1 = bIncr.Mul(e.Prev.LBPB1[i])
			proof.B2 = bIncr.Mul(e.Prev.LBPB2[i])
			proof.Gamma1 = e.Prev.LBPGamma[i].ScalarMult(bIncr)
		} else {
			b1, err := zlcrypto.RandScalar(rnd)
			if err != nil {
				return proof, err
			}
			b2, err := zlcrypto.RandScalar(rnd)
			if err != nil {
				return proof, err
			}
			proof.B1, proof.B2 = b1, b2
			proof.Gamma1 = g.ScalarMult(b1).Add(f.ScalarMult(b2))
		}

		// Simulated branch 2: pick the response and challenge share
		// first, solve for gamma2.
		z3, err := zlcrypto.RandScalar(rnd)
		if err != nil {
			return proof, err
		}
		z4, err := zlcrypto.RandScalar(rnd)
		if err != nil {
			return proof, err
		}
		c2, err := zlcrypto.RandBits(rnd, p.W)
		if err != nil {
			return proof, err
		}
		proof.Z3, proof.Z4, proof.C2 = z3, z4, c2
		proof.Gamma2 = g.ScalarMult(z3).Add(h.ScalarMult(one.Add(c2))).Add(f.ScalarMult(z4)).Sub(lbc.ScalarMult(c2))
		return proof, nil
	}

	// Real branch 2: knowledge of (x, r_{e,i}) opening LBC_i as a
	// commitment to 1.
	if e.Incremental && e.Prev != nil && e.Prev.Bit[i] == 1 {
		bIncr, err := zlcrypto.RandScalar(rnd)
		if err != nil {
			return proof, err
		}
		proof.B3 = bIncr.Mul(e.Prev.LBPB1[i])
		proof.B4 = bIncr.Mul(e.Prev.LBPB2[i])
		proof.Gamma2 = e.Prev.LBPGamma[i].Sub(h).ScalarMult(bIncr).Add(h)
	} else {
		b3, err := zlcrypto.RandScalar(rnd)
		if err != nil {
			return proof, err
		}
		b4, err := zlcrypto.RandScalar(rnd)
		if err != nil {
			return proof, err
		}
		proof.B3, proof.B4 = b3, b4
		proof.Gamma2 = g.ScalarMult(b3).Add(h).Add(f.ScalarMult(b4))
	}

	// Simulated branch 1.
	z1, err := zlcrypto.RandScalar(rnd)
	if err != nil {
		return proof, err
	}
	z2, err := zlcrypto.RandScalar(rnd)
	if err != nil {
		return proof, err
	}
	c1, err := zlcrypto.RandBits(rnd, p.W)
	if err != nil {
		return proof, err
	}
	proof.Z1, proof.Z2, proof.C1 = z1, z2, c1
	proof.Gamma1 = g.ScalarMult(z1).Add(f.ScalarMult(z2)).Sub(lbc.ScalarMult(c1))
	return proof, nil
}

// ChallengeProof computes c = H(g || h || f || LBC_i || gamma1 || gamma2).
func (p *Processor) ChallengeProof(g, h, f, lbc zlcrypto.Point, proof *ledger.LedgerBitProof) zlcrypto.Scalar {
	return zlcrypto.ChallengeHash(p.W,
		g.CompressedBytes(), h.CompressedBytes(), f.CompressedBytes(),
		lbc.CompressedBytes(), proof.Gamma1.CompressedBytes(), proof.Gamma2.CompressedBytes())
}

// CompleteProof splits the challenge (c1 xor c2 = c) and computes the
// real branch's responses.
func (p *Processor) CompleteProof(e *ledger.LedgerEntry, i int, c zlcrypto.Scalar, proof *ledger.LedgerBitProof) {
	if e.Bits[i] == 0 {
		proof.C1 = zlcrypto.Lxor(c, proof.C2, p.W)
		proof.Z1 = proof.B1.Add(proof.C1.Mul(e.IDHash))
		proof.Z2 = proof.B2.Add(proof.C1.Mul(e.RBits[i]))
		return
	}
	proof.C2 = zlcrypto.Lxor(c, proof.C1, p.W)
	proof.Z3 = proof.B3.Add(proof.C2.Mul(e.IDHash))
	proof.Z4 = proof.B4.Add(proof.C2.Mul(e.RBits[i]))
}

// GenProof runs begin, challenge and complete for bit i and stores the
// result on e.LBP[i].
func (p *Processor) GenProof(rnd io.Reader, e *ledger.LedgerEntry, i int, g, h, f zlcrypto.Point) error {
	proof, err := p.BeginProof(rnd, e, i, g, h, f)
	if err != nil {
		return err
	}
	c := p.ChallengeProof(g, h, f, e.LBC[i], &proof)
	p.CompleteProof(e, i, c, &proof)
	e.LBP[i] = proof
	return nil
}

// GenProofs runs GenProof for every bit of e.
func (p *Processor) GenProofs(rnd io.Reader, e *ledger.LedgerEntry, g, h, f zlcrypto.Point) error {
	for i := 0; i < e.V; i++ {
		if err := p.GenProof(rnd, e, i, g, h, f); err != nil {
			return err
		}
	}
	return nil
}

// VerifyProof recomputes the challenge and checks both branch equations
// plus the challenge split c1 xor c2 = c.
func (p *Processor) VerifyProof(g, h, f, lbc zlcrypto.Point, proof *ledger.LedgerBitProof) bool {
	c := p.ChallengeProof(g, h, f, lbc, proof)
	if !zlcrypto.Lxor(proof.C1, proof.C2, p.W).Equal(c) {
		return false
	}

	one := zlcrypto.ScalarFromUint64(1)
	lhs1 := g.ScalarMult(proof.Z1).Add(f.ScalarMult(proof.Z2))
	rhs1 := lbc.ScalarMult(proof.C1).Add(proof.Gamma1)
	if !lhs1.Equal(rhs1) {
		return false
	}

	lhs2 := g.ScalarMult(proof.Z3).Add(h.ScalarMult(one.Add(proof.C2))).Add(f.ScalarMult(proof.Z4))
	rhs2 := lbc.ScalarMult(proof.C2).Add(proof.Gamma2)
	return lhs2.Equal(rhs2)
}

// VerifyProofs checks every bit proof of e, ANDing the results.
func (p *Processor) VerifyProofs(g, h, f zlcrypto.Point, e *ledger.LedgerEntry) bool {
	for i := 0; i < e.V; i++ {
		if !p.VerifyProof(g, h, f, e.LBC[i], &e.LBP[i]) {
			return false
		}
	}
	return true
}
