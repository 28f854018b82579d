// Package ledger implements the data model of spec §3: per-entry state
// (LedgerEntry) and ledger-wide aggregate state (Ledger), along with the
// structural identities (I1, I2) that bind per-entry bit commitments to
// entry commitments, and entry commitments to the ledger-wide difference
// commitment. Processors (lep, lbp, dbp) are pure functions over the types
// defined here; neither LedgerEntry nor Ledger holds a pointer back into a
// processor, per the "cyclic references are a convenience, not a design"
// note in spec §9.
package ledger

import "github.com/jackdoerner/zeroledge/internal/zlcrypto"

// LedgerEntryProof is the non-interactive Σ-protocol transcript produced by
// the LEP processor for a single entry: the commitment opening (z1,z2,z3),
// the challenge c, and gamma. B1-B3 are the prover's commit-phase nonces,
// retained only so a later incremental proof can scale them; they are
// never written to the wire.
type LedgerEntryProof struct {
	Gamma      zlcrypto.Point
	C          zlcrypto.Scalar
	Z1, Z2, Z3 zlcrypto.Scalar
	B1, B2, B3 zlcrypto.Scalar
}

// LedgerBitProof is the OR-proof transcript for a single committed bit
// (used by both LBP, per value bit, and DBP, per difference bit): two
// branch commitments gamma1/gamma2, a challenge split c1/c2 with
// c1 xor c2 = c, and four responses, of which only the pair belonging to
// the real branch is cryptographically meaningful. B1-B4 are the prover's
// real-branch nonces, retained for incremental chaining.
type LedgerBitProof struct {
	Gamma1, Gamma2 zlcrypto.Point
	C1, C2         zlcrypto.Scalar
	Z1, Z2, Z3, Z4 zlcrypto.Scalar
	B1, B2, B3, B4 zlcrypto.Scalar
}

// DifferenceBitProof is structurally identical to LedgerBitProof; DBP
// reuses the same transcript shape over the ledger-wide difference bits
// (spec §4.4).
type DifferenceBitProof = LedgerBitProof

// IncrEntry is the previous proof's per-entry state, as read back from the
// incremental file (spec §6), sufficient to drive the incremental variants
// of LEP.BeginProof and LBP.BeginProof without recomputing the prior
// proof's commit-phase nonces from scratch.
type IncrEntry struct {
	Balance uint64
	R       zlcrypto.Scalar

	LEC      zlcrypto.Point
	LEPGamma zlcrypto.Point
	LEPB1    zlcrypto.Scalar
	LEPB2    zlcrypto.Scalar
	LEPB3    zlcrypto.Scalar

	LBC      []zlcrypto.Point // length v
	LBPGamma []zlcrypto.Point // gamma1 if bit was 0, gamma2 if bit was 1
	LBPR     []zlcrypto.Scalar
	LBPB1    []zlcrypto.Scalar // b1 (bit 0) or b3 (bit 1)
	LBPB2    []zlcrypto.Scalar // b2 (bit 0) or b4 (bit 1)
	Bit      []uint8
}

// LedgerEntry holds the state of a single customer account as it moves
// through commitment generation and proving.
type LedgerEntry struct {
	ID          string
	IDHash      zlcrypto.Scalar
	IDHashPrime zlcrypto.Scalar
	Balance     uint64
	R           zlcrypto.Scalar
	V           int

	RBits []zlcrypto.Scalar
	Bits  []uint8
	LBC   []zlcrypto.Point
	LBP   []LedgerBitProof

	LEC zlcrypto.Point
	LEP LedgerEntryProof

	Incremental bool
	Prev        *IncrEntry
}

// NewLedgerEntry constructs an entry from its identifier and balance,
// computing the identifier-hash scalars described in spec §3 (x, x').
func NewLedgerEntry(id string, balance uint64, v int) *LedgerEntry {
	e := &LedgerEntry{ID: id, Balance: balance, V: v}
	e.IDHash = zlcrypto.ChallengeHash(256, []byte(id))
	e.IDHashPrime = zlcrypto.TwoPowMinusOne(v).Mul(e.IDHash)

	e.RBits = make([]zlcrypto.Scalar, v)
	e.Bits = make([]uint8, v)
	e.LBC = make([]zlcrypto.Point, v)
	e.LBP = make([]LedgerBitProof, v)
	for i := 0; i < v; i++ {
		e.Bits[i] = uint8((balance >> uint(i)) & 1)
	}
	return e
}

// SetR records the per-bit nonce r_{e,i}.
func (e *LedgerEntry) SetR(i int, r zlcrypto.Scalar) {
	e.RBits[i] = r
}

// ComputeR computes the aggregate entry nonce r_e = sum_i 2^i * r_{e,i}
// (spec §3), to be called once every per-bit nonce has been set.
func (e *LedgerEntry) ComputeR() {
	sum := zlcrypto.Zero()
	for i := 0; i < e.V; i++ {
		sum = sum.Add(zlcrypto.PowTwo(i).Mul(e.RBits[i]))
	}
	e.R = sum
}

// VerifyKnownValues checks the opener equation LEC_e = x'*g + balance*h +
// r*f against an externally supplied (balance, r) pair (spec §6, the
// entries-opener file; used by a customer verifying their own inclusion).
func (e *LedgerEntry) VerifyKnownValues(g, h, f zlcrypto.Point, balance uint64, r zlcrypto.Scalar) bool {
	lhs := g.ScalarMult(e.IDHashPrime).
		Add(h.ScalarMult(zlcrypto.ScalarFromUint64(balance))).
		Add(f.ScalarMult(r))
	return lhs.Equal(e.LEC)
}

// VerifyCommitmentEquivalency checks invariant I1: sum_i 2^i * LBC_{e,i} =
// LEC_e.
func (e *LedgerEntry) VerifyCommitmentEquivalency() bool {
	sum := zlcrypto.Identity()
	for i := 0; i < e.V; i++ {
		sum = sum.Add(e.LBC[i].ScalarMult(zlcrypto.PowTwo(i)))
	}
	return sum.Equal(e.LEC)
}

// Ledger is the aggregate state of spec §3: the running sums needed to
// derive the ledger-wide difference commitment, plus the set of entries
// that have been folded into it.
type Ledger struct {
	G, H, F zlcrypto.Point
	V, W    int

	SumX             zlcrypto.Scalar
	SumXPrime        zlcrypto.Scalar
	TotalLiabilities uint64
	RBitSums         []zlcrypto.Scalar
	TotalCommitment  zlcrypto.Point

	TotalAssets          uint64
	Difference           zlcrypto.Scalar
	DifferenceCommitment zlcrypto.Point
	DBC                  []zlcrypto.Point
	DBP                  []DifferenceBitProof

	Entries []*LedgerEntry
}

// NewLedger constructs an empty ledger (or per-worker partial ledger) over
// the shared generators and protocol widths.
func NewLedger(g, h, f zlcrypto.Point, v, w int) *Ledger {
	return &Ledger{
		G: g, H: h, F: f, V: v, W: w,
		RBitSums:        make([]zlcrypto.Scalar, v),
		TotalCommitment: zlcrypto.Identity(),
	}
}

// AddEntry folds a single finished entry into the ledger's running sums.
func (l *Ledger) AddEntry(e *LedgerEntry) {
	l.SumX = l.SumX.Add(e.IDHash)
	l.SumXPrime = l.SumXPrime.Add(e.IDHashPrime)
	l.TotalLiabilities += e.Balance
	for i := 0; i < l.V; i++ {
		l.RBitSums[i] = l.RBitSums[i].Add(e.RBits[i])
	}
	l.TotalCommitment = l.TotalCommitment.Add(e.LEC)
	l.Entries = append(l.Entries, e)
}

// AppendLedger merges another (partial) ledger's aggregates into l. Used
// by the orchestrator to merge per-worker partial ledgers; order-
// independent, since every aggregate here is a commutative sum or an
// abelian group product (spec §5).
func (l *Ledger) AppendLedger(other *Ledger) {
	l.SumX = l.SumX.Add(other.SumX)
	l.SumXPrime = l.SumXPrime.Add(other.SumXPrime)
	l.TotalLiabilities += other.TotalLiabilities
	for i := 0; i < l.V; i++ {
		l.RBitSums[i] = l.RBitSums[i].Add(other.RBitSums[i])
	}
	l.TotalCommitment = l.TotalCommitment.Add(other.TotalCommitment)
	l.Entries = append(l.Entries, other.Entries...)
}

// ComputeSums freezes the declared asset total and derives the difference
// (spec §3). Difference is represented mod q: an insolvent ledger's
// difference wraps to a value requiring far more than V bits to represent,
// which is what makes the subsequent DBP commitments fail to reconstruct
// DifferenceCommitment (spec §8 scenario 3).
func (l *Ledger) ComputeSums(totalAssets uint64) {
	l.TotalAssets = totalAssets
	l.Difference = zlcrypto.ScalarFromUint64(totalAssets).Sub(zlcrypto.ScalarFromUint64(l.TotalLiabilities))
}

// GenerateCommitments computes DifferenceCommitment and the per-bit
// DBC_i (spec §3): DBC_i = -SumX*g - rBitSum_i*f + b_i(Difference)*h, where
// b_i reads bit i of the (possibly wrapped) Difference scalar.
func (l *Ledger) GenerateCommitments() {
	l.DifferenceCommitment = l.H.ScalarMult(zlcrypto.ScalarFromUint64(l.TotalAssets)).Sub(l.TotalCommitment)

	negSumX := l.SumX.Negate()
	l.DBC = make([]zlcrypto.Point, l.V)
	for i := 0; i < l.V; i++ {
		term := l.G.ScalarMult(negSumX).Add(l.F.ScalarMult(l.RBitSums[i].Negate()))
		if l.Difference.Bit(i) == 1 {
			term = term.Add(l.H)
		}
		l.DBC[i] = term
	}
}

// VerifyCommitmentEquivalency checks invariant I2: sum_i 2^i * DBC_i =
// DifferenceCommitment.
func (l *Ledger) VerifyCommitmentEquivalency() bool {
	sum := zlcrypto.Identity()
	for i := 0; i < l.V; i++ {
		sum = sum.Add(l.DBC[i].ScalarMult(zlcrypto.PowTwo(i)))
	}
	return sum.Equal(l.DifferenceCommitment)
}
