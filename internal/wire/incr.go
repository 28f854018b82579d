// incr.go implements the incremental state file of spec §6: the prior
// proof's per-entry commit-phase state, reusable by -i to drive the
// incremental variants of lep.BeginProof and lbp.BeginProof. The ingest
// pool (spec §5) reads this file in raw-string batches of size G, then
// parses each batch into scalars/points off the shared-lock path, then
// inserts into a shared id-keyed map -- IncrReader.ReadRaw returns one
// record's raw tokens at a time and ParseRaw converts them, so a caller
// can implement exactly that batching.
package wire

import (
	"bufio"
	"fmt"
	"io"

	"github.com/jackdoerner/zeroledge/internal/ledger"
	"github.com/jackdoerner/zeroledge/internal/zlcrypto"
)

// IncrWriter emits the incremental file. Construct once per proof run
// with the proof's own timestamp; WriteEntry is safe to call under the
// pipeline's incr lock, once per finished entry.
type IncrWriter struct {
	w   *bufio.Writer
	v   int
	err error
}

// NewIncrWriter writes the leading proofTime line and returns a writer
// ready for WriteEntry calls.
func NewIncrWriter(w io.Writer, proofTime int64, v int) (*IncrWriter, error) {
	iw := &IncrWriter{w: bufio.NewWriter(w), v: v}
	iw.tok(fmt.Sprintf("%d", proofTime))
	iw.nl()
	return iw, iw.err
}

func (iw *IncrWriter) tok(s string) {
	if iw.err != nil {
		return
	}
	if _, err := iw.w.WriteString(s); err != nil {
		iw.err = err
		return
	}
	if err := iw.w.WriteByte(' '); err != nil {
		iw.err = err
	}
}

func (iw *IncrWriter) nl() {
	if iw.err != nil {
		return
	}
	iw.err = iw.w.WriteByte('\n')
}

func (iw *IncrWriter) point(p zlcrypto.Point) {
	x, y := EncodePointFields(p)
	iw.tok(x)
	iw.tok(y)
}

func (iw *IncrWriter) scalar(s zlcrypto.Scalar) {
	iw.tok(EncodeScalar(s))
}

// WriteEntry writes one finished entry's incremental record at the given
// proof-order index. The per-bit gamma/b1/b2 fields select branch 1 (bit
// 0: gamma1, b1, b2) or branch 2 (bit 1: gamma2, b3, b4) per bit, per
// spec §6.
func (iw *IncrWriter) WriteEntry(index int, e *ledger.LedgerEntry) error {
	iw.tok(fmt.Sprintf("%d", index))
	iw.tok(e.ID)
	iw.tok(fmt.Sprintf("%d", e.Balance))

	for i := 0; i < iw.v; i++ {
		iw.point(e.LBC[i])
	}
	iw.point(e.LEC)
	for i := 0; i < iw.v; i++ {
		if e.Bits[i] == 0 {
			iw.point(e.LBP[i].Gamma1)
		} else {
			iw.point(e.LBP[i].Gamma2)
		}
	}
	iw.point(e.LEP.Gamma)

	for i := 0; i < iw.v; i++ {
		iw.scalar(e.RBits[i])
	}
	iw.scalar(e.R)

	for i := 0; i < iw.v; i++ {
		if e.Bits[i] == 0 {
			iw.scalar(e.LBP[i].B1)
		} else {
			iw.scalar(e.LBP[i].B3)
		}
	}
	for i := 0; i < iw.v; i++ {
		if e.Bits[i] == 0 {
			iw.scalar(e.LBP[i].B2)
		} else {
			iw.scalar(e.LBP[i].B4)
		}
	}
	iw.scalar(e.LEP.B1)
	iw.scalar(e.LEP.B2)
	iw.scalar(e.LEP.B3)
	iw.nl()
	return iw.err
}

// Close flushes the writer.
func (iw *IncrWriter) Close() error {
	if iw.err != nil {
		return iw.err
	}
	return iw.w.Flush()
}

// IncrReader parses the incremental file for import.
type IncrReader struct {
	sc *bufio.Scanner
	v  int
}

// NewIncrReader reads the leading proofTime line and returns a reader
// ready for repeated ReadEntry calls, along with that timestamp.
func NewIncrReader(r io.Reader, v int) (*IncrReader, int64, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 32<<20)
	sc.Split(bufio.ScanWords)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("wire: empty incremental file")
	}
	var t int64
	if _, err := fmt.Sscanf(sc.Text(), "%d", &t); err != nil {
		return nil, 0, fmt.Errorf("wire: invalid proofTime %q: %w", sc.Text(), err)
	}
	return &IncrReader{sc: sc, v: v}, t, nil
}

func (ir *IncrReader) next() (string, error) {
	if !ir.sc.Scan() {
		if err := ir.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return ir.sc.Text(), nil
}

// RawIncrRecord holds one incremental record as unparsed string tokens.
// ReadRaw does only the tokenisation; it is meant to be called under the
// ingest pool's shared source lock, with ParseRaw (no I/O, no locking)
// run afterwards -- mirroring calcLoop's "copy strings under the lock,
// ingest into bignums and curve points after releasing it" discipline.
type RawIncrRecord struct {
	ID         string
	BalanceTok string

	LBCTok      [][2]string
	LECTok      [2]string
	LBPGammaTok [][2]string
	LEPGammaTok [2]string
	LBPRTok     []string
	RTok        string
	LBPB1Tok    []string
	LBPB2Tok    []string
	LEPB1Tok    string
	LEPB2Tok    string
	LEPB3Tok    string
}

// ReadRaw reads one record's tokens, or returns io.EOF at end of file.
func (ir *IncrReader) ReadRaw() (*RawIncrRecord, error) {
	if _, err := ir.next(); err != nil { // index: positional only, not retained
		return nil, err
	}
	rec := &RawIncrRecord{}
	var err error
	if rec.ID, err = ir.next(); err != nil {
		return nil, err
	}
	if rec.BalanceTok, err = ir.next(); err != nil {
		return nil, err
	}

	readPair := func() ([2]string, error) {
		var pair [2]string
		if pair[0], err = ir.next(); err != nil {
			return pair, err
		}
		pair[1], err = ir.next()
		return pair, err
	}

	rec.LBCTok = make([][2]string, ir.v)
	for i := 0; i < ir.v; i++ {
		if rec.LBCTok[i], err = readPair(); err != nil {
			return nil, err
		}
	}
	if rec.LECTok, err = readPair(); err != nil {
		return nil, err
	}
	rec.LBPGammaTok = make([][2]string, ir.v)
	for i := 0; i < ir.v; i++ {
		if rec.LBPGammaTok[i], err = readPair(); err != nil {
			return nil, err
		}
	}
	if rec.LEPGammaTok, err = readPair(); err != nil {
		return nil, err
	}

	rec.LBPRTok = make([]string, ir.v)
	for i := 0; i < ir.v; i++ {
		if rec.LBPRTok[i], err = ir.next(); err != nil {
			return nil, err
		}
	}
	if rec.RTok, err = ir.next(); err != nil {
		return nil, err
	}
	rec.LBPB1Tok = make([]string, ir.v)
	for i := 0; i < ir.v; i++ {
		if rec.LBPB1Tok[i], err = ir.next(); err != nil {
			return nil, err
		}
	}
	rec.LBPB2Tok = make([]string, ir.v)
	for i := 0; i < ir.v; i++ {
		if rec.LBPB2Tok[i], err = ir.next(); err != nil {
			return nil, err
		}
	}
	if rec.LEPB1Tok, err = ir.next(); err != nil {
		return nil, err
	}
	if rec.LEPB2Tok, err = ir.next(); err != nil {
		return nil, err
	}
	if rec.LEPB3Tok, err = ir.next(); err != nil {
		return nil, err
	}
	return rec, nil
}

// ParseRaw converts a raw record's tokens into an IncrEntry. Pure
// function, no I/O: safe to call after the source lock has been
// released.
func ParseRaw(rec *RawIncrRecord, v int) (string, *ledger.IncrEntry, error) {
	balance, err := ParseDecimalUint64(rec.BalanceTok)
	if err != nil {
		return "", nil, err
	}
	ie := &ledger.IncrEntry{Balance: balance}

	ie.LBC = make([]zlcrypto.Point, v)
	for i := 0; i < v; i++ {
		if ie.LBC[i], err = DecodePointFields(rec.LBCTok[i][0], rec.LBCTok[i][1]); err != nil {
			return "", nil, err
		}
	}
	if ie.LEC, err = DecodePointFields(rec.LECTok[0], rec.LECTok[1]); err != nil {
		return "", nil, err
	}
	ie.LBPGamma = make([]zlcrypto.Point, v)
	for i := 0; i < v; i++ {
		if ie.LBPGamma[i], err = DecodePointFields(rec.LBPGammaTok[i][0], rec.LBPGammaTok[i][1]); err != nil {
			return "", nil, err
		}
	}
	if ie.LEPGamma, err = DecodePointFields(rec.LEPGammaTok[0], rec.LEPGammaTok[1]); err != nil {
		return "", nil, err
	}

	ie.LBPR = make([]zlcrypto.Scalar, v)
	for i := 0; i < v; i++ {
		if ie.LBPR[i], err = DecodeScalar(rec.LBPRTok[i]); err != nil {
			return "", nil, err
		}
	}
	if ie.R, err = DecodeScalar(rec.RTok); err != nil {
		return "", nil, err
	}
	ie.LBPB1 = make([]zlcrypto.Scalar, v)
	for i := 0; i < v; i++ {
		if ie.LBPB1[i], err = DecodeScalar(rec.LBPB1Tok[i]); err != nil {
			return "", nil, err
		}
	}
	ie.LBPB2 = make([]zlcrypto.Scalar, v)
	for i := 0; i < v; i++ {
		if ie.LBPB2[i], err = DecodeScalar(rec.LBPB2Tok[i]); err != nil {
			return "", nil, err
		}
	}
	if ie.LEPB1, err = DecodeScalar(rec.LEPB1Tok); err != nil {
		return "", nil, err
	}
	if ie.LEPB2, err = DecodeScalar(rec.LEPB2Tok); err != nil {
		return "", nil, err
	}
	if ie.LEPB3, err = DecodeScalar(rec.LEPB3Tok); err != nil {
		return "", nil, err
	}

	ie.Bit = make([]uint8, v)
	for i := 0; i < v; i++ {
		ie.Bit[i] = uint8((balance >> uint(i)) & 1)
	}
	return rec.ID, ie, nil
}

// ReadEntry reads and parses one incremental record in a single call, or
// returns io.EOF once the file is exhausted. A convenience for callers
// that do not need the raw/parse split (e.g. tests, single-threaded
// tools); the ingest pool uses ReadRaw and ParseRaw directly instead.
func (ir *IncrReader) ReadEntry() (string, *ledger.IncrEntry, error) {
	rec, err := ir.ReadRaw()
	if err != nil {
		return "", nil, err
	}
	return ParseRaw(rec, ir.v)
}
