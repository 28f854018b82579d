package wire

import (
	"bufio"
	"fmt"
	"io"

	"github.com/holiman/uint256"
)

// RawRecord is one unparsed (id, balance) pair as read from the ledger
// input stream. Keeping it as raw tokens lets a pipeline worker read a
// batch while holding the shared ledger lock and parse it after releasing
// that lock (spec §5: "strings are copied inside the critical section and
// parsed outside").
type RawRecord struct {
	ID         string
	BalanceTok string
}

// LedgerSource wraps the ledger input stream of spec §6: a leading decimal
// TotalAssets token, then whitespace-separated (id, balance) pairs.
type LedgerSource struct {
	sc          *bufio.Scanner
	TotalAssets uint64
}

// NewLedgerSource reads the TotalAssets header and returns a source ready
// for repeated ReadBatch calls.
func NewLedgerSource(r io.Reader) (*LedgerSource, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	sc.Split(bufio.ScanWords)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("wire: reading TotalAssets: %w", err)
		}
		return nil, fmt.Errorf("wire: empty ledger input")
	}
	assets, err := ParseDecimalUint64(sc.Text())
	if err != nil {
		return nil, fmt.Errorf("wire: invalid TotalAssets: %w", err)
	}
	return &LedgerSource{sc: sc, TotalAssets: assets}, nil
}

// ReadBatch reads up to n raw (id, balance) pairs. It returns fewer than n
// (possibly zero) once the stream is exhausted; a trailing id with no
// matching balance token ends the batch without error (spec §7 kind 2: a
// malformed record simply ends this worker's share of the stream).
func (s *LedgerSource) ReadBatch(n int) []RawRecord {
	out := make([]RawRecord, 0, n)
	for len(out) < n {
		if !s.sc.Scan() {
			break
		}
		id := s.sc.Text()
		if !s.sc.Scan() {
			break
		}
		out = append(out, RawRecord{ID: id, BalanceTok: s.sc.Text()})
	}
	return out
}

// ParseDecimalUint64 decodes a base-10 token into a uint64 via
// uint256.Int, rejecting negative, non-numeric, or >64-bit values. Ledger
// balances and the declared asset total are fixed-width non-negative
// quantities well under 256 bits -- uint256.Int's intended domain -- so a
// general-purpose fixed-width unsigned decimal type is the natural parser
// here rather than math/big's unbounded one.
func ParseDecimalUint64(tok string) (uint64, error) {
	var u uint256.Int
	if err := u.SetFromDecimal(tok); err != nil {
		return 0, fmt.Errorf("wire: invalid decimal value %q: %w", tok, err)
	}
	if !u.IsUint64() {
		return 0, fmt.Errorf("wire: decimal value %q exceeds 64 bits", tok)
	}
	return u.Uint64(), nil
}
