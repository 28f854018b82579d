package wire

import (
	"bufio"
	"fmt"
	"io"

	"github.com/jackdoerner/zeroledge/internal/zlcrypto"
)

// OpenerRecord is one line of the entries-opener file (spec §6):
// "<index> <id> <balance_base10> <r_base64>". A customer's opener lets a
// verifier check that a specific (id, balance) pair is the entry at
// Index in the proof's entry list.
type OpenerRecord struct {
	Index   int
	ID      string
	Balance uint64
	R       zlcrypto.Scalar
}

// WriteOpenerRecord appends one opener line.
func WriteOpenerRecord(w io.Writer, rec OpenerRecord) error {
	_, err := fmt.Fprintf(w, "%d %s %d %s\n", rec.Index, rec.ID, rec.Balance, EncodeScalar(rec.R))
	return err
}

// ReadOpenerRecords parses the entries-opener file in full; it is always
// small (one line per disclosed account) and consumed whole by the
// verifier's -k flag.
func ReadOpenerRecords(r io.Reader) ([]OpenerRecord, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	sc.Split(bufio.ScanWords)

	var recs []OpenerRecord
	for sc.Scan() {
		idxTok := sc.Text()
		var idx int
		if _, err := fmt.Sscanf(idxTok, "%d", &idx); err != nil {
			return nil, fmt.Errorf("wire: invalid opener index %q: %w", idxTok, err)
		}
		if !sc.Scan() {
			return nil, fmt.Errorf("wire: truncated opener record at index %d", idx)
		}
		id := sc.Text()
		if !sc.Scan() {
			return nil, fmt.Errorf("wire: truncated opener record for id %q", id)
		}
		balance, err := ParseDecimalUint64(sc.Text())
		if err != nil {
			return nil, err
		}
		if !sc.Scan() {
			return nil, fmt.Errorf("wire: truncated opener record for id %q", id)
		}
		r, err := DecodeScalar(sc.Text())
		if err != nil {
			return nil, err
		}
		recs = append(recs, OpenerRecord{Index: idx, ID: id, Balance: balance, R: r})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}
