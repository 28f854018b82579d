package wire

import (
	"bytes"
	"math/big"
	"strings"
	"testing"

	"github.com/jackdoerner/zeroledge/internal/ledger"
	"github.com/jackdoerner/zeroledge/internal/zlcrypto"
)

func TestLexicalBigIntRoundTrip(t *testing.T) {
	vals := []int64{0, 1, 63, 64, 65, 4095, 1 << 20, 1<<62 - 1}
	for _, v := range vals {
		s := EncodeBigInt(big.NewInt(v))
		got, err := DecodeBigInt(s)
		if err != nil {
			t.Fatalf("DecodeBigInt(%q): %v", s, err)
		}
		if got.Int64() != v {
			t.Fatalf("round trip %d: got %d via %q", v, got.Int64(), s)
		}
	}
}

func TestLexicalBigIntZero(t *testing.T) {
	if EncodeBigInt(big.NewInt(0)) != "0" {
		t.Fatalf("expected \"0\"")
	}
}

func TestDecodeBigIntRejectsInvalidDigit(t *testing.T) {
	if _, err := DecodeBigInt("abc!"); err == nil {
		t.Fatalf("expected error for invalid digit")
	}
}

func TestScalarCodecRoundTrip(t *testing.T) {
	s := zlcrypto.ScalarFromUint64(123456789)
	tok := EncodeScalar(s)
	got, err := DecodeScalar(tok)
	if err != nil {
		t.Fatalf("DecodeScalar: %v", err)
	}
	if !got.Equal(s) {
		t.Fatalf("scalar round trip mismatch")
	}
}

func TestPointFieldsRoundTrip(t *testing.T) {
	p := zlcrypto.BasePoint().ScalarMult(zlcrypto.ScalarFromUint64(7))
	xTok, yTok := EncodePointFields(p)
	got, err := DecodePointFields(xTok, yTok)
	if err != nil {
		t.Fatalf("DecodePointFields: %v", err)
	}
	if !got.Equal(p) {
		t.Fatalf("point round trip mismatch")
	}
}

func TestLedgerSourceReadBatch(t *testing.T) {
	src, err := NewLedgerSource(strings.NewReader("100 alice 10 bob 20 carol 30"))
	if err != nil {
		t.Fatalf("NewLedgerSource: %v", err)
	}
	if src.TotalAssets != 100 {
		t.Fatalf("TotalAssets = %d, want 100", src.TotalAssets)
	}
	batch := src.ReadBatch(2)
	if len(batch) != 2 || batch[0].ID != "alice" || batch[1].ID != "bob" {
		t.Fatalf("unexpected first batch: %+v", batch)
	}
	batch = src.ReadBatch(2)
	if len(batch) != 1 || batch[0].ID != "carol" {
		t.Fatalf("unexpected second batch: %+v", batch)
	}
	if len(src.ReadBatch(2)) != 0 {
		t.Fatalf("expected empty batch at EOF")
	}
}

func TestLedgerSourceRejectsNonDecimalAssets(t *testing.T) {
	if _, err := NewLedgerSource(strings.NewReader("not-a-number alice 10")); err == nil {
		t.Fatalf("expected error for non-decimal TotalAssets")
	}
}

func TestProofWriterReaderRoundTrip(t *testing.T) {
	g := zlcrypto.BasePoint()
	h := zlcrypto.BasePoint().ScalarMult(zlcrypto.ScalarFromUint64(2))
	f := zlcrypto.BasePoint().ScalarMult(zlcrypto.ScalarFromUint64(3))
	const v = 4

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteHeader(100, 1700000000, v, g, h, f); err != nil {
		t.Fatalf("WriteHeader: %v", err)
	}

	mkEntry := func(seed uint64) *ledger.LedgerEntry {
		e := &ledger.LedgerEntry{V: v}
		e.LEC = g.ScalarMult(zlcrypto.ScalarFromUint64(seed))
		e.LEP = ledger.LedgerEntryProof{
			Gamma: h.ScalarMult(zlcrypto.ScalarFromUint64(seed + 1)),
			Z1:    zlcrypto.ScalarFromUint64(seed + 2),
			Z2:    zlcrypto.ScalarFromUint64(seed + 3),
			Z3:    zlcrypto.ScalarFromUint64(seed + 4),
		}
		e.LBC = make([]zlcrypto.Point, v)
		e.LBP = make([]ledger.LedgerBitProof, v)
		for i := 0; i < v; i++ {
			e.LBC[i] = f.ScalarMult(zlcrypto.ScalarFromUint64(seed + uint64(i) + 10))
			e.LBP[i] = ledger.LedgerBitProof{
				Gamma1: g.ScalarMult(zlcrypto.ScalarFromUint64(seed + uint64(i) + 20)),
				Gamma2: h.ScalarMult(zlcrypto.ScalarFromUint64(seed + uint64(i) + 30)),
				C1:     zlcrypto.ScalarFromUint64(seed + uint64(i) + 40),
				Z1:     zlcrypto.ScalarFromUint64(seed + uint64(i) + 50),
				Z2:     zlcrypto.ScalarFromUint64(seed + uint64(i) + 60),
				Z3:     zlcrypto.ScalarFromUint64(seed + uint64(i) + 70),
				Z4:     zlcrypto.ScalarFromUint64(seed + uint64(i) + 80),
			}
		}
		return e
	}

	entries := []*ledger.LedgerEntry{mkEntry(1), mkEntry(100)}
	for _, e := range entries {
		if err := w.WriteEntry(e); err != nil {
			t.Fatalf("WriteEntry: %v", err)
		}
	}
	if err := w.BeginDifferenceSection(); err != nil {
		t.Fatalf("BeginDifferenceSection: %v", err)
	}
	for i := 0; i < v; i++ {
		dbc := g.ScalarMult(zlcrypto.ScalarFromUint64(uint64(i) + 1000))
		proof := ledger.DifferenceBitProof{
			Gamma1: h.ScalarMult(zlcrypto.ScalarFromUint64(uint64(i) + 1010)),
			Gamma2: f.ScalarMult(zlcrypto.ScalarFromUint64(uint64(i) + 1020)),
			C1:     zlcrypto.ScalarFromUint64(uint64(i) + 1030),
			Z1:     zlcrypto.ScalarFromUint64(uint64(i) + 1040),
			Z2:     zlcrypto.ScalarFromUint64(uint64(i) + 1050),
			Z3:     zlcrypto.ScalarFromUint64(uint64(i) + 1060),
			Z4:     zlcrypto.ScalarFromUint64(uint64(i) + 1070),
		}
		if err := w.WriteDifferenceBit(dbc, proof); err != nil {
			t.Fatalf("WriteDifferenceBit: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := NewReader(&buf)
	hdr, err := r.ReadHeader()
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if hdr.Assets != 100 || hdr.Time != 1700000000 || hdr.Bits != v {
		t.Fatalf("unexpected header: %+v", hdr)
	}
	if !hdr.G.Equal(g) || !hdr.H.Equal(h) || !hdr.F.Equal(f) {
		t.Fatalf("bases did not round trip")
	}

	gotEntries, err := r.ReadEntries()
	if err != nil {
		t.Fatalf("ReadEntries: %v", err)
	}
	if len(gotEntries) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(gotEntries), len(entries))
	}
	for idx, want := range entries {
		got := gotEntries[idx]
		if !got.LEC.Equal(want.LEC) {
			t.Fatalf("entry %d: LEC mismatch", idx)
		}
		if !got.LEP.Gamma.Equal(want.LEP.Gamma) || !got.LEP.Z1.Equal(want.LEP.Z1) {
			t.Fatalf("entry %d: LEP mismatch", idx)
		}
		for i := 0; i < v; i++ {
			if !got.LBC[i].Equal(want.LBC[i]) {
				t.Fatalf("entry %d bit %d: LBC mismatch", idx, i)
			}
			if !got.LBP[i].C1.Equal(want.LBP[i].C1) {
				t.Fatalf("entry %d bit %d: C1 mismatch", idx, i)
			}
		}
	}

	diffBits, err := r.ReadDifferenceBits()
	if err != nil {
		t.Fatalf("ReadDifferenceBits: %v", err)
	}
	if len(diffBits) != v {
		t.Fatalf("got %d difference bits, want %d", len(diffBits), v)
	}
}

func TestOpenerRecordRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	rec := OpenerRecord{Index: 3, ID: "alice", Balance: 42, R: zlcrypto.ScalarFromUint64(999)}
	if err := WriteOpenerRecord(&buf, rec); err != nil {
		t.Fatalf("WriteOpenerRecord: %v", err)
	}
	got, err := ReadOpenerRecords(&buf)
	if err != nil {
		t.Fatalf("ReadOpenerRecords: %v", err)
	}
	if len(got) != 1 || got[0].ID != "alice" || got[0].Balance != 42 || got[0].Index != 3 {
		t.Fatalf("unexpected opener records: %+v", got)
	}
	if !got[0].R.Equal(rec.R) {
		t.Fatalf("R did not round trip")
	}
}

func TestIncrWriterReaderRoundTrip(t *testing.T) {
	const v = 3
	g := zlcrypto.BasePoint()

	e := &ledger.LedgerEntry{ID: "alice", Balance: 5, V: v}
	e.RBits = make([]zlcrypto.Scalar, v)
	e.Bits = make([]uint8, v)
	e.LBC = make([]zlcrypto.Point, v)
	e.LBP = make([]ledger.LedgerBitProof, v)
	for i := 0; i < v; i++ {
		e.Bits[i] = uint8((e.Balance >> uint(i)) & 1)
		e.RBits[i] = zlcrypto.ScalarFromUint64(uint64(i) + 1)
		e.LBC[i] = g.ScalarMult(zlcrypto.ScalarFromUint64(uint64(i) + 10))
		e.LBP[i] = ledger.LedgerBitProof{
			Gamma1: g.ScalarMult(zlcrypto.ScalarFromUint64(uint64(i) + 20)),
			Gamma2: g.ScalarMult(zlcrypto.ScalarFromUint64(uint64(i) + 30)),
			B1:     zlcrypto.ScalarFromUint64(uint64(i) + 40),
			B2:     zlcrypto.ScalarFromUint64(uint64(i) + 50),
			B3:     zlcrypto.ScalarFromUint64(uint64(i) + 60),
			B4:     zlcrypto.ScalarFromUint64(uint64(i) + 70),
		}
	}
	e.R = zlcrypto.ScalarFromUint64(777)
	e.LEC = g.ScalarMult(zlcrypto.ScalarFromUint64(888))
	e.LEP = ledger.LedgerEntryProof{
		Gamma: g.ScalarMult(zlcrypto.ScalarFromUint64(900)),
		B1:    zlcrypto.ScalarFromUint64(901),
		B2:    zlcrypto.ScalarFromUint64(902),
		B3:    zlcrypto.ScalarFromUint64(903),
	}

	var buf bytes.Buffer
	iw, err := NewIncrWriter(&buf, 1700000000, v)
	if err != nil {
		t.Fatalf("NewIncrWriter: %v", err)
	}
	if err := iw.WriteEntry(0, e); err != nil {
		t.Fatalf("WriteEntry: %v", err)
	}
	if err := iw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ir, proofTime, err := NewIncrReader(&buf, v)
	if err != nil {
		t.Fatalf("NewIncrReader: %v", err)
	}
	if proofTime != 1700000000 {
		t.Fatalf("proofTime = %d, want 1700000000", proofTime)
	}
	id, ie, err := ir.ReadEntry()
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if id != "alice" {
		t.Fatalf("id = %q, want alice", id)
	}
	if ie.Balance != 5 {
		t.Fatalf("Balance = %d, want 5", ie.Balance)
	}
	if !ie.LEC.Equal(e.LEC) {
		t.Fatalf("LEC mismatch")
	}
	if !ie.R.Equal(e.R) {
		t.Fatalf("R mismatch")
	}
	for i := 0; i < v; i++ {
		if !ie.LBC[i].Equal(e.LBC[i]) {
			t.Fatalf("LBC[%d] mismatch", i)
		}
		if ie.Bit[i] != e.Bits[i] {
			t.Fatalf("Bit[%d] mismatch", i)
		}
		wantGamma := e.LBP[i].Gamma1
		wantB1 := e.LBP[i].B1
		wantB2 := e.LBP[i].B2
		if e.Bits[i] == 1 {
			wantGamma = e.LBP[i].Gamma2
			wantB1 = e.LBP[i].B3
			wantB2 = e.LBP[i].B4
		}
		if !ie.LBPGamma[i].Equal(wantGamma) {
			t.Fatalf("LBPGamma[%d] mismatch", i)
		}
		if !ie.LBPB1[i].Equal(wantB1) || !ie.LBPB2[i].Equal(wantB2) {
			t.Fatalf("LBPB1/B2[%d] mismatch", i)
		}
	}
	if _, _, err := ir.ReadEntry(); err == nil {
		t.Fatalf("expected io.EOF at end of incremental file")
	}
}
