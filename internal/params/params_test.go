package params

import (
	"strings"
	"testing"
)

const validCurveFile = "256 " +
	"fffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2f " +
	"0000000000000000000000000000000000000000000000000000000000000000 " +
	"0000000000000000000000000000000000000000000000000000000000000007 " +
	"fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141 " +
	"79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798 " +
	"483ada7726a3c4655da4fbfc0e1108a8fd17b448a68554199c47d08ffb10d4b8"

func TestParseCurveFileAcceptsSecp256k1Parameters(t *testing.T) {
	c, err := ParseCurveFile(strings.NewReader(validCurveFile))
	if err != nil {
		t.Fatalf("ParseCurveFile: %v", err)
	}
	if c.Bits != 256 {
		t.Fatalf("expected Bits 256, got %d", c.Bits)
	}
}

func TestParseCurveFileRejectsWrongPrime(t *testing.T) {
	bad := strings.Replace(validCurveFile,
		"fffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2f",
		"fffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2e",
		1)
	if _, err := ParseCurveFile(strings.NewReader(bad)); err == nil {
		t.Fatalf("expected an error for a curve file with the wrong field prime")
	}
}

func TestParseCurveFileRejectsMalformedInput(t *testing.T) {
	if _, err := ParseCurveFile(strings.NewReader("not enough fields")); err == nil {
		t.Fatalf("expected an error for a truncated curve file")
	}
}

func TestParseBasesFileDerivesDeterministicBases(t *testing.T) {
	b1, err := ParseBasesFile(strings.NewReader("1 2 3"))
	if err != nil {
		t.Fatalf("ParseBasesFile: %v", err)
	}
	b2, err := ParseBasesFile(strings.NewReader("1 2 3"))
	if err != nil {
		t.Fatalf("ParseBasesFile: %v", err)
	}
	if !b1.G.Equal(b2.G) || !b1.H.Equal(b2.H) || !b1.F.Equal(b2.F) {
		t.Fatalf("ParseBasesFile is not deterministic across identical seed files")
	}
}

func TestDeriveBasesProducesDistinctBases(t *testing.T) {
	b := DeriveBases(1, 2, 3)
	if b.G.Equal(b.H) || b.H.Equal(b.F) || b.G.Equal(b.F) {
		t.Fatalf("expected g, h, f to be distinct points")
	}
}
