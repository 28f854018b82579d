// Package params handles the two external parameter files named in spec
// §6: the curve file ("bits p a b q x y", hex) and the bases file
// ("gseed hseed fseed", decimal). Since this engine's concrete backend is
// fixed to secp256k1 (see DESIGN.md's curve-backend resolution), the curve
// file's p and q are validated against secp256k1's canonical field prime
// and group order rather than used to parameterize a generic curve; a
// mismatch is a parameter/setup failure (spec §7, kind 1).
package params

import (
	"bufio"
	"fmt"
	"io"
	"math/big"

	"github.com/jackdoerner/zeroledge/internal/zlcrypto"
)

// Canonical secp256k1 constants (SEC 2, https://www.secg.org/sec2-v2.pdf),
// used only to validate the curve file's declared p and q.
const (
	secp256k1PHex = "fffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2f"
	secp256k1QHex = "fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141"
)

// Curve is the parsed contents of the curve parameter file.
type Curve struct {
	Bits    int
	P, A, B, Q *big.Int
	X, Y    *big.Int
}

// ParseCurveFile reads "bits p a b q x y" (all hex except bits, which is
// decimal) and validates p and q against secp256k1.
func ParseCurveFile(r io.Reader) (*Curve, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	sc.Split(bufio.ScanWords)

	tok := func() (string, error) {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", fmt.Errorf("params: unexpected end of curve file")
		}
		return sc.Text(), nil
	}

	bitsTok, err := tok()
	if err != nil {
		return nil, err
	}
	var bits int
	if _, err := fmt.Sscanf(bitsTok, "%d", &bits); err != nil {
		return nil, fmt.Errorf("params: invalid bits field: %w", err)
	}

	hexField := func(name string) (*big.Int, error) {
		s, err := tok()
		if err != nil {
			return nil, err
		}
		v, ok := new(big.Int).SetString(s, 16)
		if !ok {
			return nil, fmt.Errorf("params: invalid hex field %s: %q", name, s)
		}
		return v, nil
	}

	p, err := hexField("p")
	if err != nil {
		return nil, err
	}
	a, err := hexField("a")
	if err != nil {
		return nil, err
	}
	b, err := hexField("b")
	if err != nil {
		return nil, err
	}
	q, err := hexField("q")
	if err != nil {
		return nil, err
	}
	x, err := hexField("x")
	if err != nil {
		return nil, err
	}
	y, err := hexField("y")
	if err != nil {
		return nil, err
	}

	c := &Curve{Bits: bits, P: p, A: a, B: b, Q: q, X: x, Y: y}
	if err := c.validateSecp256k1(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Curve) validateSecp256k1() error {
	wantP, _ := new(big.Int).SetString(secp256k1PHex, 16)
	wantQ, _ := new(big.Int).SetString(secp256k1QHex, 16)
	if c.P.Cmp(wantP) != 0 {
		return fmt.Errorf("params: curve file field p does not match secp256k1 (got %s)", c.P.Text(16))
	}
	if c.Q.Cmp(wantQ) != 0 {
		return fmt.Errorf("params: curve file field q does not match secp256k1 (got %s)", c.Q.Text(16))
	}
	return nil
}

// Bases is the parsed+derived contents of the bases parameter file: the
// three try-and-increment seeds and the generators they derive.
type Bases struct {
	GSeed, HSeed, FSeed uint64
	G, H, F             zlcrypto.Point
}

// ParseBasesFile reads "gseed hseed fseed" (decimal) and derives g, h, f
// via try-and-increment (spec §3, §9).
func ParseBasesFile(r io.Reader) (*Bases, error) {
	var gs, hs, fs uint64
	if _, err := fmt.Fscan(r, &gs, &hs, &fs); err != nil {
		return nil, fmt.Errorf("params: reading bases file: %w", err)
	}
	return DeriveBases(gs, hs, fs), nil
}

// DeriveBases runs try-and-increment base derivation from explicit seeds,
// used both when reading a bases file and when a fresh ledger is created
// from seeds directly (as the test harness for spec §8's end-to-end
// scenarios does).
func DeriveBases(gSeed, hSeed, fSeed uint64) *Bases {
	g, gs := zlcrypto.DeriveBase(gSeed)
	h, hs := zlcrypto.DeriveBase(hSeed)
	f, fs := zlcrypto.DeriveBase(fSeed)
	return &Bases{GSeed: gs, HSeed: hs, FSeed: fs, G: g, H: h, F: f}
}
