package zlcrypto

import (
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// ErrInvalidPoint is returned when a compressed encoding does not decode to
// a point on the curve.
var ErrInvalidPoint = errors.New("zlcrypto: invalid point encoding")

// Point is an element of the secp256k1 prime-order subgroup, represented
// internally in Jacobian coordinates to avoid a field inversion on every
// addition.
type Point struct {
	p secp256k1.JacobianPoint
}

// Identity returns the point at infinity.
func Identity() Point {
	var p secp256k1.JacobianPoint
	p.X.SetInt(0)
	p.Y.SetInt(0)
	p.Z.SetInt(0)
	return Point{p}
}

// BasePoint returns the curve's standard base point G (used only to derive
// the protocol's own g, h, f generators; the protocol never hashes or
// commits against the standard G directly).
func BasePoint() Point {
	return ScalarBaseMult(ScalarFromUint64(1))
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	var r secp256k1.JacobianPoint
	secp256k1.AddNonConst(&p.p, &q.p, &r)
	return Point{r}
}

// Negate returns -p (same x, negated y).
func (p Point) Negate() Point {
	ap := p.p
	ap.ToAffine()
	var negY secp256k1.FieldVal
	negY.Set(&ap.Y).Negate(1).Normalize()
	var r secp256k1.JacobianPoint
	r.X = ap.X
	r.Y = negY
	r.Z.SetInt(1)
	return Point{r}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return p.Add(q.Negate())
}

// ScalarMult returns s*p.
func (p Point) ScalarMult(s Scalar) Point {
	var r secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(s.modScalar(), &p.p, &r)
	return Point{r}
}

// ScalarBaseMult returns s*G, where G is the curve's standard base point.
func ScalarBaseMult(s Scalar) Point {
	var r secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(s.modScalar(), &r)
	return Point{r}
}

// Equal reports whether p and q denote the same affine point.
func (p Point) Equal(q Point) bool {
	ap, aq := p.p, q.p
	ap.ToAffine()
	aq.ToAffine()
	if ap.Z.IsZero() != aq.Z.IsZero() {
		return false
	}
	if ap.Z.IsZero() {
		return true // both identity
	}
	return ap.X.Equals(&aq.X) && ap.Y.Equals(&aq.Y)
}

// Compressed returns the (x, y_lsb) encoding described in spec §4.1: x is
// the affine x-coordinate serialised big-endian to 32 bytes, and y_lsb is
// the parity bit of the affine y-coordinate.
func (p Point) Compressed() (x [32]byte, yLSB byte) {
	ap := p.p
	ap.ToAffine()
	xb := ap.X.Bytes()
	lsb := byte(0)
	if ap.Y.IsOdd() {
		lsb = 1
	}
	return *xb, lsb
}

// CompressedBytes returns the 33-byte concatenation x||y_lsb used as the
// transcript-hash input for this point (spec §4.1, §9: "raw compressed
// point bytes").
func (p Point) CompressedBytes() []byte {
	x, lsb := p.Compressed()
	out := make([]byte, 33)
	copy(out, x[:])
	out[32] = lsb
	return out
}

// DecompressPoint reconstructs a point from its (x, y_lsb) encoding by
// forging a standard SEC1 compressed-key prefix (0x02 for even y, 0x03 for
// odd y) and delegating to ParsePubKey, which validates x^3+7 has a square
// root and selects the root matching the parity bit.
func DecompressPoint(x [32]byte, yLSB byte) (Point, error) {
	prefix := byte(0x02) | (yLSB & 1)
	serialized := make([]byte, 33)
	serialized[0] = prefix
	copy(serialized[1:], x[:])

	pk, err := secp256k1.ParsePubKey(serialized)
	if err != nil {
		return Point{}, ErrInvalidPoint
	}
	var j secp256k1.JacobianPoint
	pk.AsJacobian(&j)
	return Point{j}, nil
}

// DeriveBase implements try-and-increment base derivation (spec §3, §9):
// starting from seed, it searches successive big-endian 32-byte encodings
// for the smallest value >= seed that is a valid compressed x-coordinate
// (even-y branch, matching the reference generator's unconditional
// even-parity convention), returning both the resulting point and the seed
// that produced it so verifiers can repeat the same search.
func DeriveBase(seed uint64) (Point, uint64) {
	s := seed
	for {
		var buf [32]byte
		putUint64BE(buf[24:], s)
		p, err := DecompressPoint(buf, 0)
		if err == nil {
			return p, s
		}
		s++
	}
}

func putUint64BE(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}
