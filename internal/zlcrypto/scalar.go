// Package zlcrypto is the crypto primitives adapter: a thin semantic layer
// over github.com/decred/dcrd/dcrec/secp256k1/v4 providing uniform scalar
// sampling, modular scalar arithmetic, point operations on the secp256k1
// prime-order subgroup, compressed point encoding, try-and-increment base
// derivation, and the Fiat-Shamir challenge hash. Every exported operation
// here corresponds to one named in the engine's component design; nothing
// above this package should reach into secp256k1 directly.
package zlcrypto

import (
	"io"
	"math/big"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Scalar is an element of Z_q, where q is the order of the secp256k1
// prime-order subgroup. All arithmetic is performed modulo q; there is no
// way to construct a Scalar outside [0, q).
type Scalar struct {
	v secp256k1.ModNScalar
}

// ScalarFromBytes interprets b as a big-endian integer and reduces it
// modulo q. ok is false if b encoded a value >= q (the caller may still use
// the reduced result; callers that need strict rejection, such as uniform
// sampling, should check ok themselves).
func ScalarFromBytes(b []byte) (s Scalar, ok bool) {
	overflow := s.v.SetByteSlice(b)
	return s, !overflow
}

// ScalarFromUint64 returns the scalar equal to n mod q.
func ScalarFromUint64(n uint64) Scalar {
	var buf [32]byte
	big.NewInt(0).SetUint64(n).FillBytes(buf[:])
	s, _ := ScalarFromBytes(buf[:])
	return s
}

// Zero is the additive identity.
func Zero() Scalar { return Scalar{} }

// RandScalar draws a scalar uniformly from [0, q) using rejection sampling
// over 32 random bytes read from rand.
func RandScalar(rand io.Reader) (Scalar, error) {
	var buf [32]byte
	for {
		if _, err := io.ReadFull(rand, buf[:]); err != nil {
			return Scalar{}, err
		}
		var v secp256k1.ModNScalar
		overflow := v.SetByteSlice(buf[:])
		if overflow {
			continue
		}
		return Scalar{v}, nil
	}
}

// RandBits draws a scalar with exactly w random bits (i.e. uniform over
// [0, 2^w)), without rejection. Used where the protocol calls for a
// w-bit random value rather than a uniform element of Z_q (the simulated
// branch challenge in the OR-proof). The result is still represented mod q:
// on the rare occasion a w-bit value lands >= q it is silently reduced,
// matching the underlying library's value-mod-N convention on every Set*
// call.
func RandBits(rand io.Reader, w int) (Scalar, error) {
	if w <= 0 || w > 256 {
		w = 256
	}
	nbytes := (w + 7) / 8
	buf := make([]byte, nbytes)
	if _, err := io.ReadFull(rand, buf); err != nil {
		return Scalar{}, err
	}
	excess := nbytes*8 - w
	if excess > 0 {
		buf[0] &= 0xFF >> uint(excess)
	}
	var full [32]byte
	copy(full[32-nbytes:], buf)
	var v secp256k1.ModNScalar
	v.SetByteSlice(full[:])
	return Scalar{v}, nil
}

// Add returns s + other mod q.
func (s Scalar) Add(other Scalar) Scalar {
	var r secp256k1.ModNScalar
	r.Add2(&s.v, &other.v)
	return Scalar{r}
}

// Sub returns s - other mod q, canonically reduced into [0, q) (the
// (x mod q + q) mod q discipline is automatic here: ModNScalar never
// represents a negative residue).
func (s Scalar) Sub(other Scalar) Scalar {
	var neg secp256k1.ModNScalar
	neg.Set(&other.v).Negate()
	var r secp256k1.ModNScalar
	r.Add2(&s.v, &neg)
	return Scalar{r}
}

// Mul returns s * other mod q.
func (s Scalar) Mul(other Scalar) Scalar {
	var r secp256k1.ModNScalar
	r.Mul2(&s.v, &other.v)
	return Scalar{r}
}

// Negate returns -s mod q.
func (s Scalar) Negate() Scalar {
	var r secp256k1.ModNScalar
	r.Set(&s.v).Negate()
	return Scalar{r}
}

// IsZero reports whether s is the zero scalar.
func (s Scalar) IsZero() bool { return s.v.IsZero() }

// Equal reports whether s and other represent the same residue.
func (s Scalar) Equal(other Scalar) bool { return s.v.Equals(&other.v) }

// Bytes returns the big-endian 32-byte canonical encoding of s.
func (s Scalar) Bytes() [32]byte { return s.v.Bytes() }

// Bit returns bit i (0 = least significant) of s's canonical encoding.
func (s Scalar) Bit(i int) uint {
	b := s.Bytes()
	byteIdx := 31 - i/8
	if byteIdx < 0 || byteIdx > 31 {
		return 0
	}
	return uint((b[byteIdx] >> uint(i%8)) & 1)
}

// modScalar gives package-internal access to the underlying library type
// for the point/hash files in this package.
func (s Scalar) modScalar() *secp256k1.ModNScalar { return &s.v }

// ScalarFromBigInt reduces bi modulo q. bi must be non-negative.
func ScalarFromBigInt(bi *big.Int) Scalar {
	var buf [32]byte
	bi.FillBytes(buf[:])
	s, _ := ScalarFromBytes(buf[:])
	return s
}

// powersOfTwo caches 2^i mod q for i in [0, 256): the pipeline calls PowTwo
// from many worker goroutines concurrently, so the cache is built once
// under sync.Once rather than grown lazily and unsynchronised.
var (
	powersOfTwo     [256]Scalar
	powersOfTwoOnce sync.Once
)

// PowTwo returns 2^i mod q for 0 <= i < 256.
func PowTwo(i int) Scalar {
	powersOfTwoOnce.Do(func() {
		acc := ScalarFromUint64(1)
		two := ScalarFromUint64(2)
		for idx := 0; idx < len(powersOfTwo); idx++ {
			powersOfTwo[idx] = acc
			acc = acc.Mul(two)
		}
	})
	return powersOfTwo[i]
}

// TwoPowMinusOne returns (2^v - 1) mod q.
func TwoPowMinusOne(v int) Scalar {
	bi := new(big.Int).Lsh(big.NewInt(1), uint(v))
	bi.Sub(bi, big.NewInt(1))
	return ScalarFromBigInt(bi)
}
