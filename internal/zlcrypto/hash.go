package zlcrypto

import (
	"crypto/sha256"
	"math/big"
)

// ChallengeHash implements the Fiat-Shamir transform (spec §4.1): SHA-256
// over the concatenation of parts (each caller passes compressed point
// bytes in the fixed transcript order g, h, f, commitment, gamma...),
// interpreted as a big-endian 256-bit integer and right-shifted by
// (256 - w) bits to produce a w-bit challenge. The shift happens on the
// raw digest, before any reduction mod q, so it is performed with math/big
// rather than through the Scalar type -- feeding the digest through a
// mod-q scalar first would reduce before the shift, which is not the
// operation spec.md §4.1 defines.
func ChallengeHash(w int, parts ...[]byte) Scalar {
	if w <= 0 || w > 256 {
		w = 256
	}
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	digest := h.Sum(nil)

	bi := new(big.Int).SetBytes(digest)
	shift := 256 - w
	if shift > 0 {
		bi.Rsh(bi, uint(shift))
	}

	var buf [32]byte
	bi.FillBytes(buf[:])
	s, _ := ScalarFromBytes(buf[:])
	return s
}

// Lxor returns the bitwise XOR of a and b over their w-bit representation
// (spec §4.1), used to split an OR-proof's challenge across its two
// branches: c1 xor c2 = c.
func Lxor(a, b Scalar, w int) Scalar {
	ab := a.Bytes()
	bb := b.Bytes()
	var out [32]byte
	for i := range out {
		out[i] = ab[i] ^ bb[i]
	}
	if w > 0 && w < 256 {
		maskBits(out[:], w)
	}
	s, _ := ScalarFromBytes(out[:])
	return s
}

// maskBits zeroes every bit beyond the low w bits of the big-endian buffer
// buf (whose length determines the total bit width).
func maskBits(buf []byte, w int) {
	total := len(buf) * 8
	if w >= total {
		return
	}
	clear := total - w
	fullBytes := clear / 8
	for i := 0; i < fullBytes; i++ {
		buf[i] = 0
	}
	rem := clear % 8
	if rem > 0 && fullBytes < len(buf) {
		buf[fullBytes] &= 0xFF >> uint(rem)
	}
}
