// Package wire implements the text wire formats of spec §6: the ledger
// input stream, the proof output file, the entries-opener file and the
// incremental state file, plus the "lexical base 64" scalar/coordinate
// codec shared by all of them.
//
// "Lexical base 64" (spec §6) is read here as an arbitrary-precision
// positional numeral system over the digit alphabet 0-9A-Za-z+/ (in that
// order) -- a variable-width textual big-integer encoding, not the
// byte-oriented RFC 4648 base64 block encoding. This matches a reference
// bignum library's typical "to-string in radix N" convention, and is
// consistent with spec §6's "the verifier parses with the same radix"
// framing: both sides just need the same digit alphabet and the same
// place-value interpretation.
package wire

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/jackdoerner/zeroledge/internal/zlcrypto"
)

const lexicalDigits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz+/"

var lexicalBase = big.NewInt(int64(len(lexicalDigits)))

// EncodeBigInt renders a non-negative integer in lexical base 64.
func EncodeBigInt(v *big.Int) string {
	if v.Sign() == 0 {
		return "0"
	}
	n := new(big.Int).Set(v)
	mod := new(big.Int)
	buf := make([]byte, 0, 48)
	for n.Sign() > 0 {
		n.DivMod(n, lexicalBase, mod)
		buf = append(buf, lexicalDigits[mod.Int64()])
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// DecodeBigInt parses a lexical base 64 string into a non-negative
// integer. A parse failure here is a spec §7 kind-2 error: it is the
// caller's job to treat it as ending the current record, not to abort the
// process.
func DecodeBigInt(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("wire: empty lexical value")
	}
	v := new(big.Int)
	for _, c := range s {
		idx := strings.IndexRune(lexicalDigits, c)
		if idx < 0 {
			return nil, fmt.Errorf("wire: invalid lexical digit %q in %q", c, s)
		}
		v.Mul(v, lexicalBase)
		v.Add(v, big.NewInt(int64(idx)))
	}
	return v, nil
}

// EncodeScalar renders a scalar in lexical base 64.
func EncodeScalar(s zlcrypto.Scalar) string {
	b := s.Bytes()
	return EncodeBigInt(new(big.Int).SetBytes(b[:]))
}

// DecodeScalar parses a lexically-encoded scalar.
func DecodeScalar(s string) (zlcrypto.Scalar, error) {
	v, err := DecodeBigInt(s)
	if err != nil {
		return zlcrypto.Scalar{}, err
	}
	var buf [32]byte
	v.FillBytes(buf[:])
	sc, _ := zlcrypto.ScalarFromBytes(buf[:])
	return sc, nil
}

// EncodePointFields renders a point's compressed (x, y_lsb) encoding as
// the two wire tokens spec §6 lists per point: a lexical-base-64 x and a
// base-10 y_lsb.
func EncodePointFields(p zlcrypto.Point) (xTok string, yLSBTok string) {
	x, lsb := p.Compressed()
	return EncodeBigInt(new(big.Int).SetBytes(x[:])), fmt.Sprintf("%d", lsb)
}

// DecodePointFields reconstructs a point from its two wire tokens.
func DecodePointFields(xTok, yLSBTok string) (zlcrypto.Point, error) {
	xBig, err := DecodeBigInt(xTok)
	if err != nil {
		return zlcrypto.Point{}, err
	}
	var lsb int
	if _, err := fmt.Sscanf(yLSBTok, "%d", &lsb); err != nil {
		return zlcrypto.Point{}, fmt.Errorf("wire: invalid y_lsb %q: %w", yLSBTok, err)
	}
	var xArr [32]byte
	xBig.FillBytes(xArr[:])
	return zlcrypto.DecompressPoint(xArr, byte(lsb&1))
}
