// proof.go implements the proof output file of spec §6: a streaming writer
// usable from multiple pipeline workers (each call made under the shared
// proof lock) and a sequential reader for the verifier.
//
// The file is tokenised as whitespace-separated words throughout -- the
// section markers ("====================", "BEGIN"/"END ZEROLEDGE PROOF")
// are themselves just words no different from a TIME or BITS value, so the
// reader is a single word-oriented scanner rather than a line-oriented one.
//
// Per-bit blocks (both LBP and DBP) carry only one challenge share, c1, on
// the wire; the other share is reconstructed, not stored. A Reader leaves
// the second half (C2) zero on every LedgerBitProof/DifferenceBitProof it
// returns -- the caller, which holds the lbp/dbp Processor and so knows w,
// is expected to recompute the full challenge and set C2 = Lxor(c, C1, w)
// before calling VerifyProof.
package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/jackdoerner/zeroledge/internal/ledger"
	"github.com/jackdoerner/zeroledge/internal/zlcrypto"
)

const separator = "===================="

// errSectionEnd signals that ReadEntry/ReadDifferenceBit consumed a section
// separator instead of a record.
var errSectionEnd = errors.New("wire: end of section")

// IsSectionEnd reports whether err is the section-exhausted sentinel.
func IsSectionEnd(err error) bool { return errors.Is(err, errSectionEnd) }

// Writer emits a proof file incrementally: header and bases up front, then
// one WriteEntry call per finished ledger entry (in whatever order workers
// finish them), then the difference-bit section, then Close.
type Writer struct {
	w   *bufio.Writer
	v   int
	err error
}

// NewWriter wraps w for streaming proof output.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (wr *Writer) tok(s string) {
	if wr.err != nil {
		return
	}
	if _, err := wr.w.WriteString(s); err != nil {
		wr.err = err
		return
	}
	if err := wr.w.WriteByte(' '); err != nil {
		wr.err = err
	}
}

func (wr *Writer) nl() {
	if wr.err != nil {
		return
	}
	wr.err = wr.w.WriteByte('\n')
}

func (wr *Writer) point(p zlcrypto.Point) {
	x, y := EncodePointFields(p)
	wr.tok(x)
	wr.tok(y)
}

func (wr *Writer) scalar(s zlcrypto.Scalar) {
	wr.tok(EncodeScalar(s))
}

// WriteHeader writes BEGIN/ASSETS/TIME/BITS and the three shared bases.
func (wr *Writer) WriteHeader(assets uint64, timeUnix int64, v int, g, h, f zlcrypto.Point) error {
	wr.v = v
	wr.tok("BEGIN")
	wr.tok("ZEROLEDGE")
	wr.tok("PROOF")
	wr.nl()
	wr.tok(separator)
	wr.nl()
	wr.tok("ASSETS")
	wr.tok(fmt.Sprintf("%d", assets))
	wr.nl()
	wr.tok("TIME")
	wr.tok(fmt.Sprintf("%d", timeUnix))
	wr.nl()
	wr.tok("BITS")
	wr.tok(fmt.Sprintf("%d", v))
	wr.nl()
	wr.tok(separator)
	wr.nl()
	wr.point(g)
	wr.nl()
	wr.point(h)
	wr.nl()
	wr.point(f)
	wr.nl()
	return wr.err
}

// WriteEntry writes one per-entry block: LEC, LEP's (gamma, z1, z2, z3),
// then per value bit: LBC, gamma1, gamma2, c1, z1..z4.
func (wr *Writer) WriteEntry(e *ledger.LedgerEntry) error {
	wr.point(e.LEC)
	wr.point(e.LEP.Gamma)
	wr.scalar(e.LEP.Z1)
	wr.scalar(e.LEP.Z2)
	wr.scalar(e.LEP.Z3)
	for i := 0; i < wr.v; i++ {
		wr.point(e.LBC[i])
		wr.point(e.LBP[i].Gamma1)
		wr.point(e.LBP[i].Gamma2)
		wr.scalar(e.LBP[i].C1)
		wr.scalar(e.LBP[i].Z1)
		wr.scalar(e.LBP[i].Z2)
		wr.scalar(e.LBP[i].Z3)
		wr.scalar(e.LBP[i].Z4)
	}
	wr.nl()
	return wr.err
}

// BeginDifferenceSection closes the entries section and opens the
// difference-bit section. Called once, after every worker has joined.
func (wr *Writer) BeginDifferenceSection() error {
	wr.tok(separator)
	wr.nl()
	return wr.err
}

// WriteDifferenceBit writes one per-difference-bit block: DBC, gamma1,
// gamma2, c1, z1..z4.
func (wr *Writer) WriteDifferenceBit(dbc zlcrypto.Point, p ledger.DifferenceBitProof) error {
	wr.point(dbc)
	wr.point(p.Gamma1)
	wr.point(p.Gamma2)
	wr.scalar(p.C1)
	wr.scalar(p.Z1)
	wr.scalar(p.Z2)
	wr.scalar(p.Z3)
	wr.scalar(p.Z4)
	wr.nl()
	return wr.err
}

// Close writes the closing separator and END marker and flushes.
func (wr *Writer) Close() error {
	wr.tok(separator)
	wr.nl()
	wr.tok("END")
	wr.tok("ZEROLEDGE")
	wr.tok("PROOF")
	wr.nl()
	if wr.err != nil {
		return wr.err
	}
	return wr.w.Flush()
}

// Header is the parsed preamble of a proof file.
type Header struct {
	Assets  uint64
	Time    int64
	Bits    int
	G, H, F zlcrypto.Point
}

// DifferenceBit pairs a difference-bit commitment with its proof.
type DifferenceBit struct {
	DBC   zlcrypto.Point
	Proof ledger.DifferenceBitProof
}

// Reader parses a proof file sequentially: ReadHeader, then ReadEntries,
// then ReadDifferenceBits (which also consumes the trailing END marker).
type Reader struct {
	sc *bufio.Scanner
	v  int
}

// NewReader wraps r for sequential proof reading.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 32<<20)
	sc.Split(bufio.ScanWords)
	return &Reader{sc: sc}
}

func (rd *Reader) next() (string, error) {
	if !rd.sc.Scan() {
		if err := rd.sc.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return rd.sc.Text(), nil
}

func (rd *Reader) expect(want string) error {
	got, err := rd.next()
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("wire: expected %q, got %q", want, got)
	}
	return nil
}

func (rd *Reader) readUint64() (uint64, error) {
	tok, err := rd.next()
	if err != nil {
		return 0, err
	}
	var v uint64
	if _, err := fmt.Sscanf(tok, "%d", &v); err != nil {
		return 0, fmt.Errorf("wire: invalid integer %q: %w", tok, err)
	}
	return v, nil
}

func (rd *Reader) readPoint() (zlcrypto.Point, error) {
	x, err := rd.next()
	if err != nil {
		return zlcrypto.Point{}, err
	}
	y, err := rd.next()
	if err != nil {
		return zlcrypto.Point{}, err
	}
	return DecodePointFields(x, y)
}

func (rd *Reader) readScalar() (zlcrypto.Scalar, error) {
	tok, err := rd.next()
	if err != nil {
		return zlcrypto.Scalar{}, err
	}
	return DecodeScalar(tok)
}

// ReadHeader parses BEGIN/ASSETS/TIME/BITS and the three bases.
func (rd *Reader) ReadHeader() (*Header, error) {
	if err := rd.expect("BEGIN"); err != nil {
		return nil, err
	}
	if err := rd.expect("ZEROLEDGE"); err != nil {
		return nil, err
	}
	if err := rd.expect("PROOF"); err != nil {
		return nil, err
	}
	if err := rd.expect(separator); err != nil {
		return nil, err
	}
	if err := rd.expect("ASSETS"); err != nil {
		return nil, err
	}
	assets, err := rd.readUint64()
	if err != nil {
		return nil, err
	}
	if err := rd.expect("TIME"); err != nil {
		return nil, err
	}
	t, err := rd.readUint64()
	if err != nil {
		return nil, err
	}
	if err := rd.expect("BITS"); err != nil {
		return nil, err
	}
	bits, err := rd.readUint64()
	if err != nil {
		return nil, err
	}
	if err := rd.expect(separator); err != nil {
		return nil, err
	}
	g, err := rd.readPoint()
	if err != nil {
		return nil, err
	}
	h, err := rd.readPoint()
	if err != nil {
		return nil, err
	}
	f, err := rd.readPoint()
	if err != nil {
		return nil, err
	}
	rd.v = int(bits)
	return &Header{Assets: assets, Time: int64(t), Bits: rd.v, G: g, H: h, F: f}, nil
}

// ReadEntry reads one per-entry block, or returns errSectionEnd once the
// entries section's closing separator is reached.
func (rd *Reader) ReadEntry() (*ledger.LedgerEntry, error) {
	xTok, err := rd.next()
	if err != nil {
		return nil, err
	}
	if xTok == separator {
		return nil, errSectionEnd
	}
	yTok, err := rd.next()
	if err != nil {
		return nil, err
	}
	lec, err := DecodePointFields(xTok, yTok)
	if err != nil {
		return nil, err
	}

	e := &ledger.LedgerEntry{V: rd.v}
	e.LEC = lec

	gamma, err := rd.readPoint()
	if err != nil {
		return nil, err
	}
	z1, err := rd.readScalar()
	if err != nil {
		return nil, err
	}
	z2, err := rd.readScalar()
	if err != nil {
		return nil, err
	}
	z3, err := rd.readScalar()
	if err != nil {
		return nil, err
	}
	e.LEP = ledger.LedgerEntryProof{Gamma: gamma, Z1: z1, Z2: z2, Z3: z3}

	e.LBC = make([]zlcrypto.Point, rd.v)
	e.LBP = make([]ledger.LedgerBitProof, rd.v)
	for i := 0; i < rd.v; i++ {
		lbc, err := rd.readPoint()
		if err != nil {
			return nil, err
		}
		g1, err := rd.readPoint()
		if err != nil {
			return nil, err
		}
		g2, err := rd.readPoint()
		if err != nil {
			return nil, err
		}
		c1, err := rd.readScalar()
		if err != nil {
			return nil, err
		}
		bz1, err := rd.readScalar()
		if err != nil {
			return nil, err
		}
		bz2, err := rd.readScalar()
		if err != nil {
			return nil, err
		}
		bz3, err := rd.readScalar()
		if err != nil {
			return nil, err
		}
		bz4, err := rd.readScalar()
		if err != nil {
			return nil, err
		}
		e.LBC[i] = lbc
		e.LBP[i] = ledger.LedgerBitProof{Gamma1: g1, Gamma2: g2, C1: c1, Z1: bz1, Z2: bz2, Z3: bz3, Z4: bz4}
	}
	return e, nil
}

// ReadEntries reads every entry block up to, and including, the separator
// that ends the entries section.
func (rd *Reader) ReadEntries() ([]*ledger.LedgerEntry, error) {
	var entries []*ledger.LedgerEntry
	for {
		e, err := rd.ReadEntry()
		if err != nil {
			if IsSectionEnd(err) {
				return entries, nil
			}
			return nil, err
		}
		entries = append(entries, e)
	}
}

// ReadDifferenceBit reads one per-difference-bit block, or returns
// errSectionEnd once the difference-bit section's closing separator is
// reached.
func (rd *Reader) ReadDifferenceBit() (*DifferenceBit, error) {
	xTok, err := rd.next()
	if err != nil {
		return nil, err
	}
	if xTok == separator {
		return nil, errSectionEnd
	}
	yTok, err := rd.next()
	if err != nil {
		return nil, err
	}
	dbc, err := DecodePointFields(xTok, yTok)
	if err != nil {
		return nil, err
	}
	g1, err := rd.readPoint()
	if err != nil {
		return nil, err
	}
	g2, err := rd.readPoint()
	if err != nil {
		return nil, err
	}
	c1, err := rd.readScalar()
	if err != nil {
		return nil, err
	}
	z1, err := rd.readScalar()
	if err != nil {
		return nil, err
	}
	z2, err := rd.readScalar()
	if err != nil {
		return nil, err
	}
	z3, err := rd.readScalar()
	if err != nil {
		return nil, err
	}
	z4, err := rd.readScalar()
	if err != nil {
		return nil, err
	}
	return &DifferenceBit{
		DBC:   dbc,
		Proof: ledger.DifferenceBitProof{Gamma1: g1, Gamma2: g2, C1: c1, Z1: z1, Z2: z2, Z3: z3, Z4: z4},
	}, nil
}

// ReadDifferenceBits reads every difference-bit block, then consumes the
// trailing "END ZEROLEDGE PROOF" marker.
func (rd *Reader) ReadDifferenceBits() ([]DifferenceBit, error) {
	var bits []DifferenceBit
	for {
		b, err := rd.ReadDifferenceBit()
		if err != nil {
			if IsSectionEnd(err) {
				break
			}
			return nil, err
		}
		bits = append(bits, *b)
	}
	if err := rd.expect("END"); err != nil {
		return nil, err
	}
	if err := rd.expect("ZEROLEDGE"); err != nil {
		return nil, err
	}
	if err := rd.expect("PROOF"); err != nil {
		return nil, err
	}
	return bits, nil
}
