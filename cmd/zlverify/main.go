// Command zlverify is the ZeroLedge proof verifier: it parses a proof file
// produced by zlgenerate against the curve/bases parameter files (spec
// §6), checks every cryptographic claim the proof makes, and prints a
// per-category VALID/INVALID verdict (spec §7 kind 3).
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jackdoerner/zeroledge/internal/incrcrypt"
	"github.com/jackdoerner/zeroledge/internal/params"
	"github.com/jackdoerner/zeroledge/internal/pipeline"
	"github.com/jackdoerner/zeroledge/internal/wire"
	"github.com/jackdoerner/zeroledge/internal/zllog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var stderr io.Writer = os.Stderr

const challengeWidth = 256

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, exit, code := parseFlags(args)
	if exit {
		return code
	}

	if opts.LogFile != "" {
		zllog.SetDefault(zllog.New(slog.LevelInfo, &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    100,
			MaxBackups: 3,
		}))
	}
	log := zllog.Default().Module("zlverify")

	curve, err := readCurveFile(opts.CurvePath)
	if err != nil {
		fmt.Fprintf(stderr, "zlverify: %v\n", err)
		return 1
	}
	_ = curve
	bases, err := readBasesFile(opts.BasesPath)
	if err != nil {
		fmt.Fprintf(stderr, "zlverify: %v\n", err)
		return 1
	}

	proofIn, closeProof, err := openProofInput(opts.ProofPath)
	if err != nil {
		fmt.Fprintf(stderr, "zlverify: %v\n", err)
		return 1
	}
	defer closeProof()

	reader := wire.NewReader(proofIn)
	header, err := reader.ReadHeader()
	if err != nil {
		fmt.Fprintf(stderr, "zlverify: reading proof header: %v\n", err)
		return 1
	}

	report := &pipeline.VerifyReport{}
	report.Bases = header.G.Equal(bases.G) && header.H.Equal(bases.H) && header.F.Equal(bases.F)

	entries, err := reader.ReadEntries()
	if err != nil {
		fmt.Fprintf(stderr, "zlverify: reading proof entries: %v\n", err)
		return 1
	}

	orch := pipeline.NewOrchestrator(opts.Threads, 0, header.Bits, challengeWidth)
	report.EntryProofs, report.BitProofs, report.CommitmentEquivalency =
		orch.VerifyEntries(header.G, header.H, header.F, entries)

	if opts.InclusionOnly {
		report.DifferenceBitProofs = true
		report.TotalEquivalency = true
	} else {
		diffBits, err := reader.ReadDifferenceBits()
		if err != nil {
			fmt.Fprintf(stderr, "zlverify: reading difference bits: %v\n", err)
			return 1
		}
		report.DifferenceBitProofs, report.TotalEquivalency =
			orch.VerifyDifferenceBits(header.G, header.H, header.F, header.Assets, entries, diffBits)
	}

	if opts.OpenerPath != "" {
		openers, err := readOpenerFile(opts.OpenerPath, opts.IncrKeyPath)
		if err != nil {
			fmt.Fprintf(stderr, "zlverify: %v\n", err)
			return 1
		}
		report.KnownEntries = pipeline.VerifyOpeners(header.G, header.H, header.F, entries, openers)
	} else {
		report.KnownEntries = true
	}

	printReport(report)
	log.Info("verification complete", "valid", report.Valid(), "entries", len(entries))

	if !report.Valid() {
		return 1
	}
	return 0
}

func printReport(r *pipeline.VerifyReport) {
	printCheck("bases", r.Bases)
	printCheck("known entries", r.KnownEntries)
	printCheck("entry proofs", r.EntryProofs)
	printCheck("bit proofs", r.BitProofs)
	printCheck("commitment equivalency", r.CommitmentEquivalency)
	printCheck("difference-bit proofs", r.DifferenceBitProofs)
	printCheck("total equivalency", r.TotalEquivalency)
}

func printCheck(name string, ok bool) {
	verdict := "VALID"
	if !ok {
		verdict = "INVALID"
	}
	fmt.Printf("%-24s %s\n", name, verdict)
}

func readCurveFile(path string) (*params.Curve, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening curve file: %w", err)
	}
	defer f.Close()
	return params.ParseCurveFile(f)
}

func readBasesFile(path string) (*params.Bases, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening bases file: %w", err)
	}
	defer f.Close()
	return params.ParseBasesFile(f)
}

func openProofInput(path string) (io.Reader, func(), error) {
	if path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening proof input: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func readOpenerFile(path, incrKeyPath string) ([]wire.OpenerRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening opener file: %w", err)
	}
	defer f.Close()

	if incrKeyPath == "" {
		return wire.ReadOpenerRecords(f)
	}
	passphrase, err := readPassphraseFile(incrKeyPath)
	if err != nil {
		return nil, err
	}
	plain, err := incrcrypt.DecryptFromReader(f, passphrase)
	if err != nil {
		return nil, fmt.Errorf("decrypting opener file: %w", err)
	}
	return wire.ReadOpenerRecords(strings.NewReader(string(plain)))
}

func readPassphraseFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading incr-key file: %w", err)
	}
	return []byte(strings.TrimSpace(string(data))), nil
}
