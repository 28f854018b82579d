// Command zlgenerate is the ZeroLedge proof generator: it reads a ledger
// input stream and the curve/bases parameter files (spec §6), runs the
// producer/consumer pipeline (spec §5) over every entry, and writes a
// proof file plus the optional entries-opener and incremental-state
// artifacts.
package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackdoerner/zeroledge/internal/incrcrypt"
	"github.com/jackdoerner/zeroledge/internal/metrics"
	"github.com/jackdoerner/zeroledge/internal/params"
	"github.com/jackdoerner/zeroledge/internal/pipeline"
	"github.com/jackdoerner/zeroledge/internal/wire"
	"github.com/jackdoerner/zeroledge/internal/zllog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var stderr io.Writer = os.Stderr

const challengeWidth = 256 // spec §3's w, fixed to the curve's bit length

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
			MaxSize:    100, // megabytes
			MaxBackups: 3,
		}))
	}
	log := zllog.Default().Module("zlgenerate")

	curve, err := readCurveFile(opts.CurvePath)
	if err != nil {
		fmt.Fprintf(stderr, "zlgenerate: %v\n", err)
		return 1
	}
	bases, err := readBasesFile(opts.BasesPath)
	if err != nil {
		fmt.Fprintf(stderr, "zlgenerate: %v\n", err)
		return 1
	}
	_ = curve // curve file is validated for wire-contract fidelity only (DESIGN.md curve-backend resolution)

	ledgerIn, closeLedger, err := openLedgerInput(opts.LedgerPath)
	if err != nil {
		fmt.Fprintf(stderr, "zlgenerate: %v\n", err)
		return 1
	}
	defer closeLedger()

	src, err := wire.NewLedgerSource(ledgerIn)
	if err != nil {
		fmt.Fprintf(stderr, "zlgenerate: %v\n", err)
		return 1
	}

	proofOutFile, closeProof, err := openOutput(opts.ProofOut)
	if err != nil {
		fmt.Fprintf(stderr, "zlgenerate: %v\n", err)
		return 1
	}
	defer closeProof()
	proofWriter := wire.NewWriter(proofOutFile)

	var entriesOut io.Writer
	if opts.EntriesOut != "" {
		f, err := os.Create(opts.EntriesOut)
		if err != nil {
			fmt.Fprintf(stderr, "zlgenerate: %v\n", err)
			return 1
		}
		defer f.Close()
		entriesOut = f
	}

	var incrOut io.WriteCloser
	var incrOutBuf *strings.Builder
	if opts.IncrOut != "" {
		if opts.IncrKeyPath != "" {
			// Encrypted incremental output is sealed whole, at Close time,
			// so it is buffered in memory rather than streamed to disk.
			incrOutBuf = &strings.Builder{}
		} else {
			f, err := os.Create(opts.IncrOut)
			if err != nil {
				fmt.Fprintf(stderr, "zlgenerate: %v\n", err)
				return 1
			}
			defer f.Close()
			incrOut = f
		}
	}

	var incrIn io.Reader
	if opts.IncrInPath != "" {
		r, err := openIncrInput(opts.IncrInPath, opts.IncrKeyPath)
		if err != nil {
			fmt.Fprintf(stderr, "zlgenerate: %v\n", err)
			return 1
		}
		incrIn = r
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			log.Warn("received signal, cancelling", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var rec *metrics.Recorder
	if opts.MetricsAddr != "" {
		rec = metrics.NewRecorder()
		go func() {
			if err := rec.Serve(ctx, opts.MetricsAddr); err != nil {
				log.Error("metrics server exited", "err", err)
			}
		}()
	}

	orch := pipeline.NewOrchestrator(opts.Threads, opts.BatchSize, opts.ValueBits, challengeWidth)
	orch.Metrics = rec

	proofTime := time.Now().Unix()

	var incrWriterOut io.Writer = incrOut
	if incrOutBuf != nil {
		incrWriterOut = incrOutBuf
	}

	start := time.Now()
	l, err := orch.RunGenerate(ctx, rand.Reader, pipeline.GenerateInput{
		G: bases.G, H: bases.H, F: bases.F,
		TotalAssets: src.TotalAssets,
		ProofTime:   proofTime,
		Source:      src,
		ProofOut:    proofWriter,
		EntriesOut:  entriesOut,
		IncrOut:     incrWriterOut,
		IncrIn:      incrIn,
	})
	if rec != nil {
		rec.ObserveProofDuration(time.Since(start))
	}
	if err != nil {
		fmt.Fprintf(stderr, "zlgenerate: %v\n", err)
		return 1
	}
	log.Info("proof generated", "entries", len(l.Entries), "difference_bits", opts.ValueBits)

	if incrOutBuf != nil {
		passphrase, err := readPassphraseFile(opts.IncrKeyPath)
		if err != nil {
			fmt.Fprintf(stderr, "zlgenerate: %v\n", err)
			return 1
		}
		f, err := os.Create(opts.IncrOut)
		if err != nil {
			fmt.Fprintf(stderr, "zlgenerate: %v\n", err)
			return 1
		}
		defer f.Close()
		if err := incrcrypt.EncryptToWriter(f, []byte(incrOutBuf.String()), passphrase); err != nil {
			fmt.Fprintf(stderr, "zlgenerate: encrypting incremental output: %v\n", err)
			return 1
		}
	}

	return 0
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

func openLedgerInput(path string) (io.Reader, func(), error) {
	if path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening ledger input: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening proof output: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func openIncrInput(path, keyPath string) (io.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening incremental input: %w", err)
	}
	defer f.Close()
	if keyPath == "" {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, err
		}
		return strings.NewReader(string(data)), nil
	}
	passphrase, err := readPassphraseFile(keyPath)
	if err != nil {
		return nil, err
	}
	plain, err := incrcrypt.DecryptFromReader(f, passphrase)
	if err != nil {
		return nil, fmt.Errorf("decrypting incremental input: %w", err)
	}
	return strings.NewReader(string(plain)), nil
}

func readPassphraseFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading incr-key file: %w", err)
	}
	return []byte(strings.TrimSpace(string(data))), nil
}
