package main

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/jackdoerner/zeroledge/internal/config"
)

// flagSet wraps flag.FlagSet to add uint64 support, the way
// wyf-ACCEPT-eth2030/pkg/cmd/eth2030/flags.go does for its own numeric
// flags -- the stdlib flag package has no native uint64 Var constructor.
type flagSet struct {
	*flag.FlagSet
}

func newFlagSet(name string) *flagSet {
	return &flagSet{FlagSet: flag.NewFlagSet(name, flag.ContinueOnError)}
}

func (fs *flagSet) Uint64Var(p *uint64, name string, value uint64, usage string) {
	fs.FlagSet.Var(&uint64Value{p: p}, name, usage)
	*p = value
}

type uint64Value struct{ p *uint64 }

func (v *uint64Value) String() string {
	if v.p == nil {
		return "0"
	}
	return strconv.FormatUint(*v.p, 10)
}

func (v *uint64Value) Set(s string) error {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid uint64 value %q", s)
	}
	*v.p = n
	return nil
}

// options is the fully-resolved set of generator inputs: config-file
// defaults with CLI flags bound on top, plus the positional ledger input
// path (spec §6 names every other file as a flag; the ledger itself is the
// tool's principal input, bound positionally, defaulting to stdin).
type options struct {
	config.Generator
	ConfigPath string
	LedgerPath string
}

// parseFlags parses CLI arguments into options. Returns the options,
// whether the caller should exit immediately, and the exit code.
func parseFlags(args []string) (options, bool, int) {
	// First pass: just pull -config out, so its defaults can seed the real
	// flag set before the rest of the flags bind onto it (config-then-flags
	// layering, spec SPEC_FULL.md §6.1).
	preFS := newFlagSet("zlgenerate")
	preFS.SetOutput(discardWriter{})
	configPath := preFS.String("config", "", "")
	_ = preFS.Parse(args)

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "zlgenerate: reading config %q: %v\n", *configPath, err)
		return options{}, true, 1
	}

	opts := options{Generator: cfg.Generator, ConfigPath: *configPath}

	fs := newFlagSet("zlgenerate")
	var threads uint64
	fs.Uint64Var(&threads, "t", uint64(opts.Threads), "worker thread count")
	var batch uint64
	fs.Uint64Var(&batch, "g", uint64(opts.BatchSize), "batch size")
	var vbits uint64
	fs.Uint64Var(&vbits, "v", uint64(opts.ValueBits), "value bits")
	fs.StringVar(&opts.BasesPath, "b", opts.BasesPath, "bases parameter file")
	fs.StringVar(&opts.CurvePath, "c", opts.CurvePath, "curve parameter file")
	fs.StringVar(&opts.IncrInPath, "i", opts.IncrInPath, "incremental state input file")
	fs.StringVar(&opts.EntriesOut, "e", opts.EntriesOut, "entries opener output file")
	fs.StringVar(&opts.IncrOut, "r", opts.IncrOut, "incremental state output file")
	fs.StringVar(&opts.ProofOut, "o", opts.ProofOut, "proof output file")
	fs.StringVar(&opts.ConfigPath, "config", opts.ConfigPath, "YAML config file")
	fs.StringVar(&opts.MetricsAddr, "metrics-addr", opts.MetricsAddr, "optional Prometheus /metrics listen address")
	fs.StringVar(&opts.IncrKeyPath, "incr-key", opts.IncrKeyPath, "optional passphrase file for incremental file encryption")
	fs.StringVar(&opts.LogFile, "logfile", opts.LogFile, "optional rotated log file path")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return opts, true, 0
		}
		fmt.Fprintf(stderr, "zlgenerate: %v\n", err)
		return opts, true, 2
	}

	opts.Threads = int(threads)
	opts.BatchSize = int(batch)
	opts.ValueBits = int(vbits)

	if rest := fs.Args(); len(rest) > 0 {
		opts.LedgerPath = rest[0]
	}
	return opts, false, 0
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
