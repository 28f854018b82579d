package main

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/jackdoerner/zeroledge/internal/config"
)

// flagSet wraps flag.FlagSet to add uint64 support, mirroring
// cmd/zlgenerate/flags.go.
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

// options is the fully-resolved set of verifier inputs: config-file
// defaults with CLI flags bound on top, plus the positional proof-file
// path (spec §6 names every other file as a flag; the proof itself is the
// tool's principal input, bound positionally, defaulting to stdin).
type options struct {
	config.Verifier
	ConfigPath string
	ProofPath  string
}

// parseFlags parses CLI arguments into options, using the same
// config-then-flags two-pass layering as cmd/zlgenerate.
func parseFlags(args []string) (options, bool, int) {
	preFS := newFlagSet("zlverify")
	preFS.SetOutput(discardWriter{})
	configPath := preFS.String("config", "", "")
	_ = preFS.Parse(args)

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "zlverify: reading config %q: %v\n", *configPath, err)
		return options{}, true, 1
	}

	opts := options{Verifier: cfg.Verifier, ConfigPath: *configPath}

	fs := newFlagSet("zlverify")
	var threads uint64
	fs.Uint64Var(&threads, "t", uint64(opts.Threads), "worker thread count")
	fs.StringVar(&opts.BasesPath, "b", opts.BasesPath, "bases parameter file")
	fs.StringVar(&opts.CurvePath, "c", opts.CurvePath, "curve parameter file")
	fs.StringVar(&opts.OpenerPath, "k", opts.OpenerPath, "entries opener file (enables known-entry checks)")
	fs.BoolVar(&opts.InclusionOnly, "i", opts.InclusionOnly, "check only entry inclusion proofs, skip difference-bit and total-equivalency checks")
	fs.StringVar(&opts.ConfigPath, "config", opts.ConfigPath, "YAML config file")
	fs.StringVar(&opts.IncrKeyPath, "incr-key", opts.IncrKeyPath, "optional passphrase file for incremental file decryption")
	fs.StringVar(&opts.LogFile, "logfile", opts.LogFile, "optional rotated log file path")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return opts, true, 0
		}
		fmt.Fprintf(stderr, "zlverify: %v\n", err)
		return opts, true, 2
	}

	opts.Threads = int(threads)

	if rest := fs.Args(); len(rest) > 0 {
		opts.ProofPath = rest[0]
	}
	return opts, false, 0
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
