// Command mphash builds a minimal perfect hash function or a static lookup
// table over a key file and emits it as C source, a C header, or a binary
// parameter image.
//
//	mphash words.txt > words.c           # program printing each key's code
//	mphash -f -o kw.c words.txt          # function kw.c
//	mphash -fH --name kw -o kw.h         # its header
//	mphash -tp -o tbl.c pairs.txt        # data-only table for mphash_table_lookup
//	mphash -c -o mphash.c                # generic routines
//	mphash -t --binary -o tbl.mph pairs.txt
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "mphash:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	o := defaultOptions()
	cmd := &cobra.Command{
		Use:   "mphash [flags] [keyfile]",
		Short: "Generate minimal perfect hash functions and lookup tables",
		Long: `mphash reads one key per line (or "key value" per line with -t) and
generates a minimal perfect hash function mapping the keys onto [0, n).
A keyfile of "-" reads standard input. Without -f, -t or -c the output is a
standalone C program printing the code of every key.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.configPath != "" {
				cfg, err := loadConfig(o.configPath)
				if err != nil {
					return err
				}
				cfg.apply(o, cmd.Flags())
			}
			if len(args) == 1 {
				o.input = args[0]
			}
			logger, err := newLogger(o.verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return run(cmd.Context(), o, cmd.OutOrStdout(), logger)
		},
	}

	f := cmd.Flags()
	f.SortFlags = false
	f.BoolVarP(&o.function, "function", "f", false, "emit a hash function")
	f.BoolVarP(&o.table, "table", "t", false, "emit a lookup table; the keyfile holds `key value` lines")
	f.BoolVarP(&o.common, "common", "c", false, "emit the generic routines used by data-only output")
	f.BoolVarP(&o.header, "header", "H", false, "emit declarations instead of definitions")
	f.BoolVarP(&o.dataOnly, "data-only", "p", false, "emit parameter data for the generic routines")
	f.BoolVar(&o.static, "static", false, "give every emitted symbol internal linkage")
	f.StringVar(&o.name, "name", "", "C symbol name (default mphf, or mpht for tables)")
	f.StringVarP(&o.output, "output", "o", "-", "output path, - for standard output")
	f.StringVar(&o.headerOutput, "header-output", "", "also write the matching header to this path")
	f.BoolVar(&o.binary, "binary", false, "write a binary parameter image instead of C")
	f.Uint64Var(&o.seed, "seed", o.seed, "salt generator seed")
	f.Float64Var(&o.overprovision, "overprovision", o.overprovision, "range over-provisioning ratio")
	f.IntVar(&o.maxAttempts, "max-attempts", 0, "give up after this many peel attempts (0 = unbounded)")
	f.BoolVar(&o.noRangeGrowth, "no-range-growth", false, "fail instead of enlarging the range")
	f.BoolVar(&o.noVerify, "no-verify", false, "do not store keys in tables; absent keys return arbitrary values")
	f.BoolVar(&o.check, "check", false, "verify the function is a bijection before writing")
	f.IntVar(&o.workers, "workers", 0, "parallel workers for --check (0 = GOMAXPROCS)")
	f.StringVar(&o.configPath, "config", "", "JSONC file with default settings")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "log construction progress")
	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = true
	cfg.Sampling = nil
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
