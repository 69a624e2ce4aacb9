package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tamirms/mphash"
	"github.com/tamirms/mphash/cgen"
)

type options struct {
	function bool
	table    bool
	common   bool
	header   bool
	dataOnly bool
	static   bool
	binary   bool

	name         string
	input        string
	output       string
	headerOutput string
	configPath   string

	seed          uint64
	overprovision float64
	maxAttempts   int
	noRangeGrowth bool
	noVerify      bool

	check   bool
	workers int
	verbose bool
}

func defaultOptions() *options {
	return &options{
		output:        "-",
		seed:          mphash.DefaultSeed,
		overprovision: 1.23,
	}
}

// mode maps the selection flags onto an artifact mode.
func (o *options) mode() (cgen.Mode, error) {
	selected := 0
	for _, b := range []bool{o.function, o.table, o.common} {
		if b {
			selected++
		}
	}
	if selected > 1 {
		return cgen.Mode{}, errors.New("-f, -t and -c are mutually exclusive")
	}
	m := cgen.Mode{Kind: cgen.Program, DataOnly: o.dataOnly, Header: o.header, Static: o.static}
	switch {
	case o.function:
		m.Kind = cgen.Function
	case o.table:
		m.Kind = cgen.Table
	case o.common:
		m.Kind = cgen.Common
	}
	return m, nil
}

// needsKeys reports whether the output depends on a key set.
func (o *options) needsKeys(m cgen.Mode) bool {
	if o.binary || o.check {
		return true
	}
	return m.Kind != cgen.Common && !m.Header
}

func (o *options) buildOptions(logger *zap.Logger) []mphash.BuildOption {
	return []mphash.BuildOption{
		mphash.WithSeed(o.seed),
		mphash.WithOverprovision(o.overprovision),
		mphash.WithMaxAttempts(o.maxAttempts),
		mphash.WithRangeGrowth(!o.noRangeGrowth),
		mphash.WithKeyVerification(!o.noVerify),
		mphash.WithLogger(logger),
	}
}

// built is the result of constructing over the input.
type built struct {
	keys  [][]byte // input order
	m     *mphash.MPHF
	table *mphash.Table
}

func run(ctx context.Context, o *options, stdout io.Writer, logger *zap.Logger) error {
	mode, err := o.mode()
	if err != nil {
		return err
	}
	if o.binary && (mode.Kind == cgen.Common || mode.Header || mode.DataOnly) {
		return errors.New("--binary writes a function or table image; -c, -H and -p do not apply")
	}
	if o.headerOutput != "" && (mode.Kind == cgen.Program || mode.Header || o.binary) {
		return errors.New("--header-output needs C source output from -f, -t or -c")
	}
	if o.overprovision <= 1 {
		return fmt.Errorf("--overprovision must be greater than 1, got %g", o.overprovision)
	}
	if o.maxAttempts < 0 {
		return fmt.Errorf("--max-attempts must not be negative, got %d", o.maxAttempts)
	}
	if o.headerOutput == "-" {
		return errors.New("--header-output must name a file")
	}

	var b *built
	if o.needsKeys(mode) {
		if o.input == "" {
			return errors.New("missing keyfile")
		}
		if b, err = buildInput(ctx, o, mode.Kind == cgen.Table, logger); err != nil {
			return err
		}
		if o.check {
			if err := mphash.Verify(ctx, b.m, b.keys, o.workers); err != nil {
				return err
			}
			logger.Info("bijection verified", zap.Int("keys", len(b.keys)))
		}
	}

	if o.binary {
		return writeBinary(o.output, stdout, b)
	}

	source := artifactFor(o, mode, b)
	if o.headerOutput == "" {
		return emit(o.output, stdout, source)
	}
	headerMode := mode
	headerMode.Header = true
	header := artifactFor(o, headerMode, b)

	var g errgroup.Group
	g.Go(func() error { return emit(o.output, stdout, source) })
	g.Go(func() error { return emit(o.headerOutput, stdout, header) })
	return g.Wait()
}

func buildInput(ctx context.Context, o *options, table bool, logger *zap.Logger) (*built, error) {
	in, err := openInput(o.input)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	b := &built{}
	if table {
		pairs, err := readPairs(in)
		if err != nil {
			return nil, err
		}
		if b.table, err = mphash.BuildTable(ctx, pairs, o.buildOptions(logger)...); err != nil {
			return nil, err
		}
		b.m = b.table.MPHF()
		b.keys = make([][]byte, len(pairs))
		for i, p := range pairs {
			b.keys[i] = p.Key
		}
	} else {
		if b.keys, err = readKeys(in); err != nil {
			return nil, err
		}
		if b.m, err = mphash.Build(ctx, b.keys, o.buildOptions(logger)...); err != nil {
			return nil, err
		}
	}

	logger.Info("built",
		zap.Int("keys", b.m.Len()),
		zap.Uint32("range", b.m.Range()),
		zap.Int("attempts", b.m.Attempts()),
		zap.Float64("bits_per_key", b.m.BitsPerKey()))
	return b, nil
}

func artifactFor(o *options, mode cgen.Mode, b *built) *cgen.Artifact {
	a := &cgen.Artifact{Mode: mode, Name: o.name}
	if b == nil {
		return a
	}
	p := b.m.Params()
	a.Params = &p
	if b.table != nil {
		d := b.table.Data()
		a.Table = &d
	}
	if mode.Kind == cgen.Program {
		a.Keys = b.keys
	}
	return a
}

// emit formats a and writes it to path, or to stdout for "-".
func emit(path string, stdout io.Writer, a *cgen.Artifact) error {
	data, err := a.Bytes()
	if err != nil {
		return err
	}
	return writeOutput(path, stdout, data)
}

func writeOutput(path string, stdout io.Writer, data []byte) error {
	if path == "-" || path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := mphash.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeBinary(path string, stdout io.Writer, b *built) error {
	if path != "-" && path != "" {
		if b.table != nil {
			return mphash.SaveTable(path, b.table)
		}
		return mphash.Save(path, b.m)
	}

	var (
		data []byte
		err  error
	)
	if b.table != nil {
		data, err = b.table.MarshalBinary()
	} else {
		data, err = b.m.MarshalBinary()
	}
	if err != nil {
		return err
	}
	_, err = stdout.Write(data)
	return err
}
