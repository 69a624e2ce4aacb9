// Package cgen emits built hash functions and tables as dependency-free C.
//
// An Artifact is the data model of one emitted file; Bytes formats it. The
// emitted decode routine performs exactly the arithmetic of mphash.MPHF.Hash,
// including its MurmurHash3 x86_32 mixing hash, so compiled code and the Go
// builder agree on every key.
//
// Artifacts come in two shapes that decode identically:
//
//   - self-contained: the constant tables and a decode function specialized
//     to them, in one translation unit
//   - data-only: the constant tables as an mphash_param_t (or
//     mphash_table_t) object, decoded by the generic routines of a separately
//     emitted Common artifact
package cgen

import (
	"fmt"

	"github.com/tamirms/mphash"
	mpherrors "github.com/tamirms/mphash/errors"
)

// Kind selects what an artifact describes.
type Kind int

const (
	// Program is a standalone C program embedding a function and its keys;
	// main prints `<code> "<key>"` for every key.
	Program Kind = iota
	// Function is a hash function over a key set.
	Function
	// Table is an associative lookup table.
	Table
	// Common holds the shared types and the generic decode and lookup
	// routines used with data-only artifacts. It carries no key set.
	Common
)

func (k Kind) String() string {
	switch k {
	case Program:
		return "program"
	case Function:
		return "function"
	case Table:
		return "table"
	case Common:
		return "common"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Mode holds the independent formatting axes of an artifact.
type Mode struct {
	Kind Kind
	// DataOnly emits parameter objects for the generic routines instead of
	// a self-contained decode function.
	DataOnly bool
	// Header emits declarations instead of definitions.
	Header bool
	// Static gives every emitted object and function internal linkage, so
	// headers and sources can all be included into one translation unit.
	Static bool
}

// Default symbol names.
const (
	DefaultFunctionName = "mphf"
	DefaultTableName    = "mpht"
)

// Artifact is one emitted file.
type Artifact struct {
	Mode Mode
	// Name is the function name for self-contained artifacts; data-only
	// artifacts name their parameter object Name + "_param". Empty selects
	// DefaultFunctionName or DefaultTableName.
	Name string

	// Params is required for Function and Program sources.
	Params *mphash.Params
	// Table is required for Table sources.
	Table *mphash.TableData
	// Keys are the Program keys, in output order.
	Keys [][]byte
}

// name returns the effective symbol name.
func (a *Artifact) name() string {
	if a.Name != "" {
		return a.Name
	}
	if a.Mode.Kind == Table {
		return DefaultTableName
	}
	return DefaultFunctionName
}

// Validate checks that the mode is meaningful and the data it needs is
// present.
func (a *Artifact) Validate() error {
	m := a.Mode
	switch m.Kind {
	case Program:
		if m.DataOnly || m.Header {
			return fmt.Errorf("%w: a program has no data-only or header form", mpherrors.ErrInvalidMode)
		}
	case Common:
		if m.DataOnly {
			return fmt.Errorf("%w: common routines have no data-only form", mpherrors.ErrInvalidMode)
		}
		return nil
	case Function, Table:
	default:
		return fmt.Errorf("%w: unknown kind %d", mpherrors.ErrInvalidMode, int(m.Kind))
	}

	if !isIdentifier(a.name()) {
		return fmt.Errorf("%w: %q", mpherrors.ErrInvalidName, a.name())
	}
	if m.Header {
		return nil
	}

	switch m.Kind {
	case Program:
		if a.Params == nil {
			return fmt.Errorf("%w: program needs parameters", mpherrors.ErrInvalidMode)
		}
		if len(a.Keys) == 0 {
			return fmt.Errorf("%w: program needs its keys", mpherrors.ErrInvalidMode)
		}
	case Function:
		if a.Params == nil {
			return fmt.Errorf("%w: function source needs parameters", mpherrors.ErrInvalidMode)
		}
	case Table:
		if a.Table == nil {
			return fmt.Errorf("%w: table source needs table data", mpherrors.ErrInvalidMode)
		}
	}
	return nil
}

// Bytes formats the artifact.
func (a *Artifact) Bytes() ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	f := &formatter{name: a.name(), static: a.Mode.Static}
	switch m := a.Mode; {
	case m.Kind == Common && m.Header:
		f.commonHeader()
	case m.Kind == Common:
		f.commonSource()
	case m.Kind == Program:
		f.program(a.Params, a.Keys)
	case m.Kind == Function && m.Header && m.DataOnly:
		f.functionDataHeader()
	case m.Kind == Function && m.Header:
		f.functionHeader()
	case m.Kind == Function && m.DataOnly:
		f.functionData(a.Params)
	case m.Kind == Function:
		f.functionSource(a.Params)
	case m.Kind == Table && m.Header && m.DataOnly:
		f.tableDataHeader()
	case m.Kind == Table && m.Header:
		f.tableHeader()
	case m.Kind == Table && m.DataOnly:
		f.tableData(a.Table)
	default:
		f.tableSource(a.Table)
	}
	return f.buf.Bytes(), nil
}
