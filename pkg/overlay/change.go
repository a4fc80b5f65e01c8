package overlay

import (
	"github.com/leapstack-labs/gridedit/pkg/core"
	"github.com/leapstack-labs/gridedit/pkg/value"
)

// ChangeKind tags the variant of a Change.
type ChangeKind int

const (
	// ChangeUndo removes a column's pending change. It is never stored.
	ChangeUndo ChangeKind = iota
	// ChangeUseDefault resets the column to its schema default on commit.
	ChangeUseDefault
	// ChangeLiteral writes a value, which may be NULL.
	ChangeLiteral
)

// Change is a pending edit of a single cell.
// The zero Change is Undo.
type Change struct {
	kind ChangeKind
	v    value.Raw
}

// Undo returns the change that clears a pending edit.
func Undo() Change { return Change{kind: ChangeUndo} }

// UseDefault returns the change that resets a column to its default.
func UseDefault() Change { return Change{kind: ChangeUseDefault} }

// Literal returns the change that writes v.
func Literal(v value.Raw) Change { return Change{kind: ChangeLiteral, v: v} }

// Kind returns the variant.
func (c Change) Kind() ChangeKind { return c.kind }

// Value returns the literal value; it is Null for the other variants.
func (c Change) Value() value.Raw { return c.v }

// IsUndo reports whether c clears a pending edit.
func (c Change) IsUndo() bool { return c.kind == ChangeUndo }

// IsDefault reports whether c resets to the schema default.
func (c Change) IsDefault() bool { return c.kind == ChangeUseDefault }

// CellValue converts the change into what the adapter writes.
func (c Change) CellValue() core.CellValue {
	if c.kind == ChangeUseDefault {
		return core.DefaultValue()
	}
	return core.Literal(c.v)
}

// String renders the change for logs.
func (c Change) String() string {
	switch c.kind {
	case ChangeUndo:
		return "<undo>"
	case ChangeUseDefault:
		return DefaultLabel
	default:
		return c.v.String()
	}
}
