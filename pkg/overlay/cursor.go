package overlay

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/leapstack-labs/gridedit/pkg/value"
)

var (
	// ErrRowPendingDeletion is returned when editing a row scheduled for
	// deletion.
	ErrRowPendingDeletion = errors.New("row is pending deletion")
	// ErrNotEditing is returned by draft updates while no cell is open.
	ErrNotEditing = errors.New("no cell is being edited")
)

// Position addresses a cell of the merged grid.
type Position struct {
	Row int
	Col int
}

// Edit is an open cell with its draft text. Seed is the text the cell
// opened with; a draft still equal to it records nothing.
type Edit struct {
	Position
	Draft string
	Seed  string
}

// Untouched reports whether the draft is still the text the cell opened
// with.
func (e Edit) Untouched() bool { return e.Draft == e.Seed }

// Cursor is the edit state machine: idle, or editing one cell.
type Cursor struct {
	mu      sync.Mutex
	editing bool
	edit    Edit
}

// Begin opens the cell at pos seeded with its current display text.
func (c *Cursor) Begin(pos Position, seed string, pendingDeletion bool) error {
	if pendingDeletion {
		return ErrRowPendingDeletion
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editing = true
	c.edit = Edit{Position: pos, Draft: seed, Seed: seed}
	return nil
}

// State returns the open edit, if any.
func (c *Cursor) State() (Edit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.edit, c.editing
}

// SetDraft replaces the draft text of the open cell.
func (c *Cursor) SetDraft(draft string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.editing {
		return ErrNotEditing
	}
	c.edit.Draft = draft
	return nil
}

// Move re-addresses the open cell, keeping its draft. It reports whether
// a cell was open.
func (c *Cursor) Move(pos Position) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.editing {
		return false
	}
	c.edit.Position = pos
	return true
}

// Confirm passes the open cell to record and closes it once record
// succeeds. On a record error the cell stays open with its draft. A
// trigger arriving after the cell was already closed returns false, so a
// blur followed by Enter records the draft once. record must not call
// back into the cursor.
func (c *Cursor) Confirm(record func(Edit) error) (Edit, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.editing {
		return Edit{}, false, nil
	}
	if err := record(c.edit); err != nil {
		return c.edit, true, err
	}
	c.editing = false
	return c.edit, true, nil
}

// Blur is a focus loss. It commits like Confirm.
func (c *Cursor) Blur(record func(Edit) error) (Edit, bool, error) { return c.Confirm(record) }

// Cancel discards the draft.
func (c *Cursor) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	was := c.editing
	c.editing = false
	c.edit = Edit{}
	return was
}

// Advance confirms the open cell like Confirm and returns the position Tab
// moves to in a grid of rows by cols. The caller opens the next cell with
// Begin.
func (c *Cursor) Advance(rows, cols int, record func(Edit) error) (Position, bool, error) {
	e, ok, err := c.Confirm(record)
	if !ok || err != nil {
		return Position{}, ok, err
	}
	return NextPosition(e.Position, rows, cols), true, nil
}

// NextPosition moves one cell right, wrapping to the first column of the
// next row and from the last row back to row 0.
func NextPosition(pos Position, rows, cols int) Position {
	if rows <= 0 || cols <= 0 {
		return Position{}
	}
	next := Position{Row: pos.Row, Col: pos.Col + 1}
	if next.Col >= cols {
		next.Col = 0
		next.Row++
	}
	if next.Row >= rows {
		next.Row = 0
	}
	return next
}

// IsUnchanged reports whether a draft is the original value in text form.
// The comparison ignores types: "1" is the number 1. A NULL cell opens
// with an empty draft, so an empty draft of a NULL cell is unchanged too;
// an explicit empty string is written with a literal instead of a draft.
func IsUnchanged(draft string, original value.Raw) bool {
	if original.IsNull() {
		return draft == "" || draft == original.String()
	}
	return draft == original.String()
}

// ParseDraft converts draft text to a value shaped like the original: a
// draft of a numeric cell that parses as a number stays numeric, likewise
// for booleans and JSON documents. Anything else is text.
func ParseDraft(draft string, like value.Raw) value.Raw {
	s := strings.TrimSpace(draft)
	switch like.Kind() {
	case value.KindNumber:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return value.Int(i)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return value.Float(f)
		}
	case value.KindBool:
		if b, err := strconv.ParseBool(s); err == nil {
			return value.Bool(b)
		}
	case value.KindJSON:
		if v, err := value.JSON([]byte(s)); err == nil {
			return v
		}
	}
	return value.Text(draft)
}
