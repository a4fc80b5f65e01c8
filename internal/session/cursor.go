package session

import (
	"errors"

	"github.com/leapstack-labs/gridedit/pkg/overlay"
)

// Editing returns the open edit, if any.
func (s *Session) Editing() (overlay.Edit, bool) {
	return s.cursor.State()
}

// BeginEdit opens a cell seeded with its effective value. Rows pending
// deletion cannot be edited, nor can existing rows of a read-only result.
func (s *Session) BeginEdit(row, col int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.beginEdit(overlay.Position{Row: row, Col: col})
}

func (s *Session) beginEdit(pos overlay.Position) error {
	r, err := s.row(pos.Row)
	if err != nil {
		return err
	}
	name, err := s.column(pos.Col)
	if err != nil {
		return err
	}
	if !r.IsInsertion() && s.table.PKColumn == "" {
		return ErrReadOnly
	}

	seed := r.Value(pos.Col)
	ref := editRef{column: name, tempID: r.TempID}
	if !r.IsInsertion() {
		ref.pk = r.Value(s.table.ColumnIndex(s.table.PKColumn)).Key()
		if c, ok := s.store.Change(ref.pk, name); ok {
			seed = c.Value()
		}
	}
	text := ""
	if !seed.IsNull() {
		text = seed.String()
	}
	if err := s.cursor.Begin(pos, text, s.pendingDeletion(pos.Row)); err != nil {
		return err
	}
	s.edit = ref
	return nil
}

// recordEdit stores a confirmed draft. A draft left as the cell opened
// records nothing, so a pending NULL or default survives being passed
// through.
func (s *Session) recordEdit(e overlay.Edit) error {
	if e.Untouched() {
		return nil
	}
	return s.commitCell(e.Row, e.Col, e.Draft)
}

// relocateEdit re-addresses the open cell after a refresh by its row's
// primary key or insertion id. It reports false, closing the cell, when
// the row or column is gone.
func (s *Session) relocateEdit() bool {
	if _, ok := s.cursor.State(); !ok {
		return true
	}
	col := s.table.ColumnIndex(s.edit.column)
	if col >= 0 {
		pkIdx := s.table.ColumnIndex(s.table.PKColumn)
		for i, r := range s.rows() {
			switch {
			case s.edit.tempID != "":
				if r.TempID != s.edit.tempID {
					continue
				}
			case r.IsInsertion() || pkIdx < 0 || r.Value(pkIdx).Key() != s.edit.pk:
				continue
			}
			if s.pendingDeletion(i) {
				break
			}
			s.cursor.Move(overlay.Position{Row: i, Col: col})
			return true
		}
	}
	s.cursor.Cancel()
	return false
}

// SetDraft replaces the draft text of the open cell.
func (s *Session) SetDraft(draft string) error {
	return s.cursor.SetDraft(draft)
}

// ConfirmEdit records the open cell's draft and closes it. It is a no-op
// when no cell is open, so a blur followed by Enter records once. When
// recording fails the cell stays open.
func (s *Session) ConfirmEdit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _, err := s.cursor.Confirm(s.recordEdit)
	return err
}

// BlurEdit handles focus loss like ConfirmEdit.
func (s *Session) BlurEdit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _, err := s.cursor.Blur(s.recordEdit)
	return err
}

// CancelEdit discards the draft. It reports whether a cell was open.
func (s *Session) CancelEdit() bool {
	return s.cursor.Cancel()
}

// TabAdvance records the open cell and opens the next one, wrapping to
// the next row and from the last row to the first. Rows pending deletion
// are skipped. It returns the newly opened position. When recording fails
// the cell stays open.
func (s *Session) TabAdvance() (overlay.Position, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, cols := len(s.rows()), len(s.table.Columns)
	next, ok, err := s.cursor.Advance(rows, cols, s.recordEdit)
	if !ok || err != nil {
		return overlay.Position{}, false, err
	}
	for range rows * cols {
		err := s.beginEdit(next)
		switch {
		case err == nil:
			return next, true, nil
		case errors.Is(err, overlay.ErrRowPendingDeletion), errors.Is(err, ErrReadOnly):
			next = overlay.NextPosition(next, rows, cols)
		default:
			return overlay.Position{}, false, err
		}
	}
	return overlay.Position{}, false, nil
}
