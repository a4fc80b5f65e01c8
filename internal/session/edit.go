package session

import (
	"fmt"

	"github.com/leapstack-labs/gridedit/pkg/overlay"
	"github.com/leapstack-labs/gridedit/pkg/value"
)

// CellView resolves what the grid shows at a cell.
func (s *Session) CellView(row, col int) (overlay.CellView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.row(row)
	if err != nil {
		return overlay.CellView{}, err
	}
	name, err := s.column(col)
	if err != nil {
		return overlay.CellView{}, err
	}
	return s.cellView(r, col, name), nil
}

func (s *Session) cellView(r overlay.MergedRow, col int, name string) overlay.CellView {
	info := overlay.ColInfo{Name: name, Classes: s.classes}
	if r.IsInsertion() {
		return overlay.ResolveInsertion(r.Value(col), info)
	}
	var key string
	if s.table.PKColumn != "" {
		key = r.Value(s.table.ColumnIndex(s.table.PKColumn)).Key()
	}
	return overlay.ResolveExisting(r.Value(col), key, s.table.PKColumn, s.store, info)
}

// RowPendingDeletion reports whether an existing row is scheduled for
// deletion.
func (s *Session) RowPendingDeletion(row int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingDeletion(row)
}

func (s *Session) pendingDeletion(row int) bool {
	r, err := s.row(row)
	if err != nil || r.IsInsertion() {
		return false
	}
	pk, err := s.pkOf(r)
	if err != nil {
		return false
	}
	return s.store.IsMarkedForDeletion(pk.Key())
}

// CommitCell records draft text for a cell. A draft equal to the original
// value in text form clears the cell's pending change instead.
func (s *Session) CommitCell(row, col int, draft string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitCell(row, col, draft)
}

func (s *Session) commitCell(row, col int, draft string) error {
	r, err := s.row(row)
	if err != nil {
		return err
	}
	name, err := s.column(col)
	if err != nil {
		return err
	}
	original := r.Value(col)

	if r.IsInsertion() {
		if overlay.IsUnchanged(draft, original) {
			return nil
		}
		s.store = s.store.SetInsertionCell(r.TempID, name, overlay.ParseDraft(draft, original))
		return nil
	}

	pk, err := s.pkOf(r)
	if err != nil {
		return err
	}
	if s.store.IsMarkedForDeletion(pk.Key()) {
		return overlay.ErrRowPendingDeletion
	}
	change := overlay.Undo()
	if !overlay.IsUnchanged(draft, original) {
		change = overlay.Literal(overlay.ParseDraft(draft, original))
	}
	s.store = s.store.SetCellChange(pk, name, change)
	return nil
}

// SetValue writes a literal into a cell as is, bypassing draft parsing. It
// is how an empty string reaches a NULL cell.
func (s *Session) SetValue(row, col int, v value.Raw) error {
	return s.setCell(row, col, overlay.Literal(v))
}

// SetNull writes NULL into a cell.
func (s *Session) SetNull(row, col int) error {
	return s.setCell(row, col, overlay.Literal(value.Null()))
}

// SetDefault resets a cell to its schema default. On an insertion the
// column is left for the backend to fill in.
func (s *Session) SetDefault(row, col int) error {
	return s.setCell(row, col, overlay.UseDefault())
}

// RevertCell drops the pending change of a cell.
func (s *Session) RevertCell(row, col int) error {
	return s.setCell(row, col, overlay.Undo())
}

func (s *Session) setCell(row, col int, c overlay.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.row(row)
	if err != nil {
		return err
	}
	name, err := s.column(col)
	if err != nil {
		return err
	}
	if r.IsInsertion() {
		// An insertion has no original to revert to; Undo, UseDefault and
		// NULL all leave the cell unset.
		v := value.Null()
		if c.Kind() == overlay.ChangeLiteral {
			v = c.Value()
		}
		s.store = s.store.SetInsertionCell(r.TempID, name, v)
		return nil
	}
	pk, err := s.pkOf(r)
	if err != nil {
		return err
	}
	if !c.IsUndo() && s.store.IsMarkedForDeletion(pk.Key()) {
		return overlay.ErrRowPendingDeletion
	}
	s.store = s.store.SetCellChange(pk, name, c)
	return nil
}

// DeleteRow schedules an existing row for deletion. Deleting a pending
// insertion discards it.
func (s *Session) DeleteRow(row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.row(row)
	if err != nil {
		return err
	}
	if r.IsInsertion() {
		s.store = s.store.DiscardInsertion(r.TempID)
		s.sel = s.sel.Prune(len(s.rows()))
		s.relocateEdit()
		return nil
	}
	pk, err := s.pkOf(r)
	if err != nil {
		return err
	}
	s.store = s.store.MarkForDeletion(pk)
	if e, ok := s.cursor.State(); ok && e.Row == row {
		s.cursor.Cancel()
	}
	return nil
}

// UndeleteRow cancels a scheduled deletion.
func (s *Session) UndeleteRow(row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.row(row)
	if err != nil {
		return err
	}
	if r.IsInsertion() {
		return nil
	}
	pk, err := s.pkOf(r)
	if err != nil {
		return err
	}
	s.store = s.store.RevertDeletion(pk)
	return nil
}

// ToggleDeleteRow deletes or undeletes a row.
func (s *Session) ToggleDeleteRow(row int) error {
	if s.RowPendingDeletion(row) {
		return s.UndeleteRow(row)
	}
	return s.DeleteRow(row)
}

// AddInsertion appends a pending new row and returns its display index and
// temporary id. Values for unknown columns are dropped.
func (s *Session) AddInsertion(data map[string]value.Raw) (int, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return -1, "", ErrNotLoaded
	}
	if s.table.Name == "" {
		return -1, "", ErrReadOnly
	}
	clean := make(map[string]value.Raw, len(data))
	for k, v := range data {
		if s.table.ColumnIndex(k) >= 0 {
			clean[k] = v
		}
	}
	var id string
	s.store, id = s.store.AddInsertion(clean)
	return len(s.rows()) - 1, id, nil
}

// DiscardInsertion drops a pending insertion by temporary id.
func (s *Session) DiscardInsertion(tempID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.store.Insertion(tempID); !ok {
		return fmt.Errorf("%w: insertion %s", ErrNoSuchRow, tempID)
	}
	s.store = s.store.DiscardInsertion(tempID)
	s.sel = s.sel.Prune(len(s.rows()))
	s.relocateEdit()
	return nil
}

// Click applies a row click to the selection.
func (s *Session) Click(row int, mods overlay.Modifiers) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.row(row); err != nil {
		return err
	}
	s.sel, s.anchor = overlay.Click(row, mods, s.sel.Prune(len(s.rows())), s.anchor)
	return nil
}

// ToggleSelectAll selects every row, or clears a full selection.
func (s *Session) ToggleSelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.rows())
	s.sel = overlay.ToggleAll(s.sel.Prune(n), n)
}

// ClearSelection empties the selection.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel = overlay.Selection{}
	s.anchor = overlay.Anchor{}
}

// Selection returns the current selection, pruned to the grid.
func (s *Session) Selection() overlay.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel = s.sel.Prune(len(s.rows()))
	return s.sel
}
