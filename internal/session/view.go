package session

import (
	"github.com/leapstack-labs/gridedit/pkg/core"
	"github.com/leapstack-labs/gridedit/pkg/overlay"
)

// RowView is one display row with every cell resolved.
type RowView struct {
	Index           int
	Insertion       bool
	TempID          string
	PendingDeletion bool
	Selected        bool
	// Modified is set when any cell of the row has a pending change.
	Modified bool
	Cells    []overlay.CellView
}

// GridView is a consistent picture of the session for rendering.
type GridView struct {
	Table      string
	Columns    []string
	Rows       []RowView
	Pagination *core.Pagination
	ReadOnly   bool
	Pending    int
	Committing bool
	Editing    *overlay.Edit
	Err        error
}

// View resolves every displayed cell under one lock.
func (s *Session) View() GridView {
	committing := s.coord.Committing()

	s.mu.Lock()
	defer s.mu.Unlock()

	v := GridView{
		Table:      s.opts.Table,
		Columns:    s.table.Columns,
		ReadOnly:   s.table.PKColumn == "",
		Pending:    s.store.PendingCount(),
		Committing: committing,
		Err:        s.lastErr,
	}
	if s.snap == nil {
		return v
	}
	v.Pagination = s.snap.Pagination
	if e, ok := s.cursor.State(); ok {
		v.Editing = &e
	}

	rows := s.rows()
	s.sel = s.sel.Prune(len(rows))
	v.Rows = make([]RowView, len(rows))
	for i, r := range rows {
		rv := RowView{
			Index:     i,
			Insertion: r.IsInsertion(),
			TempID:    r.TempID,
			Selected:  s.sel.Has(i),
			Cells:     make([]overlay.CellView, len(s.table.Columns)),
		}
		if !rv.Insertion {
			rv.PendingDeletion = s.pendingDeletion(i)
		}
		for col, name := range s.table.Columns {
			rv.Cells[col] = s.cellView(r, col, name)
			rv.Modified = rv.Modified || rv.Cells[col].HasPendingChange
		}
		v.Rows[i] = rv
	}
	return v
}
