package core

import "github.com/leapstack-labs/gridedit/pkg/value"

// SnapshotRequest describes one page of a query.
// A PageSize of zero disables pagination.
type SnapshotRequest struct {
	Query    string
	Page     int
	PageSize int
}

// Offset returns the number of rows skipped before the requested page.
func (r SnapshotRequest) Offset() int {
	if r.Page < 1 || r.PageSize <= 0 {
		return 0
	}
	return (r.Page - 1) * r.PageSize
}

// Pagination holds the paging metadata of a snapshot.
type Pagination struct {
	Page      int
	PageSize  int
	TotalRows int64
	// Truncated is true when rows exist past this page.
	Truncated bool
}

// Snapshot is the immutable result of one query execution. Rows are
// positionally aligned with Columns. A snapshot is replaced, never mutated.
type Snapshot struct {
	Columns      []string
	Rows         [][]value.Raw
	Pagination   *Pagination
	AffectedRows int64
}

// ColumnIndex returns the position of a column, or -1.
func (s *Snapshot) ColumnIndex(name string) int {
	if s == nil {
		return -1
	}
	for i, c := range s.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Len returns the number of rows in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Rows)
}
