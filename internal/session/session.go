// Package session binds a table query result to its pending overlay. A
// Session owns one grid: the current snapshot, the pending change store,
// the selection, the edit cursor and the commit guard, and exposes the
// operations a host (shell or TUI) drives.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/leapstack-labs/gridedit/internal/state"
	"github.com/leapstack-labs/gridedit/pkg/core"
	"github.com/leapstack-labs/gridedit/pkg/dialect"
	"github.com/leapstack-labs/gridedit/pkg/overlay"
	"github.com/leapstack-labs/gridedit/pkg/value"
)

var (
	// ErrReadOnly is returned for row edits when the result has no usable
	// primary key, and for inserts when the session has no table.
	ErrReadOnly = errors.New("result is read-only: no primary key")
	// ErrNoSuchRow is returned for display indices outside the grid.
	ErrNoSuchRow = errors.New("no such row")
	// ErrNoSuchColumn is returned for column indices outside the grid.
	ErrNoSuchColumn = errors.New("no such column")
	// ErrNotLoaded is returned before the first successful fetch.
	ErrNotLoaded = errors.New("no result loaded")
)

// DefaultPageSize is used when Options.PageSize is zero.
const DefaultPageSize = 100

// Options configures a Session.
type Options struct {
	// Table is the table edits are written to. Without it the result is
	// read-only.
	Table string
	// Query overrides the default SELECT * FROM Table.
	Query string
	// PageSize of zero uses DefaultPageSize; negative disables pagination.
	PageSize int
	// Concurrency bounds the calls of a commit in flight; zero is unbounded.
	Concurrency int
	// Journal, when set, records every executed commit batch.
	Journal state.Journal
	Logger  *slog.Logger
}

// SortSpec orders the result by one column.
type SortSpec struct {
	Column string
	Desc   bool
}

// editRef identifies the open cell's row independently of its display
// position: by primary key for existing rows, by temp id for insertions.
type editRef struct {
	pk     string
	tempID string
	column string
}

// CommitResult is the outcome of a Submit.
type CommitResult struct {
	Plan  overlay.Plan
	Calls []overlay.Call
	// BatchID is the journal id, empty when no journal is configured.
	BatchID string
}

// Session is one editable grid. It is safe for concurrent use; a commit
// runs without holding the session so the grid stays editable meanwhile.
type Session struct {
	adapter core.Adapter
	opts    Options
	logger  *slog.Logger
	dialect *dialect.Dialect
	coord   *overlay.Coordinator
	merger  overlay.Merger
	cursor  overlay.Cursor

	mu      sync.Mutex
	edit    editRef
	columns []core.Column
	classes overlay.ColumnClasses
	table   overlay.TableInfo
	snap    *core.Snapshot
	store   *overlay.Store
	sel     overlay.Selection
	anchor  overlay.Anchor
	sort    *SortSpec
	filter  string
	page    int
	lastErr error
}

// New creates a session over a connected adapter.
func New(a core.Adapter, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.PageSize == 0 {
		opts.PageSize = DefaultPageSize
	}
	return &Session{
		adapter: a,
		opts:    opts,
		logger:  logger.With("table", opts.Table),
		dialect: dialect.Resolve(a.DialectName()),
		coord:   overlay.NewCoordinator(opts.Concurrency, logger),
		store:   overlay.NewStore(),
		page:    1,
	}
}

// Load reads the table's column metadata and executes the query, clearing
// any pending state.
func (s *Session) Load(ctx context.Context) error {
	if s.opts.Table != "" {
		cols, err := s.adapter.GetColumnMetadata(ctx, s.opts.Table)
		if err != nil {
			s.setErr(fmt.Errorf("failed to read columns of %s: %w", s.opts.Table, err))
			return s.LastError()
		}
		s.mu.Lock()
		s.columns = cols
		s.classes = overlay.ClassesFromColumns(cols)
		s.mu.Unlock()
	}
	return s.fetch(ctx, false)
}

// Refresh re-executes the query. Pending changes survive; the selection
// and any open edit are reset.
func (s *Session) Refresh(ctx context.Context) error {
	return s.fetch(ctx, true)
}

// Sort orders the result by a column and re-executes the query, clearing
// pending state. A nil spec restores the query's own order.
func (s *Session) Sort(ctx context.Context, spec *SortSpec) error {
	s.mu.Lock()
	if spec != nil && s.snap != nil && s.snap.ColumnIndex(spec.Column) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoSuchColumn, spec.Column)
	}
	s.sort = spec
	s.page = 1
	s.mu.Unlock()
	return s.fetch(ctx, false)
}

// Filter restricts the result with a SQL boolean expression and
// re-executes the query, clearing pending state. An empty expression
// removes the filter.
func (s *Session) Filter(ctx context.Context, where string) error {
	s.mu.Lock()
	s.filter = strings.TrimSpace(where)
	s.page = 1
	s.mu.Unlock()
	return s.fetch(ctx, false)
}

// Page moves to a 1-based page and re-executes the query, clearing
// pending state.
func (s *Session) Page(ctx context.Context, page int) error {
	s.mu.Lock()
	s.page = max(page, 1)
	s.mu.Unlock()
	return s.fetch(ctx, false)
}

// NextPage moves forward when more rows exist. It reports whether it moved.
func (s *Session) NextPage(ctx context.Context) (bool, error) {
	s.mu.Lock()
	more := s.snap != nil && s.snap.Pagination != nil && s.snap.Pagination.Truncated
	page := s.page + 1
	s.mu.Unlock()
	if !more {
		return false, nil
	}
	return true, s.Page(ctx, page)
}

// PrevPage moves back one page. It reports whether it moved.
func (s *Session) PrevPage(ctx context.Context) (bool, error) {
	s.mu.Lock()
	page := s.page - 1
	s.mu.Unlock()
	if page < 1 {
		return false, nil
	}
	return true, s.Page(ctx, page)
}

// Query returns the SQL the next fetch executes, before pagination.
func (s *Session) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query()
}

func (s *Session) query() string {
	base := s.opts.Query
	if base == "" {
		base = "SELECT * FROM " + s.quoteTable(s.opts.Table)
	}
	if s.filter == "" && s.sort == nil {
		return base
	}
	q := "SELECT * FROM (" + strings.TrimRight(strings.TrimSpace(base), "; \t\n") + ") AS gridedit_view"
	if s.filter != "" {
		q += " WHERE " + s.filter
	}
	if s.sort != nil {
		dir := "ASC"
		if s.sort.Desc {
			dir = "DESC"
		}
		q += " ORDER BY " + s.dialect.QuoteIdentifierIfNeeded(s.sort.Column) + " " + dir
	}
	return q
}

func (s *Session) quoteTable(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = s.dialect.QuoteIdentifierIfNeeded(p)
	}
	return strings.Join(parts, ".")
}

func (s *Session) fetch(ctx context.Context, preserve bool) error {
	s.mu.Lock()
	req := core.SnapshotRequest{Query: s.query(), Page: s.page, PageSize: max(s.opts.PageSize, 0)}
	s.mu.Unlock()

	s.logger.Debug("fetching rows", "query", req.Query, "page", req.Page, "preserve", preserve)
	snap, err := s.adapter.FetchSnapshot(ctx, req)
	if err != nil {
		s.setErr(fmt.Errorf("failed to fetch rows: %w", err))
		return s.LastError()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.lastErr = nil
	s.sel = overlay.Selection{}
	s.anchor = overlay.Anchor{}
	if !preserve {
		s.store = overlay.NewStore()
		s.cursor.Cancel()
	}

	s.table = overlay.TableInfo{
		Name:    s.opts.Table,
		Columns: snap.Columns,
		Classes: s.classes,
	}
	if pk := s.classes.PrimaryKey; pk != "" && snap.ColumnIndex(pk) >= 0 {
		s.table.PKColumn = pk
	}
	if s.table.PKColumn == "" && s.opts.Table != "" {
		s.logger.Info("result has no primary key column, rows are read-only")
	}
	if preserve && !s.relocateEdit() {
		s.logger.Debug("open cell left the result, edit closed")
	}
	return nil
}

func (s *Session) setErr(err error) {
	s.logger.Warn("session error", "error", err)
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// LastError returns the error of the last failed fetch or commit, cleared
// by the next successful fetch.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Snapshot returns the current snapshot, nil before the first fetch.
func (s *Session) Snapshot() *core.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Columns returns the table's column metadata.
func (s *Session) Columns() []core.Column {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.columns
}

// Table describes the table edits are written to.
func (s *Session) Table() overlay.TableInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table
}

// ReadOnly reports whether existing rows can be edited.
func (s *Session) ReadOnly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.PKColumn == ""
}

// Store returns the pending overlay.
func (s *Session) Store() *overlay.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}

// MergedRows returns the display rows: snapshot rows then insertions.
func (s *Session) MergedRows() []overlay.MergedRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows()
}

func (s *Session) rows() []overlay.MergedRow {
	return s.merger.Rows(s.snap, s.store)
}

// PendingCount returns the number of pending operations.
func (s *Session) PendingCount() int {
	return s.Store().PendingCount()
}

// HasPendingChanges reports whether anything is pending.
func (s *Session) HasPendingChanges() bool {
	return s.Store().HasPendingChanges()
}

// Committing reports whether a commit is in flight.
func (s *Session) Committing() bool {
	return s.coord.Committing()
}

// Plan previews what Submit would send.
func (s *Session) Plan(scopeAll bool) overlay.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return overlay.PlanCommit(s.store, s.sel, scopeAll, s.rows(), s.table)
}

// Submit commits the pending entries in scope: every entry when scopeAll
// is set or nothing is selected, otherwise those of the selected rows.
//
// On success the applied entries leave the overlay and the query is
// re-executed keeping what is still pending. On failure the overlay is
// left as it was and the batch error is returned; calls that succeeded are
// not compensated. Submitting while a commit is in flight returns
// overlay.ErrCommitInFlight.
func (s *Session) Submit(ctx context.Context, scopeAll bool) (CommitResult, error) {
	var started time.Time
	var batchID string

	plan := func() overlay.Plan {
		started = time.Now()
		return s.Plan(scopeAll)
	}
	settle := func(p overlay.Plan, calls []overlay.Call, err error) {
		s.mu.Lock()
		if err == nil {
			s.store = s.store.Reconcile(p)
		} else {
			s.lastErr = err
		}
		s.mu.Unlock()
		batchID = s.journal(ctx, p, calls, err, started)
	}

	p, calls, err := s.coord.Commit(ctx, s.adapter, plan, settle)
	res := CommitResult{Plan: p, Calls: calls, BatchID: batchID}
	if err != nil {
		return res, err
	}
	if p.Empty() {
		return res, nil
	}
	if err := s.Refresh(ctx); err != nil {
		return res, fmt.Errorf("changes committed but refresh failed: %w", err)
	}
	return res, nil
}

func (s *Session) journal(ctx context.Context, p overlay.Plan, calls []overlay.Call, err error, started time.Time) string {
	if s.opts.Journal == nil {
		return ""
	}
	b := state.NewBatch(p, calls, err, started, time.Since(started))
	if jerr := s.opts.Journal.RecordBatch(context.WithoutCancel(ctx), b); jerr != nil {
		s.logger.Warn("failed to journal commit batch", "error", jerr)
		return ""
	}
	return b.ID
}

// Rollback discards the pending entries in scope without any remote call.
func (s *Session) Rollback(scopeAll bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = overlay.Rollback(s.store, s.sel, scopeAll, s.rows(), s.table)
}

// row returns the merged row at a display index. Callers hold mu.
func (s *Session) row(idx int) (overlay.MergedRow, error) {
	if s.snap == nil {
		return overlay.MergedRow{}, ErrNotLoaded
	}
	rows := s.rows()
	if idx < 0 || idx >= len(rows) {
		return overlay.MergedRow{}, fmt.Errorf("%w: %d", ErrNoSuchRow, idx)
	}
	return rows[idx], nil
}

func (s *Session) column(idx int) (string, error) {
	if idx < 0 || idx >= len(s.table.Columns) {
		return "", fmt.Errorf("%w: %d", ErrNoSuchColumn, idx)
	}
	return s.table.Columns[idx], nil
}

// pkOf returns the primary key value of an existing row.
func (s *Session) pkOf(r overlay.MergedRow) (value.Raw, error) {
	if s.table.PKColumn == "" {
		return value.Raw{}, ErrReadOnly
	}
	return r.Value(s.table.ColumnIndex(s.table.PKColumn)), nil
}

// ColumnIndex returns the position of a result column, or -1.
func (s *Session) ColumnIndex(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.ColumnIndex(name)
}
