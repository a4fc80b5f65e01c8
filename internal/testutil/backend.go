package testutil

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/leapstack-labs/gridedit/pkg/core"
	"github.com/leapstack-labs/gridedit/pkg/value"
)

// ErrNoSuchTable is returned by MemoryBackend for unknown tables.
var ErrNoSuchTable = errors.New("no such table")

var (
	fromRe  = regexp.MustCompile(`(?i)\bFROM\s+"?([A-Za-z_][\w.]*)"?`)
	orderRe = regexp.MustCompile(`(?i)\bORDER\s+BY\s+"?(\w+)"?(?:\s+(ASC|DESC))?\s*$`)
)

type memTable struct {
	columns []core.Column
	rows    [][]value.Raw
	nextID  int64
}

// MemoryBackend is an in-memory core.Adapter. Queries are resolved to the
// first table named after a FROM; a trailing ORDER BY on one column and
// pagination are honoured, everything else in the query is ignored.
type MemoryBackend struct {
	mu       sync.Mutex
	tables   map[string]*memTable
	requests []core.SnapshotRequest
	calls    []string
	failures map[string]error
	gate     chan struct{}

	// FetchErr, when set, fails every FetchSnapshot.
	FetchErr error
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		tables:   make(map[string]*memTable),
		failures: make(map[string]error),
	}
}

// AddTable creates a table. Rows are positional in column order.
func (b *MemoryBackend) AddTable(name string, cols []core.Column, rows ...[]value.Raw) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := &memTable{columns: cols}
	for _, r := range rows {
		t.rows = append(t.rows, slices.Clone(r))
	}
	t.nextID = int64(len(rows))
	b.tables[name] = t
}

// Rows returns a copy of a table's rows.
func (b *MemoryBackend) Rows(table string) [][]value.Raw {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tables[table]
	if !ok {
		return nil
	}
	out := make([][]value.Raw, len(t.rows))
	for i, r := range t.rows {
		out[i] = slices.Clone(r)
	}
	return out
}

// Requests returns every snapshot request received.
func (b *MemoryBackend) Requests() []core.SnapshotRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.requests)
}

// Calls returns the mutations applied or attempted, e.g. "update users 1 name".
func (b *MemoryBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := slices.Clone(b.calls)
	slices.Sort(out)
	return out
}

// FailUpdate makes updates of one cell fail with err.
func (b *MemoryBackend) FailUpdate(pk value.Raw, column string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures["update "+pk.Key()+" "+column] = err
}

// FailDelete makes deletion of one row fail with err.
func (b *MemoryBackend) FailDelete(pk value.Raw, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures["delete "+pk.Key()] = err
}

// FailInserts makes every insert fail with err.
func (b *MemoryBackend) FailInserts(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures["insert"] = err
}

// Hold blocks every mutation until the returned release func is called.
func (b *MemoryBackend) Hold() (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.gate = gate
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			b.gate = nil
			b.mu.Unlock()
			close(gate)
		})
	}
}

func (b *MemoryBackend) wait(ctx context.Context) error {
	b.mu.Lock()
	gate := b.gate
	b.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect is a no-op.
func (b *MemoryBackend) Connect(context.Context, core.AdapterConfig) error { return nil }

// Close is a no-op.
func (b *MemoryBackend) Close() error { return nil }

// DialectName returns "duckdb" so generated SQL uses double-quoted identifiers.
func (b *MemoryBackend) DialectName() string { return "duckdb" }

// FetchSnapshot returns a page of the table the query reads.
func (b *MemoryBackend) FetchSnapshot(_ context.Context, req core.SnapshotRequest) (*core.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requests = append(b.requests, req)
	if b.FetchErr != nil {
		return nil, b.FetchErr
	}

	t, err := b.resolve(req.Query)
	if err != nil {
		return nil, err
	}

	snap := &core.Snapshot{Columns: make([]string, len(t.columns))}
	for i, c := range t.columns {
		snap.Columns[i] = c.Name
	}
	rows := make([][]value.Raw, len(t.rows))
	for i, r := range t.rows {
		rows[i] = slices.Clone(r)
	}

	if m := orderRe.FindStringSubmatch(strings.TrimSpace(req.Query)); m != nil {
		if col := slices.Index(snap.Columns, m[1]); col >= 0 {
			desc := strings.EqualFold(m[2], "DESC")
			slices.SortStableFunc(rows, func(x, y []value.Raw) int {
				c := strings.Compare(x[col].String(), y[col].String())
				if xi, ok := x[col].AsFloat(); ok {
					if yi, ok := y[col].AsFloat(); ok {
						c = compareFloat(xi, yi)
					}
				}
				if desc {
					return -c
				}
				return c
			})
		}
	}

	if req.PageSize > 0 {
		total := len(rows)
		offset := min(req.Offset(), total)
		end := min(offset+req.PageSize, total)
		rows = rows[offset:end]
		snap.Pagination = &core.Pagination{
			Page:      max(req.Page, 1),
			PageSize:  req.PageSize,
			TotalRows: int64(total),
			Truncated: end < total,
		}
	}
	snap.Rows = rows
	return snap, nil
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (b *MemoryBackend) resolve(query string) (*memTable, error) {
	for _, m := range fromRe.FindAllStringSubmatch(query, -1) {
		if t, ok := b.tables[m[1]]; ok {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w in query %q", ErrNoSuchTable, query)
}

func (b *MemoryBackend) table(name string) (*memTable, error) {
	t, ok := b.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchTable, name)
	}
	return t, nil
}

// GetColumnMetadata returns the columns given to AddTable.
func (b *MemoryBackend) GetColumnMetadata(_ context.Context, table string) ([]core.Column, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, err := b.table(table)
	if err != nil {
		return nil, err
	}
	return slices.Clone(t.columns), nil
}

func (t *memTable) index(column string) int {
	return slices.IndexFunc(t.columns, func(c core.Column) bool { return c.Name == column })
}

func (t *memTable) find(pkColumn string, pk value.Raw) (int, int) {
	col := t.index(pkColumn)
	if col < 0 {
		return -1, -1
	}
	for i, r := range t.rows {
		if r[col].Key() == pk.Key() {
			return i, col
		}
	}
	return -1, col
}

func (c memColumnDefault) value() value.Raw {
	if !c.HasDefault {
		return value.Null()
	}
	return value.Text(strings.Trim(c.Default, "'"))
}

type memColumnDefault struct{ core.Column }

// UpdateCell sets one cell.
func (b *MemoryBackend) UpdateCell(ctx context.Context, table, pkColumn string, pkValue value.Raw, column string, v core.CellValue) error {
	if err := b.wait(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, fmt.Sprintf("update %s %s %s", table, pkValue, column))
	if err := b.failures["update "+pkValue.Key()+" "+column]; err != nil {
		return err
	}
	t, err := b.table(table)
	if err != nil {
		return err
	}
	row, _ := t.find(pkColumn, pkValue)
	col := t.index(column)
	if row < 0 || col < 0 {
		return nil
	}
	if v.UseDefault {
		t.rows[row][col] = memColumnDefault{t.columns[col]}.value()
		return nil
	}
	t.rows[row][col] = v.Value
	return nil
}

// DeleteRow removes one row.
func (b *MemoryBackend) DeleteRow(ctx context.Context, table, pkColumn string, pkValue value.Raw) error {
	if err := b.wait(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, fmt.Sprintf("delete %s %s", table, pkValue))
	if err := b.failures["delete "+pkValue.Key()]; err != nil {
		return err
	}
	t, err := b.table(table)
	if err != nil {
		return err
	}
	if row, _ := t.find(pkColumn, pkValue); row >= 0 {
		t.rows = slices.Delete(t.rows, row, row+1)
	}
	return nil
}

// InsertRow appends a row. Auto-increment columns get the next id, other
// missing columns their default or NULL.
func (b *MemoryBackend) InsertRow(ctx context.Context, table string, data []core.ColumnValue) error {
	if err := b.wait(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "insert "+table)
	if err := b.failures["insert"]; err != nil {
		return err
	}
	t, err := b.table(table)
	if err != nil {
		return err
	}
	row := make([]value.Raw, len(t.columns))
	set := make([]bool, len(t.columns))
	for _, cv := range data {
		if i := t.index(cv.Column); i >= 0 {
			row[i], set[i] = cv.Value, true
		}
	}
	for i, c := range t.columns {
		if set[i] {
			continue
		}
		switch {
		case c.AutoIncrement:
			t.nextID++
			row[i] = value.Int(t.nextID)
		default:
			row[i] = memColumnDefault{c}.value()
		}
	}
	t.rows = append(t.rows, row)
	return nil
}

// Ensure MemoryBackend implements core.Adapter
var _ core.Adapter = (*MemoryBackend)(nil)
