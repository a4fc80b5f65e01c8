package overlay

import (
	"maps"
	"slices"

	"github.com/leapstack-labs/gridedit/pkg/core"
	"github.com/leapstack-labs/gridedit/pkg/value"
)

// Update is one planned cell update.
type Update struct {
	PK     value.Raw
	Column string
	Change Change
}

// Insert is one planned row insertion.
type Insert struct {
	TempID string
	Data   []core.ColumnValue
}

// Plan is the set of remote calls a commit issues.
type Plan struct {
	Table     string
	PKColumn  string
	Updates   []Update
	Deletions []value.Raw
	Inserts   []Insert
}

// Empty reports whether the plan issues no call.
func (p Plan) Empty() bool {
	return len(p.Updates) == 0 && len(p.Deletions) == 0 && len(p.Inserts) == 0
}

// Calls returns the number of remote calls of the plan.
func (p Plan) Calls() int {
	return len(p.Updates) + len(p.Deletions) + len(p.Inserts)
}

// TableInfo describes the table a plan targets.
type TableInfo struct {
	Name     string
	PKColumn string
	Columns  []string
	Classes  ColumnClasses
}

// ColumnIndex returns the position of a column in the result, or -1.
func (t TableInfo) ColumnIndex(name string) int {
	if name == "" {
		return -1
	}
	return slices.Index(t.Columns, name)
}

// Scope is the subset of pending entries a commit or rollback acts on.
type Scope struct {
	All     bool
	PKs     map[string]struct{}
	TempIDs map[string]struct{}
}

func (sc Scope) hasPK(key string) bool {
	if sc.All {
		return true
	}
	_, ok := sc.PKs[key]
	return ok
}

func (sc Scope) hasTempID(id string) bool {
	if sc.All {
		return true
	}
	_, ok := sc.TempIDs[id]
	return ok
}

// ScopeFor translates a selection into a scope. Scope-to-all and an empty
// selection both cover the whole store. Selected indices that do not
// address a merged row are ignored.
func ScopeFor(sel Selection, scopeToAll bool, rows []MergedRow, pkIndex int) Scope {
	if scopeToAll || sel.Empty() {
		return Scope{All: true}
	}
	sc := Scope{PKs: make(map[string]struct{}), TempIDs: make(map[string]struct{})}
	for _, i := range sel.Indices() {
		if i < 0 || i >= len(rows) {
			continue
		}
		row := rows[i]
		if row.IsInsertion() {
			sc.TempIDs[row.TempID] = struct{}{}
			continue
		}
		if pkIndex >= 0 {
			sc.PKs[row.Value(pkIndex).Key()] = struct{}{}
		}
	}
	return sc
}

// PlanCommit builds the plan for the pending entries in scope.
//
// A row pending deletion only produces its delete call; its cell changes
// are not sent. Every changed cell is its own update call. Rows are visited
// in display order, columns in result order, and entries for rows not in
// the merged list follow sorted by key. Without a primary key column only
// inserts are planned.
func PlanCommit(store *Store, sel Selection, scopeToAll bool, rows []MergedRow, table TableInfo) Plan {
	p := Plan{Table: table.Name, PKColumn: table.PKColumn}
	pkIndex := table.ColumnIndex(table.PKColumn)
	sc := ScopeFor(sel, scopeToAll, rows, pkIndex)

	if table.PKColumn != "" {
		for _, key := range rowKeyOrder(store, rows, pkIndex) {
			if !sc.hasPK(key) {
				continue
			}
			if pk, ok := store.Deletion(key); ok {
				p.Deletions = append(p.Deletions, pk)
				continue
			}
			entry, ok := store.Entry(key)
			if !ok {
				continue
			}
			for _, col := range columnOrder(entry.Changes, table.Columns) {
				p.Updates = append(p.Updates, Update{
					PK:     entry.OriginalPK,
					Column: col,
					Change: entry.Changes[col],
				})
			}
		}
	}

	for _, ins := range store.Insertions() {
		if !sc.hasTempID(ins.TempID) {
			continue
		}
		p.Inserts = append(p.Inserts, Insert{
			TempID: ins.TempID,
			Data:   insertData(ins.Data, table),
		})
	}
	return p
}

// Rollback clears the pending entries in scope without any remote call.
func Rollback(store *Store, sel Selection, scopeToAll bool, rows []MergedRow, table TableInfo) *Store {
	return store.Without(ScopeFor(sel, scopeToAll, rows, table.ColumnIndex(table.PKColumn)))
}

// rowKeyOrder lists every key with a pending change or deletion, in display
// order first.
func rowKeyOrder(store *Store, rows []MergedRow, pkIndex int) []string {
	pending := make(map[string]struct{})
	for _, k := range store.ChangeKeys() {
		pending[k] = struct{}{}
	}
	for _, k := range store.DeletionKeys() {
		pending[k] = struct{}{}
	}
	if len(pending) == 0 {
		return nil
	}

	keys := make([]string, 0, len(pending))
	if pkIndex >= 0 {
		for _, row := range rows {
			if row.IsInsertion() {
				continue
			}
			k := row.Value(pkIndex).Key()
			if _, ok := pending[k]; ok {
				keys = append(keys, k)
				delete(pending, k)
			}
		}
	}
	return append(keys, slices.Sorted(maps.Keys(pending))...)
}

func columnOrder(changes map[string]Change, columns []string) []string {
	out := make([]string, 0, len(changes))
	seen := make(map[string]struct{}, len(changes))
	for _, c := range columns {
		if _, ok := changes[c]; ok {
			out = append(out, c)
			seen[c] = struct{}{}
		}
	}
	var rest []string
	for c := range changes {
		if _, ok := seen[c]; !ok {
			rest = append(rest, c)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}

// insertData lists the columns an insert writes. Columns never set are left
// to the backend, as are NULL cells of generated and defaulted columns.
func insertData(data map[string]value.Raw, table TableInfo) []core.ColumnValue {
	omit := func(col string, v value.Raw) bool {
		return v.IsNull() && (table.Classes.IsAutoIncrement(col) || table.Classes.HasDefault(col))
	}
	out := make([]core.ColumnValue, 0, len(data))
	seen := make(map[string]struct{}, len(data))
	for _, col := range table.Columns {
		v, ok := data[col]
		if !ok {
			continue
		}
		seen[col] = struct{}{}
		if omit(col, v) {
			continue
		}
		out = append(out, core.ColumnValue{Column: col, Value: v})
	}
	for _, col := range slices.Sorted(maps.Keys(data)) {
		if _, ok := seen[col]; ok || omit(col, data[col]) {
			continue
		}
		out = append(out, core.ColumnValue{Column: col, Value: data[col]})
	}
	return out
}
