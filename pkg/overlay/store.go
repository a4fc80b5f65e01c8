package overlay

import (
	"maps"
	"slices"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/leapstack-labs/gridedit/pkg/value"
)

// ChangeEntry holds the pending cell changes of one existing row.
// An entry always has at least one change.
type ChangeEntry struct {
	OriginalPK value.Raw
	Changes    map[string]Change
}

// Insertion is a speculative new row.
type Insertion struct {
	TempID string
	Data   map[string]value.Raw
}

// revisions hands out insertion revisions. A revision identifies one state
// of a store's insertion list so merged rows can be memoized on it.
var revisions atomic.Uint64

// Store is the pending overlay: cell changes and deletions keyed by the
// serialized primary key, plus insertions in creation order.
//
// A Store is immutable. Every mutation returns a new Store and leaves the
// receiver untouched, so a Store can be shared with an in-flight commit. A
// nil *Store is a valid empty store.
type Store struct {
	changes    map[string]ChangeEntry
	deletions  map[string]value.Raw
	insertions []Insertion
	rev        uint64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

func (s *Store) clone() *Store {
	if s == nil {
		return &Store{}
	}
	return &Store{
		changes:    s.changes,
		deletions:  s.deletions,
		insertions: s.insertions,
		rev:        s.rev,
	}
}

// SetCellChange records a change for one column of the row whose primary
// key is pk. Undo removes the column's change and drops the row entry once
// it has none left.
func (s *Store) SetCellChange(pk value.Raw, column string, c Change) *Store {
	key := pk.Key()
	entry, exists := s.entry(key)

	if c.IsUndo() {
		if !exists {
			return s
		}
		if _, ok := entry.Changes[column]; !ok {
			return s
		}
		next := s.clone()
		next.changes = maps.Clone(s.changes)
		if len(entry.Changes) == 1 {
			delete(next.changes, key)
			return next
		}
		changes := maps.Clone(entry.Changes)
		delete(changes, column)
		next.changes[key] = ChangeEntry{OriginalPK: entry.OriginalPK, Changes: changes}
		return next
	}

	if exists {
		if cur, ok := entry.Changes[column]; ok && cur == c {
			return s
		}
	}

	next := s.clone()
	next.changes = maps.Clone(next.changes)
	if next.changes == nil {
		next.changes = make(map[string]ChangeEntry)
	}
	if !exists {
		entry = ChangeEntry{OriginalPK: pk}
	}
	changes := maps.Clone(entry.Changes)
	if changes == nil {
		changes = make(map[string]Change, 1)
	}
	changes[column] = c
	next.changes[key] = ChangeEntry{OriginalPK: entry.OriginalPK, Changes: changes}
	return next
}

// MarkForDeletion schedules the row with primary key pk for deletion. The
// value is kept verbatim so the backend receives its original type.
func (s *Store) MarkForDeletion(pk value.Raw) *Store {
	key := pk.Key()
	if s.IsMarkedForDeletion(key) {
		return s
	}
	next := s.clone()
	next.deletions = maps.Clone(next.deletions)
	if next.deletions == nil {
		next.deletions = make(map[string]value.Raw)
	}
	next.deletions[key] = pk
	return next
}

// RevertDeletion cancels a scheduled deletion.
func (s *Store) RevertDeletion(pk value.Raw) *Store {
	key := pk.Key()
	if !s.IsMarkedForDeletion(key) {
		return s
	}
	next := s.clone()
	next.deletions = maps.Clone(s.deletions)
	delete(next.deletions, key)
	return next
}

// AddInsertion appends a new speculative row and returns its temporary id.
// Temporary ids are random and never reused.
func (s *Store) AddInsertion(data map[string]value.Raw) (*Store, string) {
	id := uuid.NewString()
	next := s.clone()
	next.insertions = append(slices.Clip(next.insertions), Insertion{
		TempID: id,
		Data:   maps.Clone(data),
	})
	next.rev = revisions.Add(1)
	return next, id
}

// SetInsertionCell sets one column of a pending insertion. Unknown ids are
// ignored.
func (s *Store) SetInsertionCell(tempID, column string, v value.Raw) *Store {
	i := s.insertionIndex(tempID)
	if i < 0 {
		return s
	}
	if cur, ok := s.insertions[i].Data[column]; ok && cur == v {
		return s
	}
	next := s.clone()
	next.insertions = slices.Clone(s.insertions)
	data := maps.Clone(next.insertions[i].Data)
	if data == nil {
		data = make(map[string]value.Raw, 1)
	}
	data[column] = v
	next.insertions[i] = Insertion{TempID: tempID, Data: data}
	next.rev = revisions.Add(1)
	return next
}

// DiscardInsertion drops a pending insertion entirely.
func (s *Store) DiscardInsertion(tempID string) *Store {
	i := s.insertionIndex(tempID)
	if i < 0 {
		return s
	}
	next := s.clone()
	next.insertions = slices.Delete(slices.Clone(s.insertions), i, i+1)
	next.rev = revisions.Add(1)
	return next
}

// Change returns the pending change of one cell.
func (s *Store) Change(pkKey, column string) (Change, bool) {
	entry, ok := s.entry(pkKey)
	if !ok {
		return Change{}, false
	}
	c, ok := entry.Changes[column]
	return c, ok
}

// Entry returns a copy of the change entry of a row.
func (s *Store) Entry(pkKey string) (ChangeEntry, bool) {
	entry, ok := s.entry(pkKey)
	if !ok {
		return ChangeEntry{}, false
	}
	return ChangeEntry{OriginalPK: entry.OriginalPK, Changes: maps.Clone(entry.Changes)}, true
}

func (s *Store) entry(pkKey string) (ChangeEntry, bool) {
	if s == nil {
		return ChangeEntry{}, false
	}
	e, ok := s.changes[pkKey]
	return e, ok
}

// HasChanges reports whether the row has any pending cell change.
func (s *Store) HasChanges(pkKey string) bool {
	_, ok := s.entry(pkKey)
	return ok
}

// IsMarkedForDeletion reports whether the row is scheduled for deletion.
func (s *Store) IsMarkedForDeletion(pkKey string) bool {
	if s == nil {
		return false
	}
	_, ok := s.deletions[pkKey]
	return ok
}

// Deletion returns the original primary key value of a scheduled deletion.
func (s *Store) Deletion(pkKey string) (value.Raw, bool) {
	if s == nil {
		return value.Raw{}, false
	}
	v, ok := s.deletions[pkKey]
	return v, ok
}

// ChangeKeys returns the keys of rows with pending changes, sorted.
func (s *Store) ChangeKeys() []string {
	if s == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(s.changes))
}

// DeletionKeys returns the keys of rows pending deletion, sorted.
func (s *Store) DeletionKeys() []string {
	if s == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(s.deletions))
}

// Insertions returns the pending insertions in creation order.
func (s *Store) Insertions() []Insertion {
	if s == nil {
		return nil
	}
	return slices.Clone(s.insertions)
}

// Insertion returns one pending insertion.
func (s *Store) Insertion(tempID string) (Insertion, bool) {
	i := s.insertionIndex(tempID)
	if i < 0 {
		return Insertion{}, false
	}
	ins := s.insertions[i]
	return Insertion{TempID: ins.TempID, Data: maps.Clone(ins.Data)}, true
}

func (s *Store) insertionIndex(tempID string) int {
	if s == nil {
		return -1
	}
	return slices.IndexFunc(s.insertions, func(ins Insertion) bool { return ins.TempID == tempID })
}

// InsertionRevision identifies the current state of the insertion list.
func (s *Store) InsertionRevision() uint64 {
	if s == nil {
		return 0
	}
	return s.rev
}

// PendingCount returns the number of pending operations: changed cells,
// deletions and insertions.
func (s *Store) PendingCount() int {
	if s == nil {
		return 0
	}
	n := len(s.deletions) + len(s.insertions)
	for _, e := range s.changes {
		n += len(e.Changes)
	}
	return n
}

// HasPendingChanges reports whether anything is pending.
func (s *Store) HasPendingChanges() bool {
	return s.PendingCount() > 0
}

// Reconcile removes the entries a successfully executed plan applied.
// A cell edited again while the plan was in flight keeps its newer change,
// as do rows and insertions outside the plan.
func (s *Store) Reconcile(p Plan) *Store {
	if s == nil || p.Empty() {
		return s
	}
	next := s.clone()
	next.changes = maps.Clone(s.changes)
	next.deletions = maps.Clone(s.deletions)

	for _, pk := range p.Deletions {
		key := pk.Key()
		delete(next.deletions, key)
		delete(next.changes, key)
	}

	for _, u := range p.Updates {
		key := u.PK.Key()
		entry, ok := next.changes[key]
		if !ok {
			continue
		}
		if cur, ok := entry.Changes[u.Column]; !ok || cur != u.Change {
			continue
		}
		if len(entry.Changes) == 1 {
			delete(next.changes, key)
			continue
		}
		changes := maps.Clone(entry.Changes)
		delete(changes, u.Column)
		next.changes[key] = ChangeEntry{OriginalPK: entry.OriginalPK, Changes: changes}
	}

	if len(p.Inserts) > 0 {
		done := make(map[string]struct{}, len(p.Inserts))
		for _, ins := range p.Inserts {
			done[ins.TempID] = struct{}{}
		}
		next.insertions = slices.DeleteFunc(slices.Clone(s.insertions), func(ins Insertion) bool {
			_, ok := done[ins.TempID]
			return ok
		})
		next.rev = revisions.Add(1)
	}
	return next
}

// Without clears every entry inside the scope: cell changes and deletions
// of the scoped rows and the scoped insertions.
func (s *Store) Without(sc Scope) *Store {
	if s == nil {
		return s
	}
	if sc.All {
		if !s.HasPendingChanges() {
			return s
		}
		return &Store{rev: revisions.Add(1)}
	}
	next := s.clone()
	next.changes = maps.Clone(s.changes)
	next.deletions = maps.Clone(s.deletions)
	for key := range sc.PKs {
		delete(next.changes, key)
		delete(next.deletions, key)
	}
	if len(sc.TempIDs) > 0 {
		next.insertions = slices.DeleteFunc(slices.Clone(s.insertions), func(ins Insertion) bool {
			_, ok := sc.TempIDs[ins.TempID]
			return ok
		})
		next.rev = revisions.Add(1)
	}
	return next
}
