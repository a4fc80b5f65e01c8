package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/gridedit/pkg/value"
)

func TestStore_NilIsEmpty(t *testing.T) {
	var s *Store
	assert.Equal(t, 0, s.PendingCount())
	assert.False(t, s.HasPendingChanges())
	assert.False(t, s.IsMarkedForDeletion("1"))
	assert.Empty(t, s.Insertions())

	next := s.SetCellChange(value.Int(1), "name", Literal(value.Text("a")))
	require.NotNil(t, next)
	assert.Equal(t, 1, next.PendingCount())
}

func TestStore_SetCellChangeIdempotent(t *testing.T) {
	pk := value.Int(7)
	once := NewStore().SetCellChange(pk, "name", Literal(value.Text("x")))
	twice := once.SetCellChange(pk, "name", Literal(value.Text("x")))

	assert.Same(t, once, twice, "same change must not produce a new state")
	assert.Equal(t, 1, twice.PendingCount())
}

func TestStore_UndoRemovesEntry(t *testing.T) {
	pk := value.Int(7)
	s := NewStore().
		SetCellChange(pk, "name", Literal(value.Text("x"))).
		SetCellChange(pk, "age", Literal(value.Int(3)))

	s = s.SetCellChange(pk, "name", Undo())
	entry, ok := s.Entry(pk.Key())
	require.True(t, ok)
	assert.Len(t, entry.Changes, 1)
	assert.Contains(t, entry.Changes, "age")

	s = s.SetCellChange(pk, "age", Undo())
	assert.False(t, s.HasChanges(pk.Key()), "last undo must remove the row entry")
	assert.Equal(t, 0, s.PendingCount())
}

func TestStore_UndoUnknownIsNoop(t *testing.T) {
	s := NewStore().SetCellChange(value.Int(1), "a", Literal(value.Int(2)))
	assert.Same(t, s, s.SetCellChange(value.Int(2), "a", Undo()))
	assert.Same(t, s, s.SetCellChange(value.Int(1), "b", Undo()))
}

func TestStore_Immutable(t *testing.T) {
	pk := value.Text("k")
	base := NewStore().SetCellChange(pk, "a", Literal(value.Int(1)))
	baseCount := base.PendingCount()

	_ = base.SetCellChange(pk, "b", Literal(value.Int(2)))
	_ = base.SetCellChange(pk, "a", Literal(value.Int(9)))
	_ = base.MarkForDeletion(pk)
	_, _ = base.AddInsertion(nil)

	assert.Equal(t, baseCount, base.PendingCount())
	c, ok := base.Change(pk.Key(), "a")
	require.True(t, ok)
	assert.Equal(t, Literal(value.Int(1)), c)
	assert.False(t, base.IsMarkedForDeletion(pk.Key()))
}

func TestStore_OriginalPKKept(t *testing.T) {
	pk := value.Int(42)
	s := NewStore().
		SetCellChange(pk, "a", Literal(value.Int(1))).
		SetCellChange(value.Text("42"), "b", Literal(value.Int(2)))

	entry, ok := s.Entry("42")
	require.True(t, ok)
	assert.Equal(t, pk, entry.OriginalPK, "first pk value wins")
	assert.Len(t, entry.Changes, 2)
}

func TestStore_Deletion(t *testing.T) {
	pk := value.Int(3)
	s := NewStore().MarkForDeletion(pk)
	assert.True(t, s.IsMarkedForDeletion("3"))

	got, ok := s.Deletion("3")
	require.True(t, ok)
	assert.Equal(t, pk, got)
	assert.True(t, got.IsInt(), "deletion keeps the original type")

	assert.Same(t, s, s.MarkForDeletion(pk))
	s = s.RevertDeletion(pk)
	assert.False(t, s.IsMarkedForDeletion("3"))
	assert.Same(t, s, s.RevertDeletion(pk))
}

func TestStore_Insertions(t *testing.T) {
	s, first := NewStore().AddInsertion(map[string]value.Raw{"name": value.Text("a")})
	s, second := s.AddInsertion(nil)
	require.NotEqual(t, first, second)

	ins := s.Insertions()
	require.Len(t, ins, 2)
	assert.Equal(t, first, ins[0].TempID)
	assert.Equal(t, second, ins[1].TempID)

	rev := s.InsertionRevision()
	s = s.SetInsertionCell(second, "name", value.Text("b"))
	assert.NotEqual(t, rev, s.InsertionRevision())

	got, ok := s.Insertion(second)
	require.True(t, ok)
	assert.Equal(t, value.Text("b"), got.Data["name"])

	assert.Same(t, s, s.SetInsertionCell("missing", "name", value.Text("z")))

	s = s.DiscardInsertion(first)
	require.Len(t, s.Insertions(), 1)
	assert.Equal(t, second, s.Insertions()[0].TempID)

	s, third := s.AddInsertion(nil)
	assert.NotEqual(t, first, third, "temp ids are never reused")
}

func TestStore_PendingCount(t *testing.T) {
	s := NewStore().
		SetCellChange(value.Int(1), "a", Literal(value.Int(1))).
		SetCellChange(value.Int(1), "b", UseDefault()).
		SetCellChange(value.Int(2), "a", Literal(value.Null())).
		MarkForDeletion(value.Int(2))
	s, _ = s.AddInsertion(nil)

	assert.Equal(t, 5, s.PendingCount())
	assert.True(t, s.HasPendingChanges())
}

func TestStore_ReconcileKeepsNewerEdits(t *testing.T) {
	pk := value.Int(1)
	s := NewStore().
		SetCellChange(pk, "a", Literal(value.Int(1))).
		SetCellChange(pk, "b", Literal(value.Int(2)))
	p := Plan{Updates: []Update{
		{PK: pk, Column: "a", Change: Literal(value.Int(1))},
		{PK: pk, Column: "b", Change: Literal(value.Int(2))},
	}}

	// b is edited again while the batch is in flight.
	s = s.SetCellChange(pk, "b", Literal(value.Int(20)))
	s = s.SetCellChange(value.Int(9), "a", Literal(value.Int(0)))

	got := s.Reconcile(p)
	_, ok := got.Change("1", "a")
	assert.False(t, ok)
	c, ok := got.Change("1", "b")
	require.True(t, ok)
	assert.Equal(t, Literal(value.Int(20)), c)
	assert.True(t, got.HasChanges("9"))
}

func TestStore_ReconcileDeletionClearsChanges(t *testing.T) {
	pk := value.Int(1)
	s := NewStore().
		SetCellChange(pk, "a", Literal(value.Int(1))).
		MarkForDeletion(pk)
	s, id := s.AddInsertion(nil)
	s, keep := s.AddInsertion(nil)

	got := s.Reconcile(Plan{Deletions: []value.Raw{pk}, Inserts: []Insert{{TempID: id}}})
	assert.False(t, got.IsMarkedForDeletion("1"))
	assert.False(t, got.HasChanges("1"))
	require.Len(t, got.Insertions(), 1)
	assert.Equal(t, keep, got.Insertions()[0].TempID)
}

func TestStore_Without(t *testing.T) {
	s := NewStore().
		SetCellChange(value.Int(1), "a", Literal(value.Int(1))).
		SetCellChange(value.Int(2), "a", Literal(value.Int(2))).
		MarkForDeletion(value.Int(3))
	s, id := s.AddInsertion(nil)

	t.Run("scoped", func(t *testing.T) {
		got := s.Without(Scope{
			PKs:     map[string]struct{}{"1": {}, "3": {}},
			TempIDs: map[string]struct{}{id: {}},
		})
		assert.False(t, got.HasChanges("1"))
		assert.True(t, got.HasChanges("2"))
		assert.False(t, got.IsMarkedForDeletion("3"))
		assert.Empty(t, got.Insertions())
		assert.Equal(t, 4, s.PendingCount(), "receiver untouched")
	})

	t.Run("all", func(t *testing.T) {
		got := s.Without(Scope{All: true})
		assert.Equal(t, 0, got.PendingCount())
		assert.NotEqual(t, s.InsertionRevision(), got.InsertionRevision())
	})
}
