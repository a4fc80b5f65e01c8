package overlay

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/gridedit/pkg/core"
	"github.com/leapstack-labs/gridedit/pkg/value"
)

// recorder is a Mutator that records calls and fails the ones matched by fail.
type recorder struct {
	mu       sync.Mutex
	calls    []string
	fail     func(op, pk, column string) error
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (r *recorder) record(op, pk, column string) error {
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		p := r.peak.Load()
		if n <= p || r.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	r.mu.Lock()
	r.calls = append(r.calls, op+":"+pk+":"+column)
	r.mu.Unlock()
	if r.fail != nil {
		return r.fail(op, pk, column)
	}
	return nil
}

func (r *recorder) UpdateCell(_ context.Context, _, _ string, pk value.Raw, column string, _ core.CellValue) error {
	return r.record("update", pk.Key(), column)
}

func (r *recorder) DeleteRow(_ context.Context, _, _ string, pk value.Raw) error {
	return r.record("delete", pk.Key(), "")
}

func (r *recorder) InsertRow(_ context.Context, _ string, data []core.ColumnValue) error {
	return r.record("insert", "", "")
}

func samplePlan() Plan {
	return Plan{
		Table:    "users",
		PKColumn: "id",
		Updates: []Update{
			{PK: value.Int(1), Column: "name", Change: Literal(value.Text("a"))},
			{PK: value.Int(1), Column: "note", Change: UseDefault()},
			{PK: value.Int(2), Column: "name", Change: Literal(value.Null())},
		},
		Deletions: []value.Raw{value.Int(3)},
		Inserts:   []Insert{{TempID: "t1"}},
	}
}

func TestExecute_AllCallsIssued(t *testing.T) {
	r := &recorder{}
	calls, err := Execute(context.Background(), samplePlan(), r, 0)
	require.NoError(t, err)
	require.Len(t, calls, 5)
	assert.ElementsMatch(t, []string{
		"update:1:name", "update:1:note", "update:2:name", "delete:3:", "insert::",
	}, r.calls)

	assert.Equal(t, CallDelete, calls[0].Kind)
	assert.Equal(t, core.DefaultValue(), calls[2].Value)
	assert.Equal(t, CallInsert, calls[4].Kind)
	assert.Equal(t, "t1", calls[4].TempID)
}

func TestExecute_Concurrent(t *testing.T) {
	r := &recorder{delay: 20 * time.Millisecond}
	_, err := Execute(context.Background(), samplePlan(), r, 0)
	require.NoError(t, err)
	assert.Greater(t, r.peak.Load(), int32(1), "calls are not sequenced")

	limited := &recorder{delay: 5 * time.Millisecond}
	_, err = Execute(context.Background(), samplePlan(), limited, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), limited.peak.Load())
}

func TestExecute_FailureWaitsForAll(t *testing.T) {
	errA := errors.New("constraint violated")
	errB := errors.New("connection reset")
	r := &recorder{fail: func(op, pk, _ string) error {
		switch {
		case op == "update" && pk == "2":
			return errA
		case op == "delete":
			return errB
		}
		return nil
	}}

	calls, err := Execute(context.Background(), samplePlan(), r, 0)
	require.Error(t, err)
	assert.Len(t, r.calls, 5, "siblings of a rejected call still run")

	var batch *BatchError
	require.ErrorAs(t, err, &batch)
	assert.Equal(t, 2, batch.Failed)
	assert.Equal(t, 5, batch.Total)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Contains(t, err.Error(), "constraint violated")

	failed := 0
	for _, c := range calls {
		if c.Err != nil {
			failed++
		}
	}
	assert.Equal(t, 2, failed)
}

func TestExecute_CancelledContextDoesNotAbort(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var seen atomic.Int32
	m := ctxMutator(func(ctx context.Context) error {
		seen.Add(1)
		return ctx.Err()
	})
	_, err := Execute(ctx, samplePlan(), m, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(5), seen.Load())
}

func TestExecute_EmptyPlan(t *testing.T) {
	r := &recorder{}
	calls, err := Execute(context.Background(), Plan{}, r, 0)
	require.NoError(t, err)
	assert.Nil(t, calls)
	assert.Empty(t, r.calls)
}

type ctxMutator func(ctx context.Context) error

func (f ctxMutator) UpdateCell(ctx context.Context, _, _ string, _ value.Raw, _ string, _ core.CellValue) error {
	return f(ctx)
}

func (f ctxMutator) DeleteRow(ctx context.Context, _, _ string, _ value.Raw) error { return f(ctx) }

func (f ctxMutator) InsertRow(ctx context.Context, _ string, _ []core.ColumnValue) error {
	return f(ctx)
}

func TestCoordinator_SuccessReconciles(t *testing.T) {
	store := NewStore().
		SetCellChange(value.Int(1), "name", Literal(value.Text("a"))).
		SetCellChange(value.Int(2), "name", Literal(value.Text("b")))
	rows := usersRows(2)
	c := NewCoordinator(0, nil)

	p, calls, err := c.Commit(context.Background(), &recorder{},
		func() Plan { return PlanCommit(store, NewSelection(0), false, rows, usersTable()) },
		func(p Plan, _ []Call, err error) {
			if err == nil {
				store = store.Reconcile(p)
			}
		})
	require.NoError(t, err)
	assert.Len(t, calls, 1)
	assert.Len(t, p.Updates, 1)
	assert.False(t, store.HasChanges("1"))
	assert.True(t, store.HasChanges("2"), "entries outside the scope survive")
	assert.False(t, c.Committing())
}

func TestCoordinator_FailureLeavesStore(t *testing.T) {
	before := NewStore().
		SetCellChange(value.Int(1), "name", Literal(value.Text("a"))).
		MarkForDeletion(value.Int(2))
	before, _ = before.AddInsertion(map[string]value.Raw{"name": value.Text("n")})
	store := before
	rows := usersRows(2)

	r := &recorder{fail: func(op, _, _ string) error {
		if op == "delete" {
			return errors.New("boom")
		}
		return nil
	}}
	c := NewCoordinator(0, nil)
	_, _, err := c.Commit(context.Background(), r,
		func() Plan { return PlanCommit(store, Selection{}, true, rows, usersTable()) },
		func(p Plan, _ []Call, err error) {
			if err == nil {
				store = store.Reconcile(p)
			}
		})

	require.Error(t, err)
	assert.Same(t, before, store)
	assert.Equal(t, 3, store.PendingCount())
}

func TestCoordinator_RejectsWhileCommitting(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	m := ctxMutator(func(context.Context) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	})

	c := NewCoordinator(0, nil)
	plan := func() Plan { return samplePlan() }
	done := make(chan error, 1)
	go func() {
		_, _, err := c.Commit(context.Background(), m, plan, nil)
		done <- err
	}()

	<-started
	assert.True(t, c.Committing())
	_, _, err := c.Commit(context.Background(), m, plan, nil)
	assert.ErrorIs(t, err, ErrCommitInFlight)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, c.Committing())
}

func TestCoordinator_EmptyPlanIsNoop(t *testing.T) {
	settled := false
	c := NewCoordinator(0, nil)
	p, calls, err := c.Commit(context.Background(), &recorder{},
		func() Plan { return Plan{Table: "users"} },
		func(Plan, []Call, error) { settled = true })
	require.NoError(t, err)
	assert.True(t, p.Empty())
	assert.Nil(t, calls)
	assert.False(t, settled)
}
