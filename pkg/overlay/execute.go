package overlay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/gridedit/pkg/core"
	"github.com/leapstack-labs/gridedit/pkg/value"
)

// ErrCommitInFlight is returned when a commit is triggered while another one
// is still running.
var ErrCommitInFlight = errors.New("a commit is already in progress")

// Mutator is the remote write side of an adapter.
type Mutator interface {
	UpdateCell(ctx context.Context, table, pkColumn string, pkValue value.Raw, column string, v core.CellValue) error
	DeleteRow(ctx context.Context, table, pkColumn string, pkValue value.Raw) error
	InsertRow(ctx context.Context, table string, data []core.ColumnValue) error
}

// CallKind identifies the remote operation of a call.
type CallKind int

const (
	CallUpdate CallKind = iota
	CallDelete
	CallInsert
)

// String returns the operation name.
func (k CallKind) String() string {
	switch k {
	case CallUpdate:
		return "update"
	case CallDelete:
		return "delete"
	case CallInsert:
		return "insert"
	default:
		return fmt.Sprintf("CallKind(%d)", int(k))
	}
}

// Call is one settled remote call of a batch.
type Call struct {
	Kind     CallKind
	PK       value.Raw
	Column   string
	Value    core.CellValue
	TempID   string
	Data     []core.ColumnValue
	Err      error
	Duration time.Duration
}

// BatchError reports a batch in which at least one call was rejected. Err
// joins every rejection verbatim. Calls that succeeded are not undone.
type BatchError struct {
	Failed int
	Total  int
	Err    error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("commit failed: %d of %d calls rejected: %v", e.Failed, e.Total, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Calls flattens a plan into its remote calls: deletions, then updates, then
// inserts.
func Calls(p Plan) []Call {
	calls := make([]Call, 0, p.Calls())
	for _, pk := range p.Deletions {
		calls = append(calls, Call{Kind: CallDelete, PK: pk})
	}
	for _, u := range p.Updates {
		calls = append(calls, Call{Kind: CallUpdate, PK: u.PK, Column: u.Column, Value: u.Change.CellValue()})
	}
	for _, ins := range p.Inserts {
		calls = append(calls, Call{Kind: CallInsert, TempID: ins.TempID, Data: ins.Data})
	}
	return calls
}

// Execute issues every call of the plan concurrently and waits for all of
// them to settle. A rejected call does not cancel its siblings, and
// cancelling ctx does not abort calls already issued. limit bounds the
// number of calls in flight; zero or less means unbounded.
//
// The returned calls carry their individual outcome. When any call failed
// the error is a *BatchError.
func Execute(ctx context.Context, p Plan, m Mutator, limit int) ([]Call, error) {
	calls := Calls(p)
	if len(calls) == 0 {
		return nil, nil
	}
	ctx = context.WithoutCancel(ctx)

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := range calls {
		c := &calls[i]
		g.Go(func() error {
			start := time.Now()
			switch c.Kind {
			case CallDelete:
				c.Err = m.DeleteRow(ctx, p.Table, p.PKColumn, c.PK)
			case CallUpdate:
				c.Err = m.UpdateCell(ctx, p.Table, p.PKColumn, c.PK, c.Column, c.Value)
			case CallInsert:
				c.Err = m.InsertRow(ctx, p.Table, c.Data)
			}
			c.Duration = time.Since(start)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, c := range calls {
		if c.Err != nil {
			errs = append(errs, c.Err)
		}
	}
	if len(errs) > 0 {
		return calls, &BatchError{Failed: len(errs), Total: len(calls), Err: errors.Join(errs...)}
	}
	return calls, nil
}

// Coordinator serializes commits. It is either idle or committing; a
// trigger while committing is rejected.
type Coordinator struct {
	mu         sync.Mutex
	committing bool
	limit      int
	logger     *slog.Logger
}

// NewCoordinator creates a coordinator issuing at most limit calls at once.
func NewCoordinator(limit int, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Coordinator{limit: limit, logger: logger}
}

// Committing reports whether a commit is in flight.
func (c *Coordinator) Committing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.committing
}

func (c *Coordinator) begin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.committing {
		return false
	}
	c.committing = true
	return true
}

func (c *Coordinator) end() {
	c.mu.Lock()
	c.committing = false
	c.mu.Unlock()
}

// Commit takes the plan from plan, executes it and hands the outcome to
// settle before returning to idle, so no other commit can plan against
// state the batch has not yet been reconciled into. An empty plan is a
// no-op: settle is not called and no error is returned.
func (c *Coordinator) Commit(ctx context.Context, m Mutator, plan func() Plan, settle func(Plan, []Call, error)) (Plan, []Call, error) {
	if !c.begin() {
		return Plan{}, nil, ErrCommitInFlight
	}
	defer c.end()

	p := plan()
	if p.Empty() {
		c.logger.Debug("nothing to commit", "table", p.Table)
		return p, nil, nil
	}

	c.logger.Info("committing changes",
		"table", p.Table,
		"updates", len(p.Updates),
		"deletions", len(p.Deletions),
		"inserts", len(p.Inserts))

	calls, err := Execute(ctx, p, m, c.limit)
	if err != nil {
		c.logger.Warn("commit batch rejected", "table", p.Table, "error", err)
	} else {
		c.logger.Info("commit batch applied", "table", p.Table, "calls", len(calls))
	}
	if settle != nil {
		settle(p, calls, err)
	}
	return p, calls, err
}
