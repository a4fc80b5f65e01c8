// Package state provides the gridedit commit journal, persisted in SQLite.
// Every executed commit batch is recorded with the outcome of each of its
// remote calls.
package state

import (
	"context"
	"strings"
	"time"

	"github.com/leapstack-labs/gridedit/pkg/core"
	"github.com/leapstack-labs/gridedit/pkg/overlay"
)

// BatchStatus is the outcome of a commit batch.
type BatchStatus string

const (
	// BatchCommitted means every call of the batch succeeded.
	BatchCommitted BatchStatus = "committed"
	// BatchFailed means at least one call was rejected. Calls that
	// succeeded were not undone.
	BatchFailed BatchStatus = "failed"
)

// Batch is one journaled commit.
type Batch struct {
	ID        string        `json:"id" yaml:"id"`
	Table     string        `json:"table" yaml:"table"`
	Status    BatchStatus   `json:"status" yaml:"status"`
	Updates   int           `json:"updates" yaml:"updates"`
	Deletions int           `json:"deletions" yaml:"deletions"`
	Inserts   int           `json:"inserts" yaml:"inserts"`
	Failed    int           `json:"failed" yaml:"failed"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration_ns" yaml:"duration_ns"`
	Calls     []CallRecord  `json:"calls,omitempty" yaml:"calls,omitempty"`
}

// CallRecord is one remote call of a batch.
type CallRecord struct {
	Seq      int           `json:"seq" yaml:"seq"`
	Kind     string        `json:"kind" yaml:"kind"`
	PK       string        `json:"pk,omitempty" yaml:"pk,omitempty"`
	Column   string        `json:"column,omitempty" yaml:"column,omitempty"`
	Value    string        `json:"value,omitempty" yaml:"value,omitempty"`
	TempID   string        `json:"temp_id,omitempty" yaml:"temp_id,omitempty"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration `json:"duration_ns" yaml:"duration_ns"`
}

// Journal records and lists commit batches.
type Journal interface {
	RecordBatch(ctx context.Context, b *Batch) error
	ListBatches(ctx context.Context, limit int) ([]*Batch, error)
	GetBatch(ctx context.Context, id string) (*Batch, error)
}

// NewBatch builds the journal entry of an executed plan. err is the error
// returned by the execution, if any.
func NewBatch(p overlay.Plan, calls []overlay.Call, err error, startedAt time.Time, elapsed time.Duration) *Batch {
	b := &Batch{
		Table:     p.Table,
		Status:    BatchCommitted,
		Updates:   len(p.Updates),
		Deletions: len(p.Deletions),
		Inserts:   len(p.Inserts),
		StartedAt: startedAt.UTC(),
		Duration:  elapsed,
		Calls:     make([]CallRecord, len(calls)),
	}
	if err != nil {
		b.Status = BatchFailed
		b.Error = err.Error()
	}
	for i, c := range calls {
		rec := CallRecord{
			Seq:      i + 1,
			Kind:     c.Kind.String(),
			Column:   c.Column,
			TempID:   c.TempID,
			Duration: c.Duration,
		}
		switch c.Kind {
		case overlay.CallUpdate:
			rec.PK = c.PK.String()
			rec.Value = c.Value.String()
		case overlay.CallDelete:
			rec.PK = c.PK.String()
		case overlay.CallInsert:
			rec.Value = describeInsert(c.Data)
		}
		if c.Err != nil {
			rec.Error = c.Err.Error()
			b.Failed++
		}
		b.Calls[i] = rec
	}
	return b
}

func describeInsert(data []core.ColumnValue) string {
	if len(data) == 0 {
		return "DEFAULT VALUES"
	}
	parts := make([]string, len(data))
	for i, cv := range data {
		parts[i] = cv.Column + "=" + cv.Value.String()
	}
	return strings.Join(parts, ", ")
}
