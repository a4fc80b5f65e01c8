package core

import (
	"context"
	"errors"

	"github.com/leapstack-labs/gridedit/pkg/value"
)

// ErrNotConnected is returned by adapters used before Connect.
var ErrNotConnected = errors.New("database connection not established")

// Adapter defines the interface that all database adapters must implement.
// It is the remote side of the overlay: it produces snapshots, describes
// columns and applies individual row mutations.
type Adapter interface {
	// Connect establishes a connection to the database.
	Connect(ctx context.Context, cfg AdapterConfig) error

	// Close closes the database connection.
	Close() error

	// FetchSnapshot executes a query and returns one page of its result.
	FetchSnapshot(ctx context.Context, req SnapshotRequest) (*Snapshot, error)

	// GetColumnMetadata classifies the columns of a table.
	GetColumnMetadata(ctx context.Context, table string) ([]Column, error)

	// UpdateCell sets one column of the row identified by pkColumn = pkValue.
	UpdateCell(ctx context.Context, table, pkColumn string, pkValue value.Raw, column string, v CellValue) error

	// DeleteRow deletes the row identified by pkColumn = pkValue.
	DeleteRow(ctx context.Context, table, pkColumn string, pkValue value.Raw) error

	// InsertRow inserts one row. An empty data slice inserts default values.
	InsertRow(ctx context.Context, table string, data []ColumnValue) error

	// DialectName returns the SQL dialect for this adapter.
	DialectName() string
}

// AdapterConfig holds configuration for connecting to a database.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any
}

// Column describes one column of a table.
type Column struct {
	Name          string
	Type          string
	Nullable      bool
	PrimaryKey    bool
	AutoIncrement bool
	HasDefault    bool
	Default       string
	Position      int
}

// CellValue is what an update writes into a cell: either a literal value or
// the column's schema default.
type CellValue struct {
	UseDefault bool
	Value      value.Raw
}

// Literal returns a CellValue writing v.
func Literal(v value.Raw) CellValue { return CellValue{Value: v} }

// DefaultValue returns a CellValue resetting the column to its default.
func DefaultValue() CellValue { return CellValue{UseDefault: true} }

// String renders the value for logs and journals.
func (c CellValue) String() string {
	if c.UseDefault {
		return "DEFAULT"
	}
	return c.Value.String()
}

// ColumnValue pairs a column with the value to insert into it.
type ColumnValue struct {
	Column string
	Value  value.Raw
}
