// Package sqlite provides a SQLite database adapter for gridedit.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/gridedit/pkg/adapter"
	sqlitedialect "github.com/leapstack-labs/gridedit/pkg/adapters/sqlite/dialect"
	"github.com/leapstack-labs/gridedit/pkg/core"
	"github.com/leapstack-labs/gridedit/pkg/value"

	_ "modernc.org/sqlite" // sqlite driver
)

// defaultBusyTimeout is applied unless the target overrides busy_timeout.
const defaultBusyTimeout = "5000"

// Params holds SQLite-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// Pragmas applied after connecting (e.g., journal_mode: wal).
	Pragmas map[string]string `mapstructure:"pragmas"`
}

func parseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if len(raw) == 0 {
		return p, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build params decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to parse sqlite params: %w", err)
	}
	return p, nil
}

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{
			Logger:       logger,
			Dialect:      sqlitedialect.SQLite,
			ConvertValue: convertValue,
		},
	}
	a.ColumnDefault = a.columnDefault
	return a
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "sqlite"
}

// Connect opens the database file. Use ":memory:" (or an empty path) for
// an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = cfg.Database
	}
	if path == "" {
		path = ":memory:"
	}

	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	a.Logger.Debug("connecting to sqlite", slog.String("path", path))

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite connection: %w", err)
	}
	// One connection: an in-memory database lives in its connection, and
	// concurrent writers on a file would only contend for the lock.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	pragmas := map[string]string{"busy_timeout": defaultBusyTimeout}
	for k, v := range params.Pragmas {
		pragmas[k] = v
	}
	names := make([]string, 0, len(pragmas))
	for k := range pragmas {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		//nolint:gosec // pragma names and values come from the target configuration
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA %s = %s", k, pragmas[k])); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply pragma %s: %w", k, err)
		}
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// GetColumnMetadata classifies the columns of a table from PRAGMA
// table_info. An INTEGER PRIMARY KEY is the rowid and thus generated.
func (a *Adapter) GetColumnMetadata(ctx context.Context, table string) ([]core.Column, error) {
	if a.DB == nil {
		return nil, core.ErrNotConnected
	}

	schema, name := a.Dialect.SplitTable(table)
	//nolint:gosec // identifiers are quoted by the dialect
	query := fmt.Sprintf("PRAGMA %s.table_info(%s)", a.Dialect.QuoteIdentifier(schema), a.Dialect.QuoteIdentifier(name))

	rows, err := a.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	pkCount := 0
	for rows.Next() {
		var (
			cid     int
			col     core.Column
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &col.Name, &col.Type, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Position = cid + 1
		col.Nullable = notNull == 0 && pk == 0
		col.PrimaryKey = pk > 0
		if pk > 0 {
			pkCount++
		}
		if dflt.Valid {
			col.HasDefault = true
			col.Default = dflt.String
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	if pkCount == 1 {
		for i := range columns {
			if columns[i].PrimaryKey && strings.EqualFold(columns[i].Type, "INTEGER") {
				columns[i].AutoIncrement = true
			}
		}
	}
	return columns, nil
}

// columnDefault returns the schema default expression of a column, empty
// when it has none.
func (a *Adapter) columnDefault(ctx context.Context, table, column string) (string, error) {
	cols, err := a.GetColumnMetadata(ctx, table)
	if err != nil {
		return "", err
	}
	for _, c := range cols {
		if c.Name == column {
			return c.Default, nil
		}
	}
	return "", fmt.Errorf("column %s not found in %s", column, table)
}

// convertValue renders BLOBs as base64 text; everything else follows
// value.FromAny.
func convertValue(v any) value.Raw {
	if b, ok := v.([]byte); ok {
		return value.Text(base64.StdEncoding.EncodeToString(b))
	}
	return value.FromAny(v)
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
