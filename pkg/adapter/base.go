package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/leapstack-labs/gridedit/pkg/core"
	"github.com/leapstack-labs/gridedit/pkg/dialect"
	"github.com/leapstack-labs/gridedit/pkg/value"
)

// ErrEmptyQuery is returned when fetching a snapshot of a blank query.
var ErrEmptyQuery = errors.New("query is empty")

// BaseSQLAdapter provides common database/sql functionality for adapters.
// Embed this struct in concrete adapter implementations to get standard
// snapshot fetching and row mutations.
type BaseSQLAdapter struct {
	DB      *sql.DB
	Cfg     core.AdapterConfig
	Logger  *slog.Logger
	Dialect *dialect.Dialect

	// ConvertValue maps a scanned driver value to a cell value.
	// Defaults to value.FromAny.
	ConvertValue func(any) value.Raw

	// ColumnDefault returns the default expression of a column. It is used
	// when the dialect has no UPDATE ... DEFAULT.
	ColumnDefault func(ctx context.Context, table, column string) (string, error)
}

func (b *BaseSQLAdapter) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// Close closes the database connection.
func (b *BaseSQLAdapter) Close() error {
	if b.DB != nil {
		b.logger().Debug("closing database connection")
		return b.DB.Close()
	}
	return nil
}

// IsConnected returns true if the database connection is established.
func (b *BaseSQLAdapter) IsConnected() bool {
	return b.DB != nil
}

// Exec executes a SQL statement that doesn't return rows.
func (b *BaseSQLAdapter) Exec(ctx context.Context, sqlStr string, args ...any) (int64, error) {
	if b.DB == nil {
		return 0, core.ErrNotConnected
	}
	res, err := b.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to execute SQL: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some drivers do not report affected rows.
		return 0, nil
	}
	return n, nil
}

// FetchSnapshot executes a query and returns one page of its result.
// SELECT statements are paginated when PageSize is positive: the total is
// counted first, then the page is read with LIMIT/OFFSET. Other statements
// run unpaginated; statements without a result set report affected rows.
func (b *BaseSQLAdapter) FetchSnapshot(ctx context.Context, req core.SnapshotRequest) (*core.Snapshot, error) {
	if b.DB == nil {
		return nil, core.ErrNotConnected
	}
	q := TrimStatement(req.Query)
	if q == "" {
		return nil, ErrEmptyQuery
	}

	if !IsSelectQuery(q) || req.PageSize <= 0 {
		if !returnsRows(q) {
			n, err := b.Exec(ctx, q)
			if err != nil {
				return nil, err
			}
			return &core.Snapshot{AffectedRows: n}, nil
		}
		return b.query(ctx, q)
	}

	page := max(req.Page, 1)
	offset := req.Offset()
	countSQL, pageSQL := PageQueries(q, req.PageSize, offset)

	var total int64
	if err := b.DB.QueryRowContext(ctx, countSQL).Scan(&total); err != nil {
		b.logger().Warn("failed to count query rows", "error", err)
		total = 0
	}

	snap, err := b.query(ctx, pageSQL)
	if err != nil {
		return nil, err
	}
	snap.Pagination = &core.Pagination{
		Page:      page,
		PageSize:  req.PageSize,
		TotalRows: total,
		Truncated: int64(offset+len(snap.Rows)) < total,
	}
	return snap, nil
}

func (b *BaseSQLAdapter) query(ctx context.Context, q string) (*core.Snapshot, error) {
	rows, err := b.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	convert := b.ConvertValue
	if convert == nil {
		convert = value.FromAny
	}

	snap := &core.Snapshot{Columns: columns, Rows: [][]value.Raw{}}
	for rows.Next() {
		raw := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make([]value.Raw, len(columns))
		for i, v := range raw {
			row[i] = convert(v)
		}
		snap.Rows = append(snap.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return snap, nil
}

// returnsRows reports whether a statement produces a result set.
func returnsRows(q string) bool {
	words := strings.FieldsFunc(q, func(r rune) bool {
		return unicode.IsSpace(r) || r == '('
	})
	if len(words) == 0 {
		return false
	}
	switch strings.ToUpper(words[0]) {
	case "SELECT", "WITH", "VALUES", "PRAGMA", "SHOW", "EXPLAIN", "DESCRIBE", "TABLE", "FROM", "SUMMARIZE":
		return true
	}
	return false
}

// UpdateCell sets one column of the row identified by pkColumn = pkValue.
func (b *BaseSQLAdapter) UpdateCell(ctx context.Context, table, pkColumn string, pkValue value.Raw, column string, v core.CellValue) error {
	if b.DB == nil {
		return core.ErrNotConnected
	}
	var defaultExpr string
	if v.UseDefault && !b.Dialect.DefaultKeyword && b.ColumnDefault != nil {
		expr, err := b.ColumnDefault(ctx, table, column)
		if err != nil {
			return fmt.Errorf("failed to resolve default of %s.%s: %w", table, column, err)
		}
		defaultExpr = expr
	}

	stmt, args := UpdateStatement(b.Dialect, table, pkColumn, pkValue, column, v, defaultExpr)
	n, err := b.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s.%s where %s = %s: %w", table, column, pkColumn, pkValue, err)
	}
	b.logger().Debug("updated cell", "table", table, "column", column, "pk", pkValue.String(), "rows", n)
	return nil
}

// DeleteRow deletes the row identified by pkColumn = pkValue.
func (b *BaseSQLAdapter) DeleteRow(ctx context.Context, table, pkColumn string, pkValue value.Raw) error {
	if b.DB == nil {
		return core.ErrNotConnected
	}
	stmt, args := DeleteStatement(b.Dialect, table, pkColumn, pkValue)
	n, err := b.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("failed to delete from %s where %s = %s: %w", table, pkColumn, pkValue, err)
	}
	b.logger().Debug("deleted row", "table", table, "pk", pkValue.String(), "rows", n)
	return nil
}

// InsertRow inserts one row.
func (b *BaseSQLAdapter) InsertRow(ctx context.Context, table string, data []core.ColumnValue) error {
	if b.DB == nil {
		return core.ErrNotConnected
	}
	stmt, args := InsertStatement(b.Dialect, table, data)
	if _, err := b.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	b.logger().Debug("inserted row", "table", table, "columns", len(data))
	return nil
}

// GetColumnMetadataCommon reads column metadata from information_schema.
// Primary keys come from the table constraints; a column whose default
// draws from a sequence, or for which identityExpr holds, is generated.
func (b *BaseSQLAdapter) GetColumnMetadataCommon(ctx context.Context, table, identityExpr string) ([]core.Column, error) {
	if b.DB == nil {
		return nil, core.ErrNotConnected
	}
	d := b.Dialect
	schema, tableName := d.SplitTable(table)
	if identityExpr == "" {
		identityExpr = "FALSE"
	}

	// The placeholders come from the dialect and are safe (? or $N)
	//nolint:gosec // Placeholders are safe - they come from dialect.FormatPlaceholder
	query := fmt.Sprintf(`
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable,
			c.ordinal_position,
			c.column_default,
			CASE WHEN kcu.column_name IS NULL THEN FALSE ELSE TRUE END AS is_pk,
			%s AS is_identity
		FROM information_schema.columns c
		LEFT JOIN information_schema.table_constraints tc
			ON tc.table_schema = c.table_schema
			AND tc.table_name = c.table_name
			AND tc.constraint_type = 'PRIMARY KEY'
		LEFT JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_name = tc.constraint_name
			AND kcu.table_schema = c.table_schema
			AND kcu.table_name = c.table_name
			AND kcu.column_name = c.column_name
		WHERE c.table_schema = %s AND c.table_name = %s
		ORDER BY c.ordinal_position
	`, identityExpr, d.FormatPlaceholder(1), d.FormatPlaceholder(2))

	rows, err := b.DB.QueryContext(ctx, query, schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var col core.Column
		var nullable string
		var dflt sql.NullString
		var identity bool
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position, &dflt, &col.PrimaryKey, &identity); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		col.Nullable = nullable == "YES"
		col.AutoIncrement = identity || strings.HasPrefix(strings.ToLower(dflt.String), "nextval(")
		if dflt.Valid && !col.AutoIncrement {
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
	return columns, nil
}
