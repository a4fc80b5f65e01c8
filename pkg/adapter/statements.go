package adapter

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/gridedit/pkg/core"
	"github.com/leapstack-labs/gridedit/pkg/dialect"
	"github.com/leapstack-labs/gridedit/pkg/value"
)

// UpdateStatement builds the UPDATE of one cell. NULL is written as a
// literal, defaults as the DEFAULT keyword or, for dialects without it,
// as defaultExpr (NULL when empty).
func UpdateStatement(d *dialect.Dialect, table, pkColumn string, pkValue value.Raw, column string, v core.CellValue, defaultExpr string) (string, []any) {
	var args []any
	var set string
	switch {
	case v.UseDefault && d.DefaultKeyword:
		set = "DEFAULT"
	case v.UseDefault:
		set = defaultExpr
		if set == "" {
			set = "NULL"
		}
	case v.Value.IsNull():
		set = "NULL"
	default:
		args = append(args, v.Value.Any())
		set = d.FormatPlaceholder(len(args))
	}
	args = append(args, pkValue.Any())

	//nolint:gosec // identifiers are quoted by the dialect
	stmt := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s",
		d.QuoteTable(table),
		d.QuoteIdentifier(column),
		set,
		d.QuoteIdentifier(pkColumn),
		d.FormatPlaceholder(len(args)),
	)
	return stmt, args
}

// DeleteStatement builds the DELETE of one row.
func DeleteStatement(d *dialect.Dialect, table, pkColumn string, pkValue value.Raw) (string, []any) {
	//nolint:gosec // identifiers are quoted by the dialect
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		d.QuoteTable(table),
		d.QuoteIdentifier(pkColumn),
		d.FormatPlaceholder(1),
	)
	return stmt, []any{pkValue.Any()}
}

// InsertStatement builds the INSERT of one row. Without columns the row is
// inserted with DEFAULT VALUES so generated columns are filled in.
func InsertStatement(d *dialect.Dialect, table string, data []core.ColumnValue) (string, []any) {
	if len(data) == 0 {
		return fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", d.QuoteTable(table)), nil
	}

	cols := make([]string, len(data))
	vals := make([]string, len(data))
	var args []any
	for i, cv := range data {
		cols[i] = d.QuoteIdentifier(cv.Column)
		if cv.Value.IsNull() {
			vals[i] = "NULL"
			continue
		}
		args = append(args, cv.Value.Any())
		vals[i] = d.FormatPlaceholder(len(args))
	}

	//nolint:gosec // identifiers are quoted by the dialect
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteTable(table),
		strings.Join(cols, ", "),
		strings.Join(vals, ", "),
	)
	return stmt, args
}
