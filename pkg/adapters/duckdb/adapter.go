// Package duckdb provides a DuckDB database adapter for gridedit.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/gridedit/pkg/adapter"
	duckdbdialect "github.com/leapstack-labs/gridedit/pkg/adapters/duckdb/dialect"
	"github.com/leapstack-labs/gridedit/pkg/core"
	"github.com/leapstack-labs/gridedit/pkg/value"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{
			Logger:       logger,
			Dialect:      duckdbdialect.DuckDB,
			ConvertValue: convertValue,
		},
	}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "duckdb"
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}

	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	a.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	if err := a.applyParams(ctx, db, params); err != nil {
		_ = db.Close()
		return err
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// applyParams installs extensions, creates secrets and applies settings,
// in that order.
func (a *Adapter) applyParams(ctx context.Context, db *sql.DB, p *Params) error {
	for _, ext := range p.Extensions {
		a.Logger.Debug("loading duckdb extension", slog.String("extension", ext))
		if _, err := db.ExecContext(ctx, "INSTALL "+ext); err != nil {
			return fmt.Errorf("failed to install extension %s: %w", ext, err)
		}
		if _, err := db.ExecContext(ctx, "LOAD "+ext); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}

	for i, s := range p.Secrets {
		if _, err := db.ExecContext(ctx, buildCreateSecretSQL(s)); err != nil {
			return fmt.Errorf("failed to create secret %d (%s): %w", i, s.Type, err)
		}
	}

	for _, k := range sortedSettings(p.Settings) {
		//nolint:gosec // setting names come from the target configuration
		stmt := fmt.Sprintf("SET %s = %s", k, quoteLiteral(p.Settings[k]))
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", k, err)
		}
	}
	return nil
}

// GetColumnMetadata classifies the columns of a table.
// DuckDB has no identity columns; generated keys draw from sequences.
func (a *Adapter) GetColumnMetadata(ctx context.Context, table string) ([]core.Column, error) {
	return a.GetColumnMetadataCommon(ctx, table, "")
}

// convertValue maps DuckDB driver values onto cell values.
func convertValue(v any) value.Raw {
	switch t := v.(type) {
	case []byte:
		if len(t) == 16 {
			if id, err := uuid.FromBytes(t); err == nil {
				return value.Text(id.String())
			}
		}
		return value.Text(string(t))
	case time.Time:
		return value.Text(formatTime(t))
	case interface{ Float64() float64 }:
		return value.Float(t.Float64())
	}
	return value.FromAny(v)
}

// formatTime renders dates without a clock and timestamps without a zone.
func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	if t.Nanosecond() != 0 {
		return t.Format("2006-01-02 15:04:05.999999")
	}
	return t.Format(time.DateTime)
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
