package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // sqlite driver
)

var errNotOpened = errors.New("database not opened")

// ErrBatchNotFound is returned when a batch id is unknown.
var ErrBatchNotFound = errors.New("batch not found")

// SQLiteStore implements Journal using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite state store instance.
// If logger is nil, a discard logger is used.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens the state database and applies pending migrations.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := ":memory:?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create state directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if err := MigrateWithDB(db); err != nil {
		_ = db.Close()
		return err
	}

	s.logger.Debug("opened state store", slog.String("path", path))
	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordBatch writes a batch and its calls in one transaction. An empty ID
// is replaced by a new UUID.
func (s *SQLiteStore) RecordBatch(ctx context.Context, b *Batch) error {
	if s.db == nil {
		return errNotOpened
	}
	if b.ID == "" {
		b.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO commit_batches
			(id, table_name, status, updates, deletions, inserts, failed, error, started_at, duration_us)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Table, string(b.Status), b.Updates, b.Deletions, b.Inserts, b.Failed,
		nullString(b.Error), b.StartedAt.UnixMicro(), b.Duration.Microseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to record batch: %w", err)
	}

	for _, c := range b.Calls {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO commit_calls
				(batch_id, seq, kind, pk, column_name, value, temp_id, error, duration_us)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			b.ID, c.Seq, c.Kind, nullString(c.PK), nullString(c.Column), nullString(c.Value),
			nullString(c.TempID), nullString(c.Error), c.Duration.Microseconds(),
		)
		if err != nil {
			return fmt.Errorf("failed to record call %d: %w", c.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch record: %w", err)
	}
	s.logger.Debug("recorded batch", slog.String("id", b.ID), slog.String("status", string(b.Status)))
	return nil
}

// ListBatches returns the most recent batches, newest first, without their
// calls.
func (s *SQLiteStore) ListBatches(ctx context.Context, limit int) ([]*Batch, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, table_name, status, updates, deletions, inserts, failed, error, started_at, duration_us
		FROM commit_batches
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var batches []*Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batches: %w", err)
	}
	return batches, nil
}

// GetBatch returns a batch with its calls.
func (s *SQLiteStore) GetBatch(ctx context.Context, id string) (*Batch, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, table_name, status, updates, deletions, inserts, failed, error, started_at, duration_us
		FROM commit_batches WHERE id = ?`, id)
	b, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, pk, column_name, value, temp_id, error, duration_us
		FROM commit_calls WHERE batch_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch calls: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var c CallRecord
		var pk, column, val, tempID, errMsg sql.NullString
		var us int64
		if err := rows.Scan(&c.Seq, &c.Kind, &pk, &column, &val, &tempID, &errMsg, &us); err != nil {
			return nil, fmt.Errorf("failed to scan call: %w", err)
		}
		c.PK, c.Column, c.Value, c.TempID, c.Error = pk.String, column.String, val.String, tempID.String, errMsg.String
		c.Duration = time.Duration(us) * time.Microsecond
		b.Calls = append(b.Calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calls: %w", err)
	}
	return b, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(r scanner) (*Batch, error) {
	b := &Batch{}
	var status string
	var errMsg sql.NullString
	var started, us int64
	err := r.Scan(&b.ID, &b.Table, &status, &b.Updates, &b.Deletions, &b.Inserts, &b.Failed, &errMsg, &started, &us)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan batch: %w", err)
	}
	b.Status = BatchStatus(status)
	b.Error = errMsg.String
	b.StartedAt = time.UnixMicro(started).UTC()
	b.Duration = time.Duration(us) * time.Microsecond
	return b, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Ensure SQLiteStore implements Journal
var _ Journal = (*SQLiteStore)(nil)
