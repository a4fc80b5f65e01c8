package adapter

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/gridedit/pkg/core"
	"github.com/leapstack-labs/gridedit/pkg/dialect"
	"github.com/leapstack-labs/gridedit/pkg/value"
)

var (
	testQuestion = dialect.NewDialect("test_q").DefaultSchema("main").Build()
	testDollar   = dialect.NewDialect("test_d").DefaultSchema("public").PlaceholderStyle(dialect.PlaceholderDollar).Build()
	testNoDflt   = dialect.NewDialect("test_lite").DefaultKeyword(false).Build()
)

func newMockAdapter(t *testing.T, d *dialect.Dialect) (*BaseSQLAdapter, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return &BaseSQLAdapter{DB: db, Dialect: d}, mock
}

func TestBaseSQLAdapter_Close(t *testing.T) {
	tests := []struct {
		name    string
		setupDB bool
	}{
		{name: "close with nil DB", setupDB: false},
		{name: "close with open DB", setupDB: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				mock.ExpectClose()
				base.DB = db
			}

			assert.NoError(t, base.Close())
		})
	}
}

func TestBaseSQLAdapter_IsConnected(t *testing.T) {
	base := &BaseSQLAdapter{}
	assert.False(t, base.IsConnected())

	connected, _ := newMockAdapter(t, testQuestion)
	assert.True(t, connected.IsConnected())
}

func TestBaseSQLAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	base := &BaseSQLAdapter{Dialect: testQuestion}

	_, err := base.FetchSnapshot(ctx, core.SnapshotRequest{Query: "SELECT 1"})
	require.ErrorIs(t, err, core.ErrNotConnected)
	require.ErrorIs(t, base.UpdateCell(ctx, "t", "id", value.Int(1), "a", core.Literal(value.Int(1))), core.ErrNotConnected)
	require.ErrorIs(t, base.DeleteRow(ctx, "t", "id", value.Int(1)), core.ErrNotConnected)
	require.ErrorIs(t, base.InsertRow(ctx, "t", nil), core.ErrNotConnected)
	_, err = base.GetColumnMetadataCommon(ctx, "t", "")
	require.ErrorIs(t, err, core.ErrNotConnected)
}

func TestBaseSQLAdapter_FetchSnapshot(t *testing.T) {
	tests := []struct {
		name      string
		req       core.SnapshotRequest
		setupMock func(mock sqlmock.Sqlmock)
		verify    func(t *testing.T, snap *core.Snapshot)
		errMsg    string
	}{
		{
			name: "paginated with hoisted order by",
			req:  core.SnapshotRequest{Query: "SELECT id, name FROM users ORDER BY name;", Page: 2, PageSize: 2},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM (SELECT id, name FROM users) AS gridedit_count")).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(5)))
				mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM (SELECT id, name FROM users) AS gridedit_page ORDER BY name LIMIT 2 OFFSET 2")).
					WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
						AddRow(int64(3), "carol").
						AddRow(int64(4), nil))
			},
			verify: func(t *testing.T, snap *core.Snapshot) {
				assert.Equal(t, []string{"id", "name"}, snap.Columns)
				require.Len(t, snap.Rows, 2)
				assert.Equal(t, value.Int(3), snap.Rows[0][0])
				assert.Equal(t, value.Text("carol"), snap.Rows[0][1])
				assert.True(t, snap.Rows[1][1].IsNull())
				require.NotNil(t, snap.Pagination)
				assert.Equal(t, core.Pagination{Page: 2, PageSize: 2, TotalRows: 5, Truncated: true}, *snap.Pagination)
			},
		},
		{
			name: "last page is not truncated",
			req:  core.SnapshotRequest{Query: "select id from users", Page: 3, PageSize: 2},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT COUNT").
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(5)))
				mock.ExpectQuery(regexp.QuoteMeta("LIMIT 2 OFFSET 4")).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))
			},
			verify: func(t *testing.T, snap *core.Snapshot) {
				require.NotNil(t, snap.Pagination)
				assert.False(t, snap.Pagination.Truncated)
				assert.Equal(t, int64(5), snap.Pagination.TotalRows)
			},
		},
		{
			name: "count failure is not fatal",
			req:  core.SnapshotRequest{Query: "SELECT id FROM users", Page: 1, PageSize: 10},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT COUNT").WillReturnError(assert.AnError)
				mock.ExpectQuery("gridedit_page").
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
			},
			verify: func(t *testing.T, snap *core.Snapshot) {
				assert.Equal(t, int64(0), snap.Pagination.TotalRows)
				assert.Len(t, snap.Rows, 1)
			},
		},
		{
			name: "unpaginated select",
			req:  core.SnapshotRequest{Query: "SELECT id FROM users"},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users")).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)))
			},
			verify: func(t *testing.T, snap *core.Snapshot) {
				assert.Nil(t, snap.Pagination)
				assert.Len(t, snap.Rows, 2)
			},
		},
		{
			name: "non-select is never paginated",
			req:  core.SnapshotRequest{Query: "WITH x AS (SELECT 1 AS a) SELECT a FROM x", Page: 1, PageSize: 10},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta("WITH x AS (SELECT 1 AS a) SELECT a FROM x")).
					WillReturnRows(sqlmock.NewRows([]string{"a"}).AddRow(int64(1)))
			},
			verify: func(t *testing.T, snap *core.Snapshot) {
				assert.Nil(t, snap.Pagination)
			},
		},
		{
			name: "statement without result set",
			req:  core.SnapshotRequest{Query: "UPDATE users SET name = 'x'", PageSize: 10},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET name = 'x'")).
					WillReturnResult(sqlmock.NewResult(0, 3))
			},
			verify: func(t *testing.T, snap *core.Snapshot) {
				assert.Equal(t, int64(3), snap.AffectedRows)
				assert.Empty(t, snap.Rows)
			},
		},
		{
			name:   "empty query",
			req:    core.SnapshotRequest{Query: " ; "},
			errMsg: "query is empty",
		},
		{
			name: "query error",
			req:  core.SnapshotRequest{Query: "SELECT broken"},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT broken").WillReturnError(assert.AnError)
			},
			errMsg: "failed to execute query",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, mock := newMockAdapter(t, testQuestion)
			if tt.setupMock != nil {
				tt.setupMock(mock)
			}

			snap, err := base.FetchSnapshot(context.Background(), tt.req)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			tt.verify(t, snap)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBaseSQLAdapter_UpdateCell(t *testing.T) {
	tests := []struct {
		name      string
		d         *dialect.Dialect
		v         core.CellValue
		dflt      func(ctx context.Context, table, column string) (string, error)
		setupMock func(mock sqlmock.Sqlmock)
		errMsg    string
	}{
		{
			name: "literal",
			d:    testDollar,
			v:    core.Literal(value.Text("bob")),
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET "name" = $1 WHERE "id" = $2`)).
					WithArgs("bob", int64(7)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "null",
			d:    testQuestion,
			v:    core.Literal(value.Null()),
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET "name" = NULL WHERE "id" = ?`)).
					WithArgs(int64(7)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "default keyword",
			d:    testDollar,
			v:    core.DefaultValue(),
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET "name" = DEFAULT WHERE "id" = $1`)).
					WithArgs(int64(7)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "inlined default expression",
			d:    testNoDflt,
			v:    core.DefaultValue(),
			dflt: func(_ context.Context, table, column string) (string, error) {
				return "'anonymous'", nil
			},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET "name" = 'anonymous' WHERE "id" = ?`)).
					WithArgs(int64(7)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "default lookup fails",
			d:    testNoDflt,
			v:    core.DefaultValue(),
			dflt: func(context.Context, string, string) (string, error) {
				return "", assert.AnError
			},
			errMsg: "failed to resolve default of users.name",
		},
		{
			name: "backend rejects",
			d:    testQuestion,
			v:    core.Literal(value.Int(1)),
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE").WillReturnError(assert.AnError)
			},
			errMsg: "failed to update users.name where id = 7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, mock := newMockAdapter(t, tt.d)
			base.ColumnDefault = tt.dflt
			if tt.setupMock != nil {
				tt.setupMock(mock)
			}

			err := base.UpdateCell(context.Background(), "users", "id", value.Int(7), "name", tt.v)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBaseSQLAdapter_DeleteRow(t *testing.T) {
	base, mock := newMockAdapter(t, testQuestion)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "main"."users" WHERE "id" = ?`)).
		WithArgs("a-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, base.DeleteRow(context.Background(), "main.users", "id", value.Text("a-1")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_InsertRow(t *testing.T) {
	t.Run("with columns", func(t *testing.T) {
		base, mock := newMockAdapter(t, testDollar)
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "users" ("name", "note", "age") VALUES ($1, NULL, $2)`)).
			WithArgs("ann", int64(30)).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := base.InsertRow(context.Background(), "users", []core.ColumnValue{
			{Column: "name", Value: value.Text("ann")},
			{Column: "note", Value: value.Null()},
			{Column: "age", Value: value.Int(30)},
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("default values", func(t *testing.T) {
		base, mock := newMockAdapter(t, testQuestion)
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "users" DEFAULT VALUES`)).
			WillReturnResult(sqlmock.NewResult(1, 1))

		require.NoError(t, base.InsertRow(context.Background(), "users", nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejection is wrapped", func(t *testing.T) {
		base, mock := newMockAdapter(t, testQuestion)
		mock.ExpectExec("INSERT").WillReturnError(assert.AnError)

		err := base.InsertRow(context.Background(), "users", nil)
		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "failed to insert into users")
	})
}

func TestBaseSQLAdapter_GetColumnMetadataCommon(t *testing.T) {
	base, mock := newMockAdapter(t, testDollar)
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("public", "users").
		WillReturnRows(sqlmock.NewRows([]string{
			"column_name", "data_type", "is_nullable", "ordinal_position", "column_default", "is_pk", "is_identity",
		}).
			AddRow("id", "integer", "NO", int64(1), "nextval('users_id_seq'::regclass)", true, false).
			AddRow("status", "text", "NO", int64(2), "'new'::text", false, false).
			AddRow("note", "text", "YES", int64(3), nil, false, false).
			AddRow("seq", "bigint", "NO", int64(4), nil, false, true))

	cols, err := base.GetColumnMetadataCommon(context.Background(), "users", "c.is_identity = 'YES'")
	require.NoError(t, err)
	require.Len(t, cols, 4)

	assert.Equal(t, core.Column{Name: "id", Type: "integer", PrimaryKey: true, AutoIncrement: true, Position: 1}, cols[0])
	assert.Equal(t, core.Column{Name: "status", Type: "text", HasDefault: true, Default: "'new'::text", Position: 2}, cols[1])
	assert.Equal(t, core.Column{Name: "note", Type: "text", Nullable: true, Position: 3}, cols[2])
	assert.True(t, cols[3].AutoIncrement)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseSQLAdapter_GetColumnMetadataCommon_NotFound(t *testing.T) {
	base, mock := newMockAdapter(t, testQuestion)
	mock.ExpectQuery("FROM information_schema.columns").
		WillReturnRows(sqlmock.NewRows([]string{
			"column_name", "data_type", "is_nullable", "ordinal_position", "column_default", "is_pk", "is_identity",
		}))

	_, err := base.GetColumnMetadataCommon(context.Background(), "ghost", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table ghost not found")
}
