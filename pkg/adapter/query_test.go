package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsSelectQuery(t *testing.T) {
	assert.True(t, IsSelectQuery("SELECT * FROM users"))
	assert.True(t, IsSelectQuery("  select * from users"))
	assert.True(t, IsSelectQuery("\n\tSELECT id FROM posts"))
	assert.False(t, IsSelectQuery("UPDATE users SET name = 'test'"))
	assert.False(t, IsSelectQuery("DELETE FROM users"))
	assert.False(t, IsSelectQuery("INSERT INTO users VALUES (1)"))
}

func TestTrimStatement(t *testing.T) {
	assert.Equal(t, "SELECT 1", TrimStatement("  SELECT 1 ;; \n"))
	assert.Equal(t, "", TrimStatement(";"))
}

func TestSplitOrderBy(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantBody  string
		wantOrder string
	}{
		{"none", "SELECT * FROM t", "SELECT * FROM t", ""},
		{"simple", "SELECT * FROM t ORDER BY a DESC", "SELECT * FROM t", "ORDER BY a DESC"},
		{"lowercase", "select * from t order   by a", "select * from t", "order   by a"},
		{"subquery order by ignored", "SELECT * FROM (SELECT a FROM t ORDER BY a) x", "SELECT * FROM (SELECT a FROM t ORDER BY a) x", ""},
		{"string literal ignored", "SELECT 'ORDER BY x' AS s FROM t", "SELECT 'ORDER BY x' AS s FROM t", ""},
		{"identifier containing order", "SELECT reorder_by FROM t", "SELECT reorder_by FROM t", ""},
		{"last top level wins", "SELECT * FROM (SELECT a FROM t ORDER BY a) x ORDER BY b", "SELECT * FROM (SELECT a FROM t ORDER BY a) x", "ORDER BY b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, order := SplitOrderBy(tt.query)
			assert.Equal(t, tt.wantBody, body)
			assert.Equal(t, tt.wantOrder, order)
		})
	}
}

func TestPageQueries(t *testing.T) {
	count, page := PageQueries("SELECT * FROM t ORDER BY a", 100, 200)
	assert.Equal(t, "SELECT COUNT(*) FROM (SELECT * FROM t) AS gridedit_count", count)
	assert.Equal(t, "SELECT * FROM (SELECT * FROM t) AS gridedit_page ORDER BY a LIMIT 100 OFFSET 200", page)

	_, page = PageQueries("SELECT * FROM t", 10, 0)
	assert.Equal(t, "SELECT * FROM (SELECT * FROM t) AS gridedit_page LIMIT 10 OFFSET 0", page)
}

func TestReturnsRows(t *testing.T) {
	assert.True(t, returnsRows("select 1"))
	assert.True(t, returnsRows("PRAGMA table_info('t')"))
	assert.True(t, returnsRows("(SELECT 1)"))
	assert.False(t, returnsRows("CREATE TABLE x (a INT)"))
	assert.False(t, returnsRows("("))
}
