// Package dialect provides the SQLite SQL dialect definition.
package dialect

import (
	"github.com/leapstack-labs/gridedit/pkg/dialect"
)

func init() {
	dialect.Register(SQLite)
}

var sqliteReservedWords = []string{
	"abort", "action", "add", "after", "all", "alter", "analyze", "and", "as",
	"asc", "attach", "autoincrement", "before", "begin", "between", "by",
	"cascade", "case", "cast", "check", "collate", "column", "commit",
	"conflict", "constraint", "create", "cross", "default", "deferrable",
	"delete", "desc", "detach", "distinct", "drop", "each", "else", "end",
	"escape", "except", "exclusive", "exists", "explain", "foreign", "from",
	"full", "glob", "group", "having", "if", "in", "index", "inner", "insert",
	"intersect", "into", "is", "isnull", "join", "key", "left", "like", "limit",
	"match", "natural", "no", "not", "notnull", "null", "of", "offset", "on",
	"or", "order", "outer", "plan", "pragma", "primary", "query", "raise",
	"references", "regexp", "reindex", "release", "rename", "replace",
	"restrict", "right", "rollback", "row", "savepoint", "select", "set",
	"table", "temp", "then", "to", "transaction", "trigger", "union", "unique",
	"update", "using", "vacuum", "values", "view", "virtual", "when", "where",
	"with", "without",
}

// SQLite is the SQLite dialect configuration. SQLite has no DEFAULT
// keyword in UPDATE; defaults are inlined from the schema.
var SQLite = dialect.NewDialect("sqlite").
	Identifiers(`"`, `"`, `""`).
	DefaultSchema("main").
	PlaceholderStyle(dialect.PlaceholderQuestion).
	DefaultKeyword(false).
	WithReservedWords(sqliteReservedWords...).
	Build()
