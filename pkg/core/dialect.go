package core

// DialectConfig holds the static configuration for a SQL dialect.
// This is pure data; statement building lives in pkg/dialect.
type DialectConfig struct {
	// Name is the dialect identifier (e.g., "sqlite", "postgres")
	Name string

	// Identifiers defines quoting rules
	Identifiers IdentifierConfig

	// DefaultSchema is the default schema name ("main" for DuckDB, "public" for Postgres)
	DefaultSchema string

	// Placeholder defines how query parameters are formatted
	Placeholder PlaceholderStyle

	// SupportsDefaultKeyword is true when UPDATE ... SET col = DEFAULT is valid.
	SupportsDefaultKeyword bool
}

// PlaceholderStyle defines how query parameters are formatted.
type PlaceholderStyle int

const (
	// PlaceholderQuestion uses ? for all parameters (DuckDB, SQLite).
	PlaceholderQuestion PlaceholderStyle = iota
	// PlaceholderDollar uses $1, $2, etc. for parameters (PostgreSQL).
	PlaceholderDollar
)

// IdentifierConfig defines how identifiers are quoted.
type IdentifierConfig struct {
	Quote    string // Quote character: ", `, [
	QuoteEnd string // End quote character (usually same as Quote, ] for [)
	Escape   string // Escape sequence: "", ``, ]]
}
