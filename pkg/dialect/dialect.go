// Package dialect provides SQL dialect configuration for statement building.
//
// A dialect knows how a backend quotes identifiers, formats query parameters
// and which schema an unqualified table lives in. Concrete dialects are
// registered from pkg/adapters/*/dialect packages.
package dialect

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/gridedit/pkg/core"
)

// Placeholder styles, re-exported for dialect definitions.
const (
	PlaceholderQuestion = core.PlaceholderQuestion
	PlaceholderDollar   = core.PlaceholderDollar
)

// Dialect is a SQL dialect definition.
type Dialect struct {
	Name        string
	Identifiers core.IdentifierConfig

	// Database-specific settings
	DefaultSchema string                // Default schema name ("main" for DuckDB, "public" for Postgres)
	Placeholder   core.PlaceholderStyle // How to format query parameters

	// DefaultKeyword is true when UPDATE ... SET col = DEFAULT is accepted.
	DefaultKeyword bool

	reservedWords map[string]struct{}
}

// Config returns the pure data configuration for this dialect.
func (d *Dialect) Config() *core.DialectConfig {
	return &core.DialectConfig{
		Name:                   d.Name,
		Identifiers:            d.Identifiers,
		DefaultSchema:          d.DefaultSchema,
		Placeholder:            d.Placeholder,
		SupportsDefaultKeyword: d.DefaultKeyword,
	}
}

// GetName returns the dialect name.
func (d *Dialect) GetName() string {
	return d.Name
}

// FormatPlaceholder returns a placeholder for the given parameter index (1-based).
// Returns "?" for PlaceholderQuestion style, "$1", "$2" etc. for PlaceholderDollar style.
func (d *Dialect) FormatPlaceholder(index int) string {
	switch d.Placeholder {
	case core.PlaceholderDollar:
		return "$" + strconv.Itoa(index)
	default: // PlaceholderQuestion
		return "?"
	}
}

// IsReservedWord returns true if the word needs quoting when used as an identifier.
func (d *Dialect) IsReservedWord(word string) bool {
	_, ok := d.reservedWords[strings.ToLower(word)]
	return ok
}

// QuoteIdentifier quotes an identifier using the dialect's quote characters.
func (d *Dialect) QuoteIdentifier(name string) string {
	// Escape any existing quote end characters in the name (e.g., ] -> ]])
	escaped := strings.ReplaceAll(name, d.Identifiers.QuoteEnd, d.Identifiers.Escape)
	return d.Identifiers.Quote + escaped + d.Identifiers.QuoteEnd
}

// QuoteIdentifierIfNeeded quotes an identifier only if it's a reserved word
// or not a plain lowercase identifier.
func (d *Dialect) QuoteIdentifierIfNeeded(name string) string {
	if d.IsReservedWord(name) || !isPlain(name) {
		return d.QuoteIdentifier(name)
	}
	return name
}

// QuoteTable quotes a possibly schema-qualified table name part by part.
func (d *Dialect) QuoteTable(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = d.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}

// SplitTable splits a table reference into schema and name, using the
// dialect's default schema when none is given.
func (d *Dialect) SplitTable(table string) (schema, name string) {
	if parts := strings.SplitN(table, ".", 2); len(parts) == 2 {
		return parts[0], parts[1]
	}
	return d.DefaultSchema, table
}

func isPlain(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	dialect *Dialect
}

// NewDialect creates a new dialect builder with the given name.
func NewDialect(name string) *Builder {
	return &Builder{
		dialect: &Dialect{
			Name: name,
			Identifiers: core.IdentifierConfig{
				Quote:    `"`,
				QuoteEnd: `"`,
				Escape:   `""`,
			},
			DefaultKeyword: true,
			reservedWords:  make(map[string]struct{}),
		},
	}
}

// Identifiers configures identifier quoting.
func (b *Builder) Identifiers(quote, quoteEnd, escape string) *Builder {
	b.dialect.Identifiers = core.IdentifierConfig{
		Quote:    quote,
		QuoteEnd: quoteEnd,
		Escape:   escape,
	}
	return b
}

// DefaultSchema sets the default schema name.
func (b *Builder) DefaultSchema(schema string) *Builder {
	b.dialect.DefaultSchema = schema
	return b
}

// PlaceholderStyle sets how query parameters are formatted.
func (b *Builder) PlaceholderStyle(style core.PlaceholderStyle) *Builder {
	b.dialect.Placeholder = style
	return b
}

// DefaultKeyword sets whether UPDATE accepts the DEFAULT keyword.
func (b *Builder) DefaultKeyword(ok bool) *Builder {
	b.dialect.DefaultKeyword = ok
	return b
}

// WithReservedWords registers words that need quoting when used as identifiers.
func (b *Builder) WithReservedWords(words ...string) *Builder {
	for _, w := range words {
		b.dialect.reservedWords[strings.ToLower(w)] = struct{}{}
	}
	return b
}

// Build returns the constructed dialect.
func (b *Builder) Build() *Dialect {
	return b.dialect
}
