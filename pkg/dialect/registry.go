package dialect

import (
	"sort"
	"strings"
	"sync"
)

// Dialects registered by the pkg/adapters/*/dialect packages, keyed by
// lower-cased name so target.type "DuckDB" and "duckdb" agree.
var (
	dialectsMu sync.RWMutex
	dialects   = make(map[string]*Dialect)
)

// Register makes a dialect available under its name. It panics when the
// name is empty or already taken.
func Register(d *Dialect) {
	key := strings.ToLower(d.Name)
	if key == "" {
		panic("dialect: Register with an empty name")
	}
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	if _, dup := dialects[key]; dup {
		panic("dialect: Register called twice for " + key)
	}
	dialects[key] = d
}

// Get returns the dialect registered under name.
func Get(name string) (*Dialect, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[strings.ToLower(name)]
	return d, ok
}

// Resolve returns the registered dialect for an adapter, or a generic one
// that double-quotes identifiers and uses ? placeholders when the adapter
// names a dialect nobody registered.
func Resolve(name string) *Dialect {
	if d, ok := Get(name); ok {
		return d
	}
	return NewDialect(strings.ToLower(name)).Build()
}

// List returns the registered dialect names, sorted.
func List() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
