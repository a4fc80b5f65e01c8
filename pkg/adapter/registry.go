package adapter

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/gridedit/pkg/core"
)

// DefaultType is the adapter used when target.type is left unset.
const DefaultType = "sqlite"

// Factories registered by the pkg/adapters/* packages, keyed by the
// lower-cased target.type they serve.
var (
	registryMu sync.RWMutex
	registry   = make(map[string]func(*slog.Logger) Adapter)
)

// Register makes an adapter available as a target.type. Adapter packages
// call it from init; it panics when the type is empty or already taken.
func Register(typ string, factory func(*slog.Logger) Adapter) {
	key := strings.ToLower(typ)
	if key == "" || factory == nil {
		panic("adapter: Register needs a type and a factory")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[key]; dup {
		panic("adapter: Register called twice for " + key)
	}
	registry[key] = factory
}

// Get returns the factory registered for a target.type.
func Get(typ string) (func(*slog.Logger) Adapter, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[strings.ToLower(typ)]
	return f, ok
}

// NewAdapter builds an unconnected adapter for cfg.Type, falling back to
// DefaultType when it is empty. A nil logger discards.
func NewAdapter(cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	typ := cfg.Type
	if typ == "" {
		typ = DefaultType
	}
	factory, ok := Get(typ)
	if !ok {
		return nil, &UnknownAdapterError{Type: typ, Available: ListAdapters()}
	}
	return factory(logger), nil
}

// ListAdapters returns the registered target types, sorted.
func ListAdapters() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether typ names a registered adapter.
func IsRegistered(typ string) bool {
	_, ok := Get(typ)
	return ok
}

// UnknownAdapterError is returned for a target.type no adapter serves.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	available := "none"
	if len(e.Available) > 0 {
		available = strings.Join(e.Available, ", ")
	}
	return fmt.Sprintf("unknown database type %q (registered: %s)\n"+
		"Hint: set target.type in gridedit.yaml or pass --type; leave it unset for %s",
		e.Type, available, DefaultType)
}
