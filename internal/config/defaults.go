// Package config provides shared configuration defaults for gridedit.
// It is decoupled from CLI concerns so hosts other than the CLI can resolve
// and validate a target the same way.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/gridedit/pkg/adapter"
	"github.com/leapstack-labs/gridedit/pkg/core"
	"github.com/leapstack-labs/gridedit/pkg/dialect"
)

// Default configuration values.
const (
	DefaultTargetType = "sqlite"
	DefaultStateFile  = ".gridedit/state.db"
	DefaultPageSize   = 100
	DefaultLogLevel   = "warn"
)

// DefaultSchemaForType returns the default schema for a database type.
// It looks up the dialect in the registry; if not found, returns "main" as fallback.
func DefaultSchemaForType(dbType string) string {
	if d, ok := dialect.Get(strings.ToLower(dbType)); ok && d.DefaultSchema != "" {
		return d.DefaultSchema
	}
	return "main"
}

// ApplyTargetDefaults applies default values to a TargetConfig based on the target type.
func ApplyTargetDefaults(t *core.TargetConfig) {
	if t == nil {
		return
	}
	t.Type = strings.ToLower(t.Type)
	if t.Type == "" {
		t.Type = DefaultTargetType
	}

	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}

	if t.Type == "postgres" {
		if t.Port == 0 {
			t.Port = 5432
		}
		if t.Host == "" {
			t.Host = "localhost"
		}
	}
}

// ValidateTarget checks a target against the adapter registry.
func ValidateTarget(t *core.TargetConfig) error {
	if t == nil || t.Type == "" {
		return fmt.Errorf("target type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}
	if t.Type == "postgres" && t.Database == "" {
		return fmt.Errorf("target.database is required for postgres")
	}
	return nil
}
