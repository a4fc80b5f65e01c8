// Package adapter provides the database adapter contract and the shared
// database/sql implementation used by gridedit's backends.
//
// The contract itself is core.Adapter; this package re-exports it together
// with the registry. Concrete adapter implementations are in pkg/adapters/
// subdirectories.
package adapter

import (
	"github.com/leapstack-labs/gridedit/pkg/core"
)

// Type aliases so adapter implementations only need this package.
type (
	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter

	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column
)
