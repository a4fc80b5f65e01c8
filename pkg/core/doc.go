// Package core defines the shared language of the gridedit system.
//
// This package contains:
//   - Snapshot types produced by query execution (Snapshot, Pagination)
//   - The remote mutation contract (Adapter, CellValue, ColumnValue)
//   - Column classification (Column)
//   - Configuration types (TargetConfig, AdapterConfig)
//
// The Golden Rule: pkg/core imports ONLY pkg/value and stdlib.
// All other packages depend on core, not the reverse.
package core
