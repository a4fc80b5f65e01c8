package overlay

import (
	"github.com/leapstack-labs/gridedit/pkg/core"
	"github.com/leapstack-labs/gridedit/pkg/value"
)

// Display labels. NullLabel is the display form of a NULL cell, which
// differs from the empty string; the placeholders mark insertion cells the
// backend fills in.
const (
	NullLabel      = "null"
	DefaultLabel   = "<default>"
	GeneratedLabel = "<generated>"
)

// ColumnClasses holds the schema classification of a table's columns.
type ColumnClasses struct {
	PrimaryKey    string
	AutoIncrement map[string]struct{}
	Defaults      map[string]struct{}
	Nullable      map[string]struct{}
}

// ClassesFromColumns builds the classification from adapter metadata. The
// first primary key column wins; composite keys are not editable by key.
func ClassesFromColumns(cols []core.Column) ColumnClasses {
	c := ColumnClasses{
		AutoIncrement: make(map[string]struct{}),
		Defaults:      make(map[string]struct{}),
		Nullable:      make(map[string]struct{}),
	}
	pkCount := 0
	for _, col := range cols {
		if col.PrimaryKey {
			pkCount++
			if c.PrimaryKey == "" {
				c.PrimaryKey = col.Name
			}
		}
		if col.AutoIncrement {
			c.AutoIncrement[col.Name] = struct{}{}
		}
		if col.HasDefault {
			c.Defaults[col.Name] = struct{}{}
		}
		if col.Nullable {
			c.Nullable[col.Name] = struct{}{}
		}
	}
	if pkCount > 1 {
		c.PrimaryKey = ""
	}
	return c
}

// IsAutoIncrement reports whether the column is generated by the backend.
func (c ColumnClasses) IsAutoIncrement(col string) bool {
	_, ok := c.AutoIncrement[col]
	return ok
}

// HasDefault reports whether the column has a schema default.
func (c ColumnClasses) HasDefault(col string) bool {
	_, ok := c.Defaults[col]
	return ok
}

// IsNullable reports whether the column accepts NULL.
func (c ColumnClasses) IsNullable(col string) bool {
	_, ok := c.Nullable[col]
	return ok
}

// ColInfo identifies the column a cell belongs to.
type ColInfo struct {
	Name    string
	Classes ColumnClasses
}

// CellView is what a grid renders for one cell.
type CellView struct {
	DisplayValue               string
	HasPendingChange           bool
	IsModified                 bool
	IsAutoIncrementPlaceholder bool
	IsDefaultValuePlaceholder  bool
}

// DisplayValue renders a raw value. NULL gets an explicit label so it is
// distinguishable from the empty string.
func DisplayValue(v value.Raw) string {
	if v.IsNull() {
		return NullLabel
	}
	return v.String()
}

// ResolveExisting computes the view of a cell of an existing row. A pending
// change of the cell, looked up by the serialized primary key, takes
// precedence over the raw value. Without a primary key column nothing can
// be pending.
func ResolveExisting(raw value.Raw, pkKey, pkColumn string, pending *Store, col ColInfo) CellView {
	if pkColumn != "" {
		if c, ok := pending.Change(pkKey, col.Name); ok {
			view := CellView{HasPendingChange: true, IsModified: true}
			if c.IsDefault() {
				view.DisplayValue = DefaultLabel
			} else {
				view.DisplayValue = DisplayValue(c.Value())
			}
			return view
		}
	}
	return CellView{DisplayValue: DisplayValue(raw)}
}

// ResolveInsertion computes the view of a cell of a pending insertion. NULL
// cells of generated or defaulted columns show placeholders instead of an
// empty editable value.
func ResolveInsertion(raw value.Raw, col ColInfo) CellView {
	if raw.IsNull() {
		switch {
		case col.Classes.IsAutoIncrement(col.Name):
			return CellView{DisplayValue: GeneratedLabel, IsAutoIncrementPlaceholder: true}
		case col.Classes.HasDefault(col.Name):
			return CellView{DisplayValue: DefaultLabel, IsDefaultValuePlaceholder: true}
		}
	}
	return CellView{DisplayValue: DisplayValue(raw)}
}
