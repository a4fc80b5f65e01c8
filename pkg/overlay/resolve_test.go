package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/gridedit/pkg/core"
	"github.com/leapstack-labs/gridedit/pkg/value"
)

func testClasses() ColumnClasses {
	return ClassesFromColumns([]core.Column{
		{Name: "id", PrimaryKey: true, AutoIncrement: true},
		{Name: "status", HasDefault: true, Default: "'new'"},
		{Name: "note", Nullable: true},
		{Name: "name"},
	})
}

func TestClassesFromColumns(t *testing.T) {
	c := testClasses()
	assert.Equal(t, "id", c.PrimaryKey)
	assert.True(t, c.IsAutoIncrement("id"))
	assert.True(t, c.HasDefault("status"))
	assert.True(t, c.IsNullable("note"))
	assert.False(t, c.IsNullable("name"))

	composite := ClassesFromColumns([]core.Column{
		{Name: "a", PrimaryKey: true},
		{Name: "b", PrimaryKey: true},
	})
	assert.Empty(t, composite.PrimaryKey, "composite keys are not usable")
}

func TestResolveExisting(t *testing.T) {
	classes := testClasses()
	pending := NewStore().
		SetCellChange(value.Int(1), "name", Literal(value.Text("new"))).
		SetCellChange(value.Int(1), "status", UseDefault()).
		SetCellChange(value.Int(1), "note", Literal(value.Null()))

	tests := []struct {
		name     string
		raw      value.Raw
		pkKey    string
		pkColumn string
		column   string
		want     CellView
	}{
		{
			name: "pending literal", raw: value.Text("old"), pkKey: "1", pkColumn: "id", column: "name",
			want: CellView{DisplayValue: "new", HasPendingChange: true, IsModified: true},
		},
		{
			name: "pending default", raw: value.Text("done"), pkKey: "1", pkColumn: "id", column: "status",
			want: CellView{DisplayValue: DefaultLabel, HasPendingChange: true, IsModified: true},
		},
		{
			name: "pending null", raw: value.Text("x"), pkKey: "1", pkColumn: "id", column: "note",
			want: CellView{DisplayValue: NullLabel, HasPendingChange: true, IsModified: true},
		},
		{
			name: "raw value", raw: value.Text("old"), pkKey: "2", pkColumn: "id", column: "name",
			want: CellView{DisplayValue: "old"},
		},
		{
			name: "raw null", raw: value.Null(), pkKey: "2", pkColumn: "id", column: "note",
			want: CellView{DisplayValue: NullLabel},
		},
		{
			name: "raw empty text", raw: value.Text(""), pkKey: "2", pkColumn: "id", column: "note",
			want: CellView{DisplayValue: ""},
		},
		{
			name: "no primary key", raw: value.Text("old"), pkKey: "1", pkColumn: "", column: "name",
			want: CellView{DisplayValue: "old"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveExisting(tt.raw, tt.pkKey, tt.pkColumn, pending, ColInfo{Name: tt.column, Classes: classes})
			assert.Equal(t, tt.want, got)
			assert.NotEqual(t, "<undo>", got.DisplayValue)
		})
	}
}

func TestResolveExisting_UndoNeverDisplayed(t *testing.T) {
	pending := NewStore().
		SetCellChange(value.Int(1), "name", Literal(value.Text("x"))).
		SetCellChange(value.Int(1), "name", Undo())

	got := ResolveExisting(value.Text("orig"), "1", "id", pending, ColInfo{Name: "name"})
	assert.Equal(t, CellView{DisplayValue: "orig"}, got)
}

func TestResolveInsertion(t *testing.T) {
	classes := testClasses()
	tests := []struct {
		name   string
		raw    value.Raw
		column string
		want   CellView
	}{
		{"generated", value.Null(), "id", CellView{DisplayValue: GeneratedLabel, IsAutoIncrementPlaceholder: true}},
		{"default", value.Null(), "status", CellView{DisplayValue: DefaultLabel, IsDefaultValuePlaceholder: true}},
		{"explicit value on generated", value.Int(5), "id", CellView{DisplayValue: "5"}},
		{"empty text on default", value.Text(""), "status", CellView{DisplayValue: ""}},
		{"nullable null", value.Null(), "note", CellView{DisplayValue: NullLabel}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveInsertion(tt.raw, ColInfo{Name: tt.column, Classes: classes}))
		})
	}
}

func TestResolve_Deterministic(t *testing.T) {
	pending := NewStore().SetCellChange(value.Int(1), "name", Literal(value.Text("a")))
	col := ColInfo{Name: "name", Classes: testClasses()}
	first := ResolveExisting(value.Text("b"), "1", "id", pending, col)
	for range 10 {
		assert.Equal(t, first, ResolveExisting(value.Text("b"), "1", "id", pending, col))
	}
}
