package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/gridedit/pkg/value"
)

func TestNextPosition(t *testing.T) {
	tests := []struct {
		name string
		pos  Position
		want Position
	}{
		{"right", Position{Row: 0, Col: 0}, Position{Row: 0, Col: 1}},
		{"wrap to next row", Position{Row: 0, Col: 2}, Position{Row: 1, Col: 0}},
		{"wrap to first row", Position{Row: 1, Col: 2}, Position{Row: 0, Col: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextPosition(tt.pos, 2, 3))
		})
	}
	assert.Equal(t, Position{}, NextPosition(Position{Row: 3, Col: 3}, 0, 0))
}

func recordInto(got *[]Edit) func(Edit) error {
	return func(e Edit) error {
		*got = append(*got, e)
		return nil
	}
}

func TestCursor_Lifecycle(t *testing.T) {
	var c Cursor
	_, editing := c.State()
	assert.False(t, editing)

	require.NoError(t, c.Begin(Position{Row: 1, Col: 2}, "old", false))
	e, _ := c.State()
	assert.True(t, e.Untouched())
	require.NoError(t, c.SetDraft("new"))

	var recorded []Edit
	e, ok, err := c.Confirm(recordInto(&recorded))
	require.NoError(t, err)
	require.True(t, ok)
	want := Edit{Position: Position{Row: 1, Col: 2}, Draft: "new", Seed: "old"}
	assert.Equal(t, want, e)
	assert.False(t, e.Untouched())
	assert.Equal(t, []Edit{want}, recorded)

	_, ok, err = c.Blur(recordInto(&recorded))
	require.NoError(t, err)
	assert.False(t, ok, "a second trigger is ignored")
	assert.Len(t, recorded, 1)
	assert.ErrorIs(t, c.SetDraft("x"), ErrNotEditing)
}

func TestCursor_ConfirmKeepsCellOpenWhenRecordFails(t *testing.T) {
	var c Cursor
	require.NoError(t, c.Begin(Position{Row: 0, Col: 1}, "a", false))
	require.NoError(t, c.SetDraft("typed"))

	_, ok, err := c.Confirm(func(Edit) error { return ErrRowPendingDeletion })
	require.True(t, ok)
	require.ErrorIs(t, err, ErrRowPendingDeletion)

	e, editing := c.State()
	require.True(t, editing)
	assert.Equal(t, "typed", e.Draft)

	_, _, err = c.Advance(2, 3, func(Edit) error { return ErrRowPendingDeletion })
	require.ErrorIs(t, err, ErrRowPendingDeletion)
	_, editing = c.State()
	assert.True(t, editing)
}

func TestCursor_BeginRefusedOnDeletedRow(t *testing.T) {
	var c Cursor
	assert.ErrorIs(t, c.Begin(Position{}, "", true), ErrRowPendingDeletion)
	_, editing := c.State()
	assert.False(t, editing)
}

func TestCursor_Cancel(t *testing.T) {
	var c Cursor
	require.NoError(t, c.Begin(Position{}, "a", false))
	assert.True(t, c.Cancel())
	_, ok, _ := c.Confirm(func(Edit) error { return nil })
	assert.False(t, ok)
	assert.False(t, c.Cancel())
}

func TestCursor_Move(t *testing.T) {
	var c Cursor
	assert.False(t, c.Move(Position{Row: 1}))

	require.NoError(t, c.Begin(Position{Row: 3, Col: 1}, "a", false))
	require.NoError(t, c.SetDraft("ab"))
	require.True(t, c.Move(Position{Row: 1, Col: 2}))

	e, _ := c.State()
	assert.Equal(t, Edit{Position: Position{Row: 1, Col: 2}, Draft: "ab", Seed: "a"}, e)
}

func TestCursor_Advance(t *testing.T) {
	var c Cursor
	require.NoError(t, c.Begin(Position{Row: 1, Col: 2}, "v", false))

	var recorded []Edit
	next, ok, err := c.Advance(2, 3, recordInto(&recorded))
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, recorded, 1)
	assert.Equal(t, "v", recorded[0].Draft)
	assert.Equal(t, Position{Row: 0, Col: 0}, next)

	_, ok, err = c.Advance(2, 3, recordInto(&recorded))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsUnchanged(t *testing.T) {
	tests := []struct {
		draft    string
		original value.Raw
		want     bool
	}{
		{"1", value.Int(1), true},
		{"1.0", value.Int(1), false},
		{"1.5", value.Float(1.5), true},
		{"true", value.Bool(true), true},
		{"", value.Null(), true},
		{"null", value.Null(), true},
		{"x", value.Null(), false},
		{"", value.Text(""), true},
		{"a", value.Text("b"), false},
	}
	for _, tt := range tests {
		t.Run(tt.draft+" vs "+tt.original.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, IsUnchanged(tt.draft, tt.original))
		})
	}
}

func TestParseDraft(t *testing.T) {
	doc, err := value.JSON([]byte(`{"a":1}`))
	require.NoError(t, err)

	assert.Equal(t, value.Int(12), ParseDraft("12", value.Int(1)))
	assert.Equal(t, value.Float(1.25), ParseDraft("1.25", value.Int(1)))
	assert.Equal(t, value.Text("abc"), ParseDraft("abc", value.Int(1)))
	assert.Equal(t, value.Bool(false), ParseDraft("false", value.Bool(true)))
	assert.Equal(t, doc, ParseDraft(`{ "a": 1 }`, doc))
	assert.Equal(t, value.Text(" x "), ParseDraft(" x ", value.Text("")))
	assert.Equal(t, value.Text("5"), ParseDraft("5", value.Null()))
}
