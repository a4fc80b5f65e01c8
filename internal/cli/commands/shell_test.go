package commands

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/leapstack-labs/gridedit/internal/cli/testutil"
	"github.com/leapstack-labs/gridedit/internal/session"
	coretest "github.com/leapstack-labs/gridedit/internal/testutil"
	"github.com/leapstack-labs/gridedit/pkg/core"
	"github.com/leapstack-labs/gridedit/pkg/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/gridedit/pkg/adapters/duckdb/dialect"
)

func newUsersBackend() *coretest.MemoryBackend {
	b := coretest.NewMemoryBackend()
	b.AddTable("users", []core.Column{
		{Name: "id", Type: "INTEGER", PrimaryKey: true, AutoIncrement: true, Position: 1},
		{Name: "name", Type: "VARCHAR", Position: 2},
		{Name: "role", Type: "VARCHAR", HasDefault: true, Default: "'member'", Nullable: true, Position: 3},
	},
		[]value.Raw{value.Int(1), value.Text("alice"), value.Text("admin")},
		[]value.Raw{value.Int(2), value.Text("bob"), value.Text("member")},
		[]value.Raw{value.Int(3), value.Text("carol"), value.Null()},
	)
	return b
}

func newTestShell(t *testing.T, b *coretest.MemoryBackend, tr *testutil.TestRenderer) *shell {
	t.Helper()
	s := session.New(b, session.Options{Table: "users", Logger: coretest.NewTestLogger(t)})
	require.NoError(t, s.Load(context.Background()))
	return &shell{sess: s, r: tr.Renderer}
}

func TestShell_EditAndCommit(t *testing.T) {
	b := newUsersBackend()
	tr := testutil.NewTestRendererMarkdown()
	sh := newTestShell(t, b, tr)
	ctx := context.Background()

	quit, err := sh.exec(ctx, ".edit 1 name alice smith")
	require.NoError(t, err)
	assert.False(t, quit)
	testutil.AssertContains(t, tr.Output(), "alice smith*")
	testutil.AssertContains(t, tr.Output(), "1 pending")

	tr.Reset()
	_, err = sh.exec(ctx, ".plan all")
	require.NoError(t, err)
	testutil.AssertContains(t, tr.Output(), "| update | 1 | name | alice smith |")
	testutil.AssertContains(t, tr.Output(), "1 update(s), 0 deletion(s), 0 insert(s) on users")

	tr.Reset()
	_, err = sh.exec(ctx, ".commit all")
	require.NoError(t, err)
	testutil.AssertContains(t, tr.Output(), "Committed 1 change(s).")
	testutil.AssertNoANSI(t, tr.Output())
	assert.Equal(t, []string{"update users 1 name"}, b.Calls())
	assert.Equal(t, value.Text("alice smith"), b.Rows("users")[0][1])
	assert.Zero(t, sh.sess.PendingCount())

	tr.Reset()
	_, err = sh.exec(ctx, ".commit")
	require.NoError(t, err)
	assert.Equal(t, "Nothing to commit.\n", tr.Output())
}

func TestShell_ColumnsByPosition(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()
	sh := newTestShell(t, newUsersBackend(), tr)
	ctx := context.Background()

	_, err := sh.exec(ctx, ".null 3 2")
	require.NoError(t, err)
	_, err = sh.exec(ctx, ".default 2 role")
	require.NoError(t, err)

	p := sh.sess.Plan(true)
	require.Len(t, p.Updates, 2)
	assert.Equal(t, "role", p.Updates[0].Column)
	assert.True(t, p.Updates[0].Change.IsDefault())
	assert.Equal(t, "name", p.Updates[1].Column)
	assert.True(t, p.Updates[1].Change.Value().IsNull())

	_, err = sh.exec(ctx, ".revert 3 name")
	require.NoError(t, err)
	assert.Equal(t, 1, sh.sess.PendingCount())
}

func TestShell_SetLiteral(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()
	sh := newTestShell(t, newUsersBackend(), tr)
	ctx := context.Background()

	// carol's role is NULL; an empty .edit leaves it alone.
	_, err := sh.exec(ctx, ".edit 3 role")
	require.NoError(t, err)
	assert.Zero(t, sh.sess.PendingCount())

	_, err = sh.exec(ctx, ".set 3 role ''")
	require.NoError(t, err)
	_, err = sh.exec(ctx, ".set 1 name 42")
	require.NoError(t, err)

	p := sh.sess.Plan(true)
	require.Len(t, p.Updates, 2)
	assert.Equal(t, "name", p.Updates[0].Column)
	assert.Equal(t, value.Int(42), p.Updates[0].Change.Value())
	assert.Equal(t, "role", p.Updates[1].Column)
	assert.Equal(t, value.Text(""), p.Updates[1].Change.Value())
	assert.False(t, p.Updates[1].Change.Value().IsNull())
}

func TestShell_DeleteInsertRollback(t *testing.T) {
	tr := testutil.NewTestRendererJSON()
	sh := newTestShell(t, newUsersBackend(), tr)
	ctx := context.Background()

	_, err := sh.exec(ctx, ".delete 2 3")
	require.NoError(t, err)
	_, err = sh.exec(ctx, ".undelete 3")
	require.NoError(t, err)

	tr.Reset()
	_, err = sh.exec(ctx, ".insert name='dave' role=admin")
	require.NoError(t, err)

	var grid GridOutput
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &grid))
	require.Len(t, grid.Rows, 4)
	assert.Equal(t, "deleted", grid.Rows[1].Status)
	assert.Equal(t, "unchanged", grid.Rows[2].Status)
	assert.Equal(t, "inserted", grid.Rows[3].Status)
	assert.Equal(t, map[string]string{"id": "<generated>", "name": "dave", "role": "admin"}, grid.Rows[3].Values)
	assert.Equal(t, 2, grid.Pending)

	tr.Reset()
	_, err = sh.exec(ctx, ".plan all")
	require.NoError(t, err)
	var plan PlanOutput
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &plan))
	assert.Equal(t, []string{"2"}, plan.Deletions)
	require.Len(t, plan.Inserts, 1)
	assert.Equal(t, map[string]string{"name": "dave", "role": "admin"}, plan.Inserts[0].Values)

	_, err = sh.exec(ctx, ".rollback all")
	require.NoError(t, err)
	assert.Zero(t, sh.sess.PendingCount())
}

func TestShell_SelectionScopesCommit(t *testing.T) {
	b := newUsersBackend()
	tr := testutil.NewTestRendererMarkdown()
	sh := newTestShell(t, b, tr)
	ctx := context.Background()

	for _, line := range []string{".edit 1 name ann", ".edit 2 name ben", ".select 2"} {
		_, err := sh.exec(ctx, line)
		require.NoError(t, err, line)
	}
	testutil.AssertContains(t, tr.Output(), ">~")

	_, err := sh.exec(ctx, ".commit")
	require.NoError(t, err)
	assert.Equal(t, []string{"update users 2 name"}, b.Calls())
	assert.Equal(t, 1, sh.sess.PendingCount())

	_, err = sh.exec(ctx, ".selectall")
	require.NoError(t, err)
	assert.Equal(t, 3, sh.sess.Selection().Len())
	_, err = sh.exec(ctx, ".unselect")
	require.NoError(t, err)
	assert.True(t, sh.sess.Selection().Empty())
}

func TestShell_SortFilterPage(t *testing.T) {
	b := newUsersBackend()
	tr := testutil.NewTestRendererMarkdown()
	sh := newTestShell(t, b, tr)
	ctx := context.Background()

	_, err := sh.exec(ctx, ".sort name desc")
	require.NoError(t, err)
	_, err = sh.exec(ctx, ".filter role = 'member'  AND id > 1")
	require.NoError(t, err)
	_, err = sh.exec(ctx, ".page 1")
	require.NoError(t, err)

	reqs := b.Requests()
	require.Len(t, reqs, 4)
	assert.Equal(t, "SELECT * FROM (SELECT * FROM users) AS gridedit_view ORDER BY name DESC", reqs[1].Query)
	assert.Equal(t,
		"SELECT * FROM (SELECT * FROM users) AS gridedit_view WHERE role = 'member'  AND id > 1 ORDER BY name DESC",
		reqs[2].Query)

	tr.Reset()
	_, err = sh.exec(ctx, ".next")
	require.NoError(t, err)
	assert.Equal(t, "No more pages.\n", tr.Output())
}

func TestShell_Errors(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr error
		wantMsg string
	}{
		{name: "plain text", line: "select 1", wantMsg: "unknown input"},
		{name: "unknown command", line: ".drop", wantMsg: "unknown command: .drop"},
		{name: "edit usage", line: ".edit 1", wantErr: errUsage},
		{name: "set usage", line: ".set 3 role", wantErr: errUsage},
		{name: "row zero", line: ".edit 0 name x", wantErr: session.ErrNoSuchRow},
		{name: "row past end", line: ".delete 9", wantErr: session.ErrNoSuchRow},
		{name: "unknown column", line: ".null 1 email", wantErr: session.ErrNoSuchColumn},
		{name: "column position past end", line: ".null 1 4", wantErr: session.ErrNoSuchColumn},
		{name: "bad insert pair", line: ".insert name", wantErr: errUsage},
		{name: "bad modifier", line: ".select 1 alt", wantErr: errUsage},
		{name: "bad page", line: ".page two", wantErr: errUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh := newTestShell(t, newUsersBackend(), testutil.NewTestRendererMarkdown())
			quit, err := sh.exec(context.Background(), tt.line)
			require.Error(t, err)
			assert.False(t, quit)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestShell_QuitAndHelp(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()
	sh := newTestShell(t, newUsersBackend(), tr)
	ctx := context.Background()

	quit, err := sh.exec(ctx, "   ")
	require.NoError(t, err)
	assert.False(t, quit)

	_, err = sh.exec(ctx, ".help")
	require.NoError(t, err)
	testutil.AssertContains(t, tr.Output(), ".commit [all]")

	for _, line := range []string{".quit", ".EXIT"} {
		quit, err := sh.exec(ctx, line)
		require.NoError(t, err)
		assert.True(t, quit, line)
	}
}

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want value.Raw
	}{
		{"42", value.Int(42)},
		{"1.5", value.Float(1.5)},
		{"true", value.Bool(true)},
		{"NULL", value.Null()},
		{"'42'", value.Text("42")},
		{`"null"`, value.Text("null")},
		{"bob", value.Text("bob")},
		{"", value.Text("")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLiteral(tt.in))
		})
	}
}

func TestRestAfterFields(t *testing.T) {
	assert.Equal(t, "a  b", restAfterFields(".edit 1 name a  b", 3))
	assert.Equal(t, "", restAfterFields(".edit 1 name", 3))
	assert.Equal(t, "x > 1", restAfterFields("  .filter   x > 1", 1))
}
