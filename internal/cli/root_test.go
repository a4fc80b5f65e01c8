package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/gridedit/internal/cli/config"
	"github.com/leapstack-labs/gridedit/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRootCmd_Help(t *testing.T) {
	out, err := run(t, "--help")
	require.NoError(t, err)
	for _, name := range []string{"show", "shell", "browse", "history", "init", "version", "completion"} {
		assert.Contains(t, out, name)
	}
}

func TestRootCmd_Version(t *testing.T) {
	out, err := run(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "gridedit "+Version+"\n", out)
}

func TestRootCmd_PersistentFlagsReachConfig(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfgPath := filepath.Join(dir, "gridedit.yaml")

	out, err := run(t, "show", "--config", cfgPath, "-o", "json", "--page-size", "2", "--sort", "id")
	require.NoError(t, err)

	var grid struct {
		Table     string `json:"table"`
		Page      int    `json:"page"`
		TotalRows int64  `json:"total_rows"`
		Rows      []any  `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &grid))
	assert.Equal(t, "users", grid.Table)
	assert.Len(t, grid.Rows, 2)
	assert.EqualValues(t, 3, grid.TotalRows)

	cfg := config.GetCurrentConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, 2, cfg.PageSize)
	assert.Equal(t, config.OutputJSON, cfg.OutputFormat)
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	_, err := run(t, "show", "--config", filepath.Join(dir, "gridedit.yaml"), "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log level")

	_, err = run(t, "show", "--config", filepath.Join(dir, "gridedit.yaml"), "--env", "prod")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown environment "prod"`)
}

func TestRootCmd_BrowseNeedsTerminal(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	_, err := run(t, "browse", "--config", filepath.Join(dir, "gridedit.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browse needs a terminal")
}

func TestCompletionCommand(t *testing.T) {
	out, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "gridedit")

	_, err = run(t, "completion", "tcsh")
	assert.Error(t, err)
}
