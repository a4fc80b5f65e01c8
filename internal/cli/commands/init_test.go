package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	_ "github.com/leapstack-labs/gridedit/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/gridedit/pkg/adapters/sqlite"
)

func TestNewInitCommand(t *testing.T) {
	tests := []struct {
		name     string
		setupDir func(t *testing.T, dir string) // setup before running
		args     []string
		wantErr  string
		want     initFile
	}{
		{
			name: "sqlite defaults",
			args: []string{"--database", "app.db", "--table", "users"},
			want: initFile{
				Target:    initTarget{Type: "sqlite", Database: "app.db"},
				Table:     "users",
				PageSize:  100,
				StatePath: ".gridedit/state.db",
				Journal:   true,
			},
		},
		{
			name: "postgres gets host and credential references",
			args: []string{"--type", "Postgres", "--database", "shop"},
			want: initFile{
				Target: initTarget{
					Type:     "postgres",
					Database: "shop",
					Host:     "localhost",
					Port:     5432,
					User:     "${PGUSER}",
					Password: "${PGPASSWORD}",
				},
				PageSize:  100,
				StatePath: ".gridedit/state.db",
				Journal:   true,
			},
		},
		{
			name:    "postgres without database",
			args:    []string{"--type", "postgres"},
			wantErr: "target.database is required",
		},
		{
			name:    "unknown type",
			args:    []string{"--type", "oracle"},
			wantErr: "oracle",
		},
		{
			name: "existing config without force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "gridedit.yaml"), []byte("existing"), 0600)
			},
			wantErr: "already exists",
		},
		{
			name: "existing config with force",
			setupDir: func(_ *testing.T, dir string) {
				_ = os.WriteFile(filepath.Join(dir, "gridedit.yaml"), []byte("existing"), 0600)
			},
			args: []string{"--force"},
			want: initFile{
				Target:    initTarget{Type: "sqlite"},
				PageSize:  100,
				StatePath: ".gridedit/state.db",
				Journal:   true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			if tt.setupDir != nil {
				tt.setupDir(t, tmpDir)
			}

			cmd := NewInitCommand()
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs(append([]string{tmpDir}, tt.args...))

			err := cmd.Execute()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, buf.String(), "Created ")

			data, err := os.ReadFile(filepath.Join(tmpDir, "gridedit.yaml"))
			require.NoError(t, err)
			var got initFile
			require.NoError(t, yaml.Unmarshal(data, &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInitCommand_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "project")

	cmd := NewInitCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{dir, "--table", "orders"})
	require.NoError(t, cmd.Execute())

	assert.FileExists(t, filepath.Join(dir, "gridedit.yaml"))
}
