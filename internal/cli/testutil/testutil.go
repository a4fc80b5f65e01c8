// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"database/sql"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/gridedit/internal/cli/output"

	// sqlite driver for fixture databases.
	_ "modernc.org/sqlite"
)

// usersFixture seeds the users table of SetupTestProject.
const usersFixture = `
CREATE TABLE users (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    role TEXT DEFAULT 'member',
    age INTEGER
);
INSERT INTO users (name, role, age) VALUES
    ('alice', 'admin', 30),
    ('bob', 'member', NULL),
    ('carol', 'member', 41);
`

// SetupTestProject creates a temporary project holding a SQLite database
// with a users table and a gridedit.yaml pointing at it. It returns the
// project directory.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "app.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to open fixture database: %v", err)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Exec(usersFixture); err != nil {
		t.Fatalf("failed to seed fixture database: %v", err)
	}

	cfg := `target:
  type: sqlite
  database: app.db
table: users
state_path: .gridedit/state.db
`
	if err := os.WriteFile(filepath.Join(tmpDir, "gridedit.yaml"), []byte(cfg), 0o600); err != nil {
		t.Fatalf("failed to write gridedit.yaml: %v", err)
	}

	return tmpDir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	r := output.NewRendererWithTTY(out, errOut, isTTY, mode)
	r.SetNoColor(true)
	return &TestRenderer{
		Renderer: r,
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a new test renderer in text mode (simulated TTY).
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, true)
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the combined stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertContains checks that the string contains the expected substring.
func AssertContains(t *testing.T, s, expected string) {
	t.Helper()
	if !strings.Contains(s, expected) {
		t.Errorf("string %q does not contain expected %q", s, expected)
	}
}
