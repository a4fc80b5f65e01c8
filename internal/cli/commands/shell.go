package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/leapstack-labs/gridedit/internal/cli/output"
	"github.com/leapstack-labs/gridedit/internal/session"
	"github.com/leapstack-labs/gridedit/pkg/overlay"
	"github.com/leapstack-labs/gridedit/pkg/value"
	"github.com/spf13/cobra"
)

const shellPrompt = "gridedit> "

// NewShellCommand creates the shell command.
func NewShellCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell [table]",
		Short: "Edit a table from a line-oriented prompt",
		Long: `Open an editing shell over a table.

Edits are staged locally and only written to the database on .commit.
Rows are addressed by their 1-based number in the current page, columns
by name or 1-based position.`,
		Example: `  # Edit the configured table
  gridedit shell

  # Edit a specific table
  gridedit shell orders`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var table string
			if len(args) > 0 {
				table = args[0]
			}
			return runShell(cmd, table)
		},
	}
	return cmd
}

func runShell(cmd *cobra.Command, table string) error {
	ctx := cmd.Context()

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	sess, err := cmdCtx.OpenSession(ctx, table)
	if err != nil {
		return err
	}

	historyFile := filepath.Join(filepath.Dir(cmdCtx.Cfg.StatePath), "shell_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          shellPrompt,
		HistoryFile:     historyFile,
		AutoComplete:    newShellCompleter(sess),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize shell: %w", err)
	}
	defer func() { _ = rl.Close() }()

	r := cmdCtx.Renderer
	sh := &shell{sess: sess, r: r}

	r.Printf("gridedit shell on %s\n", sess.Table().Name)
	r.Println("Type .help for commands, .quit to exit")
	r.Println("")
	if err := renderGrid(r, sess.View()); err != nil {
		return err
	}

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			sess.CancelEdit()
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		quit, err := sh.exec(ctx, line)
		if err != nil {
			r.Errorf("Error: %v\n", err)
		}
		if quit {
			break
		}
	}

	if n := sess.PendingCount(); n > 0 {
		cmdCtx.Logger.Warn("discarding uncommitted changes", "pending", n)
		r.Errorf("Discarded %d uncommitted change(s).\n", n)
	}
	return nil
}

// shell runs dot-commands against a session.
type shell struct {
	sess *session.Session
	r    *output.Renderer
}

// errUsage is wrapped by argument errors so callers can print help.
var errUsage = errors.New("usage")

func usage(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errUsage}, args...)...)
}

// exec runs one shell line. quit is true when the shell should exit.
func (sh *shell) exec(ctx context.Context, line string) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if !strings.HasPrefix(line, ".") {
		return false, fmt.Errorf("unknown input %q (type .help for commands)", line)
	}

	parts := strings.Fields(line)
	command, args := strings.ToLower(parts[0]), parts[1:]

	switch command {
	case ".quit", ".exit":
		return true, nil

	case ".help":
		printShellHelp(sh.r.Writer())
		return false, nil

	case ".show":
		return false, sh.show()

	case ".edit":
		if len(args) < 2 {
			return false, usage(".edit <row> <column> [value...]")
		}
		row, col, err := sh.cell(args[0], args[1])
		if err != nil {
			return false, err
		}
		draft := restAfterFields(line, 3)
		if err := sh.sess.CommitCell(row, col, draft); err != nil {
			return false, err
		}
		return false, sh.show()

	case ".null", ".default", ".revert":
		if len(args) != 2 {
			return false, usage("%s <row> <column>", command)
		}
		row, col, err := sh.cell(args[0], args[1])
		if err != nil {
			return false, err
		}
		switch command {
		case ".null":
			err = sh.sess.SetNull(row, col)
		case ".default":
			err = sh.sess.SetDefault(row, col)
		default:
			err = sh.sess.RevertCell(row, col)
		}
		if err != nil {
			return false, err
		}
		return false, sh.show()

	case ".set":
		if len(args) < 3 {
			return false, usage(".set <row> <column> <literal>")
		}
		row, col, err := sh.cell(args[0], args[1])
		if err != nil {
			return false, err
		}
		if err := sh.sess.SetValue(row, col, parseLiteral(restAfterFields(line, 3))); err != nil {
			return false, err
		}
		return false, sh.show()

	case ".delete", ".undelete":
		if len(args) == 0 {
			return false, usage("%s <row> [row...]", command)
		}
		for _, a := range args {
			row, err := sh.rowIndex(a)
			if err != nil {
				return false, err
			}
			if command == ".delete" {
				err = sh.sess.DeleteRow(row)
			} else {
				err = sh.sess.UndeleteRow(row)
			}
			if err != nil {
				return false, err
			}
		}
		return false, sh.show()

	case ".insert":
		data := make(map[string]value.Raw, len(args))
		for _, a := range args {
			name, raw, ok := strings.Cut(a, "=")
			if !ok {
				return false, usage(".insert [column=value...]")
			}
			col, err := sh.columnIndex(name)
			if err != nil {
				return false, err
			}
			data[sh.sess.Table().Columns[col]] = parseLiteral(raw)
		}
		if _, _, err := sh.sess.AddInsertion(data); err != nil {
			return false, err
		}
		return false, sh.show()

	case ".select":
		if len(args) == 0 || len(args) > 2 {
			return false, usage(".select <row> [shift|ctrl]")
		}
		row, err := sh.rowIndex(args[0])
		if err != nil {
			return false, err
		}
		var mods overlay.Modifiers
		if len(args) == 2 {
			switch strings.ToLower(args[1]) {
			case "shift":
				mods.Shift = true
			case "ctrl", "cmd":
				mods.CtrlOrCmd = true
			default:
				return false, usage(".select <row> [shift|ctrl]")
			}
		}
		if err := sh.sess.Click(row, mods); err != nil {
			return false, err
		}
		return false, sh.show()

	case ".selectall":
		sh.sess.ToggleSelectAll()
		return false, sh.show()

	case ".unselect":
		sh.sess.ClearSelection()
		return false, sh.show()

	case ".plan":
		return false, renderPlan(sh.r, sh.sess.Plan(scopeAll(args)))

	case ".commit":
		res, err := sh.sess.Submit(ctx, scopeAll(args))
		if err != nil {
			return false, err
		}
		if res.Plan.Empty() {
			sh.r.Println("Nothing to commit.")
			return false, nil
		}
		sh.r.Println(sh.r.Styles().Success.Render(fmt.Sprintf("Committed %d change(s).", len(res.Calls))))
		return false, sh.show()

	case ".rollback":
		sh.sess.Rollback(scopeAll(args))
		return false, sh.show()

	case ".sort":
		if len(args) == 0 {
			return false, sh.refetch(sh.sess.Sort(ctx, nil))
		}
		col, err := sh.columnIndex(args[0])
		if err != nil {
			return false, err
		}
		spec := &session.SortSpec{
			Column: sh.sess.Table().Columns[col],
			Desc:   len(args) > 1 && strings.EqualFold(args[1], "desc"),
		}
		return false, sh.refetch(sh.sess.Sort(ctx, spec))

	case ".filter":
		return false, sh.refetch(sh.sess.Filter(ctx, restAfterFields(line, 1)))

	case ".page":
		if len(args) != 1 {
			return false, usage(".page <n>")
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return false, usage(".page <n>")
		}
		return false, sh.refetch(sh.sess.Page(ctx, n))

	case ".next", ".prev":
		var moved bool
		var err error
		if command == ".next" {
			moved, err = sh.sess.NextPage(ctx)
		} else {
			moved, err = sh.sess.PrevPage(ctx)
		}
		if err != nil {
			return false, err
		}
		if !moved {
			sh.r.Println("No more pages.")
			return false, nil
		}
		return false, sh.show()

	case ".refresh":
		return false, sh.refetch(sh.sess.Refresh(ctx))

	default:
		return false, fmt.Errorf("unknown command: %s (type .help for commands)", command)
	}
}

func (sh *shell) show() error {
	return renderGrid(sh.r, sh.sess.View())
}

func (sh *shell) refetch(err error) error {
	if err != nil {
		return err
	}
	return sh.show()
}

func (sh *shell) cell(rowArg, colArg string) (int, int, error) {
	row, err := sh.rowIndex(rowArg)
	if err != nil {
		return 0, 0, err
	}
	col, err := sh.columnIndex(colArg)
	if err != nil {
		return 0, 0, err
	}
	return row, col, nil
}

// rowIndex converts a 1-based row number to a display index.
func (sh *shell) rowIndex(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", session.ErrNoSuchRow, arg)
	}
	return n - 1, nil
}

// columnIndex resolves a column name or 1-based position.
func (sh *shell) columnIndex(arg string) (int, error) {
	if i := sh.sess.ColumnIndex(arg); i >= 0 {
		return i, nil
	}
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(sh.sess.Table().Columns) {
		return n - 1, nil
	}
	return 0, fmt.Errorf("%w: %q", session.ErrNoSuchColumn, arg)
}

func scopeAll(args []string) bool {
	return len(args) > 0 && strings.EqualFold(args[0], "all")
}

// restAfterFields returns line with its first n fields removed, preserving
// the spacing of what remains.
func restAfterFields(line string, n int) string {
	s := strings.TrimSpace(line)
	for range n {
		i := strings.IndexAny(s, " \t")
		if i < 0 {
			return ""
		}
		s = strings.TrimLeft(s[i:], " \t")
	}
	return s
}

// parseLiteral reads an insert value. Numbers, booleans and null are typed;
// quotes force text.
func parseLiteral(s string) value.Raw {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		return value.Text(s[1 : len(s)-1])
	}
	switch strings.ToLower(s) {
	case "null":
		return value.Null()
	case "true":
		return value.Bool(true)
	case "false":
		return value.Bool(false)
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return value.Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return value.Float(f)
	}
	return value.Text(s)
}

func printShellHelp(w io.Writer) {
	help := `
Commands:
  .show                        Show the current page
  .edit <row> <col> [value]    Stage a new cell value (empty clears)
  .set <row> <col> <literal>   Stage a typed literal ('' is an empty string)
  .null <row> <col>            Stage NULL
  .default <row> <col>         Stage the column default
  .revert <row> <col>          Drop the staged change of a cell
  .delete <row>...             Mark rows for deletion
  .undelete <row>...           Unmark rows
  .insert [col=value...]       Stage a new row
  .select <row> [shift|ctrl]   Click a row
  .selectall                   Toggle selection of every row
  .unselect                    Clear the selection
  .plan [all]                  Show what a commit would write
  .commit [all]                Write staged changes
  .rollback [all]              Discard staged changes
  .sort [col] [desc]           Order by a column (no column clears)
  .filter [expr]               Filter with a WHERE expression
  .page <n> / .next / .prev    Change page
  .refresh                     Re-run the query keeping staged changes
  .quit / .exit                Leave the shell

Tips:
  - Rows are numbered from 1 as shown in the # column
  - .plan, .commit and .rollback act on selected rows unless "all" is given
  - Sorting, filtering and paging discard staged changes
`
	_, _ = fmt.Fprintln(w, help)
}

// newShellCompleter creates a readline completer for dot-commands and
// column names.
func newShellCompleter(sess *session.Session) *readline.PrefixCompleter {
	cols := func(string) []string { return sess.Table().Columns }

	all := func() readline.PrefixCompleterInterface { return readline.PcItem("all") }
	return readline.NewPrefixCompleter(
		readline.PcItem(".help"),
		readline.PcItem(".show"),
		readline.PcItem(".edit"),
		readline.PcItem(".set"),
		readline.PcItem(".null"),
		readline.PcItem(".default"),
		readline.PcItem(".revert"),
		readline.PcItem(".delete"),
		readline.PcItem(".undelete"),
		readline.PcItem(".insert"),
		readline.PcItem(".select"),
		readline.PcItem(".selectall"),
		readline.PcItem(".unselect"),
		readline.PcItem(".plan", all()),
		readline.PcItem(".commit", all()),
		readline.PcItem(".rollback", all()),
		readline.PcItem(".sort", readline.PcItemDynamic(cols, readline.PcItem("desc"))),
		readline.PcItem(".filter"),
		readline.PcItem(".page"),
		readline.PcItem(".next"),
		readline.PcItem(".prev"),
		readline.PcItem(".refresh"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
}
