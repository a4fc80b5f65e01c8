package commands

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/leapstack-labs/gridedit/internal/tui"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

// errNoTerminal is returned when browse is started without a terminal.
var errNoTerminal = errors.New("browse needs a terminal\nHint: use 'gridedit show' or 'gridedit shell' when output is piped")

// NewBrowseCommand creates the browse command.
func NewBrowseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "browse [table]",
		Short: "Edit a table in a full-screen grid",
		Long: `Open a table in a full-screen grid editor.

Edits, deletions and new rows are held as pending changes until you commit
them with c (selected rows) or C (everything). Press ? for all keys.`,
		Example: `  # Edit the configured table
  gridedit browse

  # Edit another table of a DuckDB file
  gridedit browse events --type duckdb --database analytics.duckdb`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var table string
			if len(args) > 0 {
				table = args[0]
			}
			return runBrowse(cmd, table)
		},
	}
}

func runBrowse(cmd *cobra.Command, table string) error {
	ctx := cmd.Context()

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if !cmdCtx.Renderer.IsTTY() {
		return errNoTerminal
	}

	sess, err := cmdCtx.OpenSession(ctx, table)
	if err != nil {
		return err
	}

	r := lipgloss.NewRenderer(cmd.OutOrStdout())
	if cmdCtx.Cfg.NoColor {
		r.SetColorProfile(termenv.Ascii)
	}

	err = tui.Run(ctx, sess, tui.Options{Renderer: r, Logger: cmdCtx.Logger})
	if n := sess.PendingCount(); n > 0 && err == nil {
		cmdCtx.Renderer.Println(cmdCtx.Renderer.Styles().Warning.Render(
			fmt.Sprintf("Discarded %d uncommitted change(s).", n)))
	}
	return err
}
