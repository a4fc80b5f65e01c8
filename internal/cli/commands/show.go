package commands

import (
	"github.com/leapstack-labs/gridedit/internal/session"
	"github.com/spf13/cobra"
)

// ShowOptions holds options for the show command.
type ShowOptions struct {
	Page   int
	Sort   string
	Desc   bool
	Filter string
}

// NewShowCommand creates the show command.
func NewShowCommand() *cobra.Command {
	opts := &ShowOptions{}

	cmd := &cobra.Command{
		Use:   "show [table]",
		Short: "Print one page of a table",
		Long: `Print one page of a table or of the configured query.

Output format is auto-detected: a box table on a terminal, markdown when
piped. Use --output json or --output yaml for machine-readable output.`,
		Example: `  # First page of the configured table
  gridedit show

  # Third page of orders, newest first
  gridedit show orders --page 3 --sort created_at --desc

  # Filtered, as JSON
  gridedit show users --filter "age > 30" -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var table string
			if len(args) > 0 {
				table = args[0]
			}
			return runShow(cmd, table, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Page, "page", 1, "Page to show (1-based)")
	cmd.Flags().StringVar(&opts.Sort, "sort", "", "Column to order by")
	cmd.Flags().BoolVar(&opts.Desc, "desc", false, "Sort descending")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "SQL boolean expression rows must satisfy")

	return cmd
}

func runShow(cmd *cobra.Command, table string, opts *ShowOptions) error {
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
	if err := applyShowOptions(cmd, sess, opts); err != nil {
		return err
	}
	return renderGrid(cmdCtx.Renderer, sess.View())
}

// applyShowOptions runs at most one extra fetch for the sort, filter and
// page given on the command line.
func applyShowOptions(cmd *cobra.Command, sess *session.Session, opts *ShowOptions) error {
	ctx := cmd.Context()
	if opts.Sort != "" {
		if err := sess.Sort(ctx, &session.SortSpec{Column: opts.Sort, Desc: opts.Desc}); err != nil {
			return err
		}
	}
	if opts.Filter != "" {
		if err := sess.Filter(ctx, opts.Filter); err != nil {
			return err
		}
	}
	if opts.Page > 1 {
		return sess.Page(ctx, opts.Page)
	}
	return nil
}
