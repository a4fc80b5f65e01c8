package commands

import (
	"errors"

	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [batch-id]",
		Short: "List journaled commits",
		Long: `List the commit batches recorded in the journal, newest first.

With a batch id, show every remote call of that batch and its outcome.`,
		Example: `  # Recent commits
  gridedit history

  # One commit in detail
  gridedit history 3f2a9c1e-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContextWithoutAdapter(cmd)
			if !cmdCtx.Cfg.Journal {
				return errors.New("the commit journal is disabled (set journal: true in gridedit.yaml)")
			}

			j, err := openJournal(cmdCtx.Cfg, cmdCtx.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = j.Close() }()

			if len(args) == 1 {
				b, err := j.GetBatch(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return renderBatch(cmdCtx.Renderer, b)
			}

			batches, err := j.ListBatches(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return renderBatches(cmdCtx.Renderer, batches)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of batches to list")

	return cmd
}
