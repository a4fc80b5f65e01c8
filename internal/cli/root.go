// Package cli provides the command-line interface for gridedit.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/gridedit/internal/cli/commands"
	"github.com/leapstack-labs/gridedit/internal/cli/config"
	"github.com/spf13/cobra"

	// Register the database adapters.
	_ "github.com/leapstack-labs/gridedit/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/gridedit/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/gridedit/pkg/adapters/sqlite"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	cfgFile = ""

	rootCmd := &cobra.Command{
		Use:   "gridedit",
		Short: "gridedit - edit database tables as a grid",
		Long: `gridedit shows a table or query result as a paginated grid and lets you
edit cells, delete and insert rows, then commit the pending changes as one
batch of updates, deletes and inserts.

Works with SQLite, DuckDB and Postgres.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			switch cmd.Name() {
			case "help", "completion", "__complete", "version", "init":
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level, _ := config.ParseLogLevel(cfg.LogLevel)
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			if f := config.GetConfigFileUsed(); f != "" {
				logger.Debug("using config file", "path", f)
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, config.LoggerKey(), logger))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./gridedit.yaml)")
	pf.String("env", "", "Environment from the environments section to use")
	pf.String("type", "", "Database type (sqlite|duckdb|postgres)")
	pf.String("database", "", "Database file, or database name for postgres")
	pf.String("table", "", "Table to edit")
	pf.String("query", "", "SELECT to show instead of a table (read-only)")
	pf.Int("page-size", 0, "Rows per page (0 disables pagination)")
	pf.Int("concurrency", 0, "Parallel commit calls (0 for the default)")
	pf.String("state", "", "Path to the commit journal database")
	pf.Bool("journal", true, "Record committed batches in the journal")
	pf.String("log-level", "", "Log level (debug|info|warn|error)")
	pf.StringP("output", "o", "", "Output format (auto|table|markdown|json|yaml)")
	pf.Bool("no-color", false, "Disable colored output")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{config.OutputAuto, config.OutputTable, config.OutputMarkdown, config.OutputJSON, config.OutputYAML}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("type", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"sqlite", "duckdb", "postgres"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewShowCommand())
	rootCmd.AddCommand(commands.NewShellCommand())
	rootCmd.AddCommand(commands.NewBrowseCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for gridedit.

Bash:
  $ source <(gridedit completion bash)

Zsh:
  $ gridedit completion zsh > "${fpath[1]}/_gridedit"

Fish:
  $ gridedit completion fish | source

PowerShell:
  PS> gridedit completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
