package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/gridedit/internal/cli/config"
	"github.com/leapstack-labs/gridedit/internal/cli/output"
	"github.com/leapstack-labs/gridedit/internal/session"
	"github.com/leapstack-labs/gridedit/internal/state"
	"github.com/leapstack-labs/gridedit/pkg/adapter"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Adapter  adapter.Adapter
	Journal  *state.SQLiteStore
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with a connected adapter and,
// when enabled, the commit journal.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc := NewCommandContextWithoutAdapter(cmd)

	a, err := connectAdapter(cmd.Context(), cc.Cfg, cc.Logger)
	if err != nil {
		return nil, nil, err
	}
	cc.Adapter = a

	if cc.Cfg.Journal {
		j, err := openJournal(cc.Cfg, cc.Logger)
		if err != nil {
			_ = a.Close()
			return nil, nil, err
		}
		cc.Journal = j
	}

	cleanup := func() {
		if cc.Journal != nil {
			_ = cc.Journal.Close()
		}
		_ = cc.Adapter.Close()
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutAdapter creates a CommandContext without a
// database connection. Useful for commands that only read the journal.
func NewCommandContextWithoutAdapter(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
	r.SetNoColor(cfg.NoColor)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// OpenSession creates a session over table (or the configured table) and
// loads its first page.
func (c *CommandContext) OpenSession(ctx context.Context, table string) (*session.Session, error) {
	if table == "" {
		table = c.Cfg.Table
	}
	if table == "" && c.Cfg.Query == "" {
		return nil, c.Cfg.RequireTable()
	}

	opts := session.Options{
		Table:       table,
		Query:       c.Cfg.Query,
		PageSize:    c.Cfg.PageSize,
		Concurrency: c.Cfg.Concurrency,
		Logger:      c.Logger,
	}
	if c.Journal != nil {
		opts.Journal = c.Journal
	}

	s := session.New(c.Adapter, opts)
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Helper functions shared across commands

// getConfig returns the current configuration, or defaults when none was
// loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return &config.Config{
		Target:       &config.TargetConfig{Type: "sqlite", Database: ":memory:"},
		PageSize:     config.DefaultPageSize,
		StatePath:    config.DefaultStateFile,
		LogLevel:     config.DefaultLogLevel,
		OutputFormat: config.DefaultOutput,
	}
}

func connectAdapter(ctx context.Context, cfg *config.Config, logger *slog.Logger) (adapter.Adapter, error) {
	a, err := adapter.NewAdapter(cfg.Target.AdapterConfig(), logger)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, cfg.Target.AdapterConfig()); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Target.Type, err)
	}
	logger.Debug("connected", "type", cfg.Target.Type, "database", cfg.Target.Database)
	return a, nil
}

func openJournal(cfg *config.Config, logger *slog.Logger) (*state.SQLiteStore, error) {
	j := state.NewSQLiteStore(logger)
	if err := j.Open(cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open commit journal %s: %w", cfg.StatePath, err)
	}
	return j, nil
}
