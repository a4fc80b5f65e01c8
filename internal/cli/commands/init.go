package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/gridedit/internal/cli/output"
	"github.com/leapstack-labs/gridedit/internal/config"
	"github.com/leapstack-labs/gridedit/pkg/core"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// InitOptions holds options for the init command.
type InitOptions struct {
	Force    bool
	Type     string
	Database string
	Table    string
}

// initFile is the shape of a generated gridedit.yaml.
type initFile struct {
	Target    initTarget `yaml:"target"`
	Table     string     `yaml:"table,omitempty"`
	PageSize  int        `yaml:"page_size"`
	StatePath string     `yaml:"state_path"`
	Journal   bool       `yaml:"journal"`
}

type initTarget struct {
	Type     string `yaml:"type"`
	Database string `yaml:"database,omitempty"`
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	opts := &InitOptions{}

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a gridedit.yaml configuration",
		Long: `Create a gridedit.yaml configuration file pointing at a database.

For postgres targets the user and password are written as ${PGUSER} and
${PGPASSWORD} references, expanded from the environment at load time.`,
		Example: `  # SQLite database in the current directory
  gridedit init --database app.db --table users

  # DuckDB file in a new directory
  gridedit init analytics --type duckdb --database warehouse.duckdb

  # Postgres
  gridedit init --type postgres --database shop --table orders

  # Overwrite an existing config
  gridedit init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cfg := getConfig()
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
			r.SetNoColor(cfg.NoColor)

			return runInit(r, dir, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Force, "force", false, "Overwrite existing configuration")
	cmd.Flags().StringVar(&opts.Type, "type", "sqlite", "Database type (sqlite, duckdb, postgres)")
	cmd.Flags().StringVar(&opts.Database, "database", "", "Database file, or database name for postgres")
	cmd.Flags().StringVar(&opts.Table, "table", "", "Default table to edit")

	return cmd
}

func runInit(r *output.Renderer, dir string, opts *InitOptions) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err == nil && !opts.Force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", config.ConfigFileName)
	}

	file, err := newInitFile(opts)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	styles := r.Styles()
	r.Println(styles.Success.Render("Created " + configPath))
	r.Println("")
	r.Println("Next steps:")
	if file.Table == "" {
		r.Println("  gridedit show <table>     Print a page of a table")
		r.Println("  gridedit browse <table>   Edit a table interactively")
	} else {
		r.Println("  gridedit show     Print a page of " + file.Table)
		r.Println("  gridedit browse   Edit " + file.Table + " interactively")
	}
	return nil
}

func newInitFile(opts *InitOptions) (*initFile, error) {
	target := &core.TargetConfig{
		Type:     strings.ToLower(strings.TrimSpace(opts.Type)),
		Database: opts.Database,
	}
	config.ApplyTargetDefaults(target)
	if err := config.ValidateTarget(target); err != nil {
		return nil, err
	}

	f := &initFile{
		Target: initTarget{
			Type:     target.Type,
			Database: target.Database,
		},
		Table:     opts.Table,
		PageSize:  config.DefaultPageSize,
		StatePath: config.DefaultStateFile,
		Journal:   true,
	}
	if target.Type == "postgres" {
		f.Target.Host = target.Host
		f.Target.Port = target.Port
		f.Target.User = "${PGUSER}"
		f.Target.Password = "${PGPASSWORD}"
	}
	return f, nil
}
