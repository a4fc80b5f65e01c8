// Package config provides configuration management for the gridedit CLI.
//
// The shared target type is defined in pkg/core and re-exported here via a
// type alias so commands do not need to import pkg/core for it.
package config

import (
	sharedcfg "github.com/leapstack-labs/gridedit/internal/config"
	"github.com/leapstack-labs/gridedit/pkg/core"
)

// TargetConfig is an alias for the shared target configuration.
type TargetConfig = core.TargetConfig

// Config holds all CLI configuration options.
type Config struct {
	Target       *TargetConfig        `koanf:"target"`
	Table        string               `koanf:"table"`
	Query        string               `koanf:"query"`
	PageSize     int                  `koanf:"page_size"`
	Concurrency  int                  `koanf:"concurrency"`
	StatePath    string               `koanf:"state_path"`
	Journal      bool                 `koanf:"journal"`
	LogLevel     string               `koanf:"log_level"`
	OutputFormat string               `koanf:"output"`
	NoColor      bool                 `koanf:"no_color"`
	Environment  string               `koanf:"environment"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	Target   *TargetConfig `koanf:"target"`
	Table    string        `koanf:"table"`
	PageSize int           `koanf:"page_size"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultStateFile = sharedcfg.DefaultStateFile
	DefaultPageSize  = sharedcfg.DefaultPageSize
	DefaultLogLevel  = sharedcfg.DefaultLogLevel
	DefaultOutput    = "auto" // Auto-detect: TTY=table, non-TTY=markdown
)

// Output formats accepted by the output key.
const (
	OutputAuto     = "auto"
	OutputTable    = "table"
	OutputJSON     = "json"
	OutputYAML     = "yaml"
	OutputMarkdown = "markdown"
)
