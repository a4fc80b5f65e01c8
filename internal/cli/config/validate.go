package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

var outputFormats = []string{OutputAuto, OutputTable, OutputJSON, OutputYAML, OutputMarkdown}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	if !slices.Contains(outputFormats, c.OutputFormat) {
		return fmt.Errorf("unknown output format %q\nHint: use one of %s", c.OutputFormat, strings.Join(outputFormats, ", "))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// RequireTable checks that a table to edit was configured.
func (c *Config) RequireTable() error {
	if c.Table == "" {
		return fmt.Errorf("no table given\nHint: pass a table argument or set table in gridedit.yaml")
	}
	return nil
}

// ParseLogLevel maps a log_level value to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q\nHint: use debug, info, warn or error", s)
}
