package config

import (
	"os"
	"path/filepath"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "gridedit.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "gridedit.yml"

// FindConfigFile finds the config file in the given directory.
// Returns empty string if not found.
func FindConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// FindProjectRoot walks up from the given directory, at most maxLevels
// parents, to find a directory containing a config file.
// Returns empty string if not found.
func FindProjectRoot(startDir string, maxLevels int) string {
	dir := startDir
	for range maxLevels + 1 {
		if FindConfigFile(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
	return ""
}
