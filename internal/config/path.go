// Package config provides configuration utilities for the application.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands ~ and environment variables in a file path. Paths in
// the config file and on the command line both pass through here before
// anything opens them.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return os.ExpandEnv(path)
}

// DataDir returns the directory where the ledger database and category
// index live, honoring XDG_DATA_HOME when set.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "finagent")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "finagent"
	}
	return filepath.Join(home, ".local", "share", "finagent")
}
