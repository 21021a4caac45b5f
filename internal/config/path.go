// Package config resolves ga4sync settings from defaults, the config file,
// the environment and command-line flags.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// Locations used when nothing else is configured. They are expanded with
// ExpandPath before use.
const (
	DefaultConfigDir   = "~/.config/ga4sync"
	DefaultHistoryPath = "~/.local/share/ga4sync/history.db"
)

// ExpandPath resolves a configured file path. $VAR and ${VAR} references are
// replaced from the environment, then a leading ~ becomes the user's home
// directory. The result is cleaned; a blank path stays "".
func ExpandPath(path string) string {
	path = os.ExpandEnv(strings.TrimSpace(path))
	if path == "" {
		return ""
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + path[1:]
		}
	}

	return filepath.Clean(path)
}
