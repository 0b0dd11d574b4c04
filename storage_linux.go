//go:build linux

package malaya

import (
	"os"
	"path/filepath"
)

// getDefaultCacheDir returns the default cache root for Linux.
// Uses $XDG_DATA_HOME/malaya/models/ if set,
// otherwise ~/.local/share/malaya/models/
func getDefaultCacheDir() (string, error) {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "malaya", "models"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "malaya", "models"), nil
}
