//go:build darwin

package malaya

import (
	"os"
	"path/filepath"
)

// getDefaultCacheDir returns the default cache root for macOS:
// ~/Library/Application Support/malaya/models/
func getDefaultCacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "Application Support", "malaya", "models"), nil
}
