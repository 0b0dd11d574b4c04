//go:build windows

package malaya

import (
	"errors"
	"os"
	"path/filepath"
)

// getDefaultCacheDir returns the default cache root for Windows:
// %APPDATA%\malaya\models\
func getDefaultCacheDir() (string, error) {
	appData := os.Getenv("APPDATA")
	if appData == "" {
		return "", errors.New("APPDATA environment variable not set")
	}
	return filepath.Join(appData, "malaya", "models"), nil
}
