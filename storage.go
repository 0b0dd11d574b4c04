package malaya

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

// CacheDirEnvVar overrides the cache root directory when set.
const CacheDirEnvVar = "MALAYA_CACHE_DIR"

// storage handles all local filesystem operations for the cache root.
type storage struct {
	// baseDir is the resolved cache root directory.
	baseDir string
}

// newStorage creates a new storage instance for the given configuration.
func newStorage(cfg Config) (*storage, error) {
	var baseDir string

	// Priority: env var > Config.CacheDir > platform default
	if envDir := os.Getenv(CacheDirEnvVar); envDir != "" {
		baseDir = envDir
	} else if cfg.CacheDir != "" {
		baseDir = cfg.CacheDir
	} else {
		defaultDir, err := getDefaultCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get default cache dir: %w", err)
		}
		baseDir = defaultDir
	}

	s := &storage{baseDir: baseDir}

	// Ensure cache root exists
	if err := s.ensureDir(baseDir); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return s, nil
}

// root returns the cache root directory.
func (s *storage) root() string {
	return s.baseDir
}

// ensureDir creates a directory and all parent directories if they don't exist.
func (s *storage) ensureDir(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory %s: %v", ErrStorageError, path, err)
	}
	return nil
}

// removeDir removes a directory and all its contents.
func (s *storage) removeDir(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("%w: failed to remove directory %s: %v", ErrStorageError, path, err)
	}
	return nil
}

// clearSub removes a single model subdirectory under the cache root.
// Rejects subdirectories that resolve outside the root.
func (s *storage) clearSub(subdir string) error {
	path := filepath.Join(s.baseDir, subdir)

	rel, err := filepath.Rel(s.baseDir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("%w: %q is not a cache subdirectory", ErrStorageError, subdir)
	}

	return s.removeDir(path)
}

// clearAll removes every entry under the cache root, keeping the root itself.
func (s *storage) clearAll() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("%w: reading cache root: %v", ErrStorageError, err)
	}

	for _, entry := range entries {
		if err := s.removeDir(filepath.Join(s.baseDir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// readMarker reads a version marker file.
// Returns ("", false, nil) if the marker does not exist.
func (s *storage) readMarker(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: reading version marker: %v", ErrStorageError, err)
	}
	return string(data), true, nil
}

// writeMarker writes the version string to a marker file atomically
// (write-to-temp then rename), creating parent directories as needed.
func (s *storage) writeMarker(path, version string) error {
	if err := s.ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, strings.NewReader(version)); err != nil {
		return fmt.Errorf("%w: writing version marker: %v", ErrStorageError, err)
	}
	return nil
}

// fileExists reports whether path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
