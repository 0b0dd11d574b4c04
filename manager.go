package malaya

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// manager is the concrete implementation of the Manager interface.
type manager struct {
	// cfg holds the module configuration.
	cfg Config

	// logger receives diagnostic messages. May be nil.
	logger Logger

	// storage handles local filesystem operations.
	storage *storage

	// remote handles communication with the remote blob store.
	remote *remoteClient
}

// Available reports whether every non-version file in the manifest exists on
// disk. Returns true for manifests with no non-version keys.
func (m *manager) Available(man Manifest) bool {
	for _, key := range man.FileKeys() {
		if !fileExists(man[key]) {
			return false
		}
	}
	return true
}

// Verify checks the manifest without downloading anything.
func (m *manager) Verify(man Manifest) error {
	if m.Available(man) {
		return nil
	}
	return fmt.Errorf("%w: %s is not available, re-run with validation enabled (Ensure) to download missing files",
		ErrCacheUnavailable, man.Dir())
}

// Ensure brings the local cache in sync with the manifest's expected
// version, downloading missing or stale files from the remote store.
//
// The version marker drives invalidation: a marker whose content contains
// the expected version limits downloads to files missing on disk; a marker
// with any other content deletes the cache directory wholesale before
// re-fetching everything; an absent marker re-fetches every file regardless
// of prior on-disk presence. The marker is rewritten with the exact expected
// version only after every download succeeds, so a failed run is resumed by
// the next invocation via missing-file detection.
func (m *manager) Ensure(ctx context.Context, man Manifest, remote RemoteMap, opts ...EnsureOption) error {
	cfg := &ensureConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	dir := man.Dir()
	if dir == "" {
		return fmt.Errorf("%w: missing %q entry", ErrInvalidManifest, "model")
	}
	version := man.Version()
	if version == "" {
		return fmt.Errorf("%w: missing %q entry", ErrInvalidManifest, "version")
	}

	markerPath := man.MarkerPath()
	content, markerExists, err := m.storage.readMarker(markerPath)
	if err != nil {
		return err
	}

	var pending []string
	switch {
	case markerExists && strings.Contains(content, version) && !cfg.force:
		for _, key := range man.FileKeys() {
			if !fileExists(man[key]) {
				pending = append(pending, key)
			}
		}
		if len(pending) == 0 {
			// Cache is valid: no downloads, no writes.
			return nil
		}

	case markerExists:
		if m.logger != nil {
			m.logger.Info("found old version, deleting", "dir", dir, "cached", strings.TrimSpace(content), "expected", version)
		}
		if err := m.storage.removeDir(dir); err != nil {
			return err
		}
		pending = man.FileKeys()

	default:
		pending = man.FileKeys()
	}

	for _, key := range pending {
		locator, ok := remote[key]
		if !ok {
			return fmt.Errorf("%w: no remote locator for key %q", ErrInvalidManifest, key)
		}
		if m.logger != nil {
			m.logger.Info("downloading file", "dir", dir, "key", key)
		}
		if err := m.downloadFile(ctx, key, locator, man[key], cfg.progressFn); err != nil {
			return err
		}
	}

	return m.storage.writeMarker(markerPath, version)
}

// ClearCache removes one model subdirectory under the cache root.
func (m *manager) ClearCache(subdir string) error {
	return m.storage.clearSub(subdir)
}

// ClearAll removes every entry under the cache root.
func (m *manager) ClearAll() error {
	return m.storage.clearAll()
}

// CacheDir returns the resolved cache root directory.
func (m *manager) CacheDir() string {
	return m.storage.root()
}

// PrintCache renders the cache root as a directory tree to w.
func (m *manager) PrintCache(w io.Writer) error {
	return RenderTree(w, m.storage.root())
}
