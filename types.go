package malaya

import (
	"path/filepath"
	"sort"
	"strings"
)

// DefaultBaseURL is the public blob store that relative remote locators are
// resolved against.
const DefaultBaseURL = "https://f000.backblazeb2.com/file/malaya-model"

// MarkerFilename is the name of the version marker file inside a model's
// cache directory.
const MarkerFilename = "version"

// Config configures the assets module.
type Config struct {
	// BaseURL is the base URL of the remote blob store. Relative locators in
	// a RemoteMap are appended to it. If empty, DefaultBaseURL is used.
	BaseURL string

	// CacheDir overrides the default cache root directory.
	// If empty, uses the platform-appropriate default.
	// Can also be set via the MALAYA_CACHE_DIR environment variable.
	CacheDir string
}

// Manifest maps logical keys (e.g. "model", "vocab") to local file paths.
//
// Keys whose name contains "version" are version keys: the "version" entry
// holds the expected version tag rather than a file path, and version keys
// are excluded from file-existence checks and downloads. The "model" entry
// is required; its parent directory is the model's cache directory.
type Manifest map[string]string

// Version returns the expected version tag, or "" if the manifest has none.
func (m Manifest) Version() string {
	return m["version"]
}

// Dir returns the model's cache directory, derived from the "model" entry.
// Returns "" if the manifest has no "model" entry.
func (m Manifest) Dir() string {
	model, ok := m["model"]
	if !ok {
		return ""
	}
	return filepath.Dir(model)
}

// MarkerPath returns the path of the version marker file for this manifest.
// Returns "" if the manifest has no "model" entry.
func (m Manifest) MarkerPath() string {
	dir := m.Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, MarkerFilename)
}

// FileKeys returns the manifest's non-version keys in sorted order.
func (m Manifest) FileKeys() []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		if isVersionKey(key) {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// isVersionKey reports whether a manifest key is a version key. The check is
// a substring match, matching the manifest convention of the upstream model
// releases (e.g. "version", "model-version").
func isVersionKey(key string) bool {
	return strings.Contains(key, "version")
}

// RemoteMap maps the manifest's logical keys (excluding version keys) to
// remote locators. A locator containing a URL scheme separator ("://") is
// used as-is; anything else is resolved against the configured base URL.
type RemoteMap map[string]string

// Progress reports download progress during an Ensure operation. Files are
// downloaded sequentially; BytesTotal comes from the server's declared
// content-length.
type Progress struct {
	// Key is the manifest key of the file being downloaded.
	Key string

	// Path is the local destination path.
	Path string

	// URL is the resolved remote URL being fetched.
	URL string

	// BytesTotal is the declared size of the file in bytes.
	BytesTotal int64

	// BytesCompleted is the bytes received so far for this file.
	BytesCompleted int64
}
