package malaya

import (
	"errors"
	"fmt"
)

// Sentinel errors for cache management operations.
// Use errors.Is() to check for specific error conditions.
var (
	// ErrCacheUnavailable indicates a required model file is missing from the
	// cache while validation is disabled. Re-run with validation enabled to
	// download the missing files.
	ErrCacheUnavailable = errors.New("malaya: cache unavailable")

	// ErrDownloadFailed indicates a fetch from the remote store failed:
	// network error, non-200 response, missing content-length, or a disk
	// write error. The version marker is never advanced past a failed
	// download, so a later Ensure call retries the missing files.
	ErrDownloadFailed = errors.New("malaya: download failed")

	// ErrCorruptArtifact indicates a cached model file failed to parse
	// downstream. The remediation is a manual cache clear and retry.
	ErrCorruptArtifact = errors.New("malaya: corrupt model artifact")

	// ErrInvalidManifest indicates a manifest without the required "model"
	// or "version" entries, or a file key with no remote locator.
	ErrInvalidManifest = errors.New("malaya: invalid manifest")

	// ErrStorageError indicates a filesystem operation failed.
	ErrStorageError = errors.New("malaya: storage error")
)

// CorruptArtifact wraps err as an ErrCorruptArtifact for the model artifact
// under the given cache subdirectory, with the clear-and-retry remediation
// message surfaced to users. Intended for model loaders that fail to parse a
// cached file.
func CorruptArtifact(subdir string, err error) error {
	return fmt.Errorf("%w: model under %q failed to load, clear the cache subdirectory (assets clear %s) and try again: %v",
		ErrCorruptArtifact, subdir, subdir, err)
}
