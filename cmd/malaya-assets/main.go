// Command malaya-assets is a standalone CLI for the assets package. It keeps
// the local model cache in sync with the Malaya remote blob store.
//
// Configuration is loaded from environment variables:
//   - MALAYA_BASE_URL: Base URL of the remote blob store (optional)
//   - MALAYA_CACHE_DIR: Override for the cache root directory (optional)
package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/fang"
	malaya "github.com/lantip/Malaya"
)

// CLI exit codes for standardized error reporting.
const (
	// ExitSuccess indicates the operation completed successfully.
	ExitSuccess = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError = 1

	// ExitInvalidManifest indicates the manifest file is invalid.
	ExitInvalidManifest = 2

	// ExitCacheUnavailable indicates required files are missing and
	// validation was disabled.
	ExitCacheUnavailable = 3

	// ExitDownloadFailed indicates a fetch from the remote store failed.
	ExitDownloadFailed = 4

	// ExitStorageError indicates a filesystem operation failed.
	ExitStorageError = 5

	// ExitCorruptArtifact indicates a cached model artifact failed to load.
	ExitCorruptArtifact = 6
)

func main() {
	cfg := malaya.Config{
		BaseURL: os.Getenv("MALAYA_BASE_URL"),
		// CacheDir can be set via MALAYA_CACHE_DIR (handled by the storage layer)
	}

	cmd := malaya.NewCommand(cfg)
	if err := fang.Execute(context.Background(), cmd); err != nil {
		os.Exit(exitCodeFromError(err))
	}
}

// exitCodeFromError maps error types to exit codes.
func exitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, malaya.ErrInvalidManifest):
		return ExitInvalidManifest
	case errors.Is(err, malaya.ErrCacheUnavailable):
		return ExitCacheUnavailable
	case errors.Is(err, malaya.ErrDownloadFailed):
		return ExitDownloadFailed
	case errors.Is(err, malaya.ErrStorageError):
		return ExitStorageError
	case errors.Is(err, malaya.ErrCorruptArtifact):
		return ExitCorruptArtifact
	default:
		return ExitGeneralError
	}
}
