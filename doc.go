// Package malaya provides the model-asset utilities for the Malaya
// natural-language-processing toolkit: keeping a local cache of pretrained
// model files in sync with a remote blob store, verifying cache integrity
// against a version marker, rendering the cache layout as a tree for
// diagnostics, and a small numeric helper used by classifier post-processing.
//
// The package serves two primary use cases:
//
//  1. Programmatic API via the Manager interface - model-loading code calls
//     NewManager and then Verify or Ensure before deserializing any model
//     artifact from the cache.
//
//  2. Embeddable CLI via NewCommand - parent CLI tools can attach a complete
//     "assets" subcommand tree to their Cobra root command, providing
//     commands like "mytool assets ensure", "mytool assets tree", etc.
//
// # Cache layout
//
// Each logical model owns one directory under the cache root. The directory
// holds the files named by the model's manifest plus a "version" marker file
// containing the version tag the files were downloaded for. A marker that no
// longer matches the expected version invalidates the whole directory: it is
// deleted wholesale and every file is fetched again.
//
// Downloads are sequential and blocking. A failed download leaves the cache
// partially populated with the marker untouched, so the next Ensure call
// picks up exactly the files that are still missing.
//
// # Storage
//
// The cache root is resolved in priority order: the MALAYA_CACHE_DIR
// environment variable, Config.CacheDir, then a platform default:
//   - Linux: $XDG_DATA_HOME/malaya/models/ or ~/.local/share/malaya/models/
//   - macOS: ~/Library/Application Support/malaya/models/
//   - Windows: %APPDATA%\malaya\models\
package malaya
