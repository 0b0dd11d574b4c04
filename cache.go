package malaya

import (
	"context"
	"io"
)

// Manager provides programmatic access to the model asset cache.
// Methods are synchronous and assume single-process, single-invocation
// usage; concurrent Ensure calls against the same cache directory are not
// synchronized. For CLI integration, use NewCommand instead.
type Manager interface {
	// Available reports whether every non-version file in the manifest
	// exists on disk. Pure filesystem predicate, no side effects.
	// Returns true for manifests with no non-version keys.
	Available(man Manifest) bool

	// Verify checks the manifest without downloading anything. Returns
	// ErrCacheUnavailable naming the cache directory if any non-version
	// file is missing; the remediation is an Ensure call.
	Verify(man Manifest) error

	// Ensure brings the local cache in sync with the expected version.
	// A matching version marker limits downloads to missing files; a stale
	// marker deletes the cache directory wholesale and re-fetches
	// everything; an absent marker fetches every file regardless of what is
	// already on disk. The marker is rewritten with the expected version
	// only after all downloads succeed.
	Ensure(ctx context.Context, man Manifest, remote RemoteMap, opts ...EnsureOption) error

	// ClearCache removes one model subdirectory under the cache root.
	// Rejects paths that escape the root.
	ClearCache(subdir string) error

	// ClearAll removes every entry under the cache root, keeping the root
	// directory itself.
	ClearAll() error

	// CacheDir returns the resolved cache root directory.
	CacheDir() string

	// PrintCache renders the cache root as a directory tree to w.
	PrintCache(w io.Writer) error
}

// Ensure manager implements Manager interface.
var _ Manager = (*manager)(nil)

// NewManager creates a new Manager with the given configuration.
// An empty Config is valid: the default base URL and platform cache
// directory are used.
func NewManager(cfg Config, opts ...ManagerOption) (Manager, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	mcfg := newManagerConfig()
	for _, opt := range opts {
		opt(mcfg)
	}

	storage, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}

	remote := newRemoteClient(cfg.BaseURL, mcfg.httpClient, mcfg.logger)

	return &manager{
		cfg:     cfg,
		logger:  mcfg.logger,
		storage: storage,
		remote:  remote,
	}, nil
}
