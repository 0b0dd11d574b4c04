package malaya

import "net/http"

// EnsureOption configures an Ensure operation.
type EnsureOption func(*ensureConfig)

// ensureConfig holds configuration for an Ensure operation.
type ensureConfig struct {
	// force treats a matching version marker as stale, invalidating the
	// cache directory and re-downloading every file.
	force bool

	// progressFn is called with progress updates during downloads.
	progressFn func(Progress)
}

// WithForce invalidates the cache directory even when the version marker
// matches, forcing a re-download of every manifest file.
func WithForce() EnsureOption {
	return func(c *ensureConfig) {
		c.force = true
	}
}

// WithProgress sets a callback for per-file progress updates during
// downloads. Downloads are sequential, so the callback is never invoked
// concurrently.
func WithProgress(fn func(Progress)) EnsureOption {
	return func(c *ensureConfig) {
		c.progressFn = fn
	}
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerConfig)

// managerConfig holds configuration for Manager construction.
type managerConfig struct {
	// httpClient is used for all HTTP requests to the remote store.
	httpClient HTTPClient

	// logger receives diagnostic log messages.
	logger Logger
}

// newManagerConfig returns a managerConfig with default values.
func newManagerConfig() *managerConfig {
	return &managerConfig{
		httpClient: http.DefaultClient,
	}
}

// WithHTTPClient sets a custom HTTP client for remote store requests.
// Useful for testing with mock servers or customizing timeouts.
// If not set, http.DefaultClient is used.
func WithHTTPClient(client HTTPClient) ManagerOption {
	return func(c *managerConfig) {
		c.httpClient = client
	}
}

// WithLogger sets a logger for diagnostic output.
// If not set, logging is disabled.
func WithLogger(logger Logger) ManagerOption {
	return func(c *managerConfig) {
		c.logger = logger
	}
}

// HTTPClient is the interface for HTTP operations.
// *http.Client satisfies this interface.
type HTTPClient interface {
	// Do sends an HTTP request and returns an HTTP response.
	Do(req *http.Request) (*http.Response, error)
}

// Logger is the interface for diagnostic logging.
// Compatible with slog, zap, logrus, and other structured loggers.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	Debug(msg string, keysAndValues ...any)

	// Info logs an info-level message with optional key-value pairs.
	Info(msg string, keysAndValues ...any)

	// Warn logs a warning-level message with optional key-value pairs.
	Warn(msg string, keysAndValues ...any)

	// Error logs an error-level message with optional key-value pairs.
	Error(msg string, keysAndValues ...any)
}
