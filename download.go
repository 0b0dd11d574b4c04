package malaya

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// downloadFile fetches one remote file into its local destination path,
// creating parent directories as needed. The body is streamed straight to
// disk and written atomically (temp file + rename), so an interrupted
// download never leaves a truncated artifact at the final path. progressFn,
// if non-nil, receives cumulative per-file progress driven by the declared
// content length.
func (m *manager) downloadFile(ctx context.Context, key, locator, dest string, progressFn func(Progress)) error {
	url := m.remote.resolveLocator(locator)

	body, size, err := m.remote.fetchFile(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("%w: creating directory for %s: %v", ErrDownloadFailed, dest, err)
	}

	if progressFn != nil {
		progressFn(Progress{Key: key, Path: dest, URL: url, BytesTotal: size})
	}

	var completed int64
	reader := &progressReader{
		reader: body,
		onProgress: func(delta int64) {
			completed += delta
			if progressFn != nil {
				progressFn(Progress{
					Key:            key,
					Path:           dest,
					URL:            url,
					BytesTotal:     size,
					BytesCompleted: completed,
				})
			}
		},
	}

	if err := atomic.WriteFile(dest, reader); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrDownloadFailed, dest, err)
	}

	if m.logger != nil {
		m.logger.Debug("file downloaded", "key", key, "path", dest, "bytes", completed)
	}

	return nil
}
