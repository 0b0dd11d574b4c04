package malaya

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// remoteClient handles HTTP communication with the remote blob store.
type remoteClient struct {
	// baseURL is the base URL that relative locators are resolved against.
	baseURL string

	// httpClient is used for HTTP requests.
	httpClient HTTPClient

	// logger receives diagnostic messages. May be nil.
	logger Logger
}

// newRemoteClient creates a new remote store client.
// The baseURL is normalized by removing any trailing slashes.
func newRemoteClient(baseURL string, client HTTPClient, logger Logger) *remoteClient {
	return &remoteClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		logger:     logger,
	}
}

// resolveLocator resolves a remote locator to a full URL. A locator
// containing a URL scheme separator is treated as absolute; anything else is
// appended to the base URL.
func (r *remoteClient) resolveLocator(locator string) string {
	if strings.Contains(locator, "://") {
		return locator
	}
	return r.baseURL + "/" + strings.TrimLeft(locator, "/")
}

// fetchFile issues a GET for url and returns the response body along with
// the declared content length. The remote store contract requires a
// content-length header; its absence is a download failure. The caller must
// close the returned body.
func (r *remoteClient) fetchFile(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: creating request for %s: %v", ErrDownloadFailed, url, err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: fetching %s: %v", ErrDownloadFailed, url, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("%w: fetching %s: status %d", ErrDownloadFailed, url, resp.StatusCode)
	}

	if resp.ContentLength < 0 {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("%w: fetching %s: missing content-length", ErrDownloadFailed, url)
	}

	if r.logger != nil {
		r.logger.Debug("fetching file", "url", url, "size", resp.ContentLength)
	}

	return resp.Body, resp.ContentLength, nil
}

// progressReader wraps an io.Reader and reports progress as bytes are read.
type progressReader struct {
	reader     io.Reader
	onProgress func(delta int64)
}

func (pr *progressReader) Read(p []byte) (n int, err error) {
	n, err = pr.reader.Read(p)
	if n > 0 && pr.onProgress != nil {
		pr.onProgress(int64(n))
	}
	return
}
