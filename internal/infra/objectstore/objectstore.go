// Package objectstore provides durable blob storage for downloaded render
// artifacts, plus the HTTP downloader that fetches them from the platform's
// CDN. Two stores exist: an HTTP blob-store client for production and a
// filesystem store for local development.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxArtifactBytes caps a single artifact download. Renders are a few
// megabytes of audio; anything past this is treated as an error.
const maxArtifactBytes = 100 << 20

// HTTPDownloader fetches artifact bytes from a URL.
type HTTPDownloader struct {
	client *http.Client
}

// NewHTTPDownloader creates a downloader with a 2 minute request timeout.
func NewHTTPDownloader() *HTTPDownloader {
	return &HTTPDownloader{
		client: &http.Client{Timeout: 2 * time.Minute},
	}
}

// Download fetches the blob at url and returns its bytes and the content
// type reported by the origin.
func (d *HTTPDownloader) Download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create download request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read download body: %w", err)
	}
	if len(data) > maxArtifactBytes {
		return nil, "", fmt.Errorf("download %s: artifact exceeds %d bytes", url, maxArtifactBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}
