package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPStoreConfig configures the HTTP blob-store client.
type HTTPStoreConfig struct {
	// UploadBaseURL is where blobs are PUT, keyed by path.
	UploadBaseURL string

	// PublicBaseURL is the base of the locator returned to callers. When
	// empty, UploadBaseURL is used.
	PublicBaseURL string

	// AuthToken, when set, is sent as a bearer token on uploads.
	AuthToken string

	// Timeout is the HTTP request timeout for uploads.
	Timeout time.Duration
}

// HTTPStore stores blobs by PUTting them to an HTTP blob service
// (an S3-compatible gateway or similar) under the caller's key.
type HTTPStore struct {
	config HTTPStoreConfig
	client *http.Client
}

// NewHTTPStore creates an HTTP blob-store client.
func NewHTTPStore(config HTTPStoreConfig) *HTTPStore {
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Minute
	}
	return &HTTPStore{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Put uploads data under key and returns the blob's public URL.
func (s *HTTPStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	uploadURL := joinURL(s.config.UploadBaseURL, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(data))
	if s.config.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.AuthToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload %s: unexpected status %d", key, resp.StatusCode)
	}

	publicBase := s.config.PublicBaseURL
	if publicBase == "" {
		publicBase = s.config.UploadBaseURL
	}
	return joinURL(publicBase, key), nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
