package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/docmill/bake/internal/cache"
	"github.com/opencontainers/go-digest"
)

var ErrFetch = errors.New("artifact download failed")

// Downloads external artifacts into the build store.
type Client struct {
	store *cache.Store
	http  *http.Client
}

// Creates a client backed by the given store.
func New(store *cache.Store) *Client {
	return &Client{
		store: store,
		http:  &http.Client{},
	}
}

// Returns the path of the downloaded artifact for url.
//
// The download is cached keyed by the URL: a pinned URL identifies exactly
// one artifact, so a cache hit skips the network entirely. Any transport
// error or non-success status is fatal; there are no retries.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	key := downloadKey(url)
	if path, ok := c.store.Blob(key); ok {
		slog.Debug("download cached", "url", url)
		return path, nil
	}

	slog.Info("downloading artifact", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: %s: unexpected status %s", ErrFetch, url, resp.Status)
	}

	path, err := c.store.PutBlob(key, resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return path, nil
}

// Returns the store key for a download URL.
func downloadKey(url string) digest.Digest {
	return digest.FromString("download\n" + url)
}
