package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/docmill/bake/internal/cache"
	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/opencontainers/go-digest"
)

var (
	ErrUnpinnedReference = errors.New("base image reference is not pinned")
	ErrPull              = errors.New("base image pull failed")
)

// Pulls base images into the build store.
type Client struct {
	store *cache.Store
}

// Creates a client backed by the given store.
func New(store *cache.Store) *Client {
	return &Client{store: store}
}

// Verifies that ref carries an explicit version tag.
//
// References without a tag and references tagged "latest" are rejected:
// both resolve to whatever the registry serves today, which breaks the
// bit-identical re-run guarantee the pipeline makes.
func Validate(ref string) error {
	tag, err := name.NewTag(ref, name.StrictValidation)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnpinnedReference, ref, err)
	}
	if tag.TagStr() == "latest" {
		return fmt.Errorf("%w: %s: floating tag %q", ErrUnpinnedReference, ref, tag.TagStr())
	}
	return nil
}

// Returns the path of an image archive for ref, pulling it if needed.
//
// The archive is cached keyed by (reference, platform). Pinned tags are
// treated as immutable, so a cache hit skips the registry entirely.
func (c *Client) Pull(ctx context.Context, ref, platform string) (string, error) {
	if err := Validate(ref); err != nil {
		return "", err
	}

	key := archiveKey(ref, platform)
	if path, ok := c.store.Blob(key); ok {
		slog.Debug("base image cached", "ref", ref, "platform", platform)
		return path, nil
	}

	slog.Info("pulling base image", "ref", ref, "platform", platform)

	p, err := parsePlatform(platform)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPull, err)
	}

	img, err := crane.Pull(ref, crane.WithContext(ctx), crane.WithPlatform(p))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrPull, ref, err)
	}

	tmp, err := c.store.TempFile("pull-*.tar")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPull, err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := crane.Save(img, ref, tmpPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("%w: %s: %w", ErrPull, ref, err)
	}

	path, err := c.store.AdoptBlob(key, tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("%w: %w", ErrPull, err)
	}
	return path, nil
}

// Returns the store key for a pulled image archive.
func archiveKey(ref, platform string) digest.Digest {
	return digest.FromString("image\n" + ref + "\n" + platform)
}

// Parses an OCI platform string such as "linux/amd64".
func parsePlatform(platform string) (*v1.Platform, error) {
	parts := strings.Split(platform, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid platform %q", platform)
	}
	p := &v1.Platform{OS: parts[0], Architecture: parts[1]}
	if len(parts) > 2 {
		p.Variant = parts[2]
	}
	return p, nil
}
