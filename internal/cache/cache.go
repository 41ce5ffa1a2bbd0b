package cache

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/docmill/bake/internal/paths"
	"github.com/opencontainers/go-digest"
)

var ErrStore = errors.New("cache store error")

const (
	blobsDir = "blobs"
	dirsDir  = "dirs"
	tempDir  = "tmp"
)

// A persistent, content-keyed build cache rooted at a single directory.
type Store struct {
	root string
}

// Opens the store at root, creating the directory layout if needed.
func Open(root string) (*Store, error) {
	for _, sub := range []string{blobsDir, dirsDir, tempDir} {
		if err := os.MkdirAll(filepath.Join(root, sub), paths.DefaultDirMode); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStore, err)
		}
	}
	return &Store{root: root}, nil
}

// Returns the path of the blob stored under key, and whether it exists.
func (s *Store) Blob(key digest.Digest) (string, bool) {
	path := s.blobPath(key)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// Stores the contents of r as the blob for key and returns its path.
//
// The data is written to a temporary file first and renamed into place, so
// readers never observe a partial blob. An existing blob under the same key
// is replaced.
func (s *Store) PutBlob(key digest.Digest, r io.Reader) (string, error) {
	tmp, err := os.CreateTemp(filepath.Join(s.root, tempDir), "blob-*")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStore, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: %w", ErrStore, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStore, err)
	}

	path := s.blobPath(key)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStore, err)
	}
	return path, nil
}

// Moves an existing file into the store as the blob for key.
//
// The file must live on the same filesystem as the store; callers producing
// large blobs should create them via [Store.TempFile] so the final rename is
// atomic.
func (s *Store) AdoptBlob(key digest.Digest, path string) (string, error) {
	dest := s.blobPath(key)
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStore, err)
	}
	return dest, nil
}

// Creates a temporary file inside the store, suitable for later adoption.
func (s *Store) TempFile(pattern string) (*os.File, error) {
	f, err := os.CreateTemp(filepath.Join(s.root, tempDir), pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return f, nil
}

// Returns the path of the named cache directory.
//
// The directory is not created; use [Store.HasDir] to test for prior
// contents before seeding a container from it.
func (s *Store) DirPath(name string) string {
	return filepath.Join(s.root, dirsDir, name)
}

// Reports whether the named cache directory exists and is non-empty.
func (s *Store) HasDir(name string) bool {
	entries, err := os.ReadDir(s.DirPath(name))
	return err == nil && len(entries) > 0
}

// Replaces the named cache directory with the contents of a tar stream.
//
// The stream is expected to carry a single top-level directory (as produced
// by archiving a container path); that leading component is stripped so the
// cache directory holds the tree directly. The previous contents are swapped
// out only after the stream has been fully extracted; a failed or empty
// stream leaves them in place. The empty check matters because a producer
// that dies before writing anything closes the pipe with a clean EOF, which
// must not wipe a previously good cache.
func (s *Store) ImportDir(name string, r io.Reader) error {
	staging, err := os.MkdirTemp(filepath.Join(s.root, tempDir), "dir-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	defer os.RemoveAll(staging)

	if err := extractTar(r, staging); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}

	entries, err := os.ReadDir(staging)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: empty archive for directory %q", ErrStore, name)
	}

	dest := s.DirPath(name)
	old := dest + ".old"
	os.RemoveAll(old)
	if err := os.Rename(dest, old); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	if err := os.Rename(staging, dest); err != nil {
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
	os.RemoveAll(old)

	return nil
}

func (s *Store) blobPath(key digest.Digest) string {
	return filepath.Join(s.root, blobsDir, key.Encoded())
}
