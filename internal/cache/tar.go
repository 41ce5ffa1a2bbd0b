package cache

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/docmill/bake/internal/paths"
)

// Extracts a tar stream into dest, stripping the first path component.
//
// Entries that would escape dest are rejected. Only regular files and
// directories are materialized; other entry types (symlinks, devices) are
// skipped, since tool caches hold plain files.
func extractTar(r io.Reader, dest string) error {
	tr := tar.NewReader(r)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		name := stripFirstComponent(header.Name)
		if name == "" {
			continue
		}

		path, err := securePath(dest, name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, paths.DefaultDirMode); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeFile(path, tr, header.FileInfo().Mode()); err != nil {
				return err
			}
		}
	}
}

// Removes the leading path component of an archive entry name.
func stripFirstComponent(name string) string {
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		return name[i+1:]
	}
	return ""
}

// Joins name onto dest and verifies the result stays inside dest.
func securePath(dest, name string) (string, error) {
	path := filepath.Join(dest, filepath.FromSlash(name))
	if path != dest && !strings.HasPrefix(path, dest+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return path, nil
}

func writeFile(path string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(f, r)
	return err
}
