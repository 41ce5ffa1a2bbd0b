package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	toolName = "bake"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755
)

// Path to the persistent cache store.
//
// The store holds pulled base image archives, stage checkpoints, dependency
// environment artifacts, downloaded external binaries, and the package
// installer's wheel cache. It survives across pipeline invocations.
//
//	Linux:   ~/.cache/bake
//	macOS:   ~/Library/Caches/bake
func Cache() string {
	return filepath.Join(xdg.CacheHome, toolName)
}
