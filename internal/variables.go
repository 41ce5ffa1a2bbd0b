package internal

import (
	"fmt"
	"runtime"
	"strings"
)

// Name used for the binary, logger group, and path components.
const Name = "bake"

// String to indicate a local (non-pipeline) build.
const defaultLocalBuild = "(local)"

var (
	version   = "" // Version number (e.g., "1.2.3")
	gitCommit = "" // Git commit hash (e.g., "a1b2c3d4")
)

// Returns the current version.
//
// If the version includes a "v" or "V" prefix (e.g., "v1.0.0"), it is
// stripped.
func Version() string {
	v := strings.TrimSpace(version)
	v = strings.ToLower(v)
	return strings.TrimPrefix(v, "v")
}

// Returns the git commit hash.
func GitCommit() string {
	return strings.TrimSpace(gitCommit)
}

// Returns the build architecture.
func Arch() string {
	return runtime.GOARCH
}

// Returns true if this is a local (non-pipeline) build.
//
// Release builds set the version and git commit via linker flags; a build
// missing either is considered local.
func IsLocal() bool {
	return Version() == "" || GitCommit() == ""
}

// Returns a detailed version string.
//
// If this is a local build, returns "(local)". Otherwise, returns a string
// formatted as "<version> <git-commit> [<arch>]".
func VersionString() string {
	if IsLocal() {
		return defaultLocalBuild
	}
	return fmt.Sprintf("%s %s [%s]", Version(), GitCommit(), Arch())
}
