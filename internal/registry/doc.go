// Package registry acquires base images for build stages.
//
// Base references must be pinned to an explicit, non-"latest" tag;
// unpinned references fail closed before any network activity, since a
// floating base defeats reproducibility. Pulled images are saved as
// archives in the build store keyed by reference and platform, ready for
// import into the container runtime.
package registry
