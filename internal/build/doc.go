// Package build executes compiled pipeline stages against a container
// runtime.
//
// Stages run in declaration order, each backed by a container created
// from its base image. The executor dispatches steps (shell commands,
// file copies, cross-stage transfers, and pinned artifact fetches) and
// exports the final non-transient stage as an OCI image archive.
//
// Three caching layers avoid repeating work between builds:
//
//   - Stage artifact memoization. A stage that declares an artifact is
//     keyed by a digest chained over its base image and every step,
//     including the content of host copy sources. On a key hit the
//     stage is skipped entirely and later cross-stage copies are
//     served from the cached archive.
//   - Checkpoint resume. Steps marked as checkpoints export the
//     container state as an image archive keyed by the step's chain
//     digest. On a later build the executor resumes from the longest
//     cached checkpoint prefix, so an unchanged toolchain install
//     survives a dependency manifest edit.
//   - Cache directories. A stage's cache directory (a package manager
//     download cache) is seeded from the persistent store before the
//     steps run and harvested back afterwards.
//
// Container operations are delegated to the runtime package; downloads
// and base image pulls go through the fetch and registry packages so
// they hit the same persistent store.
package build
