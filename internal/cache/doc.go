// Package cache implements the persistent build cache.
//
// The store is a directory tree holding two kinds of entries: keyed blobs
// and named directories. Blobs are immutable files addressed by a digest
// computed over their declared inputs (a base image reference, a download
// URL, a chain of pipeline steps); they memoize pulled base archives, stage
// checkpoints, dependency environment artifacts, and external binary
// downloads. Named directories hold mutable caches owned by tools running
// inside build containers, such as the package installer's wheel cache,
// seeded into a container before a stage runs and harvested after it
// succeeds.
//
// Blob writes go to a temporary file and are renamed into place, so a
// partially written entry is never visible under its key. The store is safe
// for concurrent readers; concurrent builds sharing one store must be
// serialized by the invoking build system.
//
// Example usage:
//
//	store, err := cache.Open(paths.Cache())
//	if err != nil {
//	    return err
//	}
//
//	if path, ok := store.Blob(key); ok {
//	    return path // cache hit
//	}
//	path, err := store.PutBlob(key, r)
package cache
