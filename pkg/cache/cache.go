// Package cache stores fetched dependency archives across runs.
//
// Archives of immutable treeishes (tags, commit hashes) never change, so a
// second install of the same repository at the same treeish can skip the
// network entirely. Branch archives are never cached: a branch name can point
// somewhere else tomorrow.
//
// Two implementations are provided:
//
//   - [FileCache]: archives stored under a directory (~/.cache/gitdeps/)
//   - [NullCache]: caching disabled (--no-cache)
//
// Keys are built with [ArchiveKey]; entries are plain files so the unpacker
// can read them in place without copying.
package cache

import "context"

// Cache stores archive files by key.
type Cache interface {
	// Get returns the path of the cached archive for key.
	// A miss is reported as hit=false with a nil error.
	Get(ctx context.Context, key string) (path string, hit bool, err error)

	// Put copies the archive at src into the cache under key and returns
	// the path of the cached copy. src is left untouched.
	Put(ctx context.Context, key, src string) (string, error)

	// Delete removes the entry for key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}
