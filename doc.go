// Package gitcache maintains a shared, on-disk cache of bare Git repository
// clones for use as a dependency source by build tooling.
//
// # Overview
//
// Multiple independent processes (and goroutines within one process) may
// concurrently ask the cache to make sure a repository is cloned locally.
// The cache guarantees that exactly one clone runs per remote URL even under
// racing callers, that every caller observes the same canonical path once the
// clone is complete, and that a failed clone never leaves a half-populated
// entry behind.
//
// Coordination uses only the filesystem: a lock file created with an
// exclusive-create primitive arbitrates ownership, and a heartbeat timestamp
// written by the owner lets waiters detect a crashed or abandoned clone. No
// state lives in process memory, so the same implementation is correct for
// goroutines in one process and for entirely separate processes sharing a
// cache root.
//
// # Layout
//
// Repositories live under a single cache root:
//
//	<root>/_repos/<transport>/<host>/<path>/       # bare repository
//	<root>/_repos/<transport>/<host>/<path>.lock   # in-flight clone lock
//
// The relative key is derived deterministically from the remote URL by
// Canonicalize, so syntactic variants of the same remote (user, port,
// trailing slash, .git suffix) share one cache entry.
//
// # Usage
//
// Create a cache and ensure a repository is available:
//
//	cache, err := gitcache.New(gitcache.DefaultRoot())
//	if err != nil {
//	    return err
//	}
//
//	gitDir, err := cache.EnsureGitDir(ctx, "https://github.com/my/repo.git")
//
// Resolve a ref or materialize a working tree from the cached clone:
//
//	sha, err := cache.Resolve(ctx, url, "v1.0.0")
//	path, err := cache.Checkout(ctx, url, "main", "/tmp/build-1234")
//
// The actual repository transfer is delegated to the external git binary via
// an injectable runner (see WithGit), keeping the coordination protocol
// independent of the transport mechanics.
package gitcache
