package gitcache

import (
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/jmgilman/go/exec"
)

// Default coordination policy. The heartbeat interval must stay safely below
// the expiry threshold so a live owner is never mistaken for an abandoned
// one between two writes.
const (
	// DefaultHeartbeatInterval is how often a clone owner rewrites the lock
	// file timestamp while its clone runs.
	DefaultHeartbeatInterval = 1 * time.Second

	// DefaultExpiry is the heartbeat age at which waiters treat the lock as
	// an abandoned lease.
	DefaultExpiry = 10 * time.Second

	// DefaultPollInterval is how often a waiter re-checks the repository and
	// lock state.
	DefaultPollInterval = 100 * time.Millisecond
)

// reposDirName is the subdirectory of the cache root that holds bare
// repositories and their sibling lock files.
const reposDirName = "_repos"

// Cache manages a shared on-disk cache of bare Git repositories.
//
// All coordination state lives in the filesystem (repository directories and
// lock files), never in process memory, so a single cache root may be shared
// by goroutines and by independent OS processes alike. Distinct repositories
// are fully independent and never block each other.
type Cache struct {
	root     string // Cache root directory
	reposDir string // <root>/_repos

	fs  billy.Filesystem // Filesystem abstraction for all cache I/O
	git exec.Executor    // Runs the external git binary for clones

	heartbeat time.Duration // Owner heartbeat interval
	expiry    time.Duration // Heartbeat age treated as an abandoned lease
	poll      time.Duration // Waiter poll interval
}

// Ref is a value type representing a single reference of a cached
// repository.
type Ref struct {
	Name string // Full reference name (e.g., refs/heads/main)
	Hash string // Commit hash the reference points at
}

// Stats provides statistics about the cache.
type Stats struct {
	Repos     int   // Number of complete bare repositories
	InFlight  int   // Number of clone locks currently present
	TotalSize int64 // Disk usage of the repository store in bytes
}

// Option configures Cache creation.
type Option func(*Cache)

// WithFilesystem sets a custom filesystem for all cache I/O. The default is
// the local filesystem. Lock atomicity across OS processes is only
// meaningful on the local filesystem; in-memory filesystems are intended for
// testing.
func WithFilesystem(fs billy.Filesystem) Option {
	return func(c *Cache) {
		c.fs = fs
	}
}

// WithGit injects the runner used to invoke the external git binary. This is
// the boundary used by clone owners; replacing it swaps the transfer
// mechanics without touching the coordination protocol.
//
// Example:
//
//	cache, _ := gitcache.New(root, gitcache.WithGit(fakeGit))
func WithGit(git exec.Executor) Option {
	return func(c *Cache) {
		c.git = git
	}
}

// WithHeartbeatInterval overrides the owner heartbeat interval.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(c *Cache) {
		c.heartbeat = d
	}
}

// WithExpiry overrides the heartbeat age at which waiters treat a lock as
// abandoned.
func WithExpiry(d time.Duration) Option {
	return func(c *Cache) {
		c.expiry = d
	}
}

// WithPollInterval overrides the waiter poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Cache) {
		c.poll = d
	}
}
