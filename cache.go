package gitcache

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	platformerrors "github.com/jmgilman/go/errors"
)

// New creates a Cache rooted at the given directory, creating the repository
// store if needed.
//
// By default the cache uses the local filesystem and invokes the system git
// binary; both are injectable for testing via WithFilesystem and WithGit.
//
// Example:
//
//	cache, err := gitcache.New(gitcache.DefaultRoot())
//
//	// With a short lease for tests
//	cache, err := gitcache.New(dir,
//	    gitcache.WithExpiry(500*time.Millisecond),
//	    gitcache.WithGit(fakeGit))
func New(root string, opts ...Option) (*Cache, error) {
	if root == "" {
		return nil, platformerrors.New(platformerrors.CodeInvalidConfig, "cache root is required")
	}

	c := &Cache{
		root:      root,
		reposDir:  filepath.Join(root, reposDirName),
		fs:        osfs.New("/"),
		heartbeat: DefaultHeartbeatInterval,
		expiry:    DefaultExpiry,
		poll:      DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.git == nil {
		c.git = defaultGit()
	}

	if err := c.fs.MkdirAll(c.reposDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create repository store: %w", err)
	}

	return c, nil
}

// DefaultRoot resolves the default cache root directory: $GITCACHE_ROOT when
// set, otherwise gitcache under the user cache directory (falling back to
// .gitcache in the home directory when no cache directory is defined).
func DefaultRoot() string {
	if root := os.Getenv("GITCACHE_ROOT"); root != "" {
		return root
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "gitcache")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".gitcache")
}

// Root returns the cache root directory.
func (c *Cache) Root() string {
	return c.root
}

// Clear removes the cached repository for url, along with any leftover lock
// file for it. Clearing a URL that was never cached is not an error.
//
// Clear does not coordinate with in-flight clones; it is intended for
// explicit cache management (e.g., evicting a corrupt or stale entry).
func (c *Cache) Clear(url string) error {
	gitDir := c.gitDir(url)

	if err := c.removeAll(gitDir); err != nil {
		return fmt.Errorf("failed to remove repository: %w", err)
	}
	return newLeaseLock(c.fs, lockPath(gitDir)).release()
}

// ClearAll removes every cached repository and resets the repository store.
func (c *Cache) ClearAll() error {
	if err := c.removeAll(c.reposDir); err != nil {
		return fmt.Errorf("failed to remove repository store: %w", err)
	}
	if err := c.fs.MkdirAll(c.reposDir, 0o755); err != nil {
		return fmt.Errorf("failed to recreate repository store: %w", err)
	}
	return nil
}

// Stats returns statistics about the repository store: complete
// repositories, clone locks currently present, and total disk usage.
func (c *Cache) Stats() (*Stats, error) {
	stats := &Stats{}

	err := c.collectStats(c.reposDir, stats)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to walk repository store: %w", err)
	}

	return stats, nil
}

// collectStats walks the store, descending only through key directories.
// A complete repository terminates the descent: its contents contribute to
// TotalSize but are never classified, so a git-internal file such as
// index.lock inside a repository is not mistaken for an in-flight clone.
func (c *Cache) collectStats(dir string, stats *Stats) error {
	entries, err := c.fs.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if c.isComplete(path) {
				stats.Repos++
				err = c.walkDir(path, func(_ string, info os.FileInfo) error {
					if !info.IsDir() {
						stats.TotalSize += info.Size()
					}
					return nil
				})
			} else {
				err = c.collectStats(path, stats)
			}
			if err != nil {
				return err
			}
			continue
		}

		stats.TotalSize += entry.Size()
		if filepath.Ext(path) == ".lock" {
			stats.InFlight++
		}
	}
	return nil
}

// walkDir walks a directory tree, calling fn for each entry.
func (c *Cache) walkDir(root string, fn func(path string, info os.FileInfo) error) error {
	entries, err := c.fs.ReadDir(root)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())
		if err := fn(path, entry); err != nil {
			return err
		}
		if entry.IsDir() {
			if err := c.walkDir(path, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// removeAll removes a path and any children. Removing an absent path is not
// an error.
func (c *Cache) removeAll(path string) error {
	info, err := c.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if !info.IsDir() {
		return c.fs.Remove(path)
	}

	entries, err := c.fs.ReadDir(path)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := c.removeAll(filepath.Join(path, entry.Name())); err != nil {
			return err
		}
	}

	return c.fs.Remove(path)
}
