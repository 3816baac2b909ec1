package gitcache

import (
	"context"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Checkout materializes a working tree for url at rev into dest, cloning
// from the local cache rather than the network. The bare repository is
// ensured first, so only the first call for a URL pays for a remote
// transfer.
//
// An empty rev checks out the repository's default branch. Checkout writes
// the working tree with go-git on the local filesystem, so it requires the
// default filesystem configuration.
//
// Example:
//
//	path, err := cache.Checkout(ctx, "https://github.com/my/repo", "v1.0.0",
//	    filepath.Join(buildDir, "repo"))
func (c *Cache) Checkout(ctx context.Context, url, rev, dest string) (string, error) {
	gitDir, err := c.EnsureGitDir(ctx, url)
	if err != nil {
		return "", err
	}

	repo, err := gogit.PlainCloneContext(ctx, dest, false, &gogit.CloneOptions{
		URL: gitDir,
	})
	if err != nil {
		return "", fmt.Errorf("failed to check out %s from cache: %w", url, err)
	}

	if rev != "" {
		hash, err := repo.ResolveRevision(plumbing.Revision(rev))
		if err != nil {
			return "", fmt.Errorf("failed to resolve revision %q: %w", rev, err)
		}

		worktree, err := repo.Worktree()
		if err != nil {
			return "", fmt.Errorf("failed to get worktree: %w", err)
		}
		if err := worktree.Checkout(&gogit.CheckoutOptions{Hash: *hash}); err != nil {
			return "", fmt.Errorf("failed to check out revision %q: %w", rev, err)
		}
	}

	return dest, nil
}
