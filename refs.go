package gitcache

import (
	"context"
	"errors"
	"fmt"
	"sort"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	gitobjcache "github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"
	platformerrors "github.com/jmgilman/go/errors"
)

// Refs returns all references of the cached repository for url, sorted by
// name. The repository is ensured first, so this may trigger a clone.
func (c *Cache) Refs(ctx context.Context, url string) ([]Ref, error) {
	gitDir, err := c.EnsureGitDir(ctx, url)
	if err != nil {
		return nil, err
	}

	repo, err := c.openBare(gitDir)
	if err != nil {
		return nil, err
	}

	iter, err := repo.References()
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}

	var refs []Ref
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		// Symbolic references (HEAD) carry no hash of their own.
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		refs = append(refs, Ref{
			Name: ref.Name().String(),
			Hash: ref.Hash().String(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate references: %w", err)
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

// Resolve resolves a revision (branch, tag, or abbreviated hash) of the
// cached repository for url to a full commit hash. The repository is
// ensured first, so this may trigger a clone.
func (c *Cache) Resolve(ctx context.Context, url, rev string) (string, error) {
	gitDir, err := c.EnsureGitDir(ctx, url)
	if err != nil {
		return "", err
	}

	repo, err := c.openBare(gitDir)
	if err != nil {
		return "", err
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", platformerrors.Newf(platformerrors.CodeNotFound,
				"revision %q not found in %s", rev, url)
		}
		return "", fmt.Errorf("failed to resolve revision %q: %w", rev, err)
	}
	return hash.String(), nil
}

// openBare opens a complete cached repository through the cache filesystem.
func (c *Cache) openBare(gitDir string) (*gogit.Repository, error) {
	repoFS, err := c.fs.Chroot(gitDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scope filesystem to %s: %w", gitDir, err)
	}

	storage := filesystem.NewStorage(repoFS, gitobjcache.NewObjectLRUDefault())
	repo, err := gogit.Open(storage, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open cached repository %s: %w", gitDir, err)
	}
	return repo, nil
}
