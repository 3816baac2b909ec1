// Package testutil provides on-disk repository fixtures for gitcache tests.
// Helpers build real repositories with go-git so tests can exercise the
// cache against genuine git metadata without network access.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Test user information used for fixture commits.
const (
	TestAuthor = "Test User"
	TestEmail  = "test@example.com"
)

// CreateSourceRepo initializes a repository with a single commit and a
// v1.0.0 tag. It returns the path of the repository's git directory (the
// .git directory, which is self-contained and can be installed into a cache
// as a repository entry) and the commit hash.
func CreateSourceRepo(t *testing.T) (gitDir, head string) {
	t.Helper()

	workPath := filepath.Join(t.TempDir(), "source")
	repo, err := gogit.PlainInit(workPath, false)
	if err != nil {
		t.Fatalf("failed to init source repo: %v", err)
	}

	readme := filepath.Join(workPath, "README.md")
	if err := os.WriteFile(readme, []byte("# fixture\n"), 0o644); err != nil {
		t.Fatalf("failed to write fixture file: %v", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	if _, err := worktree.Add("README.md"); err != nil {
		t.Fatalf("failed to add fixture file: %v", err)
	}

	commit, err := worktree.Commit("initial commit", &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  TestAuthor,
			Email: TestEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}

	if _, err := repo.CreateTag("v1.0.0", commit, nil); err != nil {
		t.Fatalf("failed to tag: %v", err)
	}

	return filepath.Join(workPath, ".git"), commit.String()
}

// InstallRepo moves a git directory produced by CreateSourceRepo to dest,
// creating parent directories as needed. Tests use it to seed a cache with a
// complete repository entry.
func InstallRepo(t *testing.T, gitDir, dest string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		t.Fatalf("failed to create parent directory: %v", err)
	}
	if err := os.Rename(gitDir, dest); err != nil {
		t.Fatalf("failed to install repository: %v", err)
	}
}

// WriteLockFile writes a lock file at path holding the given heartbeat
// timestamp, creating parent directories as needed. Tests use it to simulate
// an in-flight or abandoned clone owned by another process.
func WriteLockFile(t *testing.T, path string, heartbeat time.Time) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create parent directory: %v", err)
	}
	content := heartbeat.UTC().Format(time.RFC3339Nano)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write lock file: %v", err)
	}
}
