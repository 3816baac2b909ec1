package gitcache

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"
)

// EnsureGitDir guarantees that a bare clone of url exists in the cache and
// returns its absolute path.
//
// When the repository is already complete the path is returned immediately
// with no lock I/O and no git invocation. Otherwise callers race for the
// clone lock: the winner runs git clone while heartbeating the lock file,
// and everyone else polls until the repository is complete, the owner gives
// up, or the owner's heartbeat goes stale.
//
// Exactly one clone runs per URL system-wide, across goroutines and across
// OS processes sharing the cache root. A live owner may hold waiters
// indefinitely; large clones legitimately take minutes. There is no wait
// bound other than lease expiry and ctx cancellation.
//
// On failure the error is a *CloneError (the clone did not produce a usable
// repository) or a *LockExpiredError (the owner is presumed dead); see
// IsCloneFailed and IsLockExpired. Filesystem errors outside those
// conditions propagate unchanged.
func (c *Cache) EnsureGitDir(ctx context.Context, url string) (string, error) {
	gitDir := c.gitDir(url)

	// Fast path: nothing to coordinate.
	if c.isComplete(gitDir) {
		return gitDir, nil
	}

	if err := c.fs.MkdirAll(filepath.Dir(gitDir), 0o755); err != nil {
		return "", fmt.Errorf("failed to create repository parent directory: %w", err)
	}

	lock := newLeaseLock(c.fs, lockPath(gitDir))
	acquired, err := lock.tryAcquire()
	if err != nil {
		return "", err
	}

	if acquired {
		return c.cloneAsOwner(ctx, url, gitDir, lock)
	}
	return c.waitForClone(ctx, url, gitDir, lock)
}

// cloneAsOwner runs the clone while holding the lease lock. The owner is
// solely responsible for cleanup: on failure any partial repository is
// removed before the lock is released, so a later caller's fast path can
// never mistake it for a finished clone.
func (c *Cache) cloneAsOwner(ctx context.Context, url, gitDir string, lock *leaseLock) (string, error) {
	// A previous owner may have completed the clone between our fast-path
	// check and winning the lock.
	if c.isComplete(gitDir) {
		if err := lock.release(); err != nil {
			return "", err
		}
		return gitDir, nil
	}

	stop := c.startHeartbeat(lock)
	result, runErr := c.git.Clone().WithContext(ctx).Run(cloneArgs(url, gitDir)...)
	stop()

	if runErr == nil && c.isComplete(gitDir) {
		if err := lock.release(); err != nil {
			return "", err
		}
		return gitDir, nil
	}

	// Failed clone: delete the partial directory first, then the lock.
	// Waiters that observe the released lock with no repository report the
	// failure on their own.
	if err := c.removeAll(gitDir); err != nil {
		_ = lock.release()
		return "", fmt.Errorf("failed to remove partial clone %s: %w", gitDir, err)
	}
	if err := lock.release(); err != nil {
		return "", err
	}

	cloneErr := &CloneError{URL: url, GitDir: gitDir, Err: runErr}
	if result != nil {
		cloneErr.Stderr = result.Stderr
	}
	return "", cloneErr
}

// waitForClone polls on a fixed interval while another actor owns the clone
// lock. The waiter never mutates the repository or the lock; it only
// classifies what it observes.
func (c *Cache) waitForClone(ctx context.Context, url, gitDir string, lock *leaseLock) (string, error) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	var unreadableSince time.Time
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		// A complete repository wins regardless of lock state.
		if c.isComplete(gitDir) {
			return gitDir, nil
		}

		held, err := lock.held()
		if err != nil {
			return "", err
		}
		if !held {
			// The owner may have completed and released between our two
			// checks; only an absent lock with an incomplete repository
			// means the owner gave up.
			if c.isComplete(gitDir) {
				return gitDir, nil
			}
			return "", &CloneError{URL: url, GitDir: gitDir}
		}

		age, ok := lock.age()
		if ok {
			unreadableSince = time.Time{}
			if age >= c.expiry {
				return "", &LockExpiredError{URL: url, LockFile: lock.path, Age: age}
			}
			continue
		}

		// An unknown age usually means the owner released the lock between
		// our two checks, which the next tick settles. A lock that stays
		// present but unreadable for a full expiry window is an abandoned
		// lease from an owner that died before writing its first heartbeat.
		if unreadableSince.IsZero() {
			unreadableSince = time.Now()
		} else if stuck := time.Since(unreadableSince); stuck >= c.expiry {
			return "", &LockExpiredError{URL: url, LockFile: lock.path, Age: stuck}
		}
	}
}

// startHeartbeat rewrites the lock file timestamp on a fixed interval until
// the returned stop function is called. Stop blocks until the goroutine has
// fully exited, so no write can land after the lock is released.
func (c *Cache) startHeartbeat(lock *leaseLock) (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(c.heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				// Heartbeat failures are not fatal to the clone; a stalled
				// heartbeat surfaces to waiters as lease expiry.
				_ = lock.heartbeat()
			}
		}
	}()

	return func() {
		close(done)
		wg.Wait()
	}
}
