package gitcache

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

// leaseLock is a filesystem-backed mutual exclusion primitive with
// heartbeat-based liveness, usable across OS processes.
//
// The lock file holds a single timestamp. Whoever succeeds at the atomic
// exclusive create owns the lock and rewrites the timestamp periodically
// while its work runs; waiters derive liveness from the timestamp's age.
// Absence of the file means no work is in flight. Correctness depends only
// on the filesystem's exclusive-create atomicity, never on in-process
// synchronization.
type leaseLock struct {
	fs   billy.Filesystem
	path string
}

func newLeaseLock(fs billy.Filesystem, path string) *leaseLock {
	return &leaseLock{fs: fs, path: path}
}

// tryAcquire atomically creates the lock file if it does not already exist
// and writes an initial heartbeat. It returns true when the caller won the
// race and now owns the lock, false when another actor already holds it.
func (l *leaseLock) tryAcquire() (bool, error) {
	f, err := l.fs.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create lock file %s: %w", l.path, err)
	}
	defer f.Close()

	if _, err := f.Write(timestamp()); err != nil {
		// Remove the just-created file: leaving it behind empty would
		// present waiters with a lease that can never be aged.
		_ = l.fs.Remove(l.path)
		return false, fmt.Errorf("failed to write heartbeat to %s: %w", l.path, err)
	}
	return true, nil
}

// heartbeat overwrites the lock file content with the current timestamp,
// signaling to waiters that the owner is still alive.
func (l *leaseLock) heartbeat() error {
	f, err := l.fs.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open lock file %s: %w", l.path, err)
	}
	defer f.Close()

	if _, err := f.Write(timestamp()); err != nil {
		return fmt.Errorf("failed to write heartbeat to %s: %w", l.path, err)
	}
	return nil
}

// age returns the elapsed time since the stored heartbeat was written. The
// second return value is false when the file is absent, unreadable, or holds
// an unparseable timestamp; a racing release by the owner is expected and is
// not an error.
func (l *leaseLock) age() (time.Duration, bool) {
	data, err := util.ReadFile(l.fs, l.path)
	if err != nil {
		return 0, false
	}

	written, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return time.Since(written), true
}

// held reports whether the lock file currently exists. Filesystem errors
// other than absence are surfaced unchanged.
func (l *leaseLock) held() (bool, error) {
	if _, err := l.fs.Stat(l.path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat lock file %s: %w", l.path, err)
	}
	return true, nil
}

// release deletes the lock file. It is idempotent: releasing an already
// absent lock is not an error.
func (l *leaseLock) release() error {
	if err := l.fs.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file %s: %w", l.path, err)
	}
	return nil
}

func timestamp() []byte {
	return []byte(time.Now().UTC().Format(time.RFC3339Nano))
}
