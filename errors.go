package gitcache

import (
	"errors"
	"fmt"
	"time"
)

// CloneError reports that a clone attempt did not produce a usable
// repository. It is returned both by a caller that owned the clone lock and
// saw the git invocation fail, and by a waiter that observed the owner
// release its lock without completing the repository.
type CloneError struct {
	// URL is the remote URL whose clone failed.
	URL string

	// GitDir is the target repository directory.
	GitDir string

	// Stderr is the captured git output when this caller ran the clone.
	// Empty when the failure was observed from another owner.
	Stderr string

	// Err is the underlying execution error, if any.
	Err error
}

// Error implements the error interface.
func (e *CloneError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("clone of %s failed: %s", e.URL, e.Stderr)
	}
	if e.Err != nil {
		return fmt.Sprintf("clone of %s failed: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("clone of %s did not produce a usable repository", e.URL)
}

// Unwrap returns the underlying error.
func (e *CloneError) Unwrap() error {
	return e.Err
}

// LockExpiredError reports an abandoned lease: the clone lock file is still
// present but its heartbeat is older than the expiry threshold, so the owner
// is presumed dead. The lock is not taken over; callers decide whether to
// clean up and retry.
type LockExpiredError struct {
	// URL is the remote URL whose clone was being waited on.
	URL string

	// LockFile is the path of the stale lock file.
	LockFile string

	// Age is the observed heartbeat age at detection time.
	Age time.Duration
}

// Error implements the error interface.
func (e *LockExpiredError) Error() string {
	return fmt.Sprintf("clone lock %s expired: heartbeat is %s old", e.LockFile, e.Age)
}

// IsCloneFailed reports whether any error in err's chain is a CloneError.
func IsCloneFailed(err error) bool {
	var cloneErr *CloneError
	return errors.As(err, &cloneErr)
}

// IsLockExpired reports whether any error in err's chain is a
// LockExpiredError.
func IsLockExpired(err error) bool {
	var lockErr *LockExpiredError
	return errors.As(err, &lockErr)
}
