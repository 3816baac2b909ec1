package gitcache

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmgilman/go/exec"
)

// fakeGit is a test double for the git runner. A successful run populates
// the target directory the way a bare clone would; a failing run can leave a
// partial directory behind, mirroring a transfer interrupted midway.
//
// Configuration knobs are read-only once the fake is in use, so a single
// value can back many concurrent callers.
type fakeGit struct {
	delay   time.Duration // Simulated transfer time
	fail    bool          // Report a non-zero exit
	partial bool          // On failure, leave a partial directory behind
	noRepo  bool          // Report success without producing a repository
	stderr  string        // Failure detail

	// callsDir, when set, records each invocation as a file so invocation
	// counts can be aggregated across OS processes.
	callsDir string

	mu    sync.Mutex
	calls [][]string
}

// CallCount returns how many clone invocations the fake has served.
func (f *fakeGit) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// Run simulates a git clone into the last argument.
func (f *fakeGit) Run(args ...string) (*exec.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, args)
	f.mu.Unlock()

	if f.callsDir != "" {
		name := fmt.Sprintf("call-%d-%d", os.Getpid(), time.Now().UnixNano())
		if err := os.WriteFile(filepath.Join(f.callsDir, name), nil, 0o644); err != nil {
			return &exec.Result{ExitCode: 1}, err
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	gitDir := args[len(args)-1]

	if f.fail {
		if f.partial {
			_ = os.MkdirAll(filepath.Join(gitDir, "objects"), 0o755)
		}
		result := &exec.Result{Stderr: f.stderr, ExitCode: 128}
		return result, &exec.ExecError{Command: args, ExitCode: 128, Stderr: f.stderr}
	}

	if f.noRepo {
		_ = os.MkdirAll(gitDir, 0o755)
		return &exec.Result{ExitCode: 0}, nil
	}

	if err := writeBareRepoFixture(gitDir); err != nil {
		return &exec.Result{ExitCode: 1}, err
	}
	return &exec.Result{ExitCode: 0}, nil
}

// writeBareRepoFixture lays out the minimal shape of a bare repository,
// including the config marker file the cache checks for completeness.
func writeBareRepoFixture(gitDir string) error {
	for _, dir := range []string{"objects", "refs"} {
		if err := os.MkdirAll(filepath.Join(gitDir, dir), 0o755); err != nil {
			return err
		}
	}
	head := []byte("ref: refs/heads/main\n")
	if err := os.WriteFile(filepath.Join(gitDir, "HEAD"), head, 0o644); err != nil {
		return err
	}
	config := []byte("[core]\n\tbare = true\n")
	return os.WriteFile(filepath.Join(gitDir, "config"), config, 0o644)
}

// The coordinator only uses Clone, WithContext, and Run; the remaining
// Executor methods are chaining no-ops. Clone returns the fake itself so the
// call log is shared across all callers.

func (f *fakeGit) Clone() exec.Executor                      { return f }
func (f *fakeGit) WithContext(context.Context) exec.Executor { return f }
func (f *fakeGit) WithEnv(map[string]string) exec.Executor   { return f }
func (f *fakeGit) WithDir(string) exec.Executor              { return f }
func (f *fakeGit) WithDisableColors() exec.Executor          { return f }
func (f *fakeGit) WithTimeout(string) exec.Executor          { return f }
func (f *fakeGit) WithInheritEnv() exec.Executor             { return f }
func (f *fakeGit) WithStdout(io.Writer) exec.Executor        { return f }
func (f *fakeGit) WithStderr(io.Writer) exec.Executor        { return f }
func (f *fakeGit) WithPassthrough() exec.Executor            { return f }
