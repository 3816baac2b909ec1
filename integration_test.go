package gitcache

// Cross-process coordination tests. The protocol keeps all state in the
// filesystem, so the same EnsureGitDir implementation must be correct when
// the racing callers are separate OS processes rather than goroutines.
// Children are spawned by re-running this test binary against a shared cache
// root, the standard helper-process pattern.

import (
	"context"
	"os"
	osexec "os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	childEnv    = "GITCACHE_TEST_CHILD"
	childRoot   = "GITCACHE_TEST_ROOT"
	childCalls  = "GITCACHE_TEST_CALLS"
	childResult = "GITCACHE_TEST_RESULT"
)

// TestChildEnsure is the helper-process entry point. It is a no-op unless
// spawned by TestEnsureGitDir_AcrossProcesses.
func TestChildEnsure(t *testing.T) {
	if os.Getenv(childEnv) != "1" {
		t.Skip("helper process only")
	}

	git := &fakeGit{delay: 200 * time.Millisecond, callsDir: os.Getenv(childCalls)}
	c, err := New(os.Getenv(childRoot),
		WithGit(git),
		WithHeartbeatInterval(10*time.Millisecond),
		WithExpiry(2*time.Second),
		WithPollInterval(5*time.Millisecond),
	)
	require.NoError(t, err)

	path, err := c.EnsureGitDir(context.Background(), testURL)

	out := "ok " + path
	if err != nil {
		out = "error " + err.Error()
	}
	require.NoError(t, os.WriteFile(os.Getenv(childResult), []byte(out), 0o644))
}

func TestEnsureGitDir_AcrossProcesses(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping process-spawning test in short mode")
	}

	dir := t.TempDir()
	root := filepath.Join(dir, "cache")
	callsDir := filepath.Join(dir, "calls")
	require.NoError(t, os.MkdirAll(callsDir, 0o755))

	const children = 4
	cmds := make([]*osexec.Cmd, children)
	results := make([]string, children)

	for i := 0; i < children; i++ {
		results[i] = filepath.Join(dir, "result-"+string(rune('a'+i)))
		cmd := osexec.Command(os.Args[0], "-test.run", "^TestChildEnsure$", "-test.v")
		cmd.Env = append(os.Environ(),
			childEnv+"=1",
			childRoot+"="+root,
			childCalls+"="+callsDir,
			childResult+"="+results[i],
		)
		cmds[i] = cmd
		require.NoError(t, cmd.Start())
	}

	for i, cmd := range cmds {
		require.NoError(t, cmd.Wait(), "child %d failed", i)
	}

	var paths []string
	for _, result := range results {
		data, err := os.ReadFile(result)
		require.NoError(t, err)
		content := strings.TrimSpace(string(data))
		require.True(t, strings.HasPrefix(content, "ok "), "child reported: %s", content)
		paths = append(paths, strings.TrimPrefix(content, "ok "))
	}

	for _, path := range paths {
		assert.Equal(t, paths[0], path, "all processes must agree on the path")
	}

	calls, err := os.ReadDir(callsDir)
	require.NoError(t, err)
	assert.Len(t, calls, 1, "exactly one clone must run across all processes")
}
