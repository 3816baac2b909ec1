package gitcache

import "github.com/jmgilman/go/exec"

// defaultGit returns the runner used to invoke the external git binary when
// none is injected via WithGit. The parent environment is inherited so that
// credential helpers, ssh-agent, and proxy settings keep working.
func defaultGit() exec.Executor {
	return exec.NewWrapper(exec.New(exec.WithInheritEnv(), exec.WithDisableColors()), "git")
}

// cloneArgs builds the git invocation that populates gitDir as a bare
// repository. On exit code 0 the target directory must contain a valid bare
// repository; on failure git need not clean up, the coordinator does.
func cloneArgs(url, gitDir string) []string {
	return []string{"clone", "--bare", "--quiet", url, gitDir}
}
