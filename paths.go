package gitcache

import "path/filepath"

// gitDir returns the absolute bare-repository directory for a remote URL.
func (c *Cache) gitDir(url string) string {
	return filepath.Join(c.reposDir, filepath.FromSlash(Canonicalize(url)))
}

// lockPath returns the sibling lock file path for a repository directory.
func lockPath(gitDir string) string {
	return gitDir + ".lock"
}

// isComplete reports whether gitDir holds a fully cloned bare repository.
// Presence of the repository config file is the completeness marker; a
// directory without it is either absent or a clone still in progress, and is
// never safe to read from.
func (c *Cache) isComplete(gitDir string) bool {
	_, err := c.fs.Stat(filepath.Join(gitDir, "config"))
	return err == nil
}
