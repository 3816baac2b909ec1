package gitcache

import (
	"net/url"
	"strings"
)

// Canonicalize maps a Git remote URL in any supported dialect to a stable,
// filesystem-safe relative key of the form transport/host/path.
//
// Canonicalization rules:
//  1. Strip the .git suffix and any trailing slash
//  2. scheme://[user@]host[:port]/path → scheme/host/path (user and port dropped)
//  3. scp-style [user@]host:path → ssh/host/path; any other colon-separated
//     host:path form with an unknown transport is treated the same way
//  4. file:// URLs and bare filesystem paths → file/...; absolute paths drop
//     the leading separator, relative paths go under a REL segment
//  5. Literal ".", "..", and "~user" path segments are replaced with the
//     escape tokens _DOT_, _DOTDOT_, and _TILDE_user so the key carries no
//     traversal semantics
//
// Examples:
//   - ssh://git@gitlab.com:3333/org/repo.git → ssh/gitlab.com/org/repo
//   - git@github.com:org/repo.git → ssh/github.com/org/repo
//   - https://github.com/my/repo → https/github.com/my/repo
//   - /Users/me/code/repo.git → file/Users/me/code/repo
//   - ../foo.git → file/REL/_DOTDOT_/foo
//   - ~user/foo.git → file/REL/_TILDE_user/foo
//
// The function is pure and total over the supported dialects: identical
// semantic remotes with syntactic variation map to the same key.
func Canonicalize(rawURL string) string {
	rawURL = strings.TrimSuffix(rawURL, "/")
	rawURL = strings.TrimSuffix(rawURL, ".git")
	rawURL = strings.TrimSuffix(rawURL, "/")

	// Scheme URLs: scheme://[user@]host[:port]/path
	if strings.Contains(rawURL, "://") {
		if parsed, err := url.Parse(rawURL); err == nil && parsed.Scheme != "" {
			if parsed.Scheme == "file" {
				return "file/" + canonicalPath(parsed.Path)
			}
			return parsed.Scheme + "/" + parsed.Hostname() + "/" +
				escapePath(strings.TrimPrefix(parsed.Path, "/"))
		}
	}

	// scp-style: [user@]host:path, detected by a colon before the first
	// slash. Unknown transports fall through here deliberately so that
	// git-config URL rewrite aliases still produce a usable key.
	if i := strings.IndexAny(rawURL, ":/"); i >= 0 && rawURL[i] == ':' {
		host, path := rawURL[:i], rawURL[i+1:]
		if at := strings.LastIndex(host, "@"); at >= 0 {
			host = host[at+1:]
		}
		return "ssh/" + host + "/" + escapePath(strings.TrimPrefix(path, "/"))
	}

	// Bare filesystem path.
	return "file/" + canonicalPath(rawURL)
}

// canonicalPath rewrites a filesystem path as a pure relative key. Absolute
// paths drop their leading separator; relative paths are parked under REL so
// the key never escapes the cache root.
func canonicalPath(path string) string {
	if strings.HasPrefix(path, "/") {
		return escapePath(strings.TrimLeft(path, "/"))
	}
	return "REL/" + escapePath(path)
}

// escapePath escapes every path segment and collapses empty segments.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	escaped := make([]string, 0, len(segments))
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		escaped = append(escaped, escapeSegment(segment))
	}
	return strings.Join(escaped, "/")
}

// escapeSegment replaces segments with traversal or expansion semantics by
// literal marker tokens. Segments not covered by an explicit rule pass
// through unchanged.
func escapeSegment(segment string) string {
	switch {
	case segment == ".":
		return "_DOT_"
	case segment == "..":
		return "_DOTDOT_"
	case strings.HasPrefix(segment, "~"):
		return "_TILDE_" + segment[1:]
	}
	return segment
}
