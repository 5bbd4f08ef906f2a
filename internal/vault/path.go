package vault

import "strings"

// NormalizePath strips leading and trailing path separators from p.
func NormalizePath(p string) string {
	return strings.Trim(p, "/")
}

// JoinPath joins a mount prefix with a requested path, normalizing both.
//
// Redundant separators around either input never change the result:
// JoinPath("/a/", "b/") == JoinPath("a", "/b") == "a/b". An empty prefix
// yields the normalized path alone.
func JoinPath(prefix, path string) string {
	prefix = NormalizePath(prefix)
	path = NormalizePath(path)
	if prefix == "" {
		return path
	}
	if path == "" {
		return prefix
	}
	return prefix + "/" + path
}
