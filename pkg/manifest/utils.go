package manifest

import (
	"path"
	"strings"
)

// isRel checks if a path climbs out of its root
func isRel(p string) bool {
	for {
		if p == ".." {
			return true
		}
		dir, base := path.Split(p)
		if base == ".." {
			return true
		}
		if dir == "" || dir == "/" {
			return false
		}
		p = strings.TrimSuffix(dir, "/")
	}
}

// safePath reports whether p is a clean relative file path inside the root.
func safePath(p string) bool {
	if p == "" || p == "." || strings.Contains(p, `\`) {
		return false
	}
	if path.IsAbs(p) || path.Clean(p) != p {
		return false
	}
	return !isRel(p)
}

// parents returns the directories above p, outermost first.
func parents(p string) []string {
	var out []string
	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		out = append([]string{dir}, out...)
	}
	return out
}
