// Package files selects the source files a scan reads.
//
// Include and ignore patterns use doublestar semantics: "**" matches any
// number of path segments and "*" matches within one segment. Patterns are
// evaluated against root-relative paths with forward slashes.
package files

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Select expands include patterns under root and returns the matching
// regular files, root-relative with forward slashes.
//
// Directories are skipped, as are files whose extension (case-insensitive) is
// not in extensions and files matching any ignore pattern. A nil or empty
// extensions set admits every extension. A path reached by several patterns
// is returned once, at its first position. Patterns are expanded in the order
// given; each pattern yields paths in directory-walk order, which is sorted by
// name at every level, so the result is stable across runs.
func Select(root string, include, ignore, extensions []string) ([]string, error) {
	return SelectFS(os.DirFS(root), include, ignore, extensions)
}

// SelectFS is Select over an arbitrary file system.
func SelectFS(fsys fs.FS, include, ignore, extensions []string) ([]string, error) {
	ignores, err := cleanPatterns(ignore)
	if err != nil {
		return nil, err
	}

	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		exts[strings.ToLower(e)] = true
	}

	seen := make(map[string]bool)
	var out []string
	for _, raw := range include {
		pattern := cleanPattern(raw)
		if pattern == "" {
			continue
		}
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("include pattern %q: %w", raw, doublestar.ErrBadPattern)
		}

		err := doublestar.GlobWalk(fsys, pattern, func(p string, d fs.DirEntry) error {
			if d.IsDir() {
				return nil
			}
			if len(exts) > 0 && !exts[strings.ToLower(path.Ext(p))] {
				return nil
			}
			if seen[p] || Ignored(p, ignores) {
				return nil
			}
			seen[p] = true
			out = append(out, p)
			return nil
		}, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand %q: %w", raw, err)
		}
	}
	return out, nil
}

// Ignored reports whether rel matches any of the ignore patterns. Patterns
// must already be valid; invalid ones never match.
func Ignored(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func cleanPatterns(patterns []string) ([]string, error) {
	out := make([]string, 0, len(patterns))
	for _, raw := range patterns {
		p := cleanPattern(raw)
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("ignore pattern %q: %w", raw, doublestar.ErrBadPattern)
		}
		out = append(out, p)
	}
	return out, nil
}

// cleanPattern strips surrounding space and a leading "./" or "/".
func cleanPattern(p string) string {
	p = strings.TrimSpace(p)
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return strings.TrimLeft(p, "/")
}
