// Package fs expands the file arguments of document uploads. Patterns use
// doublestar syntax, so "docs/**/*.pdf" matches recursively.
package fs

import (
	"errors"
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNoMatch is returned when a pattern matches no file.
var ErrNoMatch = errors.New("no files match")

// Expand resolves patterns to regular files. A pattern without glob
// metacharacters must name an existing file. Results keep the order of the
// patterns and contain each path once.
func Expand(patterns ...string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, pattern := range patterns {
		if !doublestar.ValidatePathPattern(pattern) {
			return nil, fmt.Errorf("fs: invalid pattern %q", pattern)
		}
		if !hasMeta(pattern) {
			info, err := os.Stat(pattern)
			if err != nil {
				return nil, fmt.Errorf("fs: %w", err)
			}
			if !info.Mode().IsRegular() {
				return nil, fmt.Errorf("fs: %s is not a regular file", pattern)
			}
			add(pattern)
			continue
		}

		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("fs: %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("fs: %s: %w", pattern, ErrNoMatch)
		}
		for _, m := range matches {
			add(m)
		}
	}
	return out, nil
}

func hasMeta(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
