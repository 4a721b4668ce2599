// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package pathsafe

import (
	"os"
	"path/filepath"
	"strings"
)

// IsInsideRoot reports whether candidate is root itself or a
// descendant of it after normalization, ".." resolution, and symlink
// resolution. Both arguments are made absolute against the current
// working directory if relative.
//
// Symlinks are resolved for the deepest existing ancestor of each
// path, so a symlink inside the root pointing outside it is rejected
// even when the final component does not exist yet.
func IsInsideRoot(root, candidate string) bool {
	resolvedRoot, ok := resolve(root)
	if !ok {
		return false
	}
	resolvedCandidate, ok := resolve(candidate)
	if !ok {
		return false
	}

	relative, err := filepath.Rel(resolvedRoot, resolvedCandidate)
	if err != nil {
		return false
	}
	if relative == "." {
		return true
	}
	return relative != ".." && !strings.HasPrefix(relative, ".."+string(filepath.Separator))
}

// resolve returns the absolute, symlink-resolved form of path. When
// the full path does not exist, symlinks are resolved for the deepest
// existing ancestor and the non-existing suffix is re-joined after
// lexical cleaning.
func resolve(path string) (string, bool) {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	absolute = filepath.Clean(absolute)

	if resolved, err := filepath.EvalSymlinks(absolute); err == nil {
		return resolved, true
	}

	// Walk up to the deepest existing ancestor.
	ancestor := absolute
	var suffix []string
	for {
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			// Hit the filesystem root without finding anything.
			return absolute, true
		}
		suffix = append([]string{filepath.Base(ancestor)}, suffix...)
		ancestor = parent
		if _, err := os.Lstat(ancestor); err == nil {
			break
		}
	}

	resolved, err := filepath.EvalSymlinks(ancestor)
	if err != nil {
		// Ancestor exists but cannot be resolved (permission, broken
		// link). Fall back to the lexically cleaned path.
		return absolute, true
	}
	return filepath.Join(append([]string{resolved}, suffix...)...), true
}
