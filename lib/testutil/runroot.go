// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
)

// fataler is the subset of testing.T used by fixture helpers.
type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

// CreateRunRoot creates a run-root directory named id under parent
// with the standard subdirectories (artifacts, work-summaries,
// prompts) and writes the given files. Keys in files are paths
// relative to the run root; parent directories are created as needed.
// Returns the run root path.
func CreateRunRoot(t fataler, parent, id string, files map[string]string) string {
	t.Helper()

	root := filepath.Join(parent, id)
	for _, sub := range []string{"artifacts", "work-summaries", "prompts"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			t.Fatalf("creating %s: %v", sub, err)
		}
	}
	for relative, content := range files {
		path := filepath.Join(root, relative)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("creating parent of %s: %v", relative, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", relative, err)
		}
	}
	return root
}

// Append appends content to an existing file, creating it if absent.
// Used by tailer tests to simulate the engine extending the journal.
func Append(t fataler, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("opening %s for append: %v", path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("appending to %s: %v", path, err)
	}
}
