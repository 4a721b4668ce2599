// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package runstate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/overlook-foundation/overlook/lib/testutil"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"running", StatusRunning},
		{"paused", StatusPaused},
		{"completed", StatusCompleted},
		{"failed", StatusFailed},
		{"", StatusUnknown},
		{"exploded", StatusUnknown},
		{"unknown", StatusUnknown},
	}
	for _, tt := range tests {
		if got := ParseStatus(tt.in); got != tt.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewPathsLayout(t *testing.T) {
	paths := NewPaths("/runs/alpha")
	if paths.StateFile != filepath.Join("/runs/alpha", "state.json") {
		t.Errorf("StateFile = %q", paths.StateFile)
	}
	if paths.JournalFile != filepath.Join("/runs/alpha", "journal.jsonl") {
		t.Errorf("JournalFile = %q", paths.JournalFile)
	}
	if paths.WorkSummariesDir != filepath.Join("/runs/alpha", "work-summaries") {
		t.Errorf("WorkSummariesDir = %q", paths.WorkSummariesDir)
	}
	if paths.MainScript != filepath.Join("/runs/alpha", "code", "main.js") {
		t.Errorf("MainScript = %q", paths.MainScript)
	}
}

func TestReadStateParsesJSONC(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	content := `{
		// engine writes comments sometimes
		"status": "running",
		"step": 7,
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	state, issues := ReadState(path)
	if len(issues) != 0 {
		t.Fatalf("issues = %v, want none", issues)
	}
	if state["status"] != "running" || state["step"] != float64(7) {
		t.Errorf("state = %v", state)
	}
}

func TestReadStateMissingFileDegrades(t *testing.T) {
	state, issues := ReadState(filepath.Join(t.TempDir(), "state.json"))
	if state == nil || len(state) != 0 {
		t.Errorf("state = %v, want empty map", state)
	}
	if len(issues) != 1 || !strings.Contains(issues[0].Message, "missing") {
		t.Errorf("issues = %v, want one missing-file issue", issues)
	}
}

func TestReadStateMalformedDegrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{{nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	state, issues := ReadState(path)
	if len(state) != 0 {
		t.Errorf("state = %v, want empty", state)
	}
	if len(issues) != 1 {
		t.Errorf("issues = %v, want exactly one", issues)
	}
}

func TestLoadReadsStatusAndTimestamps(t *testing.T) {
	parent := t.TempDir()
	root := testutil.CreateRunRoot(t, parent, "run-42", map[string]string{
		"state.json": `{"status":"paused","createdAt":"2026-08-01T10:00:00Z","updatedAt":"2026-08-02T11:30:00Z"}`,
	})

	run := Load(root)
	if run.ID != "run-42" {
		t.Errorf("ID = %q, want run-42", run.ID)
	}
	if run.Status != StatusPaused {
		t.Errorf("Status = %q, want paused", run.Status)
	}
	if run.CreatedAt.Format("2006-01-02") != "2026-08-01" {
		t.Errorf("CreatedAt = %v", run.CreatedAt)
	}
	if run.UpdatedAt.Format("2006-01-02") != "2026-08-02" {
		t.Errorf("UpdatedAt = %v", run.UpdatedAt)
	}
}

func TestLoadWithoutStateFallsBackToModTimes(t *testing.T) {
	parent := t.TempDir()
	root := testutil.CreateRunRoot(t, parent, "bare", map[string]string{
		"journal.jsonl": `{"a":1}` + "\n",
	})

	run := Load(root)
	if run.Status != StatusUnknown {
		t.Errorf("Status = %q, want unknown", run.Status)
	}
	if run.CreatedAt.IsZero() || run.UpdatedAt.IsZero() {
		t.Error("timestamps did not fall back to modification times")
	}
}

func TestDiscoverFindsRunRootsOnly(t *testing.T) {
	parent := t.TempDir()
	testutil.CreateRunRoot(t, parent, "older", map[string]string{
		"state.json": `{"status":"completed","updatedAt":"2026-08-01T00:00:00Z"}`,
	})
	testutil.CreateRunRoot(t, parent, "newer", map[string]string{
		"state.json": `{"status":"running","updatedAt":"2026-08-20T00:00:00Z"}`,
	})

	// Noise: a plain directory and a stray file.
	if err := os.MkdirAll(filepath.Join(parent, "not-a-run"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(parent, "stray.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	runs, err := Discover(parent)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("discovered %d runs, want 2", len(runs))
	}
	if runs[0].ID != "newer" || runs[1].ID != "older" {
		t.Errorf("order = [%s %s], want newest first", runs[0].ID, runs[1].ID)
	}
}
