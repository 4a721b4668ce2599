// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package runstate

import (
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Status is the engine-reported lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusUnknown   Status = "unknown"
)

// ParseStatus maps an engine-reported status string onto the known
// set. Anything unrecognized (including empty) is StatusUnknown — the
// engine's vocabulary may grow before the monitor's does.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusRunning, StatusPaused, StatusCompleted, StatusFailed:
		return Status(s)
	}
	return StatusUnknown
}

// Paths holds the standard file layout under a run root. MainScript
// is optional; every other path is expected, though absence of any of
// them only degrades the snapshot.
type Paths struct {
	Root             string `json:"root" cbor:"root"`
	StateFile        string `json:"stateFile" cbor:"state_file"`
	JournalFile      string `json:"journalFile" cbor:"journal_file"`
	ArtifactsDir     string `json:"artifactsDir" cbor:"artifacts_dir"`
	WorkSummariesDir string `json:"workSummariesDir" cbor:"work_summaries_dir"`
	PromptsDir       string `json:"promptsDir" cbor:"prompts_dir"`
	MainScript       string `json:"mainScript" cbor:"main_script"`
}

// NewPaths derives the standard layout from a run root.
func NewPaths(root string) Paths {
	return Paths{
		Root:             root,
		StateFile:        filepath.Join(root, "state.json"),
		JournalFile:      filepath.Join(root, "journal.jsonl"),
		ArtifactsDir:     filepath.Join(root, "artifacts"),
		WorkSummariesDir: filepath.Join(root, "work-summaries"),
		PromptsDir:       filepath.Join(root, "prompts"),
		MainScript:       filepath.Join(root, "code", "main.js"),
	}
}

// Run is one observed run. Created and mutated entirely by the
// external engine; the monitor only reads it.
type Run struct {
	ID        string    `json:"id" cbor:"id"`
	Paths     Paths     `json:"paths" cbor:"paths"`
	CreatedAt time.Time `json:"createdAt" cbor:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" cbor:"updated_at"`
	Status    Status    `json:"status" cbor:"status"`
}

// Load builds a Run from a run root directory, deriving the ID from
// the directory name and the status and timestamps from state.json.
// Missing or malformed state degrades: status falls back to unknown
// and timestamps to file modification times.
func Load(root string) Run {
	run := Run{
		ID:     filepath.Base(root),
		Paths:  NewPaths(root),
		Status: StatusUnknown,
	}

	state, _ := ReadState(run.Paths.StateFile)
	if status, ok := state["status"].(string); ok {
		run.Status = ParseStatus(status)
	}
	run.CreatedAt = stateTime(state, "createdAt")
	run.UpdatedAt = stateTime(state, "updatedAt")

	if run.CreatedAt.IsZero() {
		if info, err := os.Stat(root); err == nil {
			run.CreatedAt = info.ModTime()
		}
	}
	if run.UpdatedAt.IsZero() {
		if info, err := os.Stat(run.Paths.StateFile); err == nil {
			run.UpdatedAt = info.ModTime()
		} else {
			run.UpdatedAt = run.CreatedAt
		}
	}
	return run
}

// stateTime reads an RFC 3339 timestamp from an engine state value.
// Zero time when absent or unparsable.
func stateTime(state map[string]any, key string) time.Time {
	raw, ok := state[key].(string)
	if !ok {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

// Discover scans parent for run roots: directories containing a
// state.json or journal.jsonl. Other entries are skipped without
// error. The result is sorted most recently updated first.
func Discover(parent string) ([]Run, error) {
	entries, err := os.ReadDir(parent)
	if err != nil {
		return nil, err
	}

	var runs []Run
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		root := filepath.Join(parent, entry.Name())
		if !isRunRoot(root) {
			continue
		}
		runs = append(runs, Load(root))
	}

	// Newest activity first.
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].UpdatedAt.After(runs[j].UpdatedAt)
	})
	return runs, nil
}

// isRunRoot reports whether a directory looks like a run root: the
// engine always creates the state file or the journal first.
func isRunRoot(root string) bool {
	for _, name := range []string{"state.json", "journal.jsonl"} {
		if _, err := os.Stat(filepath.Join(root, name)); err == nil {
			return true
		}
	}
	return false
}
