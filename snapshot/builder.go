// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/overlook-foundation/overlook/interaction"
	"github.com/overlook-foundation/overlook/journal"
	"github.com/overlook-foundation/overlook/lib/clock"
	"github.com/overlook-foundation/overlook/runstate"
)

// Builder assembles snapshots for runs. Safe for use from one
// refresh goroutine per run; the builder itself holds no per-run
// state — tailers and accumulated logs belong to the caller.
type Builder struct {
	limits    Limits
	forwarder interaction.Forwarder
	clock     clock.Clock
	logger    *slog.Logger
}

// NewBuilder creates a builder. forwarder may be nil; snapshots then
// always report awaiting = false.
func NewBuilder(limits Limits, forwarder interaction.Forwarder, clk clock.Clock, logger *slog.Logger) *Builder {
	return &Builder{
		limits:    limits,
		forwarder: forwarder,
		clock:     clk,
		logger:    logger,
	}
}

// Build recomputes a run's snapshot. existing is the journal
// accumulation retained from the previous refresh; the updated
// accumulation is returned for the caller to carry forward. Every
// section degrades independently: no single unreadable source aborts
// the snapshot.
func (b *Builder) Build(run runstate.Run, tailer *journal.Tailer, existing journal.Log) (Snapshot, journal.Log) {
	snap := Snapshot{
		Run:           run,
		AwaitingInput: interaction.Status{},
		GeneratedAt:   b.clock.Now(),
	}

	state, issues := runstate.ReadState(run.Paths.StateFile)
	snap.State = StateSection{State: state, Issues: issues}

	next := b.tailJournal(run, tailer, existing)
	snap.Journal = JournalSection{Entries: next.Entries, Errors: next.Errors}

	snap.Artifacts = b.listDirectory(run.Paths.ArtifactsDir)
	snap.WorkSummaries = b.listDirectory(run.Paths.WorkSummariesDir)
	snap.Prompts = b.listDirectory(run.Paths.PromptsDir)
	snap.MainScript = b.readScript(run.Paths.MainScript)

	if b.forwarder != nil {
		if status := b.forwarder.AwaitingInput(run.ID); status != nil {
			snap.AwaitingInput = *status
		}
	}

	return snap, next
}

// tailJournal runs one tail call and folds it into the accumulation.
// A journal I/O failure is recorded as a file-level error (line 0) on
// this refresh's view; the cursor retries on the next refresh.
func (b *Builder) tailJournal(run runstate.Run, tailer *journal.Tailer, existing journal.Log) journal.Log {
	result, err := tailer.Tail()
	if err != nil {
		b.logger.Warn("journal tail failed", "run", run.ID, "error", err)
		result.Errors = append(result.Errors, journal.ParseError{Line: 0, Message: err.Error()})
	}
	return existing.Apply(result, b.limits.MaxJournalEntries)
}

// listDirectory produces a bounded listing of all regular files under
// dir, most recently modified first. A missing directory is an empty
// listing; entries beyond the cap are omitted without error.
func (b *Builder) listDirectory(dir string) []FileInfo {
	var files []FileInfo
	walkErr := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			// Skip unreadable subtrees; serve what is visible.
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		relative, err := filepath.Rel(dir, path)
		if err != nil {
			relative = entry.Name()
		}
		files = append(files, FileInfo{
			Name:    relative,
			Path:    path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if walkErr != nil && !os.IsNotExist(walkErr) {
		b.logger.Debug("directory listing incomplete", "dir", dir, "error", walkErr)
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].ModTime.After(files[j].ModTime)
		}
		return files[i].Name < files[j].Name
	})
	if b.limits.MaxListing > 0 && len(files) > b.limits.MaxListing {
		files = files[:b.limits.MaxListing]
	}
	return files
}

// readScript loads the optional main script, bounded to
// MaxScriptBytes. Absent or unreadable script means no section.
func (b *Builder) readScript(path string) *Script {
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil || info.IsDir() {
		return nil
	}

	limit := b.limits.MaxScriptBytes
	if limit <= 0 {
		limit = DefaultMaxScriptBytes
	}
	content, err := io.ReadAll(io.LimitReader(file, limit))
	if err != nil {
		return nil
	}
	return &Script{
		Path:      path,
		Content:   string(content),
		Truncated: info.Size() > limit,
	}
}
