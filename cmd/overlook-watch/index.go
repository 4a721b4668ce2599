// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/overlook-foundation/overlook/lib/fswatch"
	"github.com/overlook-foundation/overlook/runstate"
)

// runIndex is the daemon's view of the runs directory. Rescan keeps
// it aligned with the filesystem and keeps the watcher's coverage in
// step: newly discovered runs gain inotify watches, vanished runs
// lose them.
type runIndex struct {
	parent  string
	watcher *fswatch.Watcher
	logger  *slog.Logger

	mu   sync.Mutex
	runs map[string]runstate.Run
}

func newRunIndex(parent string, watcher *fswatch.Watcher, logger *slog.Logger) *runIndex {
	return &runIndex{
		parent:  parent,
		watcher: watcher,
		logger:  logger,
		runs:    make(map[string]runstate.Run),
	}
}

// Rescan re-reads the runs directory. Watch registration failures for
// individual runs are logged and skipped; the run is still indexed so
// explicit refreshes keep working.
func (x *runIndex) Rescan() error {
	discovered, err := runstate.Discover(x.parent)
	if err != nil {
		return err
	}

	current := make(map[string]runstate.Run, len(discovered))
	for _, run := range discovered {
		current[run.ID] = run
	}

	x.mu.Lock()
	previous := x.runs
	x.runs = current
	x.mu.Unlock()

	for id, run := range current {
		if _, known := previous[id]; known {
			continue
		}
		x.logger.Info("run discovered", "run", id, "root", run.Paths.Root)
		if err := x.watcher.AddRun(id, run.Paths.Root); err != nil {
			x.logger.Warn("watching run failed", "run", id, "error", err)
		}
	}
	for id := range previous {
		if _, still := current[id]; still {
			continue
		}
		x.logger.Info("run removed", "run", id)
		x.watcher.RemoveRun(id)
	}
	return nil
}

// Get implements surface.RunSource.
func (x *runIndex) Get(runID string) (runstate.Run, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	run, ok := x.runs[runID]
	return run, ok
}

// List implements surface.RunSource, most recently updated first.
func (x *runIndex) List() []runstate.Run {
	x.mu.Lock()
	runs := make([]runstate.Run, 0, len(x.runs))
	for _, run := range x.runs {
		runs = append(runs, run)
	}
	x.mu.Unlock()

	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].UpdatedAt.Equal(runs[j].UpdatedAt) {
			return runs[i].UpdatedAt.After(runs[j].UpdatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
	return runs
}
