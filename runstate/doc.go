// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

// Package runstate models the on-disk layout of a run and reads the
// engine-written state file.
//
// A run is one externally-orchestrated, journaled process. The engine
// owns every file under the run root; this package only derives the
// standard paths, reads state.json tolerantly (missing, unreadable,
// or malformed state degrades to an empty state plus recorded
// issues), and discovers run roots under a parent directory.
package runstate
