// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

// Package fswatch turns raw filesystem notifications under run roots
// into debounced per-run refresh batches.
//
// One inotify descriptor watches every registered run's directory
// tree. Events landing within the debounce window are collapsed into
// a single Batch naming the affected run IDs, so a refresh executes
// at most once per batch however noisy the engine's writes are — this
// is the monitor's backpressure mechanism against busy filesystems.
//
// Linux only, by way of inotify. The daemon runs where the engine
// writes its files.
package fswatch
