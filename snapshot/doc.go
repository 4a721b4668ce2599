// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapshot composes a run's observable on-disk state into one
// bounded aggregate view.
//
// A snapshot merges five independent sources: the engine state file,
// the journal tail, directory listings (artifacts, work summaries,
// prompts), the optional main script, and live awaiting-input status.
// Each section is computed in isolation — a missing or corrupt state
// file records issues while the journal and listings are still served
// (section-level failure isolation).
//
// Snapshots are idempotent full-state replacements, recomputed on
// every refresh and never persisted.
package snapshot
