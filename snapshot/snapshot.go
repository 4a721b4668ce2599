// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"time"

	"github.com/overlook-foundation/overlook/interaction"
	"github.com/overlook-foundation/overlook/journal"
	"github.com/overlook-foundation/overlook/runstate"
)

// Default bounds for snapshot sections.
const (
	// DefaultMaxJournalEntries caps the retained journal history per
	// run. 2000 entries keeps refreshes and surface frames small on
	// runs that journal for days; older entries stay in the file.
	DefaultMaxJournalEntries = 2000

	// DefaultMaxListing caps each directory listing. Beyond the cap
	// items are omitted without error — a sampling policy, not a
	// failure.
	DefaultMaxListing = 200

	// DefaultMaxScriptBytes caps the served main-script content.
	DefaultMaxScriptBytes = 512 * 1024
)

// Limits bounds the size of every snapshot section.
type Limits struct {
	MaxJournalEntries int
	MaxListing        int
	MaxScriptBytes    int64
}

// DefaultLimits returns the standard bounds.
func DefaultLimits() Limits {
	return Limits{
		MaxJournalEntries: DefaultMaxJournalEntries,
		MaxListing:        DefaultMaxListing,
		MaxScriptBytes:    DefaultMaxScriptBytes,
	}
}

// StateSection is the engine state file's contribution. State is
// empty (never nil) when the file could not be read; Issues says why.
type StateSection struct {
	State  map[string]any   `json:"state" cbor:"state"`
	Issues []runstate.Issue `json:"issues,omitempty" cbor:"issues,omitempty"`
}

// JournalSection is the accumulated journal view.
type JournalSection struct {
	Entries []journal.Entry      `json:"entries" cbor:"entries"`
	Errors  []journal.ParseError `json:"errors,omitempty" cbor:"errors,omitempty"`
}

// FileInfo is one entry of a bounded directory listing. Name is the
// path relative to the listed directory.
type FileInfo struct {
	Name    string    `json:"name" cbor:"name"`
	Path    string    `json:"path" cbor:"path"`
	Size    int64     `json:"size" cbor:"size"`
	ModTime time.Time `json:"modTime" cbor:"mod_time"`
}

// Script is the bounded content of the optional main script.
type Script struct {
	Path      string `json:"path" cbor:"path"`
	Content   string `json:"content" cbor:"content"`
	Truncated bool   `json:"truncated" cbor:"truncated"`
}

// Snapshot is one consistent, bounded aggregate view of a run.
type Snapshot struct {
	Run           runstate.Run       `json:"run" cbor:"run"`
	State         StateSection       `json:"state" cbor:"state"`
	Journal       JournalSection     `json:"journal" cbor:"journal"`
	WorkSummaries []FileInfo         `json:"workSummaries,omitempty" cbor:"work_summaries,omitempty"`
	Prompts       []FileInfo         `json:"prompts,omitempty" cbor:"prompts,omitempty"`
	Artifacts     []FileInfo         `json:"artifacts,omitempty" cbor:"artifacts,omitempty"`
	MainScript    *Script            `json:"mainScript,omitempty" cbor:"main_script,omitempty"`
	AwaitingInput interaction.Status `json:"awaitingInput" cbor:"awaiting_input"`
	GeneratedAt   time.Time          `json:"generatedAt" cbor:"generated_at"`
}
