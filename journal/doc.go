// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

// Package journal implements the incremental tailer for a run's
// append-only JSONL journal.
//
// A Tailer owns a private cursor per file: byte offset, pending
// partial line, and a content fingerprint of the file's head. Each
// Tail call reads only the bytes appended since the previous call and
// parses them line by line. A malformed line is recorded as a
// line-scoped ParseError and parsing continues — one bad line never
// hides the lines after it.
//
// Rotation is detected two ways: the file shrank, or the head
// fingerprint no longer matches (the file was replaced by one of
// equal or greater length). Either way the cursor resets to zero and
// the whole file is re-parsed as newly observed entries.
//
// Accumulation across refreshes is the caller's job via Log.Apply,
// which also enforces the retained-entry cap for long runs.
package journal
