// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

// Package tailfile implements the bounded tail session used for live
// file previews.
//
// A Session binds to one file at a time and serves the most recent
// bytes of it, never more than the configured bound — the preview use
// case is "show current progress", not "show the beginning". Poll
// re-reads only when the file's size or mtime moved and reports an
// update only when the served content actually changed, so an idle
// file never produces redundant UI traffic.
//
// Rebinding to a new path silently discards the previous binding;
// that is the session's cancellation primitive.
package tailfile
