// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

// Package runui implements the terminal UI for browsing live runs:
// a run list pane beside a detail pane showing the run's snapshot,
// with live journal updates, tailed files, and input forwarding to
// the run's interactive process.
//
// The package is organized by concern:
//
//   - model.go: the bubbletea model, update loop, and layout
//   - detail.go: snapshot rendering for the detail viewport
//   - markdown.go: terminal markdown rendering for work summaries
//   - theme.go: color palette
//   - keys.go: key bindings
//
// The model is fed by messages decoded from the monitor connection;
// it never touches the filesystem itself. Everything it shows came
// through the surface protocol.
package runui
