// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

// Package surface implements the run surface controller: one UI
// surface per observed run, a closed message protocol between the
// surface and the monitor, and the refresh orchestration that keeps
// snapshots live.
//
// The package is organized around the message flow:
//
//   - protocol.go: wire format (framed CBOR messages) and the closed
//     set of inbound and outbound message types
//   - controller.go: the surface registry, refresh triggers, and
//     inbound message mediation
//   - server.go: unix socket serving of surfaces to detached viewers
//
// Refresh triggers are explicit operator requests, debounced
// filesystem change batches, and interaction change events. Snapshots
// are idempotent full-state replacements, so overlapping refreshes
// resolve by last write wins at the message level.
//
// Every inbound message naming a filesystem path passes the path
// safety guard before any I/O; a failing guard produces an error
// message and touches nothing.
package surface
