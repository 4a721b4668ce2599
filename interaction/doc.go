// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

// Package interaction defines the contract for steering a run that is
// blocked on operator input.
//
// The orchestration engine owns the interactive process; the monitor
// only queries whether a run is awaiting input and forwards operator
// keystrokes. Every forwarding call returns a plain bool: false means
// "no interactive process is currently attached to this run", an
// ordinary, expected answer — never an error.
//
// Two implementations ship here: Broker, an in-process hub for
// embedded engines and tests, and SocketClient, which speaks CBOR to
// an engine's control socket.
package interaction
