// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package interaction

// Status reports whether a run is blocked waiting for operator input.
// Source names the component that is blocked (e.g. a tool name) and
// Prompt carries the question shown to the operator, both optional.
type Status struct {
	Awaiting bool   `json:"awaiting" cbor:"awaiting"`
	Source   string `json:"source,omitempty" cbor:"source,omitempty"`
	Prompt   string `json:"prompt,omitempty" cbor:"prompt,omitempty"`
}

// Forwarder is the monitor's view of an engine's interactive
// attachment. All methods are safe for concurrent use.
type Forwarder interface {
	// AwaitingInput returns the run's current awaiting-input status,
	// or nil when the forwarder knows nothing about the run. Pure
	// query, no side effect.
	AwaitingInput(runID string) *Status

	// SendInput forwards a line of operator text. Returns false when
	// no interactive process is attached to the run.
	SendInput(runID, text string) bool

	// SendEnter forwards a bare Enter keypress.
	SendEnter(runID string) bool

	// SendEsc forwards an Escape keypress.
	SendEsc(runID string) bool

	// OnChange registers a handler invoked with the run ID whenever a
	// run's awaiting-input status changes. The returned function
	// cancels the subscription; calling it more than once is safe.
	OnChange(handler func(runID string)) (cancel func())
}
