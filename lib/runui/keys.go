// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package runui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the run viewer TUI.
type KeyMap struct {
	// Navigation (context-sensitive: run list movement or detail
	// scrolling depending on current focus).
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding

	// Focus switching between run list and detail pane.
	FocusToggle key.Binding

	// Run actions.
	Refresh    key.Binding
	TailScript key.Binding // Open the run's main script in the detail pane.

	// Input forwarding.
	InputActivate key.Binding // Start composing a line for the run.
	ForwardEnter  key.Binding // Send a bare Enter to the run.
	ForwardEsc    key.Binding // Send an Escape to the run.

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set. Vim-style navigation
// (j/k) alongside standard arrow keys and page up/down.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup", "ctrl+u"),
		key.WithHelp("pgup", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown", "ctrl+d"),
		key.WithHelp("pgdn", "page down"),
	),
	Home: key.NewBinding(
		key.WithKeys("home", "g"),
		key.WithHelp("g", "top"),
	),
	End: key.NewBinding(
		key.WithKeys("end", "G"),
		key.WithHelp("G", "bottom"),
	),
	FocusToggle: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch pane"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	TailScript: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "main script"),
	),
	InputActivate: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "send input"),
	),
	ForwardEnter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "forward enter"),
	),
	ForwardEsc: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "forward esc"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
