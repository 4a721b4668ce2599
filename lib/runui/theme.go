// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package runui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/overlook-foundation/overlook/runstate"
)

// Theme defines the color palette for the run viewer. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Run status colors.
	StatusRunning   lipgloss.Color
	StatusPaused    lipgloss.Color
	StatusCompleted lipgloss.Color
	StatusFailed    lipgloss.Color
	StatusUnknown   lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// Awaiting-input banner.
	AwaitingForeground lipgloss.Color
	AwaitingBackground lipgloss.Color

	// Error text (parse errors, section issues, protocol errors).
	ErrorText lipgloss.Color

	// Markdown accents.
	HeadingForeground lipgloss.Color
	CodeForeground    lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText:         lipgloss.Color("252"),
	FaintText:          lipgloss.Color("243"),
	SelectedBackground: lipgloss.Color("24"),
	SelectedForeground: lipgloss.Color("231"),
	StatusRunning:      lipgloss.Color("40"),
	StatusPaused:       lipgloss.Color("220"),
	StatusCompleted:    lipgloss.Color("39"),
	StatusFailed:       lipgloss.Color("196"),
	StatusUnknown:      lipgloss.Color("243"),
	HeaderForeground:   lipgloss.Color("117"),
	BorderColor:        lipgloss.Color("238"),
	HelpText:           lipgloss.Color("243"),
	AwaitingForeground: lipgloss.Color("16"),
	AwaitingBackground: lipgloss.Color("220"),
	ErrorText:          lipgloss.Color("203"),
	HeadingForeground:  lipgloss.Color("117"),
	CodeForeground:     lipgloss.Color("150"),
}

// StatusColor returns the color for a run status.
func (theme Theme) StatusColor(status runstate.Status) lipgloss.Color {
	switch status {
	case runstate.StatusRunning:
		return theme.StatusRunning
	case runstate.StatusPaused:
		return theme.StatusPaused
	case runstate.StatusCompleted:
		return theme.StatusCompleted
	case runstate.StatusFailed:
		return theme.StatusFailed
	default:
		return theme.StatusUnknown
	}
}
