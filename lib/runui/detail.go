// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package runui

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/overlook-foundation/overlook/snapshot"
)

// journalDisplayLimit caps how many journal entries the detail pane
// renders. The snapshot may carry thousands; the pane shows the most
// recent slice and the viewport scrolls within that.
const journalDisplayLimit = 200

// fileView is a loaded or tailed file shown in the detail pane.
type fileView struct {
	path      string
	content   string
	truncated bool
	tailing   bool
	err       string
}

// renderDetail produces the detail pane content for one snapshot plus
// any open file view.
func renderDetail(snap snapshot.Snapshot, file *fileView, theme Theme, width int) string {
	var sections []string

	sections = append(sections, renderHeader(snap, theme, width))

	if snap.AwaitingInput.Awaiting {
		sections = append(sections, renderAwaitingBanner(snap, theme, width))
	}
	if issues := renderIssues(snap, theme); issues != "" {
		sections = append(sections, issues)
	}
	if file != nil {
		sections = append(sections, renderFileView(file, theme, width))
	}
	if journal := renderJournal(snap, theme, width); journal != "" {
		sections = append(sections, journal)
	}
	if listings := renderListings(snap, theme, width); listings != "" {
		sections = append(sections, listings)
	}

	return strings.Join(sections, "\n\n")
}

func renderHeader(snap snapshot.Snapshot, theme Theme, width int) string {
	header := lipgloss.NewStyle().Foreground(theme.HeaderForeground).Bold(true)
	faint := lipgloss.NewStyle().Foreground(theme.FaintText)
	badge := lipgloss.NewStyle().Foreground(theme.StatusColor(snap.Run.Status)).Bold(true)

	title := header.Render(snap.Run.ID) + "  " + badge.Render(string(snap.Run.Status))
	timestamps := faint.Render(fmt.Sprintf("created %s   updated %s",
		formatTime(snap.Run.CreatedAt), formatTime(snap.Run.UpdatedAt)))
	return title + "\n" + timestamps
}

func renderAwaitingBanner(snap snapshot.Snapshot, theme Theme, width int) string {
	banner := lipgloss.NewStyle().
		Foreground(theme.AwaitingForeground).
		Background(theme.AwaitingBackground).
		Bold(true).
		Padding(0, 1)
	label := "awaiting input"
	if snap.AwaitingInput.Source != "" {
		label += " (" + snap.AwaitingInput.Source + ")"
	}
	if snap.AwaitingInput.Prompt != "" {
		label += ": " + snap.AwaitingInput.Prompt
	}
	return banner.Render(ansi.Truncate(label, width-2, "…"))
}

// renderIssues collects state-file issues and journal parse errors.
// Both are degradations, not failures: the rest of the snapshot is
// still live.
func renderIssues(snap snapshot.Snapshot, theme Theme) string {
	errorStyle := lipgloss.NewStyle().Foreground(theme.ErrorText)
	var lines []string
	for _, issue := range snap.State.Issues {
		lines = append(lines, errorStyle.Render("state: "+issue.Message))
	}
	for _, parseError := range snap.Journal.Errors {
		lines = append(lines, errorStyle.Render("journal: "+parseError.Message))
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n")
}

func renderJournal(snap snapshot.Snapshot, theme Theme, width int) string {
	entries := snap.Journal.Entries
	if len(entries) == 0 {
		return ""
	}
	header := lipgloss.NewStyle().Foreground(theme.HeaderForeground)
	faint := lipgloss.NewStyle().Foreground(theme.FaintText)

	start := 0
	if len(entries) > journalDisplayLimit {
		start = len(entries) - journalDisplayLimit
	}
	lines := []string{header.Render(fmt.Sprintf("journal (%d entries)", len(entries)))}
	if start > 0 {
		lines = append(lines, faint.Render(fmt.Sprintf("… %d earlier entries", start)))
	}
	for _, entry := range entries[start:] {
		lines = append(lines, "  "+ansi.Truncate(formatJournalEntry(entry), width-2, "…"))
	}
	return strings.Join(lines, "\n")
}

// formatJournalEntry renders one journal entry on a single line. The
// journal schema is the engine's; common fields get first-class
// placement and everything else falls back to compact JSON.
func formatJournalEntry(entry map[string]any) string {
	var parts []string
	for _, key := range []string{"ts", "time", "timestamp"} {
		if value, ok := entry[key].(string); ok {
			parts = append(parts, value)
			break
		}
	}
	for _, key := range []string{"type", "event", "step"} {
		if value, ok := entry[key].(string); ok {
			parts = append(parts, value)
			break
		}
	}
	if message, ok := entry["message"].(string); ok {
		parts = append(parts, message)
	}
	if len(parts) > 0 {
		return strings.Join(parts, "  ")
	}
	compact, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf("%v", entry)
	}
	return string(compact)
}

func renderListings(snap snapshot.Snapshot, theme Theme, width int) string {
	var sections []string
	if section := renderListing("work summaries", snap.WorkSummaries, theme, width); section != "" {
		sections = append(sections, section)
	}
	if section := renderListing("prompts", snap.Prompts, theme, width); section != "" {
		sections = append(sections, section)
	}
	if section := renderListing("artifacts", snap.Artifacts, theme, width); section != "" {
		sections = append(sections, section)
	}
	return strings.Join(sections, "\n\n")
}

func renderListing(label string, files []snapshot.FileInfo, theme Theme, width int) string {
	if len(files) == 0 {
		return ""
	}
	header := lipgloss.NewStyle().Foreground(theme.HeaderForeground)
	faint := lipgloss.NewStyle().Foreground(theme.FaintText)

	lines := []string{header.Render(fmt.Sprintf("%s (%d)", label, len(files)))}
	for _, file := range files {
		meta := faint.Render(fmt.Sprintf("%8s  %s", formatSize(file.Size), formatTime(file.ModTime)))
		lines = append(lines, "  "+ansi.Truncate(file.Name, width-24, "…")+"  "+meta)
	}
	return strings.Join(lines, "\n")
}

// renderFileView shows the currently loaded file: markdown rendered
// for .md files, syntax highlighting for recognized sources, plain
// text otherwise. Tail views are always plain so the newest lines
// read exactly as written.
func renderFileView(file *fileView, theme Theme, width int) string {
	header := lipgloss.NewStyle().Foreground(theme.HeaderForeground)
	faint := lipgloss.NewStyle().Foreground(theme.FaintText)
	errorStyle := lipgloss.NewStyle().Foreground(theme.ErrorText)

	label := filepath.Base(file.path)
	if file.tailing {
		label += " (tailing)"
	}
	lines := []string{header.Render(label)}
	if file.err != "" {
		lines = append(lines, errorStyle.Render(file.err))
		return strings.Join(lines, "\n")
	}
	if file.truncated {
		lines = append(lines, faint.Render("… earlier content truncated"))
	}

	switch {
	case file.tailing:
		lines = append(lines, strings.TrimRight(file.content, "\n"))
	case strings.EqualFold(filepath.Ext(file.path), ".md"):
		lines = append(lines, renderTerminalMarkdown(file.content, theme, width))
	default:
		lines = append(lines, highlightSource(file.path, file.content, theme))
	}
	return strings.Join(lines, "\n")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.1fM", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1fK", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%dB", size)
	}
}
