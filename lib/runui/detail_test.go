// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package runui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/overlook-foundation/overlook/interaction"
	"github.com/overlook-foundation/overlook/journal"
	"github.com/overlook-foundation/overlook/runstate"
	"github.com/overlook-foundation/overlook/snapshot"
)

func TestRenderDetailBasicSections(t *testing.T) {
	t.Parallel()
	snap := snapshot.Snapshot{
		Run: runstate.Run{
			ID:        "run-1",
			Status:    runstate.StatusRunning,
			CreatedAt: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
			UpdatedAt: time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC),
		},
		Journal: snapshot.JournalSection{
			Entries: []journal.Entry{
				{"type": "step", "message": "resolving dependencies"},
				{"custom": "shape"},
			},
		},
		WorkSummaries: []snapshot.FileInfo{
			{Name: "day-1.md", Size: 2048, ModTime: time.Date(2026, 8, 19, 8, 0, 0, 0, time.UTC)},
		},
	}

	rendered := ansi.Strip(renderDetail(snap, nil, DefaultTheme, 100))

	for _, want := range []string{
		"run-1",
		"running",
		"journal (2 entries)",
		"resolving dependencies",
		`{"custom":"shape"}`,
		"work summaries (1)",
		"day-1.md",
	} {
		if !strings.Contains(rendered, want) {
			t.Errorf("detail missing %q", want)
		}
	}
}

func TestRenderDetailAwaitingBanner(t *testing.T) {
	t.Parallel()
	snap := snapshot.Snapshot{
		Run: runstate.Run{ID: "run-1", Status: runstate.StatusPaused},
		AwaitingInput: interaction.Status{
			Awaiting: true,
			Source:   "confirm-tool",
			Prompt:   "overwrite output?",
		},
	}

	rendered := ansi.Strip(renderDetail(snap, nil, DefaultTheme, 100))
	if !strings.Contains(rendered, "awaiting input (confirm-tool): overwrite output?") {
		t.Errorf("banner missing, rendered:\n%s", rendered)
	}
}

func TestRenderDetailIssues(t *testing.T) {
	t.Parallel()
	snap := snapshot.Snapshot{
		Run: runstate.Run{ID: "run-1", Status: runstate.StatusFailed},
		State: snapshot.StateSection{
			State:  map[string]any{},
			Issues: []runstate.Issue{{Message: "state.json: unexpected end of input"}},
		},
		Journal: snapshot.JournalSection{
			Errors: []journal.ParseError{{Line: 3, Message: "line 3: invalid character 'b'"}},
		},
	}

	rendered := ansi.Strip(renderDetail(snap, nil, DefaultTheme, 100))
	if !strings.Contains(rendered, "state: state.json: unexpected end of input") {
		t.Error("state issue not rendered")
	}
	if !strings.Contains(rendered, "journal: line 3") {
		t.Error("journal parse error not rendered")
	}
}

func TestRenderDetailFileView(t *testing.T) {
	t.Parallel()
	snap := snapshot.Snapshot{Run: runstate.Run{ID: "run-1", Status: runstate.StatusRunning}}

	t.Run("tail view stays plain", func(t *testing.T) {
		t.Parallel()
		file := &fileView{
			path:      "/runs/run-1/artifacts/build.log",
			content:   "step 1 ok\nstep 2 ok\n",
			truncated: true,
			tailing:   true,
		}
		rendered := ansi.Strip(renderDetail(snap, file, DefaultTheme, 100))
		if !strings.Contains(rendered, "build.log (tailing)") {
			t.Error("tail label missing")
		}
		if !strings.Contains(rendered, "earlier content truncated") {
			t.Error("truncation notice missing")
		}
		if !strings.Contains(rendered, "step 2 ok") {
			t.Error("tail content missing")
		}
	})

	t.Run("load failure keeps header", func(t *testing.T) {
		t.Parallel()
		file := &fileView{
			path: "/runs/run-1/artifacts/gone.txt",
			err:  "open /runs/run-1/artifacts/gone.txt: no such file",
		}
		rendered := ansi.Strip(renderDetail(snap, file, DefaultTheme, 100))
		if !strings.Contains(rendered, "gone.txt") || !strings.Contains(rendered, "no such file") {
			t.Errorf("error view incomplete:\n%s", rendered)
		}
	})

	t.Run("markdown file is rendered", func(t *testing.T) {
		t.Parallel()
		file := &fileView{
			path:    "/runs/run-1/work-summaries/day-1.md",
			content: "# Progress\n\nShipped the parser.\n",
		}
		rendered := ansi.Strip(renderDetail(snap, file, DefaultTheme, 100))
		if !strings.Contains(rendered, "# Progress") {
			t.Error("markdown heading missing")
		}
		if !strings.Contains(rendered, "Shipped the parser.") {
			t.Error("markdown body missing")
		}
	})
}

func TestFormatJournalEntry(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		entry map[string]any
		want  string
	}{
		{
			name:  "timestamp type and message",
			entry: map[string]any{"ts": "2026-08-20T09:30:00Z", "type": "tool", "message": "ran tests"},
			want:  "2026-08-20T09:30:00Z  tool  ran tests",
		},
		{
			name:  "message only",
			entry: map[string]any{"message": "plain note"},
			want:  "plain note",
		},
		{
			name:  "unknown shape falls back to JSON",
			entry: map[string]any{"weird": true},
			want:  `{"weird":true}`,
		},
	}
	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			if got := formatJournalEntry(testCase.entry); got != testCase.want {
				t.Errorf("formatJournalEntry() = %q, want %q", got, testCase.want)
			}
		})
	}
}

func TestFormatSize(t *testing.T) {
	t.Parallel()
	cases := []struct {
		size int64
		want string
	}{
		{512, "512B"},
		{2048, "2.0K"},
		{3 * 1024 * 1024, "3.0M"},
	}
	for _, testCase := range cases {
		if got := formatSize(testCase.size); got != testCase.want {
			t.Errorf("formatSize(%d) = %q, want %q", testCase.size, got, testCase.want)
		}
	}
}
