// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package runui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/overlook-foundation/overlook/runstate"
	"github.com/overlook-foundation/overlook/snapshot"
	"github.com/overlook-foundation/overlook/surface"
)

// listPaneWidth is the fixed width of the run list pane. The detail
// pane takes the rest.
const listPaneWidth = 30

// Connection is the model's handle to the monitor. *surface.Client
// satisfies it; tests substitute a recording fake.
type Connection interface {
	Ready(runID string) error
	Refresh(runID string) error
	ListRuns() error
	LoadTextFile(runID, fsPath string, tail bool) error
	SendUserInput(runID, text string) error
	SendEnter(runID string) error
	SendEsc(runID string) error
}

// Focus identifies which pane receives navigation keys.
type Focus int

const (
	FocusRunList Focus = iota
	FocusDetail
)

// Messages decoded from the monitor connection. The read pump wraps
// surface.Client.Receive values with TranslateEvent and feeds them to
// the program.
type (
	// SnapshotMsg carries a pushed snapshot.
	SnapshotMsg struct{ Snapshot snapshot.Snapshot }

	// RunListMsg carries the monitor's run index.
	RunListMsg struct{ Runs []surface.RunSummary }

	// TextFileMsg carries loaded or tailed file content.
	TextFileMsg struct{ File surface.TextFile }

	// TextFileErrorMsg reports a failed file load.
	TextFileErrorMsg struct{ Error surface.TextFileError }

	// MonitorErrorMsg reports a request-scoped monitor error.
	MonitorErrorMsg struct{ Message string }

	// DisconnectedMsg reports that the monitor connection dropped.
	DisconnectedMsg struct{ Err error }
)

// TranslateEvent converts a value returned by surface.Client.Receive
// into the corresponding tea message.
func TranslateEvent(event any) tea.Msg {
	switch typed := event.(type) {
	case surface.SnapshotMessage:
		return SnapshotMsg{Snapshot: typed.Snapshot}
	case surface.RunList:
		return RunListMsg{Runs: typed.Runs}
	case surface.TextFile:
		return TextFileMsg{File: typed}
	case surface.TextFileError:
		return TextFileErrorMsg{Error: typed}
	case surface.ErrorMessage:
		return MonitorErrorMsg{Message: typed.Message}
	default:
		return MonitorErrorMsg{Message: fmt.Sprintf("unexpected monitor event %T", event)}
	}
}

// Model is the run viewer TUI state.
type Model struct {
	conn  Connection
	keys  KeyMap
	theme Theme

	width  int
	height int

	runs     []surface.RunSummary
	selected int
	opened   string // Run whose surface is currently open.

	snapshots map[string]snapshot.Snapshot
	file      *fileView

	focus    Focus
	viewport viewport.Model
	input    textinput.Model
	typing   bool

	status string
}

// NewModel creates the viewer model over an established monitor
// connection.
func NewModel(conn Connection) Model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "text to send"
	return Model{
		conn:      conn,
		keys:      DefaultKeyMap,
		theme:     DefaultTheme,
		snapshots: make(map[string]snapshot.Snapshot),
		viewport:  viewport.New(0, 0),
		input:     input,
		status:    "connecting",
	}
}

// Init implements tea.Model: request the run index.
func (m Model) Init() tea.Cmd {
	return m.request(func() error { return m.conn.ListRuns() })
}

// Update implements tea.Model.
func (m Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := message.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.viewport.Width = m.detailWidth()
		m.viewport.Height = m.contentHeight()
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(typed)

	case SnapshotMsg:
		m.snapshots[typed.Snapshot.Run.ID] = typed.Snapshot
		if typed.Snapshot.Run.ID == m.opened {
			atBottom := m.viewport.AtBottom()
			m.refreshViewport()
			if atBottom {
				m.viewport.GotoBottom()
			}
		}
		m.status = ""
		return m, nil

	case RunListMsg:
		m.runs = typed.Runs
		if m.selected >= len(m.runs) {
			m.selected = 0
		}
		m.status = ""
		if m.opened == "" && len(m.runs) > 0 {
			return m, m.openSelected()
		}
		return m, nil

	case TextFileMsg:
		m.file = &fileView{
			path:      typed.File.FsPath,
			content:   typed.File.Content,
			truncated: typed.File.Truncated,
			tailing:   m.file != nil && m.file.path == typed.File.FsPath && m.file.tailing,
		}
		m.refreshViewport()
		m.viewport.GotoBottom()
		return m, nil

	case TextFileErrorMsg:
		if m.file != nil && m.file.path == typed.Error.FsPath {
			m.file.err = typed.Error.Message
			m.refreshViewport()
		} else {
			m.status = typed.Error.Message
		}
		return m, nil

	case MonitorErrorMsg:
		m.status = typed.Message
		return m, nil

	case DisconnectedMsg:
		m.status = "monitor connection lost"
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) updateKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.typing {
		switch message.String() {
		case "esc":
			m.typing = false
			m.input.Blur()
			m.input.Reset()
			return m, nil
		case "enter":
			text := m.input.Value()
			m.typing = false
			m.input.Blur()
			m.input.Reset()
			runID := m.opened
			return m, m.request(func() error { return m.conn.SendUserInput(runID, text) })
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(message)
		return m, cmd
	}

	switch {
	case key.Matches(message, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(message, m.keys.FocusToggle):
		if m.focus == FocusRunList {
			m.focus = FocusDetail
		} else {
			m.focus = FocusRunList
		}
		return m, nil

	case key.Matches(message, m.keys.Up):
		if m.focus == FocusDetail {
			m.viewport.LineUp(1)
			return m, nil
		}
		if m.selected > 0 {
			m.selected--
			return m, m.openSelected()
		}
		return m, nil

	case key.Matches(message, m.keys.Down):
		if m.focus == FocusDetail {
			m.viewport.LineDown(1)
			return m, nil
		}
		if m.selected < len(m.runs)-1 {
			m.selected++
			return m, m.openSelected()
		}
		return m, nil

	case key.Matches(message, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(message, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(message, m.keys.Home):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(message, m.keys.End):
		m.viewport.GotoBottom()
		return m, nil

	case key.Matches(message, m.keys.Refresh):
		if m.opened == "" {
			return m, nil
		}
		runID := m.opened
		return m, m.request(func() error { return m.conn.Refresh(runID) })

	case key.Matches(message, m.keys.TailScript):
		return m.toggleScript()

	case key.Matches(message, m.keys.InputActivate):
		if m.opened == "" {
			return m, nil
		}
		m.typing = true
		m.input.Focus()
		return m, textinput.Blink

	case key.Matches(message, m.keys.ForwardEnter):
		if m.opened == "" {
			return m, nil
		}
		runID := m.opened
		return m, m.request(func() error { return m.conn.SendEnter(runID) })

	case key.Matches(message, m.keys.ForwardEsc):
		if m.opened == "" {
			return m, nil
		}
		runID := m.opened
		return m, m.request(func() error { return m.conn.SendEsc(runID) })
	}

	return m, nil
}

// openSelected opens the surface for the currently selected run. Any
// file view belongs to the previous run and is dropped.
func (m *Model) openSelected() tea.Cmd {
	if m.selected >= len(m.runs) {
		return nil
	}
	runID := m.runs[m.selected].RunID
	m.opened = runID
	m.file = nil
	m.refreshViewport()
	return m.request(func() error { return m.conn.Ready(runID) })
}

// toggleScript shows or hides the run's main script in the detail
// pane. The content is already in the snapshot; no monitor round trip.
func (m Model) toggleScript() (tea.Model, tea.Cmd) {
	snap, ok := m.snapshots[m.opened]
	if !ok || snap.MainScript == nil {
		m.status = "run has no main script"
		return m, nil
	}
	if m.file != nil && m.file.path == snap.MainScript.Path {
		m.file = nil
	} else {
		m.file = &fileView{
			path:      snap.MainScript.Path,
			content:   snap.MainScript.Content,
			truncated: snap.MainScript.Truncated,
		}
	}
	m.refreshViewport()
	return m, nil
}

// request wraps a connection call as a command; failures surface in
// the status bar.
func (m Model) request(call func() error) tea.Cmd {
	return func() tea.Msg {
		if err := call(); err != nil {
			return MonitorErrorMsg{Message: err.Error()}
		}
		return nil
	}
}

func (m *Model) refreshViewport() {
	snap, ok := m.snapshots[m.opened]
	if !ok {
		m.viewport.SetContent("loading…")
		return
	}
	m.viewport.SetContent(renderDetail(snap, m.file, m.theme, m.detailWidth()))
}

func (m Model) detailWidth() int {
	width := m.width - listPaneWidth - 1
	if width < 20 {
		width = 20
	}
	return width
}

func (m Model) contentHeight() int {
	height := m.height - 2
	if height < 1 {
		height = 1
	}
	return height
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return "loading…"
	}
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderRunList(),
		lipgloss.NewStyle().
			Foreground(m.theme.BorderColor).
			Render(strings.TrimRight(strings.Repeat("│\n", m.contentHeight()), "\n")),
		m.viewport.View(),
	)
	return panes + "\n" + m.renderFooter()
}

func (m Model) renderRunList() string {
	normal := lipgloss.NewStyle().Foreground(m.theme.NormalText)
	selected := lipgloss.NewStyle().
		Foreground(m.theme.SelectedForeground).
		Background(m.theme.SelectedBackground).
		Bold(true)
	faint := lipgloss.NewStyle().Foreground(m.theme.FaintText)

	lines := make([]string, 0, m.contentHeight())
	if len(m.runs) == 0 {
		lines = append(lines, faint.Render("no runs"))
	}
	for i, run := range m.runs {
		if len(lines) >= m.contentHeight() {
			break
		}
		dot := lipgloss.NewStyle().
			Foreground(m.theme.StatusColor(runstate.ParseStatus(run.Status))).
			Render("●")
		label := ansi.Truncate(run.RunID, listPaneWidth-3, "…")
		row := dot + " " + label
		if i == m.selected {
			row = selected.Render(ansi.Truncate(" "+run.RunID, listPaneWidth-1, "…"))
		} else {
			row = normal.Render(row)
		}
		lines = append(lines, row)
	}
	for len(lines) < m.contentHeight() {
		lines = append(lines, "")
	}

	pane := lipgloss.NewStyle().Width(listPaneWidth)
	return pane.Render(strings.Join(lines, "\n"))
}

func (m Model) renderFooter() string {
	if m.typing {
		return m.input.View()
	}
	help := lipgloss.NewStyle().Foreground(m.theme.HelpText)
	errorStyle := lipgloss.NewStyle().Foreground(m.theme.ErrorText)

	if m.status != "" {
		return errorStyle.Render(ansi.Truncate(m.status, m.width, "…"))
	}
	return help.Render("j/k navigate · tab switch pane · r refresh · s script · i input · enter/x forward · q quit")
}
