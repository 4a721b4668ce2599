// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package surface

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/overlook-foundation/overlook/interaction"
	"github.com/overlook-foundation/overlook/lib/clock"
	"github.com/overlook-foundation/overlook/lib/codec"
	"github.com/overlook-foundation/overlook/lib/fswatch"
	"github.com/overlook-foundation/overlook/lib/testutil"
	"github.com/overlook-foundation/overlook/runstate"
	"github.com/overlook-foundation/overlook/snapshot"

	"log/slog"
)

const receiveTimeout = 2 * time.Second

func TestOpenDeliversSnapshot(t *testing.T) {
	t.Parallel()
	fixture := newFixture(t, nil)
	run := fixture.createRun(t, "run-1", map[string]string{
		"state.json":    `{"status": "running"}`,
		"journal.jsonl": "{\"a\": 1}\n{\"b\": 2}\n",
	})
	sink := newMockSink()

	fixture.controller.Open(run, sink)

	message := testutil.RequireReceive(t, sink.messages, receiveTimeout)
	if message.messageType != MessageTypeSnapshot {
		t.Fatalf("message type = 0x%02x, want snapshot", message.messageType)
	}
	snap := message.payload.(SnapshotMessage).Snapshot
	if snap.Run.ID != "run-1" {
		t.Errorf("snapshot run ID = %q, want %q", snap.Run.ID, "run-1")
	}
	if snap.Run.Status != runstate.StatusRunning {
		t.Errorf("snapshot status = %q, want running", snap.Run.Status)
	}
	if len(snap.Journal.Entries) != 2 {
		t.Errorf("journal entries = %d, want 2", len(snap.Journal.Entries))
	}
}

func TestOpenReusesExistingSurface(t *testing.T) {
	t.Parallel()
	fixture := newFixture(t, nil)
	run := fixture.createRun(t, "run-1", nil)

	first := newMockSink()
	surface := fixture.controller.Open(run, first)
	testutil.RequireReceive(t, first.messages, receiveTimeout)

	second := newMockSink()
	reopened := fixture.controller.Open(run, second)
	if reopened != surface {
		t.Fatal("reopening a registered run created a new surface")
	}
	if second.revealCount() != 1 {
		t.Errorf("reveal count = %d, want 1", second.revealCount())
	}

	// The reopen rebinds delivery: the forced refresh lands on the new
	// sink, not the old one.
	message := testutil.RequireReceive(t, second.messages, receiveTimeout)
	if message.messageType != MessageTypeSnapshot {
		t.Fatalf("message type = 0x%02x, want snapshot", message.messageType)
	}
	testutil.RequireNoReceive(t, first.messages, 50*time.Millisecond)
}

func TestFilesystemBatchTriggersRefresh(t *testing.T) {
	t.Parallel()
	fixture := newFixture(t, nil)
	run := fixture.createRun(t, "run-1", map[string]string{
		"journal.jsonl": "{\"seq\": 1}\n",
	})
	sink := newMockSink()
	fixture.controller.Open(run, sink)
	testutil.RequireReceive(t, sink.messages, receiveTimeout)

	testutil.Append(t, run.Paths.JournalFile, "{\"seq\": 2}\n")
	fixture.controller.HandleBatch(fswatch.Batch{RunIDs: []string{"run-1"}})

	message := testutil.RequireReceive(t, sink.messages, receiveTimeout)
	snap := message.payload.(SnapshotMessage).Snapshot
	if len(snap.Journal.Entries) != 2 {
		t.Errorf("journal entries after batch = %d, want 2", len(snap.Journal.Entries))
	}
}

func TestBatchForUnknownRunIsIgnored(t *testing.T) {
	t.Parallel()
	fixture := newFixture(t, nil)
	fixture.controller.HandleBatch(fswatch.Batch{RunIDs: []string{"never-opened"}})
}

func TestInteractionChangeTriggersRefresh(t *testing.T) {
	t.Parallel()
	broker := interaction.NewBroker()
	fixture := newFixture(t, broker)
	run := fixture.createRun(t, "run-1", nil)
	sink := newMockSink()
	fixture.controller.Open(run, sink)
	testutil.RequireReceive(t, sink.messages, receiveTimeout)

	broker.SetAwaiting("run-1", interaction.Status{Awaiting: true, Prompt: "continue?"})

	message := testutil.RequireReceive(t, sink.messages, receiveTimeout)
	snap := message.payload.(SnapshotMessage).Snapshot
	if !snap.AwaitingInput.Awaiting {
		t.Error("snapshot does not reflect awaiting-input status")
	}
	if snap.AwaitingInput.Prompt != "continue?" {
		t.Errorf("prompt = %q, want %q", snap.AwaitingInput.Prompt, "continue?")
	}

	// A change for a different run must not refresh this surface.
	broker.SetAwaiting("run-2", interaction.Status{Awaiting: true})
	testutil.RequireNoReceive(t, sink.messages, 50*time.Millisecond)
}

func TestDisposeCancelsInteractionSubscription(t *testing.T) {
	t.Parallel()
	broker := interaction.NewBroker()
	fixture := newFixture(t, broker)
	run := fixture.createRun(t, "run-1", nil)
	sink := newMockSink()
	fixture.controller.Open(run, sink)
	testutil.RequireReceive(t, sink.messages, receiveTimeout)

	fixture.controller.Dispose("run-1")

	broker.SetAwaiting("run-1", interaction.Status{Awaiting: true})
	testutil.RequireNoReceive(t, sink.messages, 50*time.Millisecond)
}

func TestDisposeSinkRemovesAllBoundSurfaces(t *testing.T) {
	t.Parallel()
	fixture := newFixture(t, nil)
	runA := fixture.createRun(t, "run-a", nil)
	runB := fixture.createRun(t, "run-b", nil)
	sink := newMockSink()
	fixture.controller.Open(runA, sink)
	fixture.controller.Open(runB, sink)
	testutil.RequireReceive(t, sink.messages, receiveTimeout)
	testutil.RequireReceive(t, sink.messages, receiveTimeout)

	fixture.controller.DisposeSink(sink)

	fixture.controller.HandleBatch(fswatch.Batch{RunIDs: []string{"run-a", "run-b"}})
	testutil.RequireNoReceive(t, sink.messages, 50*time.Millisecond)
}

func TestReadyMessageOpensSurface(t *testing.T) {
	t.Parallel()
	fixture := newFixture(t, nil)
	fixture.createRun(t, "run-1", nil)
	sink := newMockSink()

	fixture.handle(t, sink, MessageTypeReady, Ready{RunID: "run-1"})

	message := testutil.RequireReceive(t, sink.messages, receiveTimeout)
	if message.messageType != MessageTypeSnapshot {
		t.Fatalf("message type = 0x%02x, want snapshot", message.messageType)
	}
}

func TestReadyForUnknownRun(t *testing.T) {
	t.Parallel()
	fixture := newFixture(t, nil)
	sink := newMockSink()

	fixture.handle(t, sink, MessageTypeReady, Ready{RunID: "missing"})

	message := testutil.RequireReceive(t, sink.messages, receiveTimeout)
	if message.messageType != MessageTypeError {
		t.Fatalf("message type = 0x%02x, want error", message.messageType)
	}
	if !strings.Contains(message.payload.(ErrorMessage).Message, "missing") {
		t.Errorf("error does not name the run: %q", message.payload.(ErrorMessage).Message)
	}
}

func TestLoadTextFileInsideRoot(t *testing.T) {
	t.Parallel()
	fixture := newFixture(t, nil)
	run := fixture.createRun(t, "run-1", map[string]string{
		"work-summaries/day-1.md": "# Day 1\n",
	})
	sink := newMockSink()
	fixture.controller.Open(run, sink)
	testutil.RequireReceive(t, sink.messages, receiveTimeout)

	path := filepath.Join(run.Paths.WorkSummariesDir, "day-1.md")
	fixture.handle(t, sink, MessageTypeLoadTextFile, LoadTextFile{RunID: "run-1", FsPath: path})

	message := testutil.RequireReceive(t, sink.messages, receiveTimeout)
	if message.messageType != MessageTypeTextFile {
		t.Fatalf("message type = 0x%02x, want textFile", message.messageType)
	}
	file := message.payload.(TextFile)
	if file.Content != "# Day 1\n" {
		t.Errorf("content = %q", file.Content)
	}
	if file.Truncated {
		t.Error("small file reported truncated")
	}
}

func TestLoadTextFileOutsideRootRejected(t *testing.T) {
	t.Parallel()
	fixture := newFixture(t, nil)
	run := fixture.createRun(t, "run-1", nil)
	sink := newMockSink()
	fixture.controller.Open(run, sink)
	testutil.RequireReceive(t, sink.messages, receiveTimeout)

	escape := filepath.Join(run.Paths.Root, "..", "other-run", "state.json")
	fixture.handle(t, sink, MessageTypeLoadTextFile, LoadTextFile{RunID: "run-1", FsPath: escape})

	message := testutil.RequireReceive(t, sink.messages, receiveTimeout)
	if message.messageType != MessageTypeTextFileError {
		t.Fatalf("message type = 0x%02x, want textFileError", message.messageType)
	}
	failure := message.payload.(TextFileError)
	if !strings.Contains(failure.Message, "outside") {
		t.Errorf("error message = %q, want path rejection", failure.Message)
	}
}

func TestLoadTextFileMissing(t *testing.T) {
	t.Parallel()
	fixture := newFixture(t, nil)
	run := fixture.createRun(t, "run-1", nil)
	sink := newMockSink()
	fixture.controller.Open(run, sink)
	testutil.RequireReceive(t, sink.messages, receiveTimeout)

	path := filepath.Join(run.Paths.ArtifactsDir, "absent.txt")
	fixture.handle(t, sink, MessageTypeLoadTextFile, LoadTextFile{RunID: "run-1", FsPath: path})

	message := testutil.RequireReceive(t, sink.messages, receiveTimeout)
	if message.messageType != MessageTypeTextFileError {
		t.Fatalf("message type = 0x%02x, want textFileError", message.messageType)
	}
}

func TestTailedFileUpdatesOnRefresh(t *testing.T) {
	t.Parallel()
	fixture := newFixture(t, nil)
	run := fixture.createRun(t, "run-1", map[string]string{
		"artifacts/build.log": "line 1\n",
	})
	sink := newMockSink()
	fixture.controller.Open(run, sink)
	testutil.RequireReceive(t, sink.messages, receiveTimeout)

	logPath := filepath.Join(run.Paths.ArtifactsDir, "build.log")
	fixture.handle(t, sink, MessageTypeLoadTextFile, LoadTextFile{RunID: "run-1", FsPath: logPath, Tail: true})

	initial := testutil.RequireReceive(t, sink.messages, receiveTimeout)
	if initial.messageType != MessageTypeTextFile {
		t.Fatalf("message type = 0x%02x, want textFile", initial.messageType)
	}
	if initial.payload.(TextFile).Content != "line 1\n" {
		t.Errorf("initial tail = %q", initial.payload.(TextFile).Content)
	}

	testutil.Append(t, logPath, "line 2\n")
	fixture.controller.Refresh("run-1")

	// Refresh delivers the snapshot first, then the tail update.
	first := testutil.RequireReceive(t, sink.messages, receiveTimeout)
	if first.messageType != MessageTypeSnapshot {
		t.Fatalf("message type = 0x%02x, want snapshot", first.messageType)
	}
	second := testutil.RequireReceive(t, sink.messages, receiveTimeout)
	if second.messageType != MessageTypeTextFile {
		t.Fatalf("message type = 0x%02x, want textFile", second.messageType)
	}
	if second.payload.(TextFile).Content != "line 1\nline 2\n" {
		t.Errorf("tail update = %q", second.payload.(TextFile).Content)
	}
}

func TestOpenInEditorGuardsPath(t *testing.T) {
	t.Parallel()
	host := &mockHost{}
	fixture := newFixtureWithHost(t, nil, host)
	run := fixture.createRun(t, "run-1", nil)
	sink := newMockSink()
	fixture.controller.Open(run, sink)
	testutil.RequireReceive(t, sink.messages, receiveTimeout)

	escape := filepath.Join(run.Paths.Root, "..", "secrets.txt")
	fixture.handle(t, sink, MessageTypeOpenInEditor, OpenInEditor{RunID: "run-1", FsPath: escape})

	message := testutil.RequireReceive(t, sink.messages, receiveTimeout)
	if message.messageType != MessageTypeError {
		t.Fatalf("message type = 0x%02x, want error", message.messageType)
	}
	if host.openedCount() != 0 {
		t.Error("host opened a path the guard rejected")
	}
}

func TestOpenInEditorInvokesHost(t *testing.T) {
	t.Parallel()
	host := &mockHost{}
	fixture := newFixtureWithHost(t, nil, host)
	run := fixture.createRun(t, "run-1", map[string]string{
		"artifacts/report.txt": "ok\n",
	})
	sink := newMockSink()
	fixture.controller.Open(run, sink)
	testutil.RequireReceive(t, sink.messages, receiveTimeout)

	path := filepath.Join(run.Paths.ArtifactsDir, "report.txt")
	fixture.handle(t, sink, MessageTypeOpenInEditor, OpenInEditor{RunID: "run-1", FsPath: path})

	testutil.RequireNoReceive(t, sink.messages, 50*time.Millisecond)
	if host.openedCount() != 1 {
		t.Errorf("host open count = %d, want 1", host.openedCount())
	}
}

func TestHostFailureReported(t *testing.T) {
	t.Parallel()
	host := &mockHost{err: errors.New("no display")}
	fixture := newFixtureWithHost(t, nil, host)
	run := fixture.createRun(t, "run-1", map[string]string{
		"artifacts/report.txt": "ok\n",
	})
	sink := newMockSink()
	fixture.controller.Open(run, sink)
	testutil.RequireReceive(t, sink.messages, receiveTimeout)

	path := filepath.Join(run.Paths.ArtifactsDir, "report.txt")
	fixture.handle(t, sink, MessageTypeRevealInExplorer, RevealInExplorer{RunID: "run-1", FsPath: path})

	message := testutil.RequireReceive(t, sink.messages, receiveTimeout)
	if message.messageType != MessageTypeError {
		t.Fatalf("message type = 0x%02x, want error", message.messageType)
	}
	if !strings.Contains(message.payload.(ErrorMessage).Message, "no display") {
		t.Errorf("error message = %q", message.payload.(ErrorMessage).Message)
	}
}

func TestSendUserInputWithoutAttachment(t *testing.T) {
	t.Parallel()
	broker := interaction.NewBroker()
	fixture := newFixture(t, broker)
	fixture.createRun(t, "run-1", nil)
	sink := newMockSink()

	fixture.handle(t, sink, MessageTypeSendUserInput, SendUserInput{RunID: "run-1", Text: "hello"})

	message := testutil.RequireReceive(t, sink.messages, receiveTimeout)
	if message.messageType != MessageTypeError {
		t.Fatalf("message type = 0x%02x, want error", message.messageType)
	}
	if !strings.Contains(message.payload.(ErrorMessage).Message, "no interactive process") {
		t.Errorf("error message = %q", message.payload.(ErrorMessage).Message)
	}
}

func TestSendUserInputDelivered(t *testing.T) {
	t.Parallel()
	broker := interaction.NewBroker()
	attachment := &mockAttachment{}
	broker.Attach("run-1", attachment)
	fixture := newFixture(t, broker)
	fixture.createRun(t, "run-1", nil)
	sink := newMockSink()

	fixture.handle(t, sink, MessageTypeSendUserInput, SendUserInput{RunID: "run-1", Text: "hello"})
	fixture.handle(t, sink, MessageTypeSendEnter, SendEnter{RunID: "run-1"})
	fixture.handle(t, sink, MessageTypeSendEsc, SendEsc{RunID: "run-1"})

	testutil.RequireNoReceive(t, sink.messages, 50*time.Millisecond)
	if got := attachment.inputs(); len(got) != 1 || got[0] != "hello" {
		t.Errorf("forwarded inputs = %v, want [hello]", got)
	}
	if attachment.enterCount() != 1 || attachment.escCount() != 1 {
		t.Errorf("enter = %d, esc = %d, want 1 and 1", attachment.enterCount(), attachment.escCount())
	}
}

func TestListRuns(t *testing.T) {
	t.Parallel()
	fixture := newFixture(t, nil)
	fixture.createRun(t, "run-a", map[string]string{"state.json": `{"status": "completed"}`})
	fixture.createRun(t, "run-b", map[string]string{"state.json": `{"status": "running"}`})
	sink := newMockSink()

	fixture.handle(t, sink, MessageTypeListRuns, ListRuns{})

	message := testutil.RequireReceive(t, sink.messages, receiveTimeout)
	if message.messageType != MessageTypeRunList {
		t.Fatalf("message type = 0x%02x, want runList", message.messageType)
	}
	list := message.payload.(RunList)
	if len(list.Runs) != 2 {
		t.Fatalf("run count = %d, want 2", len(list.Runs))
	}
}

func TestMalformedPayload(t *testing.T) {
	t.Parallel()
	fixture := newFixture(t, nil)
	sink := newMockSink()

	fixture.controller.HandleMessage(sink, MessageTypeReady, []byte{0xff, 0x00})

	message := testutil.RequireReceive(t, sink.messages, receiveTimeout)
	if message.messageType != MessageTypeError {
		t.Fatalf("message type = 0x%02x, want error", message.messageType)
	}
}

func TestUnknownMessageType(t *testing.T) {
	t.Parallel()
	fixture := newFixture(t, nil)
	sink := newMockSink()

	fixture.controller.HandleMessage(sink, 0x3f, nil)

	message := testutil.RequireReceive(t, sink.messages, receiveTimeout)
	if message.messageType != MessageTypeError {
		t.Fatalf("message type = 0x%02x, want error", message.messageType)
	}
}

// --- Fixture ---

type fixture struct {
	controller *Controller
	runsDir    string
	source     *mockRunSource
}

func newFixture(t *testing.T, forwarder interaction.Forwarder) *fixture {
	return newFixtureWithHost(t, forwarder, nil)
}

func newFixtureWithHost(t *testing.T, forwarder interaction.Forwarder, host Host) *fixture {
	t.Helper()
	source := &mockRunSource{runs: make(map[string]runstate.Run)}
	builder := snapshot.NewBuilder(snapshot.DefaultLimits(), forwarder, clock.Real(), slog.New(slog.DiscardHandler))
	controller := NewController(Options{
		Builder:   builder,
		Runs:      source,
		Forwarder: forwarder,
		Host:      host,
		Logger:    slog.New(slog.DiscardHandler),
	})
	return &fixture{
		controller: controller,
		runsDir:    t.TempDir(),
		source:     source,
	}
}

func (f *fixture) createRun(t *testing.T, id string, files map[string]string) runstate.Run {
	t.Helper()
	root := testutil.CreateRunRoot(t, f.runsDir, id, files)
	run := runstate.Load(root)
	f.source.add(run)
	return run
}

// handle encodes payload the way the wire does and dispatches it.
func (f *fixture) handle(t *testing.T, sink Sink, messageType byte, payload any) {
	t.Helper()
	encoded, err := codec.Marshal(payload)
	if err != nil {
		t.Fatalf("encoding payload: %v", err)
	}
	f.controller.HandleMessage(sink, messageType, encoded)
}

// --- Mock types ---

type sentMessage struct {
	messageType byte
	payload     any
}

type mockSink struct {
	mu       sync.Mutex
	messages chan sentMessage
	reveals  int
}

func newMockSink() *mockSink {
	return &mockSink{messages: make(chan sentMessage, 64)}
}

func (s *mockSink) Send(messageType byte, payload any) error {
	select {
	case s.messages <- sentMessage{messageType: messageType, payload: payload}:
		return nil
	default:
		return fmt.Errorf("mock sink full")
	}
}

func (s *mockSink) Reveal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reveals++
}

func (s *mockSink) revealCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reveals
}

type mockRunSource struct {
	mu   sync.Mutex
	runs map[string]runstate.Run
}

func (s *mockRunSource) add(run runstate.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
}

func (s *mockRunSource) Get(runID string) (runstate.Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	return run, ok
}

func (s *mockRunSource) List() []runstate.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	runs := make([]runstate.Run, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, run)
	}
	return runs
}

type mockHost struct {
	mu       sync.Mutex
	opened   []string
	revealed []string
	copied   []string
	err      error
}

func (h *mockHost) OpenInEditor(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.opened = append(h.opened, path)
	return nil
}

func (h *mockHost) RevealInExplorer(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.revealed = append(h.revealed, path)
	return nil
}

func (h *mockHost) CopyText(text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.copied = append(h.copied, text)
	return nil
}

func (h *mockHost) openedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.opened)
}

type mockAttachment struct {
	mu     sync.Mutex
	texts  []string
	enters int
	escs   int
}

func (a *mockAttachment) Input(text string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.texts = append(a.texts, text)
	return true
}

func (a *mockAttachment) Enter() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enters++
	return true
}

func (a *mockAttachment) Esc() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.escs++
	return true
}

func (a *mockAttachment) inputs() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.texts...)
}

func (a *mockAttachment) enterCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enters
}

func (a *mockAttachment) escCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.escs
}
