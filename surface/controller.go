// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package surface

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/overlook-foundation/overlook/interaction"
	"github.com/overlook-foundation/overlook/journal"
	"github.com/overlook-foundation/overlook/lib/codec"
	"github.com/overlook-foundation/overlook/lib/fswatch"
	"github.com/overlook-foundation/overlook/lib/pathsafe"
	"github.com/overlook-foundation/overlook/runstate"
	"github.com/overlook-foundation/overlook/snapshot"
	"github.com/overlook-foundation/overlook/tailfile"
)

// Sink is the outbound half of a run surface: wherever snapshot and
// file messages are delivered. A socket connection is a sink; tests
// substitute a recording sink.
type Sink interface {
	// Send delivers one outbound message. Payload is CBOR-encoded by
	// the transport.
	Send(messageType byte, payload any) error

	// Reveal brings the surface to the operator's attention. Remote
	// viewers decide for themselves what that means; it may be a no-op.
	Reveal()
}

// Host performs operator-desktop actions on behalf of a surface:
// opening files in an editor, revealing paths in a file manager,
// placing text on the clipboard. A nil Host rejects all three.
type Host interface {
	OpenInEditor(path string) error
	RevealInExplorer(path string) error
	CopyText(text string) error
}

// RunSource resolves run identifiers to runs. The monitor daemon backs
// it with its discovery index.
type RunSource interface {
	// Get returns the run with the given identifier, if known.
	Get(runID string) (runstate.Run, bool)

	// List returns all known runs, most recently updated first.
	List() []runstate.Run
}

// Options configures a Controller.
type Options struct {
	// Builder assembles snapshots. Required.
	Builder *snapshot.Builder

	// Runs resolves run identifiers for ready and listRuns messages.
	// Required.
	Runs RunSource

	// Forwarder relays interactive input to runs. Optional; when nil
	// all input forwarding reports no attached process.
	Forwarder interaction.Forwarder

	// Host performs desktop actions. Optional; when nil openInEditor,
	// revealInExplorer, and copyText report unsupported.
	Host Host

	// MaxTailBytes bounds live tail sessions and single-shot file
	// loads. Zero selects tailfile.DefaultMaxBytes.
	MaxTailBytes int64

	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Controller owns the registry of run surfaces and mediates every
// message between viewers and the monitor. One surface exists per run
// identifier; opening an already-registered run reuses it.
type Controller struct {
	builder      *snapshot.Builder
	runs         RunSource
	forwarder    interaction.Forwarder
	host         Host
	maxTailBytes int64
	logger       *slog.Logger

	mu       sync.Mutex
	surfaces map[string]*Surface
}

// Surface is the monitor-side state of one run surface: the journal
// tail position, the accumulated journal log, and the live text tail
// session, if any. All mutation happens under mu, so overlapping
// refresh triggers serialize per surface.
type Surface struct {
	controller *Controller

	mu          sync.Mutex
	run         runstate.Run
	sink        Sink
	tailer      *journal.Tailer
	log         journal.Log
	tailSession *tailfile.Session
	cancelWatch func()
	disposed    bool
}

// NewController creates a controller with an empty surface registry.
func NewController(options Options) *Controller {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxTailBytes := options.MaxTailBytes
	if maxTailBytes <= 0 {
		maxTailBytes = tailfile.DefaultMaxBytes
	}
	return &Controller{
		builder:      options.Builder,
		runs:         options.Runs,
		forwarder:    options.Forwarder,
		host:         options.Host,
		maxTailBytes: maxTailBytes,
		logger:       logger,
		surfaces:     make(map[string]*Surface),
	}
}

// Open registers a surface for run delivering to sink. If a surface
// for the run already exists it is revealed, rebound to sink, and
// refreshed; otherwise a new surface is created and refreshed. Either
// way the sink receives a snapshot before Open returns.
func (c *Controller) Open(run runstate.Run, sink Sink) *Surface {
	c.mu.Lock()
	surface, exists := c.surfaces[run.ID]
	if !exists {
		surface = &Surface{
			controller: c,
			run:        run,
			sink:       sink,
			tailer:     journal.NewTailer(run.Paths.JournalFile),
		}
		if c.forwarder != nil {
			runID := run.ID
			surface.cancelWatch = c.forwarder.OnChange(func(changed string) {
				if changed == runID {
					c.Refresh(runID)
				}
			})
		}
		c.surfaces[run.ID] = surface
	}
	c.mu.Unlock()

	if exists {
		surface.mu.Lock()
		surface.sink = sink
		surface.mu.Unlock()
		sink.Reveal()
	}
	surface.refresh()
	return surface
}

// Dispose removes the surface for runID, releasing its tail session
// and cancelling its interaction subscription. Disposing an unknown
// run is a no-op.
func (c *Controller) Dispose(runID string) {
	c.mu.Lock()
	surface, ok := c.surfaces[runID]
	if ok {
		delete(c.surfaces, runID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	surface.dispose()
}

// DisposeSink removes every surface bound to sink. Called when a
// viewer connection closes.
func (c *Controller) DisposeSink(sink Sink) {
	c.mu.Lock()
	var disposed []*Surface
	for runID, surface := range c.surfaces {
		surface.mu.Lock()
		bound := surface.sink == sink
		surface.mu.Unlock()
		if bound {
			delete(c.surfaces, runID)
			disposed = append(disposed, surface)
		}
	}
	c.mu.Unlock()
	for _, surface := range disposed {
		surface.dispose()
	}
}

// Refresh rebuilds and delivers the snapshot for runID. Unknown run
// identifiers are ignored: a filesystem batch may outlive the surface
// it was coalesced for.
func (c *Controller) Refresh(runID string) {
	c.mu.Lock()
	surface := c.surfaces[runID]
	c.mu.Unlock()
	if surface == nil {
		return
	}
	surface.refresh()
}

// HandleBatch refreshes every surface named by a debounced filesystem
// change batch.
func (c *Controller) HandleBatch(batch fswatch.Batch) {
	for _, runID := range batch.RunIDs {
		c.Refresh(runID)
	}
}

func (s *Surface) dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.disposed = true
	s.tailSession = nil
	if s.cancelWatch != nil {
		s.cancelWatch()
		s.cancelWatch = nil
	}
}

// refresh rebuilds the snapshot from disk, delivers it, and polls the
// live tail session if one is bound. Failures in the tail poll are
// delivered as textFileError; the snapshot itself isolates its own
// section failures.
func (s *Surface) refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.run = runstate.Load(s.run.Paths.Root)
	snap, log := s.controller.builder.Build(s.run, s.tailer, s.log)
	s.log = log
	s.send(MessageTypeSnapshot, SnapshotMessage{Snapshot: snap})

	if s.tailSession == nil {
		return
	}
	update, err := s.tailSession.Poll()
	if err != nil {
		s.send(MessageTypeTextFileError, TextFileError{
			FsPath:  s.tailSession.Bound(),
			Message: err.Error(),
		})
		return
	}
	if update != nil {
		s.send(MessageTypeTextFile, TextFile{
			FsPath:    update.Path,
			Content:   update.Content,
			Truncated: update.Truncated,
			Size:      update.Size,
		})
	}
}

// send delivers one message to the bound sink, logging delivery
// failures. Callers hold s.mu.
func (s *Surface) send(messageType byte, payload any) {
	if err := s.sink.Send(messageType, payload); err != nil {
		s.controller.logger.Warn("surface delivery failed",
			"run", s.run.ID,
			"message_type", messageType,
			"error", err)
	}
}

// sendError delivers a request-scoped error to the sink.
func (s *Surface) sendError(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.send(MessageTypeError, ErrorMessage{Message: fmt.Sprintf(format, args...)})
}

// guard checks that fsPath resolves inside the surface's run root.
// Callers must not touch the path when guard returns false.
func (s *Surface) guard(fsPath string) bool {
	s.mu.Lock()
	root := s.run.Paths.Root
	s.mu.Unlock()
	return pathsafe.IsInsideRoot(root, fsPath)
}

// loadTextFile answers a loadTextFile request. With tail set it binds
// the surface's live tail session to the path, replacing any previous
// binding; otherwise it performs a single bounded read.
func (s *Surface) loadTextFile(fsPath string, tail bool) {
	if !s.guard(fsPath) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.disposed {
			return
		}
		s.send(MessageTypeTextFileError, TextFileError{
			FsPath:  fsPath,
			Message: fmt.Sprintf("path %q is outside run %q", fsPath, s.run.ID),
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}

	if tail {
		if s.tailSession == nil {
			s.tailSession = tailfile.NewSession(s.controller.maxTailBytes)
		}
		update, err := s.tailSession.Start(fsPath)
		if err != nil {
			s.send(MessageTypeTextFileError, TextFileError{FsPath: fsPath, Message: err.Error()})
			return
		}
		s.send(MessageTypeTextFile, TextFile{
			FsPath:    update.Path,
			Content:   update.Content,
			Truncated: update.Truncated,
			Size:      update.Size,
		})
		return
	}

	content, truncated, size, err := readBounded(fsPath, s.controller.maxTailBytes)
	if err != nil {
		s.send(MessageTypeTextFileError, TextFileError{FsPath: fsPath, Message: err.Error()})
		return
	}
	s.send(MessageTypeTextFile, TextFile{
		FsPath:    fsPath,
		Content:   content,
		Truncated: truncated,
		Size:      size,
	})
}

// readBounded reads up to maxBytes from the head of the file at path.
func readBounded(path string, maxBytes int64) (content string, truncated bool, size int64, err error) {
	file, err := os.Open(path)
	if err != nil {
		return "", false, 0, err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return "", false, 0, err
	}
	size = info.Size()
	data, err := io.ReadAll(io.LimitReader(file, maxBytes))
	if err != nil {
		return "", false, 0, err
	}
	return string(data), size > maxBytes, size, nil
}

// HandleMessage decodes and dispatches one inbound message arriving on
// sink. Unknown message types and malformed payloads are answered with
// an error message on the sink rather than failing the connection.
func (c *Controller) HandleMessage(sink Sink, messageType byte, payload []byte) {
	switch messageType {
	case MessageTypeReady:
		var message Ready
		if !c.decode(sink, payload, &message) {
			return
		}
		run, ok := c.runs.Get(message.RunID)
		if !ok {
			c.replyError(sink, "unknown run %q", message.RunID)
			return
		}
		c.Open(run, sink)

	case MessageTypeRefresh:
		var message Refresh
		if !c.decode(sink, payload, &message) {
			return
		}
		c.Refresh(message.RunID)

	case MessageTypeOpenInEditor:
		var message OpenInEditor
		if !c.decode(sink, payload, &message) {
			return
		}
		c.hostAction(sink, message.RunID, message.FsPath, "open in editor", func(host Host) error {
			return host.OpenInEditor(message.FsPath)
		})

	case MessageTypeRevealInExplorer:
		var message RevealInExplorer
		if !c.decode(sink, payload, &message) {
			return
		}
		c.hostAction(sink, message.RunID, message.FsPath, "reveal in explorer", func(host Host) error {
			return host.RevealInExplorer(message.FsPath)
		})

	case MessageTypeLoadTextFile:
		var message LoadTextFile
		if !c.decode(sink, payload, &message) {
			return
		}
		surface := c.lookup(message.RunID)
		if surface == nil {
			c.replyError(sink, "no surface open for run %q", message.RunID)
			return
		}
		surface.loadTextFile(message.FsPath, message.Tail)

	case MessageTypeCopyText:
		var message CopyText
		if !c.decode(sink, payload, &message) {
			return
		}
		if c.host == nil {
			c.replyError(sink, "copy to clipboard is not supported by this monitor")
			return
		}
		if err := c.host.CopyText(message.Text); err != nil {
			c.replyError(sink, "copy to clipboard: %v", err)
		}

	case MessageTypeSendUserInput:
		var message SendUserInput
		if !c.decode(sink, payload, &message) {
			return
		}
		c.forwardInput(sink, message.RunID, func(forwarder interaction.Forwarder) bool {
			return forwarder.SendInput(message.RunID, message.Text)
		})

	case MessageTypeSendEnter:
		var message SendEnter
		if !c.decode(sink, payload, &message) {
			return
		}
		c.forwardInput(sink, message.RunID, func(forwarder interaction.Forwarder) bool {
			return forwarder.SendEnter(message.RunID)
		})

	case MessageTypeSendEsc:
		var message SendEsc
		if !c.decode(sink, payload, &message) {
			return
		}
		c.forwardInput(sink, message.RunID, func(forwarder interaction.Forwarder) bool {
			return forwarder.SendEsc(message.RunID)
		})

	case MessageTypeListRuns:
		runs := c.runs.List()
		list := RunList{Runs: make([]RunSummary, 0, len(runs))}
		for _, run := range runs {
			list.Runs = append(list.Runs, RunSummary{
				RunID:     run.ID,
				Root:      run.Paths.Root,
				Status:    string(run.Status),
				UpdatedAt: run.UpdatedAt.Unix(),
			})
		}
		if err := sink.Send(MessageTypeRunList, list); err != nil {
			c.logger.Warn("run list delivery failed", "error", err)
		}

	default:
		c.replyError(sink, "unknown message type 0x%02x", messageType)
	}
}

// hostAction runs a guarded desktop action for a path inside a run
// root. Guard failures and host failures both answer with an error
// message; nothing touches the path when the guard rejects it.
func (c *Controller) hostAction(sink Sink, runID, fsPath, action string, invoke func(Host) error) {
	surface := c.lookup(runID)
	if surface == nil {
		c.replyError(sink, "no surface open for run %q", runID)
		return
	}
	if !surface.guard(fsPath) {
		surface.sendError("path %q is outside run %q", fsPath, runID)
		return
	}
	if c.host == nil {
		surface.sendError("%s is not supported by this monitor", action)
		return
	}
	if err := invoke(c.host); err != nil {
		surface.sendError("%s %q: %v", action, fsPath, err)
	}
}

// forwardInput relays an input action through the forwarder, reporting
// an absent or unreachable interactive process as an ordinary error
// message.
func (c *Controller) forwardInput(sink Sink, runID string, invoke func(interaction.Forwarder) bool) {
	if c.forwarder == nil || !invoke(c.forwarder) {
		c.replyError(sink, "run %q has no interactive process attached", runID)
	}
}

func (c *Controller) lookup(runID string) *Surface {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.surfaces[runID]
}

func (c *Controller) decode(sink Sink, payload []byte, message any) bool {
	if err := codec.Unmarshal(payload, message); err != nil {
		c.replyError(sink, "malformed message payload: %v", err)
		return false
	}
	return true
}

func (c *Controller) replyError(sink Sink, format string, args ...any) {
	err := sink.Send(MessageTypeError, ErrorMessage{Message: fmt.Sprintf(format, args...)})
	if err != nil {
		c.logger.Warn("error delivery failed", "error", err)
	}
}
