// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package fswatch

import (
	"encoding/binary"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

const (
	// DefaultDebounce is how long the watcher waits after the last
	// event before emitting a batch. 200ms coalesces an engine's
	// burst of writes (journal append + state rewrite + artifact
	// drop) into one refresh while staying visibly live.
	DefaultDebounce = 200 * time.Millisecond

	// pollIntervalMillis is the poll(2) timeout. Bounds both event
	// latency and how quickly Close is honored.
	pollIntervalMillis = 50

	// watchMask selects the events that can change a snapshot.
	watchMask = unix.IN_CREATE | unix.IN_MODIFY | unix.IN_CLOSE_WRITE |
		unix.IN_MOVED_TO | unix.IN_MOVED_FROM | unix.IN_DELETE

	// batchBufferSize is the Batches channel capacity. A slow
	// consumer keeps pending runs queued in the watcher rather than
	// blocking the event loop.
	batchBufferSize = 16
)

// Batch is one debounced set of runs whose trees changed.
type Batch struct {
	RunIDs []string
}

// watchedDir maps one inotify watch descriptor back to the run that
// owns that directory.
type watchedDir struct {
	runID string
	path  string
}

// Watcher owns one inotify descriptor covering every registered run
// root (and subdirectories, added recursively as they appear). Safe
// for concurrent use.
type Watcher struct {
	logger   *slog.Logger
	debounce time.Duration
	fd       int

	mu       sync.Mutex
	dirs     map[int]watchedDir  // watch descriptor -> directory
	runWDs   map[string][]int    // run ID -> watch descriptors
	pending  map[string]struct{} // run IDs awaiting batch emission
	deadline time.Time           // when the pending set flushes

	batches chan Batch
	stop    chan struct{}
	done    chan struct{}
}

// New creates a watcher and starts its event loop. debounce <= 0
// selects DefaultDebounce.
func New(debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify init: %w", err)
	}

	w := &Watcher{
		logger:   logger,
		debounce: debounce,
		fd:       fd,
		dirs:     make(map[int]watchedDir),
		runWDs:   make(map[string][]int),
		pending:  make(map[string]struct{}),
		batches:  make(chan Batch, batchBufferSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Batches delivers debounced change batches. Closed by Close.
func (w *Watcher) Batches() <-chan Batch { return w.batches }

// AddRun watches a run's directory tree. Subdirectories that exist
// now are watched immediately; ones created later are picked up from
// their creation events.
func (w *Watcher) AddRun(runID, root string) error {
	var firstErr error
	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() {
			return nil
		}
		if err := w.addDir(runID, path); err != nil && firstErr == nil {
			firstErr = err
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("walking run root: %w", walkErr)
	}
	if firstErr != nil {
		return firstErr
	}
	w.mu.Lock()
	watched := len(w.runWDs[runID])
	w.mu.Unlock()
	if watched == 0 {
		return fmt.Errorf("run root not watchable: %s", root)
	}
	return nil
}

// RemoveRun drops all watches for a run and forgets any pending
// change for it.
func (w *Watcher) RemoveRun(runID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, wd := range w.runWDs[runID] {
		unix.InotifyRmWatch(w.fd, uint32(wd))
		delete(w.dirs, wd)
	}
	delete(w.runWDs, runID)
	delete(w.pending, runID)
}

// Close stops the event loop, releases the inotify descriptor, and
// closes the Batches channel.
func (w *Watcher) Close() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
	<-w.done
}

// addDir registers one directory watch for a run.
func (w *Watcher) addDir(runID, path string) error {
	wd, err := unix.InotifyAddWatch(w.fd, path, watchMask)
	if err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}
	w.mu.Lock()
	w.dirs[wd] = watchedDir{runID: runID, path: path}
	w.runWDs[runID] = append(w.runWDs[runID], wd)
	w.mu.Unlock()
	return nil
}

// loop polls the inotify descriptor, folds events into the pending
// set, and flushes debounced batches.
func (w *Watcher) loop() {
	defer close(w.done)
	defer close(w.batches)
	defer unix.Close(w.fd)

	buffer := make([]byte, 64*1024)
	for {
		select {
		case <-w.stop:
			return
		default:
		}

		descriptors := []unix.PollFd{{Fd: int32(w.fd), Events: unix.POLLIN}}
		count, err := unix.Poll(descriptors, pollIntervalMillis)
		if err != nil && err != unix.EINTR {
			w.logger.Error("inotify poll failed, watcher stopping", "error", err)
			return
		}

		if count > 0 {
			n, err := unix.Read(w.fd, buffer)
			if err == nil && n > 0 {
				w.consume(buffer[:n])
			}
		}
		w.flushDue()
	}
}

// consume decodes raw inotify events, marks affected runs pending,
// and extends watches onto newly created subdirectories. Event
// layout per inotify(7): wd, mask, cookie, len, then a null-padded
// name when len > 0.
func (w *Watcher) consume(buffer []byte) {
	now := time.Now()
	offset := 0
	for offset+unix.SizeofInotifyEvent <= len(buffer) {
		wd := int(int32(binary.NativeEndian.Uint32(buffer[offset : offset+4])))
		mask := binary.NativeEndian.Uint32(buffer[offset+4 : offset+8])
		nameLength := int(binary.NativeEndian.Uint32(buffer[offset+12 : offset+16]))
		eventSize := unix.SizeofInotifyEvent + nameLength
		if offset+eventSize > len(buffer) {
			break
		}
		name := nullTerminated(buffer[offset+unix.SizeofInotifyEvent : offset+eventSize])
		offset += eventSize

		w.mu.Lock()
		dir, known := w.dirs[wd]
		if known {
			if len(w.pending) == 0 {
				w.deadline = now.Add(w.debounce)
			} else if deadline := now.Add(w.debounce); deadline.After(w.deadline) {
				w.deadline = deadline
			}
			w.pending[dir.runID] = struct{}{}
		}
		w.mu.Unlock()
		if !known {
			continue
		}

		if mask&unix.IN_ISDIR != 0 && mask&(unix.IN_CREATE|unix.IN_MOVED_TO) != 0 && name != "" {
			created := filepath.Join(dir.path, name)
			if info, err := os.Stat(created); err == nil && info.IsDir() {
				if err := w.addDir(dir.runID, created); err != nil {
					w.logger.Debug("cannot watch new subdirectory", "path", created, "error", err)
				}
			}
		}
	}
}

// flushDue emits the pending set as one batch once the debounce
// deadline has passed. A full Batches channel keeps the set pending
// for the next loop iteration instead of blocking.
func (w *Watcher) flushDue() {
	w.mu.Lock()
	if len(w.pending) == 0 || time.Now().Before(w.deadline) {
		w.mu.Unlock()
		return
	}
	runIDs := make([]string, 0, len(w.pending))
	for runID := range w.pending {
		runIDs = append(runIDs, runID)
	}
	sort.Strings(runIDs)
	w.mu.Unlock()

	select {
	case w.batches <- Batch{RunIDs: runIDs}:
		w.mu.Lock()
		for _, runID := range runIDs {
			delete(w.pending, runID)
		}
		w.mu.Unlock()
	default:
	}
}

// nullTerminated extracts a string from a null-padded byte slice.
func nullTerminated(data []byte) string {
	for i, b := range data {
		if b == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}
