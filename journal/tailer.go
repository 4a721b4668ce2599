// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// fingerprintBytes is how much of the file's head is hashed for
// rotation detection. 4 KB covers the first few journal lines; a
// rotated file starting with different content is caught even when
// its size matches or exceeds the previous observation.
const fingerprintBytes = 4096

// Entry is one successfully parsed journal line. The engine writes
// one JSON object per line; entries are immutable once parsed.
type Entry map[string]any

// ParseError records a journal line that failed to parse. Line is
// 1-based and counts every line in the file, parsed or not.
type ParseError struct {
	Line    int    `json:"line" cbor:"line"`
	Message string `json:"message" cbor:"message"`
}

// Result is the outcome of one Tail call. Entries and Errors cover
// only the bytes read by this call; Rotated signals that previously
// accumulated state must be discarded because the file was replaced.
type Result struct {
	Entries []Entry
	Errors  []ParseError
	Rotated bool
}

// Tailer incrementally parses one append-only JSONL file. Not safe
// for concurrent use; each surface owns its tailer exclusively.
type Tailer struct {
	path string

	offset         int64
	lineCount      int
	pendingPartial []byte

	fingerprint    [32]byte
	fingerprintLen int64
}

// NewTailer creates a tailer with its cursor at offset zero.
func NewTailer(path string) *Tailer {
	return &Tailer{path: path}
}

// Path returns the tailed file's path.
func (t *Tailer) Path() string { return t.path }

// Tail reads the bytes appended since the previous call and parses
// them into entries. A missing file is not an error: the result is
// empty and the cursor is reset so a later-created file is read from
// the start. Any other I/O failure is returned as err with an empty
// result; the cursor is left unchanged so the next call can retry.
func (t *Tailer) Tail() (Result, error) {
	file, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			t.reset()
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("stat journal: %w", err)
	}
	size := info.Size()

	rotated, err := t.detectRotation(file, size)
	if err != nil {
		return Result{}, err
	}
	if rotated {
		t.reset()
	}

	if size <= t.offset {
		// Nothing appended. (size == offset is the idle steady state.)
		return Result{Rotated: rotated}, nil
	}

	if t.offset == 0 {
		if err := t.recordFingerprint(file, size); err != nil {
			return Result{}, err
		}
	}

	appended := make([]byte, size-t.offset)
	if _, err := file.ReadAt(appended, t.offset); err != nil && err != io.EOF {
		return Result{}, fmt.Errorf("read journal delta: %w", err)
	}
	t.offset = size

	entries, parseErrors := t.consume(appended)
	return Result{Entries: entries, Errors: parseErrors, Rotated: rotated}, nil
}

// reset returns the cursor to the beginning of a (possibly new) file.
func (t *Tailer) reset() {
	t.offset = 0
	t.lineCount = 0
	t.pendingPartial = nil
	t.fingerprintLen = 0
}

// detectRotation reports whether the file at its current size is a
// different file than the cursor was built against: either it shrank,
// or the head fingerprint changed under an unchanged-or-grown size.
func (t *Tailer) detectRotation(file *os.File, size int64) (bool, error) {
	if size < t.offset {
		return true, nil
	}
	if t.fingerprintLen == 0 || size < t.fingerprintLen {
		return false, nil
	}
	head := make([]byte, t.fingerprintLen)
	if _, err := file.ReadAt(head, 0); err != nil {
		return false, fmt.Errorf("read journal head: %w", err)
	}
	return blake3.Sum256(head) != t.fingerprint, nil
}

// recordFingerprint hashes the file's head so a later replacement
// with same-or-larger content is detectable.
func (t *Tailer) recordFingerprint(file *os.File, size int64) error {
	length := size
	if length > fingerprintBytes {
		length = fingerprintBytes
	}
	head := make([]byte, length)
	if _, err := file.ReadAt(head, 0); err != nil {
		return fmt.Errorf("read journal head: %w", err)
	}
	t.fingerprint = blake3.Sum256(head)
	t.fingerprintLen = length
	return nil
}

// consume splits newly read bytes into lines and parses each complete
// line independently. A trailing unterminated fragment is buffered as
// the pending partial line and re-prepended on the next call — a
// writer flushing mid-line never produces a premature entry.
func (t *Tailer) consume(appended []byte) ([]Entry, []ParseError) {
	data := appended
	if len(t.pendingPartial) > 0 {
		data = append(t.pendingPartial, appended...)
		t.pendingPartial = nil
	}

	var entries []Entry
	var parseErrors []ParseError

	for {
		newline := bytes.IndexByte(data, '\n')
		if newline < 0 {
			break
		}
		line := data[:newline]
		data = data[newline+1:]
		t.lineCount++

		line = bytes.TrimSuffix(line, []byte("\r"))
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			parseErrors = append(parseErrors, ParseError{
				Line:    t.lineCount,
				Message: fmt.Sprintf("line %d: %v", t.lineCount, err),
			})
			continue
		}
		entries = append(entries, entry)
	}

	if len(data) > 0 {
		t.pendingPartial = append([]byte(nil), data...)
	}
	return entries, parseErrors
}

// Log is the accumulated journal view retained by a surface across
// refreshes: the entries and parse errors seen since the last
// rotation, each capped to the most recent.
type Log struct {
	Entries []Entry
	Errors  []ParseError
}

// Apply merges one Tail result into the accumulated log. On rotation
// the previous accumulation is discarded first. maxEntries > 0 caps
// the retained history, entries and errors alike, to the most recent;
// older ones are dropped from the view, not from the file. A writer
// that journals garbage for days must not grow the view without
// bound.
func (l Log) Apply(result Result, maxEntries int) Log {
	next := l
	if result.Rotated {
		next = Log{}
	}
	if len(result.Entries) > 0 {
		merged := make([]Entry, 0, len(next.Entries)+len(result.Entries))
		merged = append(merged, next.Entries...)
		merged = append(merged, result.Entries...)
		next.Entries = merged
	}
	if len(result.Errors) > 0 {
		next.Errors = append(append([]ParseError(nil), next.Errors...), result.Errors...)
	}
	if maxEntries > 0 {
		if len(next.Entries) > maxEntries {
			next.Entries = next.Entries[len(next.Entries)-maxEntries:]
		}
		if len(next.Errors) > maxEntries {
			next.Errors = next.Errors[len(next.Errors)-maxEntries:]
		}
	}
	return next
}
