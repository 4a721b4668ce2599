// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package tailfile

import (
	"bytes"
	"fmt"
	"os"
	"time"
	"unicode/utf8"
)

// DefaultMaxBytes bounds how much of a tailed file is held and served.
// 256 KB is several screens of scrollback for any text file while
// keeping every poll a short bounded read.
const DefaultMaxBytes = 256 * 1024

// Update is a change notification from the session: the bounded tail
// content to display, whether the head of the file was cut off, and
// the file's full size at read time.
type Update struct {
	Path      string
	Content   string
	Truncated bool
	Size      int64
}

// Session tails one file at a time with a byte bound. Not safe for
// concurrent use; each surface owns its session exclusively.
type Session struct {
	maxBytes int64

	path        string
	lastSize    int64
	lastModTime time.Time
	lastContent string
}

// NewSession creates a session serving at most maxBytes of tail
// content per file. maxBytes <= 0 selects DefaultMaxBytes.
func NewSession(maxBytes int64) *Session {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Session{maxBytes: maxBytes}
}

// Bound reports the currently bound path, or "" when idle.
func (s *Session) Bound() string { return s.path }

// Start binds the session to path, discarding any previous binding,
// and returns the initial bounded tail of the file. The previous
// binding is discarded even when the new file cannot be read.
func (s *Session) Start(path string) (Update, error) {
	s.path = path
	s.lastSize = 0
	s.lastModTime = time.Time{}
	s.lastContent = ""

	update, err := s.read()
	if err != nil {
		return Update{}, err
	}
	return *update, nil
}

// Poll checks the bound file for changes. It returns (nil, nil) when
// there is nothing to report: no binding, or no size/mtime movement,
// or movement that produced identical content. A read failure is
// returned as err; the session stays bound and a later poll may
// recover.
func (s *Session) Poll() (*Update, error) {
	if s.path == "" {
		return nil, nil
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", s.path, err)
	}
	if info.Size() == s.lastSize && info.ModTime().Equal(s.lastModTime) {
		return nil, nil
	}

	previous := s.lastContent
	update, err := s.read()
	if err != nil {
		return nil, err
	}
	if update.Content == previous {
		// Touched but unchanged (e.g. an in-place rewrite of the same
		// bytes). The observation state advanced; the UI needn't know.
		return nil, nil
	}
	return update, nil
}

// read loads the bounded tail of the bound file and records the
// observation state used by the next Poll.
func (s *Session) read() (*Update, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", s.path, err)
	}
	size := info.Size()

	offset := int64(0)
	truncated := false
	length := size
	if size > s.maxBytes {
		offset = size - s.maxBytes
		length = s.maxBytes
		truncated = true
	}

	content := make([]byte, length)
	if length > 0 {
		if _, err := file.ReadAt(content, offset); err != nil {
			return nil, fmt.Errorf("read %s: %w", s.path, err)
		}
	}
	if truncated {
		content = trimToLineStart(content)
	}

	s.lastSize = size
	s.lastModTime = info.ModTime()
	s.lastContent = string(content)

	return &Update{
		Path:      s.path,
		Content:   s.lastContent,
		Truncated: truncated,
		Size:      size,
	}, nil
}

// trimToLineStart drops the leading partial line of a mid-file cut,
// so a truncated view starts at a real line. When the window holds no
// newline at all, it only drops partial UTF-8 continuation bytes.
func trimToLineStart(content []byte) []byte {
	if newline := bytes.IndexByte(content, '\n'); newline >= 0 && newline+1 < len(content) {
		return content[newline+1:]
	}
	for len(content) > 0 && !utf8.RuneStart(content[0]) {
		content = content[1:]
	}
	return content
}
