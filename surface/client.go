// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package surface

import (
	"fmt"
	"net"
	"sync"

	"github.com/overlook-foundation/overlook/lib/codec"
)

// Client is the viewer side of the surface protocol: a long-lived
// connection to the monitor that sends requests and receives pushed
// snapshots. Requests are safe to send from any goroutine; Receive
// must be driven by a single reader.
type Client struct {
	conn net.Conn

	writeMu sync.Mutex
}

// Dial connects to the monitor's surface socket.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to monitor at %s: %w", socketPath, err)
	}
	return &Client{conn: conn}, nil
}

// Close tears down the connection. The monitor disposes every surface
// this connection had open.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Ready opens the surface for a run; the monitor answers with a
// snapshot and keeps pushing fresh ones as the run changes.
func (c *Client) Ready(runID string) error {
	return c.send(MessageTypeReady, Ready{RunID: runID})
}

// Refresh requests an immediate snapshot rebuild.
func (c *Client) Refresh(runID string) error {
	return c.send(MessageTypeRefresh, Refresh{RunID: runID})
}

// ListRuns requests the monitor's run index.
func (c *Client) ListRuns() error {
	return c.send(MessageTypeListRuns, ListRuns{})
}

// LoadTextFile requests file content. With tail set the monitor keeps
// pushing updates for the file as it grows.
func (c *Client) LoadTextFile(runID, fsPath string, tail bool) error {
	return c.send(MessageTypeLoadTextFile, LoadTextFile{RunID: runID, FsPath: fsPath, Tail: tail})
}

// OpenInEditor asks the monitor host to open a file in the operator's
// editor.
func (c *Client) OpenInEditor(runID, fsPath string) error {
	return c.send(MessageTypeOpenInEditor, OpenInEditor{RunID: runID, FsPath: fsPath})
}

// RevealInExplorer asks the monitor host to reveal a path in the
// platform file manager.
func (c *Client) RevealInExplorer(runID, fsPath string) error {
	return c.send(MessageTypeRevealInExplorer, RevealInExplorer{RunID: runID, FsPath: fsPath})
}

// CopyText asks the monitor host to place text on the clipboard.
func (c *Client) CopyText(text string) error {
	return c.send(MessageTypeCopyText, CopyText{Text: text})
}

// SendUserInput forwards a line of operator text to the run.
func (c *Client) SendUserInput(runID, text string) error {
	return c.send(MessageTypeSendUserInput, SendUserInput{RunID: runID, Text: text})
}

// SendEnter forwards a bare Enter keypress to the run.
func (c *Client) SendEnter(runID string) error {
	return c.send(MessageTypeSendEnter, SendEnter{RunID: runID})
}

// SendEsc forwards an Escape keypress to the run.
func (c *Client) SendEsc(runID string) error {
	return c.send(MessageTypeSendEsc, SendEsc{RunID: runID})
}

// Receive reads and decodes one pushed message. The returned value is
// one of SnapshotMessage, TextFile, TextFileError, ErrorMessage, or
// RunList. Blocks until a message arrives or the connection drops.
func (c *Client) Receive() (any, error) {
	messageType, payload, err := ReadMessage(c.conn)
	if err != nil {
		return nil, err
	}
	switch messageType {
	case MessageTypeSnapshot:
		var message SnapshotMessage
		err = codec.Unmarshal(payload, &message)
		return message, err
	case MessageTypeTextFile:
		var message TextFile
		err = codec.Unmarshal(payload, &message)
		return message, err
	case MessageTypeTextFileError:
		var message TextFileError
		err = codec.Unmarshal(payload, &message)
		return message, err
	case MessageTypeError:
		var message ErrorMessage
		err = codec.Unmarshal(payload, &message)
		return message, err
	case MessageTypeRunList:
		var message RunList
		err = codec.Unmarshal(payload, &message)
		return message, err
	default:
		return nil, fmt.Errorf("unexpected message type 0x%02x from monitor", messageType)
	}
}

func (c *Client) send(messageType byte, payload any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteMessage(c.conn, messageType, payload)
}
