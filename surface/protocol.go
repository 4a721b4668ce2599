// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package surface

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/overlook-foundation/overlook/lib/codec"
	"github.com/overlook-foundation/overlook/snapshot"
)

// Message type constants for the surface protocol wire format. Each
// message is a 5-byte header (1 byte type + 4 byte big-endian payload
// length) followed by a CBOR payload. Types below 0x40 flow viewer to
// monitor, types 0x40 and above flow monitor to viewer.
const (
	// MessageTypeReady signals that the viewer surface is constructed
	// and can accept messages. Payload: Ready. The monitor responds
	// with a full snapshot.
	MessageTypeReady byte = 0x01

	// MessageTypeRefresh requests an immediate snapshot rebuild.
	// Payload: Refresh.
	MessageTypeRefresh byte = 0x02

	// MessageTypeOpenInEditor asks the host to open a file in the
	// operator's editor. Payload: OpenInEditor.
	MessageTypeOpenInEditor byte = 0x03

	// MessageTypeRevealInExplorer asks the host to reveal a path in
	// the platform file manager. Payload: RevealInExplorer.
	MessageTypeRevealInExplorer byte = 0x04

	// MessageTypeLoadTextFile requests file content, either a single
	// bounded read or the start of a live tail. Payload: LoadTextFile.
	MessageTypeLoadTextFile byte = 0x05

	// MessageTypeCopyText asks the host to place text on the operator
	// clipboard. Payload: CopyText.
	MessageTypeCopyText byte = 0x06

	// MessageTypeSendUserInput forwards text to the run's interactive
	// process. Payload: SendUserInput.
	MessageTypeSendUserInput byte = 0x07

	// MessageTypeSendEnter forwards a bare Enter keypress.
	// Payload: SendEnter.
	MessageTypeSendEnter byte = 0x08

	// MessageTypeSendEsc forwards a bare Escape keypress.
	// Payload: SendEsc.
	MessageTypeSendEsc byte = 0x09

	// MessageTypeListRuns requests the set of currently known runs.
	// Payload: ListRuns.
	MessageTypeListRuns byte = 0x0a

	// MessageTypeSnapshot carries a complete snapshot replacing all
	// prior run state on the surface. Payload: SnapshotMessage.
	MessageTypeSnapshot byte = 0x41

	// MessageTypeTextFile carries file content answering a
	// loadTextFile request, or a subsequent tail update for the same
	// path. Payload: TextFile.
	MessageTypeTextFile byte = 0x42

	// MessageTypeTextFileError reports a failed file load scoped to
	// the requested path. Payload: TextFileError.
	MessageTypeTextFileError byte = 0x43

	// MessageTypeError reports a request-scoped failure that is not
	// tied to a file load. Payload: ErrorMessage.
	MessageTypeError byte = 0x44

	// MessageTypeRunList answers a listRuns request.
	// Payload: RunList.
	MessageTypeRunList byte = 0x45
)

// messageHeaderLength is the fixed size of a message header: 1 byte type
// + 4 bytes payload length.
const messageHeaderLength = 5

// maxPayloadLength is the maximum allowed payload size. 16 MB is
// generous: the largest payload in practice is a snapshot carrying a
// capped journal and a bounded script body.
const maxPayloadLength = 16 * 1024 * 1024

// Ready binds a viewer connection to a run surface.
type Ready struct {
	RunID string `cbor:"runId"`
}

// Refresh requests a snapshot rebuild for a run.
type Refresh struct {
	RunID string `cbor:"runId"`
}

// OpenInEditor names a file to open on the operator's host.
type OpenInEditor struct {
	RunID  string `cbor:"runId"`
	FsPath string `cbor:"fsPath"`
}

// RevealInExplorer names a path to reveal in the platform file manager.
type RevealInExplorer struct {
	RunID  string `cbor:"runId"`
	FsPath string `cbor:"fsPath"`
}

// LoadTextFile requests file content. With Tail set the monitor opens
// a bounded tail session for the path and streams updates as further
// TextFile messages on each refresh.
type LoadTextFile struct {
	RunID  string `cbor:"runId"`
	FsPath string `cbor:"fsPath"`
	Tail   bool   `cbor:"tail,omitempty"`
}

// CopyText asks the host to place text on the operator clipboard.
type CopyText struct {
	Text string `cbor:"text"`
}

// SendUserInput forwards text to the run's interactive process.
type SendUserInput struct {
	RunID string `cbor:"runId"`
	Text  string `cbor:"text"`
}

// SendEnter forwards a bare Enter keypress to the run's interactive
// process.
type SendEnter struct {
	RunID string `cbor:"runId"`
}

// SendEsc forwards a bare Escape keypress to the run's interactive
// process.
type SendEsc struct {
	RunID string `cbor:"runId"`
}

// ListRuns requests the set of currently known runs.
type ListRuns struct{}

// SnapshotMessage wraps a snapshot for the wire.
type SnapshotMessage struct {
	Snapshot snapshot.Snapshot `cbor:"snapshot"`
}

// TextFile carries loaded or tailed file content. Truncated is set
// when the content was cut to the configured bound.
type TextFile struct {
	FsPath    string `cbor:"fsPath"`
	Content   string `cbor:"content"`
	Truncated bool   `cbor:"truncated,omitempty"`
	Size      int64  `cbor:"size"`
}

// TextFileError reports a failed file load scoped to the requested
// path. The surface keeps its previous content for the path.
type TextFileError struct {
	FsPath  string `cbor:"fsPath"`
	Message string `cbor:"message"`
}

// ErrorMessage reports a request-scoped failure.
type ErrorMessage struct {
	Message string `cbor:"message"`
}

// RunSummary is one entry of a RunList.
type RunSummary struct {
	RunID     string `cbor:"runId"`
	Root      string `cbor:"root"`
	Status    string `cbor:"status"`
	UpdatedAt int64  `cbor:"updatedAt"`
}

// RunList answers a listRuns request, newest run first.
type RunList struct {
	Runs []RunSummary `cbor:"runs"`
}

// WriteMessage CBOR-encodes payload and writes it as a framed message
// to w. The frame format is: [1 byte type] [4 bytes payload length,
// big-endian uint32] [payload].
func WriteMessage(w io.Writer, messageType byte, payload any) error {
	encoded, err := codec.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode message payload: %w", err)
	}
	if len(encoded) > maxPayloadLength {
		return fmt.Errorf("payload length %d exceeds maximum %d", len(encoded), maxPayloadLength)
	}
	var header [messageHeaderLength]byte
	header[0] = messageType
	binary.BigEndian.PutUint32(header[1:5], uint32(len(encoded)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write message header: %w", err)
	}
	if _, err := w.Write(encoded); err != nil {
		return fmt.Errorf("write message payload: %w", err)
	}
	return nil
}

// ReadMessage reads a framed message from r. Returns the message type
// and the raw CBOR payload. Returns an error if the stream is
// malformed or the payload exceeds maxPayloadLength.
func ReadMessage(r io.Reader) (byte, []byte, error) {
	var header [messageHeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, fmt.Errorf("read message header: %w", err)
	}
	messageType := header[0]
	payloadLength := binary.BigEndian.Uint32(header[1:5])
	if payloadLength > maxPayloadLength {
		return 0, nil, fmt.Errorf("payload length %d exceeds maximum %d", payloadLength, maxPayloadLength)
	}
	payload := make([]byte, payloadLength)
	if payloadLength > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return 0, nil, fmt.Errorf("read message payload: %w", err)
		}
	}
	return messageType, payload, nil
}
