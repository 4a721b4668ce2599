// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package interaction

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/overlook-foundation/overlook/lib/clock"
	"github.com/overlook-foundation/overlook/lib/codec"
)

const (
	// controlDialTimeout bounds how long a forwarding call waits for
	// the engine's control socket. Forwarding is interactive; a slow
	// engine should read as "not attached" rather than hang the UI.
	controlDialTimeout = 2 * time.Second

	// watchReconnectDelay is the pause before re-dialing a dropped
	// watch stream. Change events are advisory (the surface refreshes
	// on filesystem activity anyway), so a slow reconnect is fine.
	watchReconnectDelay = 5 * time.Second
)

// Control socket actions.
const (
	actionAwaitingInput = "awaiting-input"
	actionSendInput     = "send-input"
	actionSendEnter     = "send-enter"
	actionSendEsc       = "send-esc"
	actionWatch         = "watch"
)

// controlRequest is one CBOR request on the engine control socket.
type controlRequest struct {
	Action string `cbor:"action"`
	RunID  string `cbor:"run_id,omitempty"`
	Text   string `cbor:"text,omitempty"`
}

// controlResponse is the engine's CBOR reply. Delivered reports
// whether a keystroke reached an attached process; Status answers an
// awaiting-input query.
type controlResponse struct {
	Delivered bool    `cbor:"delivered"`
	Status    *Status `cbor:"status,omitempty"`
}

// watchEvent is one entry on the streaming watch connection.
type watchEvent struct {
	RunID string `cbor:"run_id"`
}

// SocketClient is a Forwarder that speaks CBOR to the engine's
// control socket. An absent or refusing socket is the ordinary "no
// interactive process attached" answer, never an error.
type SocketClient struct {
	socketPath string
	clock      clock.Clock
	logger     *slog.Logger

	mu          sync.Mutex
	handlers    map[int]func(runID string)
	nextHandler int
	watchCancel context.CancelFunc
}

// NewSocketClient creates a client for the engine control socket at
// socketPath.
func NewSocketClient(socketPath string, clk clock.Clock, logger *slog.Logger) *SocketClient {
	return &SocketClient{
		socketPath: socketPath,
		clock:      clk,
		logger:     logger,
		handlers:   make(map[int]func(string)),
	}
}

// AwaitingInput implements Forwarder.
func (c *SocketClient) AwaitingInput(runID string) *Status {
	response := c.call(controlRequest{Action: actionAwaitingInput, RunID: runID})
	if response == nil {
		return nil
	}
	return response.Status
}

// SendInput implements Forwarder.
func (c *SocketClient) SendInput(runID, text string) bool {
	return c.deliver(controlRequest{Action: actionSendInput, RunID: runID, Text: text})
}

// SendEnter implements Forwarder.
func (c *SocketClient) SendEnter(runID string) bool {
	return c.deliver(controlRequest{Action: actionSendEnter, RunID: runID})
}

// SendEsc implements Forwarder.
func (c *SocketClient) SendEsc(runID string) bool {
	return c.deliver(controlRequest{Action: actionSendEsc, RunID: runID})
}

// OnChange implements Forwarder. The first subscription starts the
// background watch stream; cancelling the last one stops it.
func (c *SocketClient) OnChange(handler func(runID string)) (cancel func()) {
	c.mu.Lock()
	id := c.nextHandler
	c.nextHandler++
	c.handlers[id] = handler
	if c.watchCancel == nil {
		ctx, cancelWatch := context.WithCancel(context.Background())
		c.watchCancel = cancelWatch
		go c.watchLoop(ctx)
	}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.handlers, id)
			if len(c.handlers) == 0 && c.watchCancel != nil {
				c.watchCancel()
				c.watchCancel = nil
			}
			c.mu.Unlock()
		})
	}
}

// deliver sends one keystroke request; false covers both "engine says
// nothing attached" and "engine unreachable".
func (c *SocketClient) deliver(request controlRequest) bool {
	response := c.call(request)
	return response != nil && response.Delivered
}

// call performs one request/response exchange on a fresh connection.
// Returns nil when the engine is unreachable or the exchange fails —
// the caller treats that as "not attached".
func (c *SocketClient) call(request controlRequest) *controlResponse {
	conn, err := net.DialTimeout("unix", c.socketPath, controlDialTimeout)
	if err != nil {
		return nil
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(controlDialTimeout))

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		c.logger.Debug("control request failed", "action", request.Action, "error", err)
		return nil
	}
	var response controlResponse
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		c.logger.Debug("control response failed", "action", request.Action, "error", err)
		return nil
	}
	return &response
}

// watchLoop maintains the streaming watch connection, dispatching
// change events to subscribers and reconnecting after drops.
func (c *SocketClient) watchLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.watchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-c.clock.After(watchReconnectDelay):
		}
	}
}

// watchOnce runs one watch connection until it drops or ctx ends.
func (c *SocketClient) watchOnce(ctx context.Context) {
	conn, err := net.DialTimeout("unix", c.socketPath, controlDialTimeout)
	if err != nil {
		return
	}
	defer conn.Close()

	// Unblock the decoder when the subscription is cancelled. The
	// watcher exits with this connection, so reconnect cycles do not
	// accumulate goroutines.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := codec.NewEncoder(conn).Encode(controlRequest{Action: actionWatch}); err != nil {
		return
	}

	decoder := codec.NewDecoder(conn)
	for {
		var event watchEvent
		if err := decoder.Decode(&event); err != nil {
			return
		}
		c.mu.Lock()
		handlers := make([]func(string), 0, len(c.handlers))
		for _, handler := range c.handlers {
			handlers = append(handlers, handler)
		}
		c.mu.Unlock()
		for _, handler := range handlers {
			handler(event.RunID)
		}
	}
}
