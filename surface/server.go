// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package surface

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"
)

// writeTimeout bounds each outbound frame write. A viewer that stops
// reading fills the socket buffer; past the deadline the connection
// is dropped rather than stalling refresh delivery for its runs.
const writeTimeout = 10 * time.Second

// Server serves run surfaces to detached viewers over a Unix socket.
// Each connection is a long-lived bidirectional message stream: the
// viewer sends framed requests, the monitor pushes framed snapshots
// and file content as refreshes fire. A connection may hold surfaces
// for several runs at once; all of them are disposed when the
// connection closes.
type Server struct {
	socketPath string
	controller *Controller
	logger     *slog.Logger

	// activeConnections tracks in-flight connections for graceful
	// shutdown. Serve waits for all of them before returning.
	activeConnections sync.WaitGroup

	// conns holds every accepted connection so shutdown can close
	// them. Streams are long-lived; a read loop blocked in
	// ReadMessage only unblocks when its connection is closed.
	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer creates a server delivering controller surfaces on
// socketPath.
func NewServer(socketPath string, controller *Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		socketPath: socketPath,
		controller: controller,
		logger:     logger,
		conns:      make(map[net.Conn]struct{}),
	}
}

// Serve starts accepting viewer connections. Blocks until ctx is
// cancelled, then stops accepting, closes established streams, and
// waits for their handlers to finish.
//
// Any existing socket file at the configured path is removed before
// listening. The socket file is removed on return.
func (s *Server) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	// Unblock Accept when the context is cancelled.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("surface server listening", "path", s.socketPath)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.track(conn)
		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			defer s.untrack(conn)
			s.handleConnection(conn)
		}()
	}

	// Established streams block in ReadMessage; close them so their
	// read loops return before waiting.
	s.closeAll()
	s.activeConnections.Wait()
	return nil
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}

// handleConnection runs the read loop for one viewer connection.
// Outbound traffic goes through the connection's sink, which
// serializes concurrent refresh deliveries onto the stream.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	sink := &connectionSink{conn: conn}
	defer s.controller.DisposeSink(sink)

	for {
		messageType, payload, err := ReadMessage(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("viewer connection read failed", "error", err)
			}
			return
		}
		s.controller.HandleMessage(sink, messageType, payload)
	}
}

// connectionSink delivers outbound messages to one viewer connection.
// Refreshes fire from several goroutines (explicit requests,
// filesystem batches, interaction changes); the mutex keeps frames
// from interleaving on the stream.
type connectionSink struct {
	mu   sync.Mutex
	conn net.Conn
}

func (s *connectionSink) Send(messageType byte, payload any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := WriteMessage(s.conn, messageType, payload); err != nil {
		// A stalled or gone viewer must not hold up refresh delivery
		// for its runs; drop the connection and let the read loop
		// dispose its surfaces.
		s.conn.Close()
		return err
	}
	return nil
}

// Reveal is a no-op: a detached viewer brings itself forward when a
// snapshot arrives.
func (s *connectionSink) Reveal() {}
