// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package interaction

import "sync"

// Attachment is an engine-side hook for one run's interactive
// process. Each method reports whether the keystroke was delivered.
type Attachment interface {
	Input(text string) bool
	Enter() bool
	Esc() bool
}

// Broker is an in-process Forwarder for embedded engines and tests.
// The engine side attaches per-run input sinks and publishes
// awaiting-input status; the monitor side queries and forwards.
type Broker struct {
	mu          sync.Mutex
	status      map[string]Status
	attachments map[string]Attachment
	handlers    map[int]func(runID string)
	nextHandler int
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{
		status:      make(map[string]Status),
		attachments: make(map[string]Attachment),
		handlers:    make(map[int]func(string)),
	}
}

// Attach registers the input sink for a run, replacing any previous
// one.
func (b *Broker) Attach(runID string, attachment Attachment) {
	b.mu.Lock()
	b.attachments[runID] = attachment
	b.mu.Unlock()
}

// Detach removes a run's input sink and clears its awaiting status,
// notifying subscribers if the run was awaiting input.
func (b *Broker) Detach(runID string) {
	b.mu.Lock()
	delete(b.attachments, runID)
	previous, had := b.status[runID]
	delete(b.status, runID)
	handlers := b.handlerSnapshot()
	b.mu.Unlock()

	if had && previous.Awaiting {
		for _, handler := range handlers {
			handler(runID)
		}
	}
}

// SetAwaiting publishes a run's awaiting-input status and notifies
// subscribers when it changed.
func (b *Broker) SetAwaiting(runID string, status Status) {
	b.mu.Lock()
	previous, had := b.status[runID]
	b.status[runID] = status
	changed := !had || previous != status
	handlers := b.handlerSnapshot()
	b.mu.Unlock()

	if !changed {
		return
	}
	for _, handler := range handlers {
		handler(runID)
	}
}

// AwaitingInput implements Forwarder.
func (b *Broker) AwaitingInput(runID string) *Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	status, ok := b.status[runID]
	if !ok {
		return nil
	}
	return &status
}

// SendInput implements Forwarder.
func (b *Broker) SendInput(runID, text string) bool {
	if attachment := b.attachment(runID); attachment != nil {
		return attachment.Input(text)
	}
	return false
}

// SendEnter implements Forwarder.
func (b *Broker) SendEnter(runID string) bool {
	if attachment := b.attachment(runID); attachment != nil {
		return attachment.Enter()
	}
	return false
}

// SendEsc implements Forwarder.
func (b *Broker) SendEsc(runID string) bool {
	if attachment := b.attachment(runID); attachment != nil {
		return attachment.Esc()
	}
	return false
}

// OnChange implements Forwarder.
func (b *Broker) OnChange(handler func(runID string)) (cancel func()) {
	b.mu.Lock()
	id := b.nextHandler
	b.nextHandler++
	b.handlers[id] = handler
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

func (b *Broker) attachment(runID string) Attachment {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attachments[runID]
}

// handlerSnapshot copies the handler set for dispatch outside the
// lock. Callers must hold b.mu.
func (b *Broker) handlerSnapshot() []func(string) {
	handlers := make([]func(string), 0, len(b.handlers))
	for _, handler := range b.handlers {
		handlers = append(handlers, handler)
	}
	return handlers
}
