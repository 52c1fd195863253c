// Package transport defines the duplex byte channel that protocol
// sessions run on, an in-memory implementation for same-process wiring,
// and a middleware chain for cross-cutting concerns.
//
// A Transport moves opaque JSON-RPC payloads. Correlation, dispatch and
// capability logic live above it in pkg/session; implementations only
// carry bytes and surface connection lifecycle through the registered
// handlers.
package transport

import (
	"context"
	"errors"
	"sync"
)

// MessageHandler receives each inbound payload exactly once, in arrival
// order. It runs on the transport's delivery goroutine, so it must not
// block indefinitely.
type MessageHandler func(data []byte)

// CloseHandler runs once when the connection terminates, regardless of
// which side initiated the close.
type CloseHandler func()

// ErrorHandler receives transport-level failures that did not terminate
// the connection, such as a payload that could not be delivered.
type ErrorHandler func(err error)

// Transport is a duplex channel carrying opaque message payloads.
type Transport interface {
	// Start begins delivering inbound messages to the registered
	// message handler. It returns once delivery is running; the context
	// bounds the transport's operating lifetime, and its cancellation
	// closes the transport.
	Start(ctx context.Context) error

	// Send transmits a single payload to the peer. The context bounds
	// how long the caller is willing to wait for the payload to be
	// accepted.
	Send(ctx context.Context, data []byte) error

	// Close tears down the connection and releases resources. It is
	// safe to call multiple times.
	Close() error

	// Handler registration. Handlers must be installed before Start;
	// replacing them mid-flight is not supported.
	SetMessageHandler(handler MessageHandler)
	SetCloseHandler(handler CloseHandler)
	SetErrorHandler(handler ErrorHandler)
}

// Sentinel errors returned by transport implementations, typically
// wrapped in a *errors.TransportError.
var (
	ErrAlreadyStarted = errors.New("transport already started")
	ErrClosed         = errors.New("transport closed")
)

// BaseTransport provides the handler plumbing shared by transport
// implementations. Embed it and call the Deliver helpers from the
// implementation's read loop.
type BaseTransport struct {
	mu             sync.RWMutex
	messageHandler MessageHandler
	closeHandler   CloseHandler
	errorHandler   ErrorHandler
}

// SetMessageHandler registers the inbound payload handler.
func (t *BaseTransport) SetMessageHandler(handler MessageHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messageHandler = handler
}

// SetCloseHandler registers the connection termination handler.
func (t *BaseTransport) SetCloseHandler(handler CloseHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeHandler = handler
}

// SetErrorHandler registers the transport error handler.
func (t *BaseTransport) SetErrorHandler(handler ErrorHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.errorHandler = handler
}

// DeliverMessage invokes the message handler with an inbound payload.
// Payloads arriving before a handler is registered are dropped.
func (t *BaseTransport) DeliverMessage(data []byte) {
	t.mu.RLock()
	handler := t.messageHandler
	t.mu.RUnlock()

	if handler != nil {
		handler(data)
	}
}

// DeliverClose invokes the close handler. Callers are responsible for
// invoking it at most once per connection.
func (t *BaseTransport) DeliverClose() {
	t.mu.RLock()
	handler := t.closeHandler
	t.mu.RUnlock()

	if handler != nil {
		handler()
	}
}

// DeliverError invokes the error handler with a transport failure.
func (t *BaseTransport) DeliverError(err error) {
	t.mu.RLock()
	handler := t.errorHandler
	t.mu.RUnlock()

	if handler != nil {
		handler(err)
	}
}
