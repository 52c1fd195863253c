package transport

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	mcperrors "github.com/crosswire-ai/mcp-go/pkg/errors"
)

// inMemoryQueueSize bounds how many payloads one end will queue before
// Send exerts backpressure on the caller.
const inMemoryQueueSize = 64

// InMemoryTransport is one end of a connected in-process pair. It is
// the reference Transport implementation: message order is preserved,
// Close propagates to the peer, and a closed end rejects further sends.
type InMemoryTransport struct {
	BaseTransport

	peer *InMemoryTransport

	incoming chan []byte
	done     chan struct{}

	mu      sync.Mutex
	started bool
	g       *errgroup.Group

	closeOnce sync.Once
}

// NewPipe returns two connected in-memory transports. Payloads sent on
// one end are delivered, in order, to the message handler of the other.
func NewPipe() (*InMemoryTransport, *InMemoryTransport) {
	a := newInMemoryEnd()
	b := newInMemoryEnd()
	a.peer = b
	b.peer = a
	return a, b
}

func newInMemoryEnd() *InMemoryTransport {
	return &InMemoryTransport{
		incoming: make(chan []byte, inMemoryQueueSize),
		done:     make(chan struct{}),
	}
}

// Start launches the delivery goroutine. Payloads queued before Start
// are delivered once it runs.
func (t *InMemoryTransport) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return &mcperrors.TransportError{Op: "start", Err: ErrAlreadyStarted}
	}
	select {
	case <-t.done:
		t.mu.Unlock()
		return &mcperrors.TransportError{Op: "start", Err: ErrClosed}
	default:
	}
	t.started = true

	g, gctx := errgroup.WithContext(ctx)
	t.g = g
	t.mu.Unlock()

	g.Go(func() error {
		for {
			select {
			case data := <-t.incoming:
				t.DeliverMessage(data)
			case <-t.done:
				return nil
			case <-gctx.Done():
				// Context cancellation closes the connection for
				// both ends, same as an explicit Close.
				t.teardown(true)
				return gctx.Err()
			}
		}
	})

	return nil
}

// Send queues a payload for delivery to the peer. It blocks while the
// peer's queue is full, honoring context cancellation, and fails once
// either end has closed.
func (t *InMemoryTransport) Send(ctx context.Context, data []byte) error {
	select {
	case <-t.done:
		return &mcperrors.TransportError{Op: "send", Err: ErrClosed}
	default:
	}

	// Copy so the caller can reuse its buffer after Send returns.
	msg := make([]byte, len(data))
	copy(msg, data)

	select {
	case t.peer.incoming <- msg:
		return nil
	case <-t.done:
		return &mcperrors.TransportError{Op: "send", Err: ErrClosed}
	case <-t.peer.done:
		return &mcperrors.TransportError{Op: "send", Err: ErrClosed}
	case <-ctx.Done():
		return &mcperrors.TransportError{Op: "send", Err: ctx.Err()}
	}
}

// Close tears down both ends of the pipe. Each end's close handler
// fires exactly once; payloads still queued may be dropped.
func (t *InMemoryTransport) Close() error {
	t.teardown(true)
	return nil
}

// Wait blocks until message delivery has stopped, either through Close
// or cancellation of the Start context.
func (t *InMemoryTransport) Wait() error {
	t.mu.Lock()
	g := t.g
	t.mu.Unlock()

	if g == nil {
		return nil
	}
	return g.Wait()
}

func (t *InMemoryTransport) teardown(notifyPeer bool) {
	t.closeOnce.Do(func() {
		close(t.done)
		t.DeliverClose()
		if notifyPeer && t.peer != nil {
			t.peer.teardown(false)
		}
	})
}
