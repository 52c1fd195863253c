package transport

import "context"

// Middleware wraps a transport to add cross-cutting functionality such
// as logging or observability.
type Middleware interface {
	// Wrap wraps the given transport with middleware functionality
	Wrap(transport Transport) Transport
}

// MiddlewareFunc is an adapter to allow the use of ordinary functions as middleware
type MiddlewareFunc func(Transport) Transport

// Wrap implements the Middleware interface
func (f MiddlewareFunc) Wrap(t Transport) Transport {
	return f(t)
}

// ChainMiddleware chains multiple middleware together
func ChainMiddleware(middleware ...Middleware) Middleware {
	return MiddlewareFunc(func(transport Transport) Transport {
		// Apply middleware in reverse order so the first middleware is the outermost
		for i := len(middleware) - 1; i >= 0; i-- {
			transport = middleware[i].Wrap(transport)
		}
		return transport
	})
}

// middlewareTransport is a base type for middleware implementations. It
// forwards every operation to the wrapped transport; middleware embed it
// and override what they intercept.
type middlewareTransport struct {
	next Transport
}

// Start delegates to the wrapped transport
func (m *middlewareTransport) Start(ctx context.Context) error {
	return m.next.Start(ctx)
}

// Send delegates to the wrapped transport
func (m *middlewareTransport) Send(ctx context.Context, data []byte) error {
	return m.next.Send(ctx, data)
}

// Close delegates to the wrapped transport
func (m *middlewareTransport) Close() error {
	return m.next.Close()
}

// SetMessageHandler delegates to the wrapped transport
func (m *middlewareTransport) SetMessageHandler(handler MessageHandler) {
	m.next.SetMessageHandler(handler)
}

// SetCloseHandler delegates to the wrapped transport
func (m *middlewareTransport) SetCloseHandler(handler CloseHandler) {
	m.next.SetCloseHandler(handler)
}

// SetErrorHandler delegates to the wrapped transport
func (m *middlewareTransport) SetErrorHandler(handler ErrorHandler) {
	m.next.SetErrorHandler(handler)
}
