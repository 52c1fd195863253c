package transport

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosswire-ai/mcp-go/pkg/logging"
	"github.com/crosswire-ai/mcp-go/pkg/observability"
)

// tagTransport records the order in which wrapped Sends run.
type tagTransport struct {
	middlewareTransport
	tag   string
	order *[]string
	mu    *sync.Mutex
}

func (tt *tagTransport) Send(ctx context.Context, data []byte) error {
	tt.mu.Lock()
	*tt.order = append(*tt.order, tt.tag)
	tt.mu.Unlock()
	return tt.middlewareTransport.Send(ctx, data)
}

func tagMiddleware(tag string, order *[]string, mu *sync.Mutex) Middleware {
	return MiddlewareFunc(func(next Transport) Transport {
		return &tagTransport{
			middlewareTransport: middlewareTransport{next: next},
			tag:                 tag,
			order:               order,
			mu:                  mu,
		}
	})
}

func TestChainMiddlewareOrder(t *testing.T) {
	a, b := NewPipe()
	defer a.Close()

	var mu sync.Mutex
	var order []string

	wrapped := ChainMiddleware(
		tagMiddleware("outer", &order, &mu),
		tagMiddleware("inner", &order, &mu),
	).Wrap(a)

	cb := newCollector()
	b.SetMessageHandler(cb.handler)

	require.NoError(t, wrapped.Start(context.Background()))
	require.NoError(t, b.Start(context.Background()))

	require.NoError(t, wrapped.Send(context.Background(), []byte("payload")))
	cb.next(t)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"outer", "inner"}, order,
		"first middleware listed should be outermost")
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	logger := logging.New(&syncWriter{w: &buf, mu: &mu}, logging.NewTextFormatter())
	logger.SetLevel(logging.DebugLevel)

	a, b := NewPipe()
	defer a.Close()

	wrapped := NewLoggingMiddleware(logger).Wrap(a)

	cb := newCollector()
	wrappedB := NewLoggingMiddleware(logger).Wrap(b)
	wrappedB.SetMessageHandler(cb.handler)

	require.NoError(t, wrapped.Start(context.Background()))
	require.NoError(t, wrappedB.Start(context.Background()))

	require.NoError(t, wrapped.Send(context.Background(),
		[]byte(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)))
	cb.next(t)

	mu.Lock()
	output := buf.String()
	mu.Unlock()

	assert.Contains(t, output, "sending message")
	assert.Contains(t, output, "received message")
	assert.Contains(t, output, "method=ping")
	assert.Contains(t, output, "type=request")
}

// syncWriter serializes writes from both pipe ends.
type syncWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// recordingMetrics captures wire-level metric calls.
type recordingMetrics struct {
	observability.NoopMetricsProvider

	mu       sync.Mutex
	sent     []string
	received []string
	statuses []string
}

func (r *recordingMetrics) RecordMessageSent(ctx context.Context, method, msgType, status string, size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, method+"/"+msgType)
	r.statuses = append(r.statuses, status)
}

func (r *recordingMetrics) RecordMessageReceived(ctx context.Context, method, msgType string, size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, method+"/"+msgType)
}

func TestObservabilityMiddleware(t *testing.T) {
	metrics := &recordingMetrics{}

	a, b := NewPipe()
	defer a.Close()

	wrapped := NewObservabilityMiddleware(metrics, nil).Wrap(a)

	cb := newCollector()
	wrappedB := NewObservabilityMiddleware(metrics, nil).Wrap(b)
	wrappedB.SetMessageHandler(cb.handler)

	require.NoError(t, wrapped.Start(context.Background()))
	require.NoError(t, wrappedB.Start(context.Background()))

	require.NoError(t, wrapped.Send(context.Background(),
		[]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)))
	cb.next(t)

	// Received-side recording happens on the delivery goroutine
	deadline := time.Now().Add(2 * time.Second)
	for {
		metrics.mu.Lock()
		done := len(metrics.received) > 0
		metrics.mu.Unlock()
		if done || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	require.Len(t, metrics.sent, 1)
	assert.Equal(t, "tools/list/request", metrics.sent[0])
	assert.Equal(t, "success", metrics.statuses[0])
	require.Len(t, metrics.received, 1)
	assert.Equal(t, "tools/list/request", metrics.received[0])
}

func TestObservabilityMiddlewareSendFailure(t *testing.T) {
	metrics := &recordingMetrics{}

	a, _ := NewPipe()
	wrapped := NewObservabilityMiddleware(metrics, nil).Wrap(a)

	require.NoError(t, a.Close())

	err := wrapped.Send(context.Background(), []byte(`{"jsonrpc":"2.0","method":"ping","id":1}`))
	require.Error(t, err)

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	require.Len(t, metrics.statuses, 1)
	assert.Equal(t, "error", metrics.statuses[0])
}
