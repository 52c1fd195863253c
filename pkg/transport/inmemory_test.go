package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosswire-ai/mcp-go/pkg/utils"
)

// collector gathers payloads delivered to one end of a pipe.
type collector struct {
	ch chan []byte
}

func newCollector() *collector {
	return &collector{ch: make(chan []byte, 256)}
}

func (c *collector) handler(data []byte) {
	c.ch <- data
}

func (c *collector) next(t *testing.T) []byte {
	t.Helper()
	select {
	case data := <-c.ch:
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func startPipe(t *testing.T) (*InMemoryTransport, *InMemoryTransport, *collector, *collector) {
	t.Helper()

	a, b := NewPipe()
	ca, cb := newCollector(), newCollector()
	a.SetMessageHandler(ca.handler)
	b.SetMessageHandler(cb.handler)

	ctx := context.Background()
	require.NoError(t, a.Start(ctx))
	require.NoError(t, b.Start(ctx))

	t.Cleanup(func() { _ = a.Close() })

	return a, b, ca, cb
}

func TestPipeDelivery(t *testing.T) {
	a, _, _, cb := startPipe(t)

	payload := []byte(`{"jsonrpc":"2.0","method":"ping","id":1}`)
	require.NoError(t, a.Send(context.Background(), payload))

	got := cb.next(t)
	assert.Equal(t, payload, got)
}

func TestPipeDeliveryBothDirections(t *testing.T) {
	a, b, ca, cb := startPipe(t)

	require.NoError(t, a.Send(context.Background(), []byte("from-a")))
	require.NoError(t, b.Send(context.Background(), []byte("from-b")))

	assert.Equal(t, []byte("from-a"), cb.next(t))
	assert.Equal(t, []byte("from-b"), ca.next(t))
}

func TestPipeOrderPreserved(t *testing.T) {
	a, _, _, cb := startPipe(t)

	const n = 200
	for i := 0; i < n; i++ {
		require.NoError(t, a.Send(context.Background(), []byte(fmt.Sprintf("msg-%03d", i))))
	}

	for i := 0; i < n; i++ {
		got := cb.next(t)
		assert.Equal(t, fmt.Sprintf("msg-%03d", i), string(got))
	}
}

func TestPipeSendCopiesPayload(t *testing.T) {
	a, _, _, cb := startPipe(t)

	buf := []byte("original")
	require.NoError(t, a.Send(context.Background(), buf))

	// Caller may reuse its buffer immediately after Send
	copy(buf, "clobber!")

	assert.Equal(t, "original", string(cb.next(t)))
}

func TestPipeClosePropagates(t *testing.T) {
	a, b := NewPipe()

	var mu sync.Mutex
	closes := map[string]int{}
	a.SetCloseHandler(func() { mu.Lock(); closes["a"]++; mu.Unlock() })
	b.SetCloseHandler(func() { mu.Lock(); closes["b"]++; mu.Unlock() })

	ctx := context.Background()
	require.NoError(t, a.Start(ctx))
	require.NoError(t, b.Start(ctx))

	require.NoError(t, a.Close())
	// Close is idempotent
	require.NoError(t, a.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, closes["a"], "close handler on closing end should fire once")
	assert.Equal(t, 1, closes["b"], "close handler on peer should fire once")
}

func TestPipeSendAfterClose(t *testing.T) {
	a, b := NewPipe()
	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, b.Start(context.Background()))

	require.NoError(t, a.Close())

	err := a.Send(context.Background(), []byte("late"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrClosed))

	// The peer was closed too
	err = b.Send(context.Background(), []byte("late"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestPipeStartTwice(t *testing.T) {
	a, _ := NewPipe()
	defer a.Close()

	require.NoError(t, a.Start(context.Background()))

	err := a.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyStarted))
}

func TestPipeStartAfterClose(t *testing.T) {
	a, _ := NewPipe()
	require.NoError(t, a.Close())

	err := a.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestPipeContextCancelClosesTransport(t *testing.T) {
	a, b := NewPipe()

	closed := make(chan struct{})
	b.SetCloseHandler(func() { close(closed) })

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, a.Start(ctx))
	require.NoError(t, b.Start(context.Background()))

	cancel()

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("peer close handler did not fire after context cancellation")
	}

	err := a.Send(context.Background(), []byte("late"))
	assert.Error(t, err)
}

func TestPipeQueuesBeforeStart(t *testing.T) {
	a, b := NewPipe()
	defer a.Close()

	cb := newCollector()
	b.SetMessageHandler(cb.handler)

	// Receiver has not started yet; the payload queues
	require.NoError(t, a.Send(context.Background(), []byte("early")))

	require.NoError(t, b.Start(context.Background()))
	assert.Equal(t, "early", string(cb.next(t)))
}

func TestPipeSendHonorsContext(t *testing.T) {
	a, _ := NewPipe()
	defer a.Close()

	// Peer never starts and its queue fills up
	filler := []byte("x")
	for i := 0; i < inMemoryQueueSize; i++ {
		require.NoError(t, a.Send(context.Background(), filler))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := a.Send(ctx, filler)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestPipeConcurrentSenders(t *testing.T) {
	a, _, _, cb := startPipe(t)

	const senders = 10
	const perSender = 20

	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perSender; j++ {
				if err := a.Send(context.Background(), []byte(fmt.Sprintf("s%d-%d", id, j))); err != nil {
					t.Errorf("send failed: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := 0; i < senders*perSender; i++ {
		seen[string(cb.next(t))] = true
	}
	assert.Len(t, seen, senders*perSender, "every payload should arrive exactly once")
}

func TestPipeNoGoroutineLeak(t *testing.T) {
	detector := utils.NewGoroutineLeakDetector(t)
	detector.Start()

	for i := 0; i < 5; i++ {
		a, b := NewPipe()
		require.NoError(t, a.Start(context.Background()))
		require.NoError(t, b.Start(context.Background()))

		require.NoError(t, a.Send(context.Background(), []byte("ping")))

		require.NoError(t, a.Close())
		require.NoError(t, a.Wait())
		require.NoError(t, b.Wait())
	}

	detector.Check()
}
