package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/crosswire-ai/mcp-go/pkg/errors"
	"github.com/crosswire-ai/mcp-go/pkg/protocol"
)

func TestPendingResolveExactlyOnce(t *testing.T) {
	table := newPendingTable(NewRealClock())

	call, err := table.register("tools/list", 0)
	require.NoError(t, err)

	resp, _ := protocol.NewResponse(call.id, map[string]string{"ok": "yes"})
	assert.True(t, table.resolve(call.id, resp))
	assert.False(t, table.resolve(call.id, resp), "second resolution should find nothing")

	res := <-call.ch
	require.NotNil(t, res.resp)
	assert.Equal(t, 0, table.len())
}

func TestPendingIDsMonotonic(t *testing.T) {
	table := newPendingTable(NewRealClock())

	first, err := table.register("ping", 0)
	require.NoError(t, err)
	second, err := table.register("ping", 0)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.id)
	assert.Equal(t, int64(2), second.id)
}

func TestPendingTimeout(t *testing.T) {
	clock := newFakeClock()
	table := newPendingTable(clock)

	call, err := table.register("tools/call", 5*time.Second)
	require.NoError(t, err)

	clock.Advance(5 * time.Second)

	res := <-call.ch
	require.Error(t, res.err)
	assert.True(t, mcperrors.IsTimeout(res.err))
	assert.Contains(t, res.err.Error(), "tools/call")
	assert.Equal(t, 0, table.len())
}

func TestPendingResponseBeatsTimeout(t *testing.T) {
	clock := newFakeClock()
	table := newPendingTable(clock)

	call, err := table.register("ping", 5*time.Second)
	require.NoError(t, err)

	resp, _ := protocol.NewResponse(call.id, nil)
	require.True(t, table.resolve(call.id, resp))

	// The expired timer finds the entry already claimed
	clock.Advance(10 * time.Second)

	res := <-call.ch
	assert.NoError(t, res.err)
	require.NotNil(t, res.resp)

	select {
	case extra := <-call.ch:
		t.Fatalf("call settled twice: %+v", extra)
	default:
	}
}

func TestPendingRejectAll(t *testing.T) {
	clock := newFakeClock()
	table := newPendingTable(clock)

	const n = 5
	calls := make([]*pendingCall, n)
	for i := range calls {
		call, err := table.register(fmt.Sprintf("method-%d", i), time.Minute)
		require.NoError(t, err)
		calls[i] = call
	}

	table.rejectAll(mcperrors.NewDisconnectedError())
	table.rejectAll(mcperrors.NewDisconnectedError()) // idempotent

	for _, call := range calls {
		res := <-call.ch
		require.Error(t, res.err)
		assert.True(t, mcperrors.IsDisconnected(res.err))

		select {
		case extra := <-call.ch:
			t.Fatalf("call settled twice: %+v", extra)
		default:
		}
	}

	// Armed timers were stopped with their entries
	clock.Advance(2 * time.Minute)
	for _, call := range calls {
		select {
		case extra := <-call.ch:
			t.Fatalf("timer fired after reject: %+v", extra)
		default:
		}
	}
}

func TestPendingRegisterAfterClose(t *testing.T) {
	table := newPendingTable(NewRealClock())
	table.rejectAll(mcperrors.NewDisconnectedError())

	_, err := table.register("ping", 0)
	require.Error(t, err)
	assert.True(t, mcperrors.IsDisconnected(err))
}

func TestPendingRemoveDropsLateResponse(t *testing.T) {
	table := newPendingTable(NewRealClock())

	call, err := table.register("ping", 0)
	require.NoError(t, err)

	assert.True(t, table.remove(call.key))
	resp, _ := protocol.NewResponse(call.id, nil)
	assert.False(t, table.resolve(call.id, resp), "late response should find nothing")
}

func TestPendingConcurrentSettlement(t *testing.T) {
	table := newPendingTable(NewRealClock())

	const n = 100
	calls := make([]*pendingCall, n)
	for i := range calls {
		call, err := table.register("ping", 0)
		require.NoError(t, err)
		calls[i] = call
	}

	// Race resolution and rejection for every call; exactly one must win
	var wg sync.WaitGroup
	for _, call := range calls {
		wg.Add(2)
		go func(c *pendingCall) {
			defer wg.Done()
			resp, _ := protocol.NewResponse(c.id, nil)
			table.resolve(c.id, resp)
		}(call)
		go func(c *pendingCall) {
			defer wg.Done()
			table.reject(c.key, mcperrors.NewDisconnectedError())
		}(call)
	}
	wg.Wait()

	for _, call := range calls {
		<-call.ch
		select {
		case extra := <-call.ch:
			t.Fatalf("call settled twice: %+v", extra)
		default:
		}
	}
	assert.Equal(t, 0, table.len())
}

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		name string
		id   interface{}
		want string
		ok   bool
	}{
		{"int64", int64(42), "42", true},
		{"int", 7, "7", true},
		{"string", "req-9", "req-9", true},
		{"integral float", float64(42), "42", true},
		{"large integral float", float64(10000000), "10000000", true},
		{"fractional float", 42.5, "42.5", true},
		{"json number", json.Number("1234"), "1234", true},
		{"nil", nil, "", false},
		{"unsupported", struct{}{}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalizeID(tt.id)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// A numeric id sent as int64 must be findable by its float64 wire echo.
func TestPendingResolveFloatEcho(t *testing.T) {
	table := newPendingTable(NewRealClock())

	call, err := table.register("tools/list", 0)
	require.NoError(t, err)

	resp, _ := protocol.NewResponse(float64(call.id), nil)
	assert.True(t, table.resolve(float64(call.id), resp))
}
