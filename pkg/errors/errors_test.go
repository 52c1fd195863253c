package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosswire-ai/mcp-go/pkg/protocol"
)

func TestProtocolErrorWire(t *testing.T) {
	pe := NewProtocolError(protocol.ResourceNotFound, "resource not found").
		WithData(map[string]string{"uri": "file:///missing"})

	werr := pe.ToWire()
	require.NotNil(t, werr)
	assert.Equal(t, protocol.ResourceNotFound, werr.Code)
	assert.Equal(t, "resource not found", werr.Message)
	assert.NotNil(t, werr.Data)

	back := FromWire(werr)
	require.NotNil(t, back)
	assert.Equal(t, pe.Code, back.Code)
	assert.Equal(t, pe.Message, back.Message)

	assert.Nil(t, FromWire(nil))
}

func TestToWireError(t *testing.T) {
	// Typed protocol error keeps its code
	werr := ToWireError(NewProtocolError(protocol.InvalidParams, "invalid params: bad cursor"))
	assert.Equal(t, protocol.InvalidParams, werr.Code)

	// Wrapped typed errors are still found
	wrapped := fmt.Errorf("handling tools/call: %w", NewMethodNotFound("tools/call"))
	werr = ToWireError(wrapped)
	assert.Equal(t, protocol.MethodNotFound, werr.Code)
	assert.Equal(t, "method not found", werr.Message)

	// Untyped errors become generic application errors
	werr = ToWireError(errors.New("database exploded"))
	assert.Equal(t, protocol.ApplicationError, werr.Code)
	assert.Equal(t, "database exploded", werr.Message)
}

func TestPredicates(t *testing.T) {
	timeout := NewTimeoutError("tools/call", 30*time.Second)
	disconnected := NewDisconnectedError()
	notConnected := NewNotConnectedError("created")
	notFound := NewNotFoundError("resource", "file:///missing")

	assert.True(t, IsTimeout(timeout))
	assert.True(t, IsTimeout(fmt.Errorf("awaiting response: %w", timeout)))
	assert.False(t, IsTimeout(disconnected))

	assert.True(t, IsDisconnected(disconnected))
	assert.False(t, IsDisconnected(timeout))

	assert.True(t, IsNotConnected(notConnected))
	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsNotFound(errors.New("plain")))
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{"timeout", NewTimeoutError("ping", time.Second), CategoryTimeout},
		{"disconnect", NewDisconnectedError(), CategoryDisconnect},
		{"protocol", NewProtocolError(protocol.MethodNotFound, "method not found"), CategoryProtocol},
		{"not found", NewNotFoundError("tool", "echo"), CategoryNotFound},
		{"transport", NewTransportError("send", errors.New("pipe closed")), CategoryTransport},
		{"plain", errors.New("anything"), CategoryApplication},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryOf(tt.err))
		})
	}
}

func TestTransportErrorUnwrap(t *testing.T) {
	cause := errors.New("pipe closed")
	te := NewTransportError("send", cause)
	assert.ErrorIs(t, te, cause)
	assert.Contains(t, te.Error(), "send")
}

func TestCodeRegistry(t *testing.T) {
	info, ok := LookupCode(protocol.MethodNotFound)
	require.True(t, ok)
	assert.Equal(t, "MethodNotFound", info.Name)
	assert.Equal(t, CategoryProtocol, info.Category)

	assert.Equal(t, "Unknown", CodeName(protocol.ErrorCode(-1)))
	assert.Equal(t, CategoryApplication, CategoryForCode(protocol.ErrorCode(-1)))

	assert.True(t, IsRetryableCode(protocol.ServerNotReady))
	assert.False(t, IsRetryableCode(protocol.MethodNotFound))

	assert.True(t, IsStandardJSONRPCCode(protocol.ParseError))
	assert.False(t, IsStandardJSONRPCCode(protocol.ApplicationError))
}
