package protocol

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	// Test with nil params
	req, err := NewRequest(int64(1), "test.method", nil)
	if err != nil {
		t.Fatalf("Expected NewRequest with nil params to succeed, got error: %v", err)
	}

	if req.JSONRPC != JSONRPCVersion {
		t.Errorf("Expected JSONRPC version to be %q, got %q", JSONRPCVersion, req.JSONRPC)
	}

	if req.ID != int64(1) {
		t.Errorf("Expected ID to be 1, got %v", req.ID)
	}

	if req.Method != "test.method" {
		t.Errorf("Expected Method to be 'test.method', got %q", req.Method)
	}

	if len(req.Params) != 0 {
		t.Errorf("Expected Params to be empty, got %s", string(req.Params))
	}

	// Test with params
	params := map[string]interface{}{
		"key": "value",
		"num": 42,
	}

	req, err = NewRequest(int64(2), "test.method", params)
	if err != nil {
		t.Fatalf("Expected NewRequest with params to succeed, got error: %v", err)
	}

	var decodedParams map[string]interface{}
	err = json.Unmarshal(req.Params, &decodedParams)
	if err != nil {
		t.Fatalf("Failed to decode params: %v", err)
	}

	if decodedParams["key"] != "value" {
		t.Errorf("Expected params['key'] to be 'value', got %v", decodedParams["key"])
	}

	// Empty method is rejected
	_, err = NewRequest(int64(3), "", nil)
	if err == nil {
		t.Error("Expected NewRequest with empty method to fail")
	}
}

func TestNewResponse(t *testing.T) {
	resp, err := NewResponse(int64(1), nil)
	if err != nil {
		t.Fatalf("Expected NewResponse with nil result to succeed, got error: %v", err)
	}

	if resp.JSONRPC != JSONRPCVersion {
		t.Errorf("Expected JSONRPC version to be %q, got %q", JSONRPCVersion, resp.JSONRPC)
	}

	if string(resp.Result) != "null" {
		t.Errorf("Expected nil result to marshal as null, got %s", string(resp.Result))
	}

	if resp.Error != nil {
		t.Errorf("Expected Error to be nil, got %v", resp.Error)
	}

	result := map[string]interface{}{"key": "value"}
	resp, err = NewResponse(int64(2), result)
	if err != nil {
		t.Fatalf("Expected NewResponse with result to succeed, got error: %v", err)
	}

	var decodedResult map[string]interface{}
	err = json.Unmarshal(resp.Result, &decodedResult)
	if err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}

	if decodedResult["key"] != "value" {
		t.Errorf("Expected result['key'] to be 'value', got %v", decodedResult["key"])
	}
}

func TestNewErrorResponse(t *testing.T) {
	resp, err := NewErrorResponse(int64(1), InvalidRequest, "Invalid request", nil)
	if err != nil {
		t.Fatalf("Expected NewErrorResponse with nil data to succeed, got error: %v", err)
	}

	if resp.Error == nil {
		t.Fatal("Expected Error to not be nil")
	}

	if resp.Error.Code != InvalidRequest {
		t.Errorf("Expected Error.Code to be %d, got %d", InvalidRequest, resp.Error.Code)
	}

	if resp.Error.Message != "Invalid request" {
		t.Errorf("Expected Error.Message to be 'Invalid request', got %q", resp.Error.Message)
	}

	data := map[string]interface{}{"details": "More information"}
	resp, err = NewErrorResponse(int64(2), MethodNotFound, "method not found", data)
	if err != nil {
		t.Fatalf("Expected NewErrorResponse with data to succeed, got error: %v", err)
	}

	if resp.Error.Code != MethodNotFound {
		t.Errorf("Expected Error.Code to be %d, got %d", MethodNotFound, resp.Error.Code)
	}

	if resp.Error.Data == nil {
		t.Fatal("Expected Error.Data to not be nil")
	}
}

func TestNewNotification(t *testing.T) {
	notif, err := NewNotification("test.notification", nil)
	if err != nil {
		t.Fatalf("Expected NewNotification with nil params to succeed, got error: %v", err)
	}

	if notif.Method != "test.notification" {
		t.Errorf("Expected Method to be 'test.notification', got %q", notif.Method)
	}

	if len(notif.Params) != 0 {
		t.Errorf("Expected Params to be empty, got %s", string(notif.Params))
	}

	_, err = NewNotification("", nil)
	if err == nil {
		t.Error("Expected NewNotification with empty method to fail")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		data string
		want MessageType
	}{
		{
			name: "request",
			data: `{"jsonrpc": "2.0", "id": 1, "method": "tools/list"}`,
			want: MessageRequest,
		},
		{
			name: "request with string id",
			data: `{"jsonrpc": "2.0", "id": "abc", "method": "ping", "params": {}}`,
			want: MessageRequest,
		},
		{
			name: "response with result",
			data: `{"jsonrpc": "2.0", "id": 1, "result": {"tools": []}}`,
			want: MessageResponse,
		},
		{
			name: "response with null result",
			data: `{"jsonrpc": "2.0", "id": 1, "result": null}`,
			want: MessageResponse,
		},
		{
			name: "response with error",
			data: `{"jsonrpc": "2.0", "id": 1, "error": {"code": -32601, "message": "method not found"}}`,
			want: MessageResponse,
		},
		{
			name: "notification",
			data: `{"jsonrpc": "2.0", "method": "notifications/initialized"}`,
			want: MessageNotification,
		},
		{
			name: "invalid JSON",
			data: `{"jsonrpc": "2.0", "id": 1, "method"`,
			want: MessageInvalid,
		},
		{
			name: "wrong version",
			data: `{"jsonrpc": "1.0", "id": 1, "method": "ping"}`,
			want: MessageInvalid,
		},
		{
			name: "response missing id",
			data: `{"jsonrpc": "2.0", "result": {}}`,
			want: MessageInvalid,
		},
		{
			name: "no method no result",
			data: `{"jsonrpc": "2.0", "id": 1}`,
			want: MessageInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify([]byte(tt.data)))
		})
	}
}

func TestIsRequestResponseNotification(t *testing.T) {
	req, err := NewRequest(int64(7), "tools/call", map[string]string{"name": "echo"})
	require.NoError(t, err)
	data, err := json.Marshal(req)
	require.NoError(t, err)

	assert.True(t, IsRequest(data))
	assert.False(t, IsResponse(data))
	assert.False(t, IsNotification(data))

	resp, err := NewResponse(int64(7), map[string]string{"ok": "yes"})
	require.NoError(t, err)
	data, err = json.Marshal(resp)
	require.NoError(t, err)

	assert.True(t, IsResponse(data))
	assert.False(t, IsRequest(data))

	notif, err := NewNotification(NotificationToolsChanged, nil)
	require.NoError(t, err)
	data, err = json.Marshal(notif)
	require.NoError(t, err)

	assert.True(t, IsNotification(data))
	assert.False(t, IsRequest(data))
}

func TestSniffMethod(t *testing.T) {
	assert.Equal(t, "tools/list", SniffMethod([]byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)))
	assert.Equal(t, "", SniffMethod([]byte(`{"jsonrpc":"2.0","id":1,"result":{}}`)))
	assert.Equal(t, "", SniffMethod([]byte(`not json`)))
}

func TestError_ErrorMethod(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "Typical error",
			err:      &Error{Code: InvalidRequest, Message: "Invalid Request"},
			expected: fmt.Sprintf("jsonrpc: code %d, message: Invalid Request", InvalidRequest),
		},
		{
			name:     "Error with data",
			err:      &Error{Code: InternalError, Message: "Internal Error", Data: "some data"},
			expected: fmt.Sprintf("jsonrpc: code %d, message: Internal Error", InternalError),
		},
		{
			name:     "Nil error",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}
