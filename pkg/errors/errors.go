// Package errors provides the typed error taxonomy of the protocol engine.
// It distinguishes protocol errors carrying an explicit wire code from
// local failures (timeouts, disconnects, lookups) that never cross the
// wire, and performs the mapping to JSON-RPC error objects at the dispatch
// boundary.
package errors

import (
	"errors"
	"fmt"
	"time"

	"github.com/crosswire-ai/mcp-go/pkg/protocol"
)

// Category classifies failures by origin
type Category string

const (
	CategoryProtocol    Category = "protocol"
	CategoryTransport   Category = "transport"
	CategoryApplication Category = "application"
	CategoryTimeout     Category = "timeout"
	CategoryDisconnect  Category = "disconnect"
	CategoryNotFound    Category = "not_found"
	CategoryValidation  Category = "validation"
	CategoryInternal    Category = "internal"
)

// Categorized is implemented by every error type in this package
type Categorized interface {
	error
	Category() Category
}

// ProtocolError is a typed protocol failure carrying an explicit wire code.
// Only this type is translated verbatim into a Response error object; any
// other error surfaces as a generic application error at the dispatch
// boundary.
type ProtocolError struct {
	Code    protocol.ErrorCode
	Message string
	Data    interface{}
}

// NewProtocolError creates a protocol error with an explicit wire code
func NewProtocolError(code protocol.ErrorCode, message string) *ProtocolError {
	return &ProtocolError{Code: code, Message: message}
}

// WithData attaches structured data to the error for the wire
func (e *ProtocolError) WithData(data interface{}) *ProtocolError {
	e.Data = data
	return e
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error %d: %s", e.Code, e.Message)
}

// Category implements Categorized
func (e *ProtocolError) Category() Category {
	return CategoryProtocol
}

// ToWire converts the error to its wire representation
func (e *ProtocolError) ToWire() *protocol.Error {
	return &protocol.Error{Code: e.Code, Message: e.Message, Data: e.Data}
}

// FromWire converts a wire error object received in a response into a
// ProtocolError, preserving its code and data
func FromWire(werr *protocol.Error) *ProtocolError {
	if werr == nil {
		return nil
	}
	return &ProtocolError{Code: werr.Code, Message: werr.Message, Data: werr.Data}
}

// NewMethodNotFound creates the error sent for requests naming an
// unregistered method
func NewMethodNotFound(method string) *ProtocolError {
	return NewProtocolError(protocol.MethodNotFound, "method not found").
		WithData(map[string]string{"method": method})
}

// NewInvalidParams creates the error sent for structurally invalid request
// parameters
func NewInvalidParams(detail string) *ProtocolError {
	return NewProtocolError(protocol.InvalidParams, fmt.Sprintf("invalid params: %s", detail))
}

// TimeoutError reports that a request's deadline elapsed before its
// response arrived. Local only; a late response for the same id is dropped.
type TimeoutError struct {
	Method  string
	Timeout time.Duration
}

// NewTimeoutError creates a timeout error for an expired pending request
func NewTimeoutError(method string, timeout time.Duration) *TimeoutError {
	return &TimeoutError{Method: method, Timeout: timeout}
}

// Error implements the error interface
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request %q timed out after %s", e.Method, e.Timeout)
}

// Category implements Categorized
func (e *TimeoutError) Category() Category {
	return CategoryTimeout
}

// DisconnectedError reports that the session's transport closed while
// requests were still pending. Every pending request is rejected with it
// exactly once.
type DisconnectedError struct{}

// NewDisconnectedError creates a disconnect error
func NewDisconnectedError() *DisconnectedError {
	return &DisconnectedError{}
}

// Error implements the error interface
func (e *DisconnectedError) Error() string {
	return "session disconnected"
}

// Category implements Categorized
func (e *DisconnectedError) Category() Category {
	return CategoryDisconnect
}

// NotConnectedError reports a request issued outside the Active session
// state. The request fails fast and is never queued.
type NotConnectedError struct {
	State string
}

// NewNotConnectedError creates a not-connected error naming the current
// session state
func NewNotConnectedError(state string) *NotConnectedError {
	return &NotConnectedError{State: state}
}

// Error implements the error interface
func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("session not connected (state: %s)", e.State)
}

// Category implements Categorized
func (e *NotConnectedError) Category() Category {
	return CategoryTransport
}

// NotFoundError reports a failed registry or matcher lookup
type NotFoundError struct {
	Kind string
	Key  string
}

// NewNotFoundError creates a not-found error for a registry lookup
func NewNotFoundError(kind, key string) *NotFoundError {
	return &NotFoundError{Kind: kind, Key: key}
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// Category implements Categorized
func (e *NotFoundError) Category() Category {
	return CategoryNotFound
}

// TransportError reports a failure inside a transport implementation
type TransportError struct {
	Op  string
	Err error
}

// NewTransportError wraps a transport failure with the operation name
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}

// Error implements the error interface
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying failure
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Category implements Categorized
func (e *TransportError) Category() Category {
	return CategoryTransport
}

// AsProtocolError extracts a ProtocolError from an error chain
func AsProtocolError(err error) (*ProtocolError, bool) {
	var pe *ProtocolError
	ok := errors.As(err, &pe)
	return pe, ok
}

// IsTimeout reports whether the error chain contains a TimeoutError
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsDisconnected reports whether the error chain contains a DisconnectedError
func IsDisconnected(err error) bool {
	var de *DisconnectedError
	return errors.As(err, &de)
}

// IsNotConnected reports whether the error chain contains a NotConnectedError
func IsNotConnected(err error) bool {
	var ne *NotConnectedError
	return errors.As(err, &ne)
}

// IsNotFound reports whether the error chain contains a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// CategoryOf returns the category of the first categorized error in the
// chain, or CategoryApplication for plain errors
func CategoryOf(err error) Category {
	var c Categorized
	if errors.As(err, &c) {
		return c.Category()
	}
	return CategoryApplication
}

// ToWireError maps a handler error to the wire error object sent back to
// the peer: a typed protocol error keeps its code, message and data;
// anything else becomes a generic application error
func ToWireError(err error) *protocol.Error {
	if pe, ok := AsProtocolError(err); ok {
		return pe.ToWire()
	}
	return &protocol.Error{
		Code:    protocol.ApplicationError,
		Message: err.Error(),
	}
}
