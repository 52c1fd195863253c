// Package session implements the protocol engine shared by the client and
// server roles: request correlation, deadline tracking, inbound dispatch,
// and session lifecycle over a single Transport.
//
// The engine is symmetric. Either side issues requests with Request, emits
// notifications with Notify, serves the peer's requests through handlers
// registered with Handle, and observes the peer's notifications through
// subscribers registered with On. All engine state is per instance; two
// sessions in one process never share anything.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	mcperrors "github.com/crosswire-ai/mcp-go/pkg/errors"
	"github.com/crosswire-ai/mcp-go/pkg/logging"
	"github.com/crosswire-ai/mcp-go/pkg/observability"
	"github.com/crosswire-ai/mcp-go/pkg/protocol"
	"github.com/crosswire-ai/mcp-go/pkg/transport"
)

// DefaultRequestTimeout bounds outbound requests that carry no per-call
// override.
const DefaultRequestTimeout = 30 * time.Second

// ErrAlreadyStarted is returned by Start on a session that already ran.
var ErrAlreadyStarted = errors.New("session already started")

// State is the lifecycle phase of a session.
type State int

const (
	// StateCreated is the phase before Start.
	StateCreated State = iota
	// StateHandshaking is the phase between Start and activation. Only
	// the initialize exchange may flow.
	StateHandshaking
	// StateActive is the operational phase. Requests flow both ways.
	StateActive
	// StateClosed is terminal. Every operation fails fast.
	StateClosed
)

// String returns the lifecycle phase name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateHandshaking:
		return "handshaking"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// RequestHandler serves one inbound request method. The returned value is
// marshaled into the response result. Returning a *mcperrors.ProtocolError
// puts its code on the wire verbatim; any other error becomes a generic
// application error.
type RequestHandler func(ctx context.Context, params json.RawMessage) (interface{}, error)

// NotificationHandler observes one inbound notification method.
type NotificationHandler func(params json.RawMessage)

// ErrorHandler observes session-level failures: transport errors, malformed
// inbound payloads, undeliverable responses. The session stays up; only a
// transport close ends it.
type ErrorHandler func(err error)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Defaults to a noop logger.
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock injects the timer source. Defaults to the real clock.
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithRequestTimeout sets the default deadline for outbound requests.
// Zero disables the deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.defaultTimeout = d
	}
}

// WithMetrics attaches a metrics provider. Defaults to noop.
func WithMetrics(m observability.MetricsProvider) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithErrorHandler sets the session error callback.
func WithErrorHandler(h ErrorHandler) Option {
	return func(e *Engine) {
		e.errorHandler = h
	}
}

// RequestOption configures a single Request call.
type RequestOption func(*requestOptions)

type requestOptions struct {
	timeout time.Duration
}

// WithTimeout overrides the request deadline for one call. Zero disables
// the deadline.
func WithTimeout(d time.Duration) RequestOption {
	return func(o *requestOptions) {
		o.timeout = d
	}
}

// Engine drives one session over one transport.
type Engine struct {
	id        string
	transport transport.Transport
	logger    logging.Logger
	metrics   observability.MetricsProvider
	clock     Clock

	defaultTimeout time.Duration
	errorHandler   ErrorHandler

	pending *pendingTable

	mu          sync.RWMutex
	state       State
	handlers    map[string]RequestHandler
	subscribers map[string][]subscriber
	nextSubID   int
	inflight    map[string]context.CancelFunc

	baseCtx context.Context
	cancel  context.CancelFunc

	closeOnce sync.Once
}

type subscriber struct {
	id int
	fn NotificationHandler
}

// New creates an engine over t. The engine does not touch the transport
// until Start.
func New(t transport.Transport, opts ...Option) *Engine {
	e := &Engine{
		id:             uuid.NewString(),
		transport:      t,
		logger:         logging.NewNoopLogger(),
		metrics:        observability.NewNoopMetricsProvider(),
		clock:          NewRealClock(),
		defaultTimeout: DefaultRequestTimeout,
		state:          StateCreated,
		handlers:       make(map[string]RequestHandler),
		subscribers:    make(map[string][]subscriber),
		inflight:       make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.pending = newPendingTable(e.clock)
	e.logger = e.logger.WithFields(
		logging.String("component", "session"),
		logging.String("session_id", e.id),
	)
	return e
}

// ID returns the engine's session id.
func (e *Engine) ID() string {
	return e.id
}

// State returns the current lifecycle phase.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Start wires the engine into its transport and starts it. The session
// enters Handshaking; activation is the caller's move once the initialize
// exchange completes.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateCreated {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	e.baseCtx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()

	e.transport.SetMessageHandler(e.handleMessage)
	e.transport.SetCloseHandler(e.handleTransportClose)
	e.transport.SetErrorHandler(e.handleTransportError)

	if err := e.transport.Start(ctx); err != nil {
		return err
	}

	e.setState(StateHandshaking)
	e.metrics.RecordActiveSessions(ctx, 1)
	e.logger.Debug("session started")
	return nil
}

// Activate moves the session from Handshaking to Active. The client calls
// it on receiving the initialize response, the server on having answered
// initialize.
func (e *Engine) Activate() {
	e.mu.Lock()
	if e.state != StateHandshaking {
		e.mu.Unlock()
		return
	}
	e.state = StateActive
	e.mu.Unlock()

	e.metrics.RecordSessionState(context.Background(), StateActive.String())
	e.logger.Debug("session active")
}

// Close ends the session: every pending request is rejected with a
// disconnect error, in-flight inbound handlers are cancelled, and the
// transport is closed. Safe to call more than once.
func (e *Engine) Close() error {
	e.shutdown()
	return e.transport.Close()
}

// shutdown runs the session teardown exactly once. The transport close
// handler and Close share it.
func (e *Engine) shutdown() {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		started := e.baseCtx != nil
		cancel := e.cancel
		e.state = StateClosed
		e.mu.Unlock()

		e.metrics.RecordSessionState(context.Background(), StateClosed.String())
		if cancel != nil {
			cancel()
		}
		e.pending.rejectAll(mcperrors.NewDisconnectedError())
		if started {
			e.metrics.RecordActiveSessions(context.Background(), -1)
		}
		e.logger.Debug("session closed")
	})
}

// setState transitions the lifecycle phase. Closed is terminal and never
// overwritten.
func (e *Engine) setState(s State) {
	e.mu.Lock()
	if e.state == s || e.state == StateClosed {
		e.mu.Unlock()
		return
	}
	e.state = s
	e.mu.Unlock()
	e.metrics.RecordSessionState(context.Background(), s.String())
}

// Handle registers the handler for an inbound request method, replacing
// any previous registration.
func (e *Engine) Handle(method string, handler RequestHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if handler == nil {
		delete(e.handlers, method)
		return
	}
	e.handlers[method] = handler
}

// On subscribes to an inbound notification method. Subscribers for the
// same method run in registration order. The returned function removes
// the subscription.
func (e *Engine) On(method string, handler NotificationHandler) func() {
	e.mu.Lock()
	e.nextSubID++
	id := e.nextSubID
	e.subscribers[method] = append(e.subscribers[method], subscriber{id: id, fn: handler})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		subs := e.subscribers[method]
		for i, s := range subs {
			if s.id == id {
				e.subscribers[method] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Request sends a request to the peer and blocks until its response
// arrives, its deadline elapses, ctx is done, or the session disconnects.
// Outside the Active phase it fails fast; only initialize may be issued
// while Handshaking.
func (e *Engine) Request(ctx context.Context, method string, params interface{}, opts ...RequestOption) (json.RawMessage, error) {
	ro := requestOptions{timeout: e.defaultTimeout}
	for _, opt := range opts {
		opt(&ro)
	}

	if err := e.checkSendable(method); err != nil {
		return nil, err
	}

	call, err := e.pending.register(method, ro.timeout)
	if err != nil {
		return nil, err
	}
	e.recordPending()

	req, err := protocol.NewRequest(call.id, method, params)
	if err != nil {
		e.pending.remove(call.key)
		e.recordPending()
		return nil, err
	}
	data, err := json.Marshal(req)
	if err != nil {
		e.pending.remove(call.key)
		e.recordPending()
		return nil, err
	}

	start := e.clock.Now()
	e.logger.Debug("request sent",
		logging.String("method", method),
		logging.Int("id", int(call.id)))

	if err := e.transport.Send(ctx, data); err != nil {
		e.pending.remove(call.key)
		e.recordPending()
		e.metrics.RecordRequest(ctx, method, "error", e.clock.Now().Sub(start))
		return nil, err
	}

	select {
	case res := <-call.ch:
		e.recordPending()
		return e.settle(ctx, method, start, res)
	case <-ctx.Done():
		e.pending.remove(call.key)
		e.recordPending()
		e.metrics.RecordRequest(ctx, method, "cancelled", e.clock.Now().Sub(start))
		return nil, ctx.Err()
	}
}

// settle translates a delivered pending result into the Request return
// values and records the outcome.
func (e *Engine) settle(ctx context.Context, method string, start time.Time, res pendingResult) (json.RawMessage, error) {
	duration := e.clock.Now().Sub(start)
	switch {
	case res.err != nil:
		status := "error"
		if mcperrors.IsTimeout(res.err) {
			status = "timeout"
		} else if mcperrors.IsDisconnected(res.err) {
			status = "disconnected"
		}
		e.metrics.RecordRequest(ctx, method, status, duration)
		e.logger.Debug("request failed",
			logging.String("method", method),
			logging.String("status", status))
		return nil, res.err
	case res.resp.Error != nil:
		e.metrics.RecordRequest(ctx, method, "error", duration)
		e.metrics.RecordError(ctx, fmt.Sprintf("%d", int(res.resp.Error.Code)), method)
		return nil, mcperrors.FromWire(res.resp.Error)
	default:
		e.metrics.RecordRequest(ctx, method, "success", duration)
		return res.resp.Result, nil
	}
}

// Notify sends a fire-and-forget notification to the peer. Allowed while
// Handshaking so the initialized notification can flow.
func (e *Engine) Notify(ctx context.Context, method string, params interface{}) error {
	state := e.State()
	if state == StateCreated || state == StateClosed {
		return mcperrors.NewNotConnectedError(state.String())
	}

	notif, err := protocol.NewNotification(method, params)
	if err != nil {
		return err
	}
	data, err := json.Marshal(notif)
	if err != nil {
		return err
	}
	e.logger.Debug("notification sent", logging.String("method", method))
	return e.transport.Send(ctx, data)
}

// CancelInbound cancels the context of the in-flight inbound request with
// the given wire id. It reports whether such a request was running.
func (e *Engine) CancelInbound(id interface{}) bool {
	key, ok := normalizeID(id)
	if !ok {
		return false
	}
	e.mu.Lock()
	cancel, ok := e.inflight[key]
	e.mu.Unlock()
	if !ok {
		return false
	}
	cancel()
	e.logger.Debug("inbound request cancelled", logging.String("request_id", key))
	return true
}

func (e *Engine) checkSendable(method string) error {
	state := e.State()
	switch {
	case state == StateActive:
		return nil
	case state == StateHandshaking && method == protocol.MethodInitialize:
		return nil
	default:
		return mcperrors.NewNotConnectedError(state.String())
	}
}

func (e *Engine) recordPending() {
	e.metrics.RecordGauge("pending_requests", float64(e.pending.len()),
		prometheus.Labels{"session": e.id})
}

// handleMessage is the transport message callback. It classifies the
// envelope and routes it. Responses settle on this goroutine since
// delivery never blocks; requests and notifications move to their own
// goroutines so handlers cannot stall the transport.
func (e *Engine) handleMessage(data []byte) {
	switch protocol.Classify(data) {
	case protocol.MessageResponse:
		var resp protocol.Response
		if err := json.Unmarshal(data, &resp); err != nil {
			e.emitError(fmt.Errorf("malformed response: %w", err))
			return
		}
		if !e.pending.resolve(resp.ID, &resp) {
			e.logger.Debug("dropped response with no pending request",
				logging.Any("id", resp.ID))
		}

	case protocol.MessageRequest:
		var req protocol.Request
		if err := json.Unmarshal(data, &req); err != nil {
			e.emitError(fmt.Errorf("malformed request: %w", err))
			return
		}
		go e.dispatchRequest(&req)

	case protocol.MessageNotification:
		var notif protocol.Notification
		if err := json.Unmarshal(data, &notif); err != nil {
			e.emitError(fmt.Errorf("malformed notification: %w", err))
			return
		}
		go e.dispatchNotification(&notif)

	default:
		e.emitError(fmt.Errorf("invalid message: %s", truncate(data, 256)))
		if id, ok := sniffID(data); ok {
			e.respondError(id, protocol.InvalidRequest, "invalid request", nil)
		}
	}
}

// dispatchRequest serves one inbound request and answers it exactly once.
func (e *Engine) dispatchRequest(req *protocol.Request) {
	start := e.clock.Now()

	e.mu.RLock()
	handler, ok := e.handlers[req.Method]
	e.mu.RUnlock()

	if !ok {
		e.logger.Debug("request for unregistered method",
			logging.String("method", req.Method))
		e.metrics.RecordIncomingRequest(context.Background(), req.Method, "unhandled", e.clock.Now().Sub(start))
		werr := mcperrors.NewMethodNotFound(req.Method).ToWire()
		e.respondError(req.ID, werr.Code, werr.Message, werr.Data)
		return
	}

	ctx, key := e.trackInbound(req.ID)
	defer e.untrackInbound(key)

	resp := e.executeRequest(ctx, req, handler)

	status := "success"
	if resp.Error != nil {
		status = "error"
		e.metrics.RecordError(ctx, fmt.Sprintf("%d", int(resp.Error.Code)), req.Method)
	}
	e.metrics.RecordIncomingRequest(ctx, req.Method, status, e.clock.Now().Sub(start))

	e.sendResponse(resp)
}

// executeRequest runs the handler with panic recovery and maps its outcome
// onto a response. It always returns a response for the request id.
func (e *Engine) executeRequest(ctx context.Context, req *protocol.Request, handler RequestHandler) (resp *protocol.Response) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic in request handler",
				logging.String("method", req.Method),
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())))
			resp = &protocol.Response{
				JSONRPCMessage: protocol.JSONRPCMessage{JSONRPC: protocol.JSONRPCVersion},
				ID:             req.ID,
				Error: &protocol.Error{
					Code:    protocol.InternalError,
					Message: fmt.Sprintf("internal error handling %s", req.Method),
				},
			}
		}
	}()

	result, err := handler(ctx, req.Params)
	if err != nil {
		return &protocol.Response{
			JSONRPCMessage: protocol.JSONRPCMessage{JSONRPC: protocol.JSONRPCVersion},
			ID:             req.ID,
			Error:          mcperrors.ToWireError(err),
		}
	}

	resp, merr := protocol.NewResponse(req.ID, result)
	if merr != nil {
		return &protocol.Response{
			JSONRPCMessage: protocol.JSONRPCMessage{JSONRPC: protocol.JSONRPCVersion},
			ID:             req.ID,
			Error: &protocol.Error{
				Code:    protocol.InternalError,
				Message: fmt.Sprintf("failed to marshal result: %v", merr),
			},
		}
	}
	return resp
}

// dispatchNotification fans one inbound notification out to its
// subscribers. Each subscriber is panic-isolated; one failing observer
// never affects the others.
func (e *Engine) dispatchNotification(notif *protocol.Notification) {
	e.mu.RLock()
	subs := make([]subscriber, len(e.subscribers[notif.Method]))
	copy(subs, e.subscribers[notif.Method])
	e.mu.RUnlock()

	if len(subs) == 0 {
		e.logger.Debug("notification with no subscribers",
			logging.String("method", notif.Method))
		return
	}

	for _, s := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.logger.Error("panic in notification subscriber",
						logging.String("method", notif.Method),
						logging.Any("panic", r))
				}
			}()
			s.fn(notif.Params)
		}()
	}
}

// trackInbound registers an in-flight inbound request so a cancellation
// notification can reach its context.
func (e *Engine) trackInbound(id interface{}) (context.Context, string) {
	e.mu.Lock()
	base := e.baseCtx
	e.mu.Unlock()
	if base == nil {
		base = context.Background()
	}

	key, ok := normalizeID(id)
	if !ok {
		return base, ""
	}

	ctx, cancel := context.WithCancel(base)
	ctx = logging.ContextWithRequestID(ctx, key)

	e.mu.Lock()
	e.inflight[key] = cancel
	e.mu.Unlock()
	return ctx, key
}

func (e *Engine) untrackInbound(key string) {
	if key == "" {
		return
	}
	e.mu.Lock()
	cancel, ok := e.inflight[key]
	delete(e.inflight, key)
	e.mu.Unlock()
	if ok {
		cancel()
	}
}

// respondError sends an error response for an inbound request id.
func (e *Engine) respondError(id interface{}, code protocol.ErrorCode, message string, data interface{}) {
	resp, err := protocol.NewErrorResponse(id, code, message, data)
	if err != nil {
		e.emitError(fmt.Errorf("failed to build error response: %w", err))
		return
	}
	e.sendResponse(resp)
}

func (e *Engine) sendResponse(resp *protocol.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		e.emitError(fmt.Errorf("failed to marshal response: %w", err))
		return
	}

	e.mu.RLock()
	ctx := e.baseCtx
	e.mu.RUnlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := e.transport.Send(ctx, data); err != nil {
		e.emitError(fmt.Errorf("failed to send response: %w", err))
	}
}

// handleTransportClose runs the session teardown when the transport closes
// underneath us.
func (e *Engine) handleTransportClose() {
	e.logger.Debug("transport closed")
	e.shutdown()
}

// handleTransportError surfaces a transport failure without ending the
// session.
func (e *Engine) handleTransportError(err error) {
	e.emitError(err)
}

func (e *Engine) emitError(err error) {
	e.logger.WithError(err).Error("session error")
	e.mu.RLock()
	handler := e.errorHandler
	e.mu.RUnlock()
	if handler != nil {
		handler(err)
	}
}

// sniffID extracts an id from a payload that failed envelope
// classification, so a malformed request can still be answered.
func sniffID(data []byte) (interface{}, bool) {
	var probe struct {
		ID     interface{} `json:"id"`
		Method string      `json:"method"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, false
	}
	if probe.ID == nil || probe.Method == "" {
		return nil, false
	}
	return probe.ID, true
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
