package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	mcperrors "github.com/crosswire-ai/mcp-go/pkg/errors"
	"github.com/crosswire-ai/mcp-go/pkg/logging"
	"github.com/crosswire-ai/mcp-go/pkg/observability"
	"github.com/crosswire-ai/mcp-go/pkg/protocol"
	"github.com/crosswire-ai/mcp-go/pkg/session"
	"github.com/crosswire-ai/mcp-go/pkg/transport"
)

const (
	defaultClientName    = "mcp-go-client"
	defaultClientVersion = "0.1.0"
)

// SamplingHandler answers sampling/createMessage requests issued by the
// server. Configure one with WithSamplingHandler to advertise the sampling
// capability; without it the request fails with method-not-found.
type SamplingHandler func(ctx context.Context, params *protocol.CreateMessageParams) (*protocol.CreateMessageResult, error)

// RootsProvider answers roots/list requests issued by the server.
// Configure one with WithRootsProvider (or WithRoots for a static set) to
// advertise the roots capability.
type RootsProvider func(ctx context.Context) ([]protocol.Root, error)

// ServerInfo identifies the peer reported by the initialize response.
type ServerInfo struct {
	Name            string
	Version         string
	ProtocolVersion string
}

// Option configures a Client during creation.
type Option func(*Client)

// WithClientInfo sets the name and version reported to the server during
// the handshake.
func WithClientInfo(name, version string) Option {
	return func(c *Client) {
		c.info = protocol.ClientInfo{Name: name, Version: version}
	}
}

// WithLogger sets the structured logger for the client and its session.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
		c.engineOpts = append(c.engineOpts, session.WithLogger(logger))
	}
}

// WithRequestTimeout sets the default timeout for outgoing requests.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.engineOpts = append(c.engineOpts, session.WithRequestTimeout(d))
	}
}

// WithClock injects the clock used for request timeouts. Tests use it to
// drive timeouts deterministically.
func WithClock(clock session.Clock) Option {
	return func(c *Client) {
		c.engineOpts = append(c.engineOpts, session.WithClock(clock))
	}
}

// WithMetrics sets the metrics provider for the underlying session.
func WithMetrics(m observability.MetricsProvider) Option {
	return func(c *Client) {
		c.engineOpts = append(c.engineOpts, session.WithMetrics(m))
	}
}

// WithSamplingHandler configures the handler for server-issued sampling
// requests and causes Connect to advertise the sampling capability.
func WithSamplingHandler(h SamplingHandler) Option {
	return func(c *Client) {
		c.sampling = h
	}
}

// WithRootsProvider configures the provider for server-issued roots/list
// requests and causes Connect to advertise the roots capability.
func WithRootsProvider(p RootsProvider) Option {
	return func(c *Client) {
		c.roots = p
	}
}

// WithRoots configures a fixed set of workspace roots. Shorthand for
// WithRootsProvider with a provider that always returns the given roots.
func WithRoots(roots ...protocol.Root) Option {
	return func(c *Client) {
		rs := make([]protocol.Root, len(roots))
		copy(rs, roots)
		c.roots = func(context.Context) ([]protocol.Root, error) {
			return rs, nil
		}
	}
}

// Client is one side of an MCP session: it drives the handshake, issues
// the client-to-server operations, answers the server-to-client requests
// it was configured for, and surfaces server notifications as events.
type Client struct {
	engine *session.Engine
	logger logging.Logger

	info     protocol.ClientInfo
	sampling SamplingHandler
	roots    RootsProvider

	engineOpts []session.Option

	mu         sync.RWMutex
	connected  bool
	serverInfo ServerInfo
	serverCaps protocol.ServerCapabilities
}

// New creates a client over the given transport. The transport must not be
// started; Connect starts it.
func New(t transport.Transport, opts ...Option) *Client {
	c := &Client{
		logger: logging.NewNoopLogger(),
		info:   protocol.ClientInfo{Name: defaultClientName, Version: defaultClientVersion},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithFields(logging.String("component", "client"))
	c.engine = session.New(t, c.engineOpts...)

	// Inbound request slots. Sampling and roots are wired only when
	// configured; unconfigured methods take the engine's method-not-found
	// path like any other unknown method.
	c.engine.Handle(protocol.MethodPing, c.handlePing)
	if c.sampling != nil {
		c.engine.Handle(protocol.MethodCreateMessage, c.handleCreateMessage)
	}
	if c.roots != nil {
		c.engine.Handle(protocol.MethodListRoots, c.handleListRoots)
	}
	c.engine.On(protocol.NotificationCancelled, c.handleCancelled)

	return c
}

// Connect starts the transport and runs the initialize handshake: it sends
// initialize with the client's advertised capabilities, records the
// server's identity and capabilities from the response, and confirms with
// notifications/initialized. On handshake failure the session is closed;
// the client cannot be connected again.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.engine.Start(ctx); err != nil {
		return err
	}

	params := &protocol.InitializeParams{
		ProtocolVersion: protocol.ProtocolRevision,
		Capabilities:    c.advertisedCapabilities(),
		ClientInfo:      &c.info,
	}

	raw, err := c.engine.Request(ctx, protocol.MethodInitialize, params)
	if err != nil {
		c.engine.Close()
		return fmt.Errorf("initialize request failed: %w", err)
	}

	var result protocol.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		c.engine.Close()
		return fmt.Errorf("failed to parse initialize result: %w", err)
	}

	c.mu.Lock()
	c.connected = true
	c.serverInfo = ServerInfo{
		Name:            result.Name,
		Version:         result.Version,
		ProtocolVersion: result.ProtocolVersion,
	}
	c.serverCaps = result.Capabilities
	c.mu.Unlock()

	c.engine.Activate()

	if err := c.engine.Notify(ctx, protocol.NotificationInitialized, &protocol.InitializedParams{}); err != nil {
		c.engine.Close()
		return fmt.Errorf("failed to send initialized notification: %w", err)
	}

	c.logger.Info("session initialized",
		logging.String("server", result.Name),
		logging.String("server_version", result.Version),
		logging.String("protocol_version", result.ProtocolVersion),
	)
	return nil
}

// advertisedCapabilities reflects the configured inbound slots. A key is
// present iff the matching handler was set before New.
func (c *Client) advertisedCapabilities() protocol.ClientCapabilities {
	var caps protocol.ClientCapabilities
	if c.sampling != nil {
		caps.Sampling = &protocol.SamplingCapability{}
	}
	if c.roots != nil {
		caps.Roots = &protocol.RootsCapability{ListChanged: true}
	}
	return caps
}

// Close ends the session and closes the transport. Pending requests fail
// with a disconnect error. Safe to call more than once.
func (c *Client) Close() error {
	return c.engine.Close()
}

// State returns the session lifecycle phase.
func (c *Client) State() session.State {
	return c.engine.State()
}

// SessionID returns the client-side session identifier used in logs and
// metrics.
func (c *Client) SessionID() string {
	return c.engine.ID()
}

// ServerInfo returns the server identity recorded during Connect. Zero
// before the handshake completes.
func (c *Client) ServerInfo() ServerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverInfo
}

// ServerCapabilities returns the capability set the server advertised
// during Connect. Capabilities are fixed for the session's life.
func (c *Client) ServerCapabilities() protocol.ServerCapabilities {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverCaps
}

// negotiated returns the server capabilities, reporting false until
// Connect has completed.
func (c *Client) negotiated() (protocol.ServerCapabilities, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serverCaps, c.connected
}

func (c *Client) requireTools() error {
	caps, ok := c.negotiated()
	if !ok {
		return mcperrors.NewNotConnectedError(c.engine.State().String())
	}
	if caps.Tools == nil {
		return errors.New("server does not support tools")
	}
	return nil
}

func (c *Client) requireResources() error {
	caps, ok := c.negotiated()
	if !ok {
		return mcperrors.NewNotConnectedError(c.engine.State().String())
	}
	if caps.Resources == nil {
		return errors.New("server does not support resources")
	}
	return nil
}

func (c *Client) requireResourceSubscriptions() error {
	caps, ok := c.negotiated()
	if !ok {
		return mcperrors.NewNotConnectedError(c.engine.State().String())
	}
	if caps.Resources == nil || !caps.Resources.Subscribe {
		return errors.New("server does not support resource subscriptions")
	}
	return nil
}

func (c *Client) requirePrompts() error {
	caps, ok := c.negotiated()
	if !ok {
		return mcperrors.NewNotConnectedError(c.engine.State().String())
	}
	if caps.Prompts == nil {
		return errors.New("server does not support prompts")
	}
	return nil
}

func (c *Client) requireLogging() error {
	caps, ok := c.negotiated()
	if !ok {
		return mcperrors.NewNotConnectedError(c.engine.State().String())
	}
	if caps.Logging == nil {
		return errors.New("server does not support logging")
	}
	return nil
}

// call issues a request and, when out is non-nil, decodes the result into
// it.
func (c *Client) call(ctx context.Context, method string, params, out interface{}, opts ...session.RequestOption) error {
	raw, err := c.engine.Request(ctx, method, params, opts...)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to parse %s result: %w", method, err)
	}
	return nil
}

func (c *Client) handlePing(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return &protocol.PingResult{}, nil
}

func (c *Client) handleCreateMessage(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p protocol.CreateMessageParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, mcperrors.NewInvalidParams(err.Error())
	}
	return c.sampling(ctx, &p)
}

func (c *Client) handleListRoots(ctx context.Context, params json.RawMessage) (interface{}, error) {
	roots, err := c.roots(ctx)
	if err != nil {
		return nil, err
	}
	if roots == nil {
		roots = []protocol.Root{}
	}
	return &protocol.ListRootsResult{Roots: roots}, nil
}

// handleCancelled maps the peer's cancelled notification onto the matching
// in-flight inbound request, if it is still running.
func (c *Client) handleCancelled(params json.RawMessage) {
	var p protocol.CancelledParams
	if err := json.Unmarshal(params, &p); err != nil {
		c.logger.WithError(err).Warn("malformed cancelled notification")
		return
	}
	if p.RequestID == nil {
		return
	}
	if c.engine.CancelInbound(p.RequestID) {
		c.logger.Debug("cancelled in-flight request",
			logging.Any("request_id", p.RequestID),
			logging.String("reason", p.Reason),
		)
	}
}
