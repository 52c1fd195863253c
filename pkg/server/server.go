package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yosida95/uritemplate/v3"

	mcperrors "github.com/crosswire-ai/mcp-go/pkg/errors"
	"github.com/crosswire-ai/mcp-go/pkg/logging"
	"github.com/crosswire-ai/mcp-go/pkg/observability"
	"github.com/crosswire-ai/mcp-go/pkg/pagination"
	"github.com/crosswire-ai/mcp-go/pkg/protocol"
	"github.com/crosswire-ai/mcp-go/pkg/session"
	"github.com/crosswire-ai/mcp-go/pkg/transport"
)

const (
	defaultServerName    = "mcp-go-server"
	defaultServerVersion = "0.1.0"
)

// ToolHandler executes one tool call. Arguments arrive as the raw JSON
// the client sent; NewTool wraps typed decoding around this signature.
type ToolHandler func(ctx context.Context, args json.RawMessage) (*protocol.CallToolResult, error)

// ResourceHandler reads one resource. For template-registered handlers,
// params carries the variables extracted from the matched URI; for
// concrete resources it is nil.
type ResourceHandler func(ctx context.Context, uri string, params map[string]string) (*protocol.ReadResourceResult, error)

// PromptHandler renders one prompt with the client-supplied arguments.
type PromptHandler func(ctx context.Context, args map[string]string) (*protocol.GetPromptResult, error)

// Option configures a Server during creation.
type Option func(*Server)

// WithServerInfo sets the name and version reported to the client during
// the handshake.
func WithServerInfo(name, version string) Option {
	return func(s *Server) {
		s.name = name
		s.version = version
	}
}

// WithLogger sets the structured logger for the server and its session.
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		s.logger = logger
		s.engineOpts = append(s.engineOpts, session.WithLogger(logger))
	}
}

// WithStrictInitialization rejects feature requests received between the
// initialize reply and the client's initialized notification with a
// server-not-ready error. The default serves them immediately.
func WithStrictInitialization() Option {
	return func(s *Server) {
		s.strict = true
	}
}

// WithClock injects the clock used for request timeouts.
func WithClock(clock session.Clock) Option {
	return func(s *Server) {
		s.engineOpts = append(s.engineOpts, session.WithClock(clock))
	}
}

// WithRequestTimeout sets the default timeout for server-to-client
// requests.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.engineOpts = append(s.engineOpts, session.WithRequestTimeout(d))
	}
}

// WithPageSize sets the page size for list results. Values above the
// pagination ceiling are clamped.
func WithPageSize(n int) Option {
	return func(s *Server) {
		s.pageSize = pagination.ClampLimit(n)
	}
}

// WithMetrics sets the metrics provider for the session and the feature
// handlers.
func WithMetrics(m observability.MetricsProvider) Option {
	return func(s *Server) {
		s.metrics = m
		s.engineOpts = append(s.engineOpts, session.WithMetrics(m))
	}
}

// Server is one side of an MCP session: it owns the feature registries,
// answers the client-to-server operations, emits change notifications,
// and can call back into a capable client.
type Server struct {
	engine  *session.Engine
	logger  logging.Logger
	metrics observability.MetricsProvider

	name     string
	version  string
	pageSize int
	strict   bool

	engineOpts []session.Option

	tools     *registry[toolEntry]
	resources *registry[resourceEntry]
	templates *registry[templateEntry]
	prompts   *registry[promptEntry]

	mu          sync.RWMutex
	clientInfo  *protocol.ClientInfo
	clientCaps  protocol.ClientCapabilities
	handshaken  bool
	ready       bool
	minLogLevel protocol.LoggingLevel

	subsMu        sync.RWMutex
	subscriptions map[string]struct{}
}

// New creates a server over the given transport. Registries are
// per-session: each Server instance carries its own tool, resource and
// prompt sets. The transport must not be started; Start starts it.
func New(t transport.Transport, opts ...Option) *Server {
	s := &Server{
		logger:        logging.NewNoopLogger(),
		metrics:       observability.NewNoopMetricsProvider(),
		name:          defaultServerName,
		version:       defaultServerVersion,
		pageSize:      pagination.DefaultLimit,
		tools:         newRegistry[toolEntry](),
		resources:     newRegistry[resourceEntry](),
		templates:     newRegistry[templateEntry](),
		prompts:       newRegistry[promptEntry](),
		minLogLevel:   protocol.LoggingLevelInfo,
		subscriptions: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithFields(logging.String("component", "server"))
	s.engine = session.New(t, s.engineOpts...)

	s.engine.Handle(protocol.MethodInitialize, s.handleInitialize)
	s.engine.Handle(protocol.MethodPing, s.handlePing)
	s.engine.Handle(protocol.MethodListTools, s.guarded(s.handleListTools))
	s.engine.Handle(protocol.MethodCallTool, s.guarded(s.handleCallTool))
	s.engine.Handle(protocol.MethodListResources, s.guarded(s.handleListResources))
	s.engine.Handle(protocol.MethodListResourceTemplates, s.guarded(s.handleListResourceTemplates))
	s.engine.Handle(protocol.MethodReadResource, s.guarded(s.handleReadResource))
	s.engine.Handle(protocol.MethodSubscribeResource, s.guarded(s.handleSubscribeResource))
	s.engine.Handle(protocol.MethodUnsubscribeResource, s.guarded(s.handleUnsubscribeResource))
	s.engine.Handle(protocol.MethodListPrompts, s.guarded(s.handleListPrompts))
	s.engine.Handle(protocol.MethodGetPrompt, s.guarded(s.handleGetPrompt))
	s.engine.Handle(protocol.MethodSetLogLevel, s.guarded(s.handleSetLogLevel))

	s.engine.On(protocol.NotificationInitialized, s.handleInitialized)
	s.engine.On(protocol.NotificationCancelled, s.handleCancelled)

	return s
}

// Start wires the server into its transport and begins serving. The
// session activates once a client completes the initialize exchange.
func (s *Server) Start(ctx context.Context) error {
	return s.engine.Start(ctx)
}

// Close ends the session and closes the transport. Safe to call more
// than once.
func (s *Server) Close() error {
	return s.engine.Close()
}

// State returns the session lifecycle phase.
func (s *Server) State() session.State {
	return s.engine.State()
}

// SessionID returns the server-side session identifier used in logs and
// metrics.
func (s *Server) SessionID() string {
	return s.engine.ID()
}

// ClientInfo returns the identity the client reported during the
// handshake, or nil before initialize.
func (s *Server) ClientInfo() *protocol.ClientInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.clientInfo == nil {
		return nil
	}
	info := *s.clientInfo
	return &info
}

// ClientCapabilities returns the capability set the client advertised
// during the handshake.
func (s *Server) ClientCapabilities() protocol.ClientCapabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientCaps
}

// Registration

// AddTool registers or replaces a tool by name. Once the session is
// active the change is announced with a tools list_changed notification.
func (s *Server) AddTool(tool protocol.Tool, handler ToolHandler) {
	s.tools.add(tool.Name, toolEntry{tool: tool, handler: handler})
	s.announce(protocol.NotificationToolsChanged)
}

// RemoveTool removes a tool by name and reports whether it was present.
func (s *Server) RemoveTool(name string) bool {
	removed := s.tools.remove(name)
	if removed {
		s.announce(protocol.NotificationToolsChanged)
	}
	return removed
}

// AddResource registers or replaces a concrete resource by URI.
func (s *Server) AddResource(resource protocol.Resource, handler ResourceHandler) {
	s.resources.add(resource.URI, resourceEntry{resource: resource, handler: handler})
	s.announce(protocol.NotificationResourcesChanged)
}

// RemoveResource removes a concrete resource by URI and reports whether
// it was present.
func (s *Server) RemoveResource(uri string) bool {
	removed := s.resources.remove(uri)
	if removed {
		s.announce(protocol.NotificationResourcesChanged)
	}
	return removed
}

// AddResourceTemplate registers or replaces a resource template by its
// URI pattern. The pattern is compiled once at registration; reads match
// templates in registration order after exact URIs.
func (s *Server) AddResourceTemplate(template protocol.ResourceTemplate, handler ResourceHandler) error {
	compiled, err := uritemplate.New(template.URITemplate)
	if err != nil {
		return fmt.Errorf("invalid URI template %q: %w", template.URITemplate, err)
	}
	s.templates.add(template.URITemplate, templateEntry{
		template: template,
		compiled: compiled,
		handler:  handler,
	})
	s.announce(protocol.NotificationResourcesChanged)
	return nil
}

// RemoveResourceTemplate removes a template by its URI pattern and
// reports whether it was present.
func (s *Server) RemoveResourceTemplate(pattern string) bool {
	removed := s.templates.remove(pattern)
	if removed {
		s.announce(protocol.NotificationResourcesChanged)
	}
	return removed
}

// AddPrompt registers or replaces a prompt by name.
func (s *Server) AddPrompt(prompt protocol.Prompt, handler PromptHandler) {
	s.prompts.add(prompt.Name, promptEntry{prompt: prompt, handler: handler})
	s.announce(protocol.NotificationPromptsChanged)
}

// RemovePrompt removes a prompt by name and reports whether it was
// present.
func (s *Server) RemovePrompt(name string) bool {
	removed := s.prompts.remove(name)
	if removed {
		s.announce(protocol.NotificationPromptsChanged)
	}
	return removed
}

// announce emits a list_changed notification for registry mutations once
// the session is active. Changes made before the handshake stay silent;
// the initialize response already reflects them.
func (s *Server) announce(method string) {
	if s.engine.State() != session.StateActive {
		return
	}
	if err := s.engine.Notify(context.Background(), method, nil); err != nil {
		s.logger.WithError(err).Warn("failed to send change notification",
			logging.String("method", method))
	}
}

// Notifications

// NotifyToolsChanged emits a tools list_changed notification.
func (s *Server) NotifyToolsChanged() error {
	return s.engine.Notify(context.Background(), protocol.NotificationToolsChanged, nil)
}

// NotifyResourcesChanged emits a resources list_changed notification.
func (s *Server) NotifyResourcesChanged() error {
	return s.engine.Notify(context.Background(), protocol.NotificationResourcesChanged, nil)
}

// NotifyPromptsChanged emits a prompts list_changed notification.
func (s *Server) NotifyPromptsChanged() error {
	return s.engine.Notify(context.Background(), protocol.NotificationPromptsChanged, nil)
}

// NotifyResourceUpdated emits a resources/updated notification for uri if
// the client subscribed to it, and reports whether one was sent.
func (s *Server) NotifyResourceUpdated(uri string) bool {
	s.subsMu.RLock()
	_, subscribed := s.subscriptions[uri]
	s.subsMu.RUnlock()
	if !subscribed {
		return false
	}

	err := s.engine.Notify(context.Background(), protocol.NotificationResourceUpdated,
		&protocol.ResourceUpdatedParams{URI: uri})
	if err != nil {
		s.logger.WithError(err).Warn("failed to send resource updated notification",
			logging.String("uri", uri))
		return false
	}
	return true
}

// NotifyProgress reports progress for a long-running operation under the
// given token.
func (s *Server) NotifyProgress(token string, progress, total float64) error {
	return s.engine.Notify(context.Background(), protocol.NotificationProgress,
		&protocol.ProgressParams{ProgressToken: token, Progress: progress, Total: total})
}

// NewProgressToken mints a token for correlating progress notifications
// with an operation.
func NewProgressToken() string {
	return uuid.NewString()
}

// LogMessage forwards a log message to the client when level passes the
// minimum the client set with logging/setLevel (info until set). The data
// payload is marshaled as the message body.
func (s *Server) LogMessage(level protocol.LoggingLevel, loggerName string, data interface{}) error {
	if !level.Valid() {
		return fmt.Errorf("invalid logging level %q", level)
	}

	s.mu.RLock()
	min := s.minLogLevel
	s.mu.RUnlock()
	if level.Severity() < min.Severity() {
		return nil
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal log data: %w", err)
	}
	return s.engine.Notify(context.Background(), protocol.NotificationMessage,
		&protocol.LoggingMessageParams{Level: level, Logger: loggerName, Data: payload})
}

// Server-to-client requests

// CreateMessage asks the client to run a sampling request. Fails locally
// unless the client advertised sampling support.
func (s *Server) CreateMessage(ctx context.Context, params *protocol.CreateMessageParams) (*protocol.CreateMessageResult, error) {
	if err := s.requireClientSampling(); err != nil {
		return nil, err
	}

	raw, err := s.engine.Request(ctx, protocol.MethodCreateMessage, params)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", protocol.MethodCreateMessage, err)
	}
	var result protocol.CreateMessageResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to parse %s result: %w", protocol.MethodCreateMessage, err)
	}
	return &result, nil
}

// ListRoots fetches the client's workspace roots. Fails locally unless
// the client advertised roots support.
func (s *Server) ListRoots(ctx context.Context) ([]protocol.Root, error) {
	if err := s.requireClientRoots(); err != nil {
		return nil, err
	}

	raw, err := s.engine.Request(ctx, protocol.MethodListRoots, &protocol.ListRootsParams{})
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", protocol.MethodListRoots, err)
	}
	var result protocol.ListRootsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to parse %s result: %w", protocol.MethodListRoots, err)
	}
	return result.Roots, nil
}

// Ping checks that the client is responsive.
func (s *Server) Ping(ctx context.Context) error {
	_, err := s.engine.Request(ctx, protocol.MethodPing, &protocol.PingParams{})
	if err != nil {
		return fmt.Errorf("ping request failed: %w", err)
	}
	return nil
}

func (s *Server) requireClientSampling() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.handshaken {
		return mcperrors.NewNotConnectedError(s.engine.State().String())
	}
	if s.clientCaps.Sampling == nil {
		return errors.New("client does not support sampling")
	}
	return nil
}

func (s *Server) requireClientRoots() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.handshaken {
		return mcperrors.NewNotConnectedError(s.engine.State().String())
	}
	if s.clientCaps.Roots == nil {
		return errors.New("client does not support roots")
	}
	return nil
}

// Handshake

func (s *Server) handleInitialize(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p protocol.InitializeParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.clientInfo = p.ClientInfo
	s.clientCaps = p.Capabilities
	s.handshaken = true
	s.mu.Unlock()

	if p.ClientInfo != nil {
		s.logger.Info("client connected",
			logging.String("client", p.ClientInfo.Name),
			logging.String("client_version", p.ClientInfo.Version),
			logging.String("protocol_version", p.ProtocolVersion),
		)
	}

	result := &protocol.InitializeResult{
		ProtocolVersion: protocol.ProtocolRevision,
		Name:            s.name,
		Version:         s.version,
		Capabilities:    s.capabilities(),
	}

	// The session is active from the server's point of view as soon as
	// initialize is answered; the strict policy still withholds feature
	// requests until the initialized notification when configured.
	s.engine.Activate()
	return result, nil
}

// capabilities reflects the registries at this instant. A feature key is
// present iff at least one item of that kind is registered; logging is
// always advertised. The set is fixed for the session once sent.
func (s *Server) capabilities() protocol.ServerCapabilities {
	caps := protocol.ServerCapabilities{
		Logging: &protocol.LoggingCapability{},
	}
	if s.tools.len() > 0 {
		caps.Tools = &protocol.ToolsCapability{ListChanged: true}
	}
	if s.resources.len()+s.templates.len() > 0 {
		caps.Resources = &protocol.ResourcesCapability{Subscribe: true, ListChanged: true}
	}
	if s.prompts.len() > 0 {
		caps.Prompts = &protocol.PromptsCapability{ListChanged: true}
	}
	return caps
}

func (s *Server) handleInitialized(params json.RawMessage) {
	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()
	s.logger.Debug("client confirmed initialization")
}

func (s *Server) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// guarded applies the strict initialization policy to a feature handler.
// initialize and ping are never guarded.
func (s *Server) guarded(h session.RequestHandler) session.RequestHandler {
	if !s.strict {
		return h
	}
	return func(ctx context.Context, params json.RawMessage) (interface{}, error) {
		if !s.isReady() {
			return nil, mcperrors.NewProtocolError(protocol.ServerNotReady,
				"server not ready: awaiting initialized notification")
		}
		return h(ctx, params)
	}
}

// Feature handlers

func (s *Server) handlePing(ctx context.Context, params json.RawMessage) (interface{}, error) {
	return &protocol.PingResult{}, nil
}

func (s *Server) handleListTools(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p protocol.ListToolsParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	page, next, err := pagination.Page(s.tools.snapshot(), p.Cursor, s.pageSize)
	if err != nil {
		return nil, mcperrors.NewInvalidParams(err.Error())
	}

	tools := make([]protocol.Tool, 0, len(page))
	for _, entry := range page {
		tools = append(tools, entry.tool)
	}
	return &protocol.ListToolsResult{Tools: tools, NextCursor: next}, nil
}

func (s *Server) handleCallTool(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p protocol.CallToolParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, mcperrors.NewInvalidParams("tool name is required")
	}

	entry, ok := s.tools.get(p.Name)
	if !ok {
		return nil, mcperrors.NewInvalidParams(fmt.Sprintf("unknown tool: %s", p.Name))
	}

	start := time.Now()
	result, err := entry.handler(ctx, p.Arguments)
	s.metrics.RecordToolCall(ctx, p.Name, toolCallStatus(result, err), time.Since(start))
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &protocol.CallToolResult{}
	}
	return result, nil
}

func toolCallStatus(result *protocol.CallToolResult, err error) string {
	switch {
	case err != nil:
		return "error"
	case result != nil && result.IsError:
		return "tool_error"
	default:
		return "success"
	}
}

func (s *Server) handleListResources(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p protocol.ListResourcesParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	page, next, err := pagination.Page(s.resources.snapshot(), p.Cursor, s.pageSize)
	if err != nil {
		return nil, mcperrors.NewInvalidParams(err.Error())
	}

	resources := make([]protocol.Resource, 0, len(page))
	for _, entry := range page {
		resources = append(resources, entry.resource)
	}
	return &protocol.ListResourcesResult{Resources: resources, NextCursor: next}, nil
}

func (s *Server) handleListResourceTemplates(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p protocol.ListResourceTemplatesParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	page, next, err := pagination.Page(s.templates.snapshot(), p.Cursor, s.pageSize)
	if err != nil {
		return nil, mcperrors.NewInvalidParams(err.Error())
	}

	templates := make([]protocol.ResourceTemplate, 0, len(page))
	for _, entry := range page {
		templates = append(templates, entry.template)
	}
	return &protocol.ListResourceTemplatesResult{ResourceTemplates: templates, NextCursor: next}, nil
}

func (s *Server) handleReadResource(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p protocol.ReadResourceParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}
	if p.URI == "" {
		return nil, mcperrors.NewInvalidParams("resource uri is required")
	}

	handler, templateParams, ok := s.resolveResource(p.URI)
	if !ok {
		return nil, resourceNotFound(p.URI)
	}

	start := time.Now()
	result, err := handler(ctx, p.URI, templateParams)
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordResourceOperation(ctx, "read", status, time.Since(start))
	if err != nil {
		// Handlers signal a missing item behind a matched template with a
		// not-found error; it maps to the resource-not-found wire code.
		if mcperrors.IsNotFound(err) {
			return nil, resourceNotFound(p.URI)
		}
		return nil, err
	}
	return result, nil
}

// resolveResource finds the read handler for uri: exact URI first among
// concrete resources, then templates in registration order.
func (s *Server) resolveResource(uri string) (ResourceHandler, map[string]string, bool) {
	if entry, ok := s.resources.get(uri); ok {
		return entry.handler, nil, true
	}
	if entry, params, ok := matchTemplates(s.templates.snapshot(), uri); ok {
		return entry.handler, params, true
	}
	return nil, nil, false
}

func resourceNotFound(uri string) error {
	return mcperrors.NewProtocolError(protocol.ResourceNotFound, "resource not found").
		WithData(map[string]string{"uri": uri})
}

func (s *Server) handleSubscribeResource(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p protocol.SubscribeResourceParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}
	if p.URI == "" {
		return nil, mcperrors.NewInvalidParams("resource uri is required")
	}

	s.subsMu.Lock()
	s.subscriptions[p.URI] = struct{}{}
	s.subsMu.Unlock()

	s.logger.Debug("resource subscribed", logging.String("uri", p.URI))
	s.metrics.RecordResourceOperation(ctx, "subscribe", "success", 0)
	return struct{}{}, nil
}

func (s *Server) handleUnsubscribeResource(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p protocol.UnsubscribeResourceParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}
	if p.URI == "" {
		return nil, mcperrors.NewInvalidParams("resource uri is required")
	}

	s.subsMu.Lock()
	delete(s.subscriptions, p.URI)
	s.subsMu.Unlock()

	s.logger.Debug("resource unsubscribed", logging.String("uri", p.URI))
	s.metrics.RecordResourceOperation(ctx, "unsubscribe", "success", 0)
	return struct{}{}, nil
}

func (s *Server) handleListPrompts(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p protocol.ListPromptsParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}

	page, next, err := pagination.Page(s.prompts.snapshot(), p.Cursor, s.pageSize)
	if err != nil {
		return nil, mcperrors.NewInvalidParams(err.Error())
	}

	prompts := make([]protocol.Prompt, 0, len(page))
	for _, entry := range page {
		prompts = append(prompts, entry.prompt)
	}
	return &protocol.ListPromptsResult{Prompts: prompts, NextCursor: next}, nil
}

func (s *Server) handleGetPrompt(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p protocol.GetPromptParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, mcperrors.NewInvalidParams("prompt name is required")
	}

	entry, ok := s.prompts.get(p.Name)
	if !ok {
		return nil, mcperrors.NewInvalidParams(fmt.Sprintf("unknown prompt: %s", p.Name))
	}

	start := time.Now()
	result, err := entry.handler(ctx, p.Arguments)
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordPromptGet(ctx, p.Name, status, time.Since(start))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Server) handleSetLogLevel(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p protocol.SetLevelParams
	if err := unmarshalParams(params, &p); err != nil {
		return nil, err
	}
	if !p.Level.Valid() {
		return nil, mcperrors.NewInvalidParams(fmt.Sprintf("unknown logging level %q", p.Level))
	}

	s.mu.Lock()
	s.minLogLevel = p.Level
	s.mu.Unlock()

	s.logger.Debug("client log level set", logging.String("level", string(p.Level)))
	return &protocol.SetLevelResult{}, nil
}

// handleCancelled maps the client's cancelled notification onto the
// matching in-flight inbound request, if it is still running.
func (s *Server) handleCancelled(params json.RawMessage) {
	var p protocol.CancelledParams
	if err := json.Unmarshal(params, &p); err != nil {
		s.logger.WithError(err).Warn("malformed cancelled notification")
		return
	}
	if p.RequestID == nil {
		return
	}
	if s.engine.CancelInbound(p.RequestID) {
		s.logger.Debug("cancelled in-flight request",
			logging.Any("request_id", p.RequestID),
			logging.String("reason", p.Reason),
		)
	}
}

// unmarshalParams decodes request params. Absent params are accepted for
// shapes whose fields are all optional.
func unmarshalParams(params json.RawMessage, target interface{}) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, target); err != nil {
		return mcperrors.NewInvalidParams(err.Error())
	}
	return nil
}
