package protocol

import "encoding/json"

const (
	// ProtocolRevision is the protocol revision implemented by this module
	ProtocolRevision = "2025-03-26"

	// Methods for lifecycle management
	MethodInitialize = "initialize"
	MethodPing       = "ping"

	// Methods for server features
	MethodListTools             = "tools/list"
	MethodCallTool              = "tools/call"
	MethodListResources         = "resources/list"
	MethodListResourceTemplates = "resources/templates/list"
	MethodReadResource          = "resources/read"
	MethodSubscribeResource     = "resources/subscribe"
	MethodUnsubscribeResource   = "resources/unsubscribe"
	MethodListPrompts           = "prompts/list"
	MethodGetPrompt             = "prompts/get"
	MethodSetLogLevel           = "logging/setLevel"

	// Methods for client features (server-initiated)
	MethodCreateMessage = "sampling/createMessage"
	MethodListRoots     = "roots/list"

	// Notification methods, fire-and-forget in either direction
	NotificationInitialized      = "notifications/initialized"
	NotificationCancelled        = "notifications/cancelled"
	NotificationProgress         = "notifications/progress"
	NotificationMessage          = "notifications/message"
	NotificationToolsChanged     = "notifications/tools/list_changed"
	NotificationResourcesChanged = "notifications/resources/list_changed"
	NotificationResourceUpdated  = "notifications/resources/updated"
	NotificationPromptsChanged   = "notifications/prompts/list_changed"
	NotificationRootsChanged     = "notifications/roots/list_changed"
)

// ClientInfo identifies the client implementation during the handshake
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientCapabilities advertises the feature areas the client implements.
// A key is present iff the corresponding handler was configured before
// connecting.
type ClientCapabilities struct {
	Sampling *SamplingCapability `json:"sampling,omitempty"`
	Roots    *RootsCapability    `json:"roots,omitempty"`
}

// ServerCapabilities advertises the feature areas the server implements.
// A feature key is present iff at least one item of that kind was
// registered at handshake time; logging is always present.
type ServerCapabilities struct {
	Tools     *ToolsCapability     `json:"tools,omitempty"`
	Resources *ResourcesCapability `json:"resources,omitempty"`
	Prompts   *PromptsCapability   `json:"prompts,omitempty"`
	Logging   *LoggingCapability   `json:"logging,omitempty"`
}

// ToolsCapability describes the server's tool support
type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// ResourcesCapability describes the server's resource support
type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

// PromptsCapability describes the server's prompt support
type PromptsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// LoggingCapability describes the server's log-forwarding support
type LoggingCapability struct{}

// SamplingCapability describes the client's sampling support
type SamplingCapability struct{}

// RootsCapability describes the client's roots support
type RootsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// InitializeParams defines the parameters for the initialize request
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      *ClientInfo        `json:"clientInfo,omitempty"`
}

// InitializeResult defines the response for the initialize request
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Name            string             `json:"name"`
	Version         string             `json:"version"`
	Capabilities    ServerCapabilities `json:"capabilities"`
}

// InitializedParams is sent as a notification once the client is ready.
// It carries no fields.
type InitializedParams struct{}

// PingParams defines parameters for the ping request
type PingParams struct{}

// PingResult is the response for ping
type PingResult struct{}

// ProgressParams defines parameters for the progress notification
type ProgressParams struct {
	ProgressToken string  `json:"progressToken"`
	Progress      float64 `json:"progress"`
	Total         float64 `json:"total,omitempty"`
}

// CancelledParams defines parameters for the cancelled notification
type CancelledParams struct {
	RequestID interface{} `json:"requestId"`
	Reason    string      `json:"reason,omitempty"`
}

// LoggingLevel specifies the severity of forwarded log messages, ordered
// from least to most severe per syslog
type LoggingLevel string

const (
	LoggingLevelDebug     LoggingLevel = "debug"
	LoggingLevelInfo      LoggingLevel = "info"
	LoggingLevelNotice    LoggingLevel = "notice"
	LoggingLevelWarning   LoggingLevel = "warning"
	LoggingLevelError     LoggingLevel = "error"
	LoggingLevelCritical  LoggingLevel = "critical"
	LoggingLevelAlert     LoggingLevel = "alert"
	LoggingLevelEmergency LoggingLevel = "emergency"
)

var loggingSeverity = map[LoggingLevel]int{
	LoggingLevelDebug:     0,
	LoggingLevelInfo:      1,
	LoggingLevelNotice:    2,
	LoggingLevelWarning:   3,
	LoggingLevelError:     4,
	LoggingLevelCritical:  5,
	LoggingLevelAlert:     6,
	LoggingLevelEmergency: 7,
}

// Valid reports whether the level is a known logging level
func (l LoggingLevel) Valid() bool {
	_, ok := loggingSeverity[l]
	return ok
}

// Severity returns the numeric rank of the level; unknown levels rank
// below debug
func (l LoggingLevel) Severity() int {
	if s, ok := loggingSeverity[l]; ok {
		return s
	}
	return -1
}

// SetLevelParams defines parameters for the logging/setLevel request
type SetLevelParams struct {
	Level LoggingLevel `json:"level"`
}

// SetLevelResult is the response for logging/setLevel
type SetLevelResult struct{}

// LoggingMessageParams defines parameters for the message notification
type LoggingMessageParams struct {
	Level  LoggingLevel    `json:"level"`
	Logger string          `json:"logger,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}
