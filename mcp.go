// Package mcp provides a Golang implementation of the Model Context Protocol (2025-03-26)
package mcp

import (
	"context"

	"github.com/crosswire-ai/mcp-go/pkg/client"
	"github.com/crosswire-ai/mcp-go/pkg/protocol"
	"github.com/crosswire-ai/mcp-go/pkg/server"
	"github.com/crosswire-ai/mcp-go/pkg/transport"
)

// Version represents the current version of the SDK
const Version = "0.1.0"

// ProtocolVersion is the protocol revision this SDK speaks
const ProtocolVersion = protocol.ProtocolRevision

// These exports provide direct access to the core SDK components
var (
	// NewClient creates a new MCP client
	NewClient = client.New

	// NewServer creates a new MCP server
	NewServer = server.New

	// NewPipe creates a connected in-memory transport pair
	NewPipe = transport.NewPipe
)

// Client options
var (
	WithClientInfo      = client.WithClientInfo
	WithSamplingHandler = client.WithSamplingHandler
	WithRootsProvider   = client.WithRootsProvider
	WithRoots           = client.WithRoots
)

// Server options
var (
	WithServerInfo           = server.WithServerInfo
	WithPageSize             = server.WithPageSize
	WithStrictInitialization = server.WithStrictInitialization
)

// NewTool registers a typed tool handler: the input schema is reflected
// from Args and arguments are decoded onto it before fn runs.
func NewTool[Args any](name, description string, fn func(ctx context.Context, args Args) (*protocol.CallToolResult, error)) (protocol.Tool, server.ToolHandler) {
	return server.NewTool(name, description, fn)
}

// Tool result helpers
var (
	TextResult  = server.TextResult
	ErrorResult = server.ErrorResult
	Errorf      = server.Errorf
)
