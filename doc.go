// Package mcp is the root of the MCP SDK for Go, providing convenient
// exports of the core components from the sub-packages.
//
// The Model Context Protocol (MCP) is a standardized communication
// protocol that lets AI applications exchange tools, resources, prompts,
// and sampling requests with context providers over JSON-RPC 2.0.
//
// # Overview
//
// The SDK consists of several sub-packages:
//
//   - pkg/client: the client side of the protocol
//   - pkg/server: the server side with feature registries
//   - pkg/session: the shared request/response engine both sides run on
//   - pkg/protocol: wire types and method names
//   - pkg/transport: the byte-channel contract and the in-memory pair
//   - pkg/errors: the error taxonomy and wire error mapping
//   - pkg/pagination: opaque cursors for list operations
//   - pkg/logging: structured logging used throughout
//   - pkg/observability: Prometheus metrics and OTel tracing providers
//
// # Creating a Server
//
//	serverEnd, clientEnd := mcp.NewPipe()
//
//	srv := mcp.NewServer(serverEnd, mcp.WithServerInfo("kb", "1.0.0"))
//
//	type searchArgs struct {
//	    Query string `json:"query"`
//	}
//	tool, handler := mcp.NewTool("search", "Search the knowledge base",
//	    func(ctx context.Context, args searchArgs) (*protocol.CallToolResult, error) {
//	        return mcp.TextResult("results for " + args.Query), nil
//	    })
//	srv.AddTool(tool, handler)
//
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//
// # Creating a Client
//
//	c := mcp.NewClient(clientEnd, mcp.WithClientInfo("my-app", "1.0.0"))
//	if err := c.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	result, err := c.CallTool(ctx, "search", map[string]string{"query": "pagination"})
//
// The sub-packages carry the full option surface (loggers, metrics,
// timeouts, strict initialization); the root exports cover the common
// path. The examples directory shows complete client/server programs.
package mcp
