// Package pkg holds the sub-packages of the MCP SDK.
//
// The packages layer bottom-up:
//
//   - protocol: JSON-RPC 2.0 envelopes, MCP method names, and the typed
//     payloads for tools, resources, prompts, sampling, roots, and logging
//   - errors: the error taxonomy shared by every layer and its mapping to
//     wire error objects
//   - transport: the byte-channel contract, the in-memory pipe pair, and
//     the middleware chain for logging and observability decorators
//   - session: the engine both roles share: request correlation,
//     timeouts, inbound dispatch with cancellation, lifecycle states
//   - client, server: the two protocol roles built on the session engine
//   - pagination: opaque cursors for the list operations
//   - logging: the structured logger used across the SDK
//   - observability: Prometheus metrics and OpenTelemetry tracing
//     providers wired through transport middleware and the engine
//   - utils: test support (goroutine-leak detection)
//
// Applications normally import client or server plus protocol; the root
// mcp package re-exports the common constructors.
package pkg
