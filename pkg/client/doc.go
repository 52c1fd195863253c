// Package client implements the client side of an MCP session.
//
// A Client connects over any transport.Transport, negotiates capabilities
// with the server, and then exposes the server's feature areas as typed
// operations:
//
//   - Tools: ListTools, CallTool, AllTools
//   - Resources: ListResources, ListResourceTemplates, ReadResource,
//     SubscribeResource, UnsubscribeResource, AllResources
//   - Prompts: ListPrompts, GetPrompt, AllPrompts
//   - Logging: SetLoggingLevel with OnLoggingMessage
//
// Each operation checks the capability negotiated during Connect and fails
// locally when the server never advertised that area.
//
// # Connecting
//
//	t, peer := transport.NewPipe()
//	// hand peer to a server.Server ...
//
//	c := client.New(t,
//		client.WithClientInfo("example-client", "1.0.0"),
//	)
//	if err := c.Connect(ctx); err != nil {
//		return err
//	}
//	defer c.Close()
//
//	result, err := c.CallTool(ctx, "echo", map[string]string{"text": "hi"})
//
// # Server-issued requests
//
// The protocol is symmetric: the server may call back into the client.
// The client answers ping always, and answers sampling/createMessage and
// roots/list when the matching handler was configured before Connect:
//
//	c := client.New(t,
//		client.WithSamplingHandler(mySampler),
//		client.WithRoots(protocol.Root{URI: "file:///workspace"}),
//	)
//
// Configured handlers are what Connect advertises in the client's
// capabilities; unconfigured methods fail with method-not-found.
//
// # Notifications
//
// Server notifications surface as events. OnToolsChanged,
// OnResourcesChanged and OnPromptsChanged report listing changes;
// OnResourceUpdated reports updates to subscribed resources; OnProgress
// and OnLoggingMessage carry progress and forwarded log messages. Every
// registration returns an unsubscribe function.
package client
