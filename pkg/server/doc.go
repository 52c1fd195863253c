// Package server implements the server side of an MCP session: feature
// registries for tools, resources and prompts, the request handlers that
// serve them, change notifications, and the server-to-client operations
// a capable client accepts.
//
// Key features:
//
//   - Per-session registries with list_changed notifications on mutation
//   - Typed tool registration with reflected JSON Schemas (NewTool)
//   - Concrete resources and RFC 6570 resource templates, matched in
//     registration order with exact URIs taking precedence
//   - Resource subscriptions with NotifyResourceUpdated
//   - Client-controlled log forwarding via logging/setLevel and LogMessage
//   - Progress tokens and notifications for long-running operations
//   - Cursor pagination of all list results
//   - Sampling (CreateMessage) and roots (ListRoots) calls back into the
//     client, gated on its advertised capabilities
//
// # Serving
//
// A server binds to one transport and serves one client:
//
//	srv := server.New(tr,
//		server.WithServerInfo("inventory", "1.4.0"),
//		server.WithLogger(logger),
//	)
//
//	tool, handler := server.NewTool("lookup", "Look up an item by SKU",
//		func(ctx context.Context, args LookupArgs) (*protocol.CallToolResult, error) {
//			item, err := store.Find(ctx, args.SKU)
//			if err != nil {
//				return nil, err
//			}
//			return server.TextResult(item.Description), nil
//		})
//	srv.AddTool(tool, handler)
//
//	if err := srv.Start(ctx); err != nil {
//		return err
//	}
//	defer srv.Close()
//
// Registration may happen before or after Start; mutations after the
// handshake are announced to the client automatically.
//
// # Resources
//
// Concrete resources and templates share one read path. Template
// handlers receive the variables extracted from the matched URI:
//
//	srv.AddResourceTemplate(protocol.ResourceTemplate{
//		URITemplate: "item://{sku}",
//		Name:        "Item record",
//	}, func(ctx context.Context, uri string, params map[string]string) (*protocol.ReadResourceResult, error) {
//		item, err := store.Find(ctx, params["sku"])
//		if err != nil {
//			return nil, mcperrors.NewNotFoundError("item", params["sku"])
//		}
//		return &protocol.ReadResourceResult{
//			Contents: []protocol.ResourceContents{{URI: uri, MimeType: "application/json", Text: item.JSON()}},
//		}, nil
//	})
//
// A read that matches no resource, or whose handler reports not-found,
// produces the resource-not-found error code on the wire.
package server
