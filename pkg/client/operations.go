package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/crosswire-ai/mcp-go/pkg/protocol"
	"github.com/crosswire-ai/mcp-go/pkg/session"
)

// CallOption adjusts a single tool invocation.
type CallOption func(*callOptions)

type callOptions struct {
	requestOpts []session.RequestOption
}

// WithCallTimeout overrides the session's default request timeout for one
// call.
func WithCallTimeout(d time.Duration) CallOption {
	return func(o *callOptions) {
		o.requestOpts = append(o.requestOpts, session.WithTimeout(d))
	}
}

// Ping checks that the server is responsive.
func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, protocol.MethodPing, &protocol.PingParams{}, nil)
}

// ListTools fetches one page of the server's tools. An empty cursor asks
// for the first page; the result's NextCursor continues the walk.
func (c *Client) ListTools(ctx context.Context, cursor string) (*protocol.ListToolsResult, error) {
	if err := c.requireTools(); err != nil {
		return nil, err
	}
	var result protocol.ListToolsResult
	if err := c.call(ctx, protocol.MethodListTools, &protocol.ListToolsParams{Cursor: cursor}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CallTool invokes a named tool. Arguments are marshaled to JSON; pass a
// json.RawMessage to send a pre-encoded payload. A result with IsError set
// is a tool-level failure and returns without error.
func (c *Client) CallTool(ctx context.Context, name string, args interface{}, opts ...CallOption) (*protocol.CallToolResult, error) {
	if err := c.requireTools(); err != nil {
		return nil, err
	}

	var argsJSON json.RawMessage
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tool arguments: %w", err)
		}
		argsJSON = b
	}

	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}

	params := &protocol.CallToolParams{Name: name, Arguments: argsJSON}
	var result protocol.CallToolResult
	if err := c.call(ctx, protocol.MethodCallTool, params, &result, co.requestOpts...); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListResources fetches one page of the server's concrete resources.
func (c *Client) ListResources(ctx context.Context, cursor string) (*protocol.ListResourcesResult, error) {
	if err := c.requireResources(); err != nil {
		return nil, err
	}
	var result protocol.ListResourcesResult
	if err := c.call(ctx, protocol.MethodListResources, &protocol.ListResourcesParams{Cursor: cursor}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListResourceTemplates fetches one page of the server's resource
// templates.
func (c *Client) ListResourceTemplates(ctx context.Context, cursor string) (*protocol.ListResourceTemplatesResult, error) {
	if err := c.requireResources(); err != nil {
		return nil, err
	}
	var result protocol.ListResourceTemplatesResult
	if err := c.call(ctx, protocol.MethodListResourceTemplates, &protocol.ListResourceTemplatesParams{Cursor: cursor}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReadResource reads the resource at uri, resolving templates on the
// server side.
func (c *Client) ReadResource(ctx context.Context, uri string) (*protocol.ReadResourceResult, error) {
	if err := c.requireResources(); err != nil {
		return nil, err
	}
	var result protocol.ReadResourceResult
	if err := c.call(ctx, protocol.MethodReadResource, &protocol.ReadResourceParams{URI: uri}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SubscribeResource asks the server to emit resources/updated
// notifications for uri. Pair with OnResourceUpdated to observe them.
func (c *Client) SubscribeResource(ctx context.Context, uri string) error {
	if err := c.requireResourceSubscriptions(); err != nil {
		return err
	}
	return c.call(ctx, protocol.MethodSubscribeResource, &protocol.SubscribeResourceParams{URI: uri}, nil)
}

// UnsubscribeResource drops a subscription created by SubscribeResource.
func (c *Client) UnsubscribeResource(ctx context.Context, uri string) error {
	if err := c.requireResourceSubscriptions(); err != nil {
		return err
	}
	return c.call(ctx, protocol.MethodUnsubscribeResource, &protocol.UnsubscribeResourceParams{URI: uri}, nil)
}

// ListPrompts fetches one page of the server's prompts.
func (c *Client) ListPrompts(ctx context.Context, cursor string) (*protocol.ListPromptsResult, error) {
	if err := c.requirePrompts(); err != nil {
		return nil, err
	}
	var result protocol.ListPromptsResult
	if err := c.call(ctx, protocol.MethodListPrompts, &protocol.ListPromptsParams{Cursor: cursor}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetPrompt renders the named prompt with the given arguments.
func (c *Client) GetPrompt(ctx context.Context, name string, args map[string]string) (*protocol.GetPromptResult, error) {
	if err := c.requirePrompts(); err != nil {
		return nil, err
	}
	var result protocol.GetPromptResult
	if err := c.call(ctx, protocol.MethodGetPrompt, &protocol.GetPromptParams{Name: name, Arguments: args}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SetLoggingLevel sets the minimum severity of log messages the server
// forwards to this client.
func (c *Client) SetLoggingLevel(ctx context.Context, level protocol.LoggingLevel) error {
	if !level.Valid() {
		return fmt.Errorf("invalid logging level %q", level)
	}
	if err := c.requireLogging(); err != nil {
		return err
	}
	return c.call(ctx, protocol.MethodSetLogLevel, &protocol.SetLevelParams{Level: level}, nil)
}

// NotifyRootsChanged tells the server the root set returned by the roots
// provider has changed.
func (c *Client) NotifyRootsChanged(ctx context.Context) error {
	return c.engine.Notify(ctx, protocol.NotificationRootsChanged, nil)
}

// AllTools walks every page of the tool listing. The context bounds the
// whole walk.
func (c *Client) AllTools(ctx context.Context) ([]protocol.Tool, error) {
	var all []protocol.Tool
	cursor := ""
	for {
		page, err := c.ListTools(ctx, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Tools...)
		if page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

// AllResources walks every page of the resource listing.
func (c *Client) AllResources(ctx context.Context) ([]protocol.Resource, error) {
	var all []protocol.Resource
	cursor := ""
	for {
		page, err := c.ListResources(ctx, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Resources...)
		if page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

// AllPrompts walks every page of the prompt listing.
func (c *Client) AllPrompts(ctx context.Context) ([]protocol.Prompt, error) {
	var all []protocol.Prompt
	cursor := ""
	for {
		page, err := c.ListPrompts(ctx, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Prompts...)
		if page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}
