package client

import (
	"encoding/json"

	"github.com/crosswire-ai/mcp-go/pkg/protocol"
)

// On subscribes a raw handler to a notification method. The returned
// function removes the subscription. Handlers run on the dispatch
// goroutine for that notification and must not block on session calls.
func (c *Client) On(method string, handler func(params json.RawMessage)) func() {
	return c.engine.On(method, handler)
}

// OnToolsChanged fires when the server reports its tool set changed.
func (c *Client) OnToolsChanged(fn func()) func() {
	return c.engine.On(protocol.NotificationToolsChanged, func(json.RawMessage) { fn() })
}

// OnResourcesChanged fires when the server reports its resource set
// changed.
func (c *Client) OnResourcesChanged(fn func()) func() {
	return c.engine.On(protocol.NotificationResourcesChanged, func(json.RawMessage) { fn() })
}

// OnPromptsChanged fires when the server reports its prompt set changed.
func (c *Client) OnPromptsChanged(fn func()) func() {
	return c.engine.On(protocol.NotificationPromptsChanged, func(json.RawMessage) { fn() })
}

// OnResourceUpdated fires with the URI of a subscribed resource that
// changed. Subscriptions are created with SubscribeResource.
func (c *Client) OnResourceUpdated(fn func(uri string)) func() {
	return c.engine.On(protocol.NotificationResourceUpdated, func(params json.RawMessage) {
		var p protocol.ResourceUpdatedParams
		if err := json.Unmarshal(params, &p); err != nil {
			c.logger.WithError(err).Warn("malformed resource updated notification")
			return
		}
		fn(p.URI)
	})
}

// OnLoggingMessage fires for each log message the server forwards at or
// above the level set with SetLoggingLevel.
func (c *Client) OnLoggingMessage(fn func(protocol.LoggingMessageParams)) func() {
	return c.engine.On(protocol.NotificationMessage, func(params json.RawMessage) {
		var p protocol.LoggingMessageParams
		if err := json.Unmarshal(params, &p); err != nil {
			c.logger.WithError(err).Warn("malformed logging message notification")
			return
		}
		fn(p)
	})
}

// OnProgress fires for progress notifications emitted by long-running
// server operations.
func (c *Client) OnProgress(fn func(protocol.ProgressParams)) func() {
	return c.engine.On(protocol.NotificationProgress, func(params json.RawMessage) {
		var p protocol.ProgressParams
		if err := json.Unmarshal(params, &p); err != nil {
			c.logger.WithError(err).Warn("malformed progress notification")
			return
		}
		fn(p)
	})
}
