package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"

	mcperrors "github.com/crosswire-ai/mcp-go/pkg/errors"
	"github.com/crosswire-ai/mcp-go/pkg/protocol"
)

// NewTool builds a tool descriptor and handler from a typed argument
// struct. The input schema is reflected from Args, arguments are decoded
// by json field name, and a payload that does not fit Args fails the call
// with invalid params before the function runs.
func NewTool[Args any](name, description string, fn func(ctx context.Context, args Args) (*protocol.CallToolResult, error)) (protocol.Tool, ToolHandler) {
	tool := protocol.Tool{
		Name:        name,
		Description: description,
		InputSchema: reflectInputSchema[Args](),
	}

	handler := func(ctx context.Context, raw json.RawMessage) (*protocol.CallToolResult, error) {
		args, err := decodeArguments[Args](raw)
		if err != nil {
			return nil, mcperrors.NewInvalidParams(err.Error())
		}
		return fn(ctx, args)
	}

	return tool, handler
}

// reflectInputSchema produces an inline object schema for Args. Schemas
// are self-contained: no $ref indirection and no $schema header, since
// they are embedded in tool listings.
func reflectInputSchema[Args any]() json.RawMessage {
	r := &jsonschema.Reflector{
		Anonymous:      true, // no $id
		DoNotReference: true, // inline defs
		ExpandedStruct: true, // put struct at root
	}
	schema := r.Reflect(new(Args))
	schema.Version = ""

	data, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return data
}

// decodeArguments maps the raw JSON arguments onto Args by json tag name.
// Absent or null arguments yield the zero value.
func decodeArguments[Args any](raw json.RawMessage) (Args, error) {
	var args Args
	if len(raw) == 0 {
		return args, nil
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return args, fmt.Errorf("arguments must be a JSON object: %v", err)
	}
	if fields == nil {
		return args, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &args,
		TagName: "json",
	})
	if err != nil {
		return args, err
	}
	if err := decoder.Decode(fields); err != nil {
		return args, fmt.Errorf("invalid arguments: %v", err)
	}
	return args, nil
}

// TextResult wraps text as a successful single-content tool result.
func TextResult(text string) *protocol.CallToolResult {
	return &protocol.CallToolResult{
		Content: []protocol.Content{protocol.NewTextContent(text)},
	}
}

// ErrorResult wraps text as a tool-level failure. The call itself
// succeeds on the wire; IsError tells the client the tool could not do
// its job.
func ErrorResult(text string) *protocol.CallToolResult {
	return &protocol.CallToolResult{
		Content: []protocol.Content{protocol.NewTextContent(text)},
		IsError: true,
	}
}

// Errorf is ErrorResult with formatting.
func Errorf(format string, args ...interface{}) *protocol.CallToolResult {
	return ErrorResult(fmt.Sprintf(format, args...))
}
