package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// ToolHandler handles a tools/call invocation whose arguments already
// satisfy the tool's input schema. Returning an error produces a JSON-RPC
// internal error; failures meant for the caller belong in the response.
type ToolHandler func(ctx context.Context, arguments json.RawMessage) (*ToolCallResponse, error)

// ToolDefinition pairs a tool's metadata with its handler
type ToolDefinition struct {
	Tool    Tool
	Handler ToolHandler
}

// NewTextResponse creates a tool result holding a single text block
func NewTextResponse(text string) *ToolCallResponse {
	return &ToolCallResponse{
		Content: []Content{NewTextContent(text)},
	}
}

type registeredTool struct {
	tool     Tool
	resolved *jsonschema.Resolved
	handler  ToolHandler
}

func newRegisteredTool(def ToolDefinition) (*registeredTool, error) {
	if def.Tool.Name == "" {
		return nil, fmt.Errorf("tool name is required")
	}
	if def.Handler == nil {
		return nil, fmt.Errorf("tool %q has no handler", def.Tool.Name)
	}

	tool := def.Tool
	if tool.InputSchema == nil {
		tool.InputSchema = &jsonschema.Schema{Type: "object"}
	}

	resolved, err := tool.InputSchema.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("invalid input schema for tool %q: %w", tool.Name, err)
	}

	return &registeredTool{
		tool:     tool,
		resolved: resolved,
		handler:  def.Handler,
	}, nil
}

// validate checks raw arguments against the tool's schema and returns the
// arguments to hand to the handler. Absent arguments validate as {}.
func (t *registeredTool) validate(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage(`{}`)
	}

	var instance interface{}
	if err := json.Unmarshal(raw, &instance); err != nil {
		return nil, fmt.Errorf("arguments are not valid JSON: %w", err)
	}
	if err := t.resolved.Validate(instance); err != nil {
		return nil, err
	}
	return raw, nil
}
