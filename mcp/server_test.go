package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopwork-ai/sercop-mcp/jsonrpc"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func echoTool(calls *int) ToolDefinition {
	return ToolDefinition{
		Tool: Tool{
			Name:        "echo",
			Description: "Echo a message back",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"message": {Type: "string", MinLength: intPtr(3)},
					"times":   {Type: "integer", Minimum: floatPtr(1)},
				},
				Required: []string{"message"},
			},
		},
		Handler: func(ctx context.Context, arguments json.RawMessage) (*ToolCallResponse, error) {
			*calls++
			var args struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(arguments, &args); err != nil {
				return nil, err
			}
			if CallID(ctx) == "" {
				return nil, errors.New("missing call id")
			}
			return NewTextResponse(args.Message), nil
		},
	}
}

func setupTestServer(t *testing.T, defs ...ToolDefinition) *Server {
	t.Helper()

	server, err := NewServer(
		WithServerInfo("Test API", "1.0.0"),
		WithInstructions("use the tools"),
		WithTools(defs...),
	)
	require.NoError(t, err)
	return server
}

func decodeResult(t *testing.T, response jsonrpc.Response, v interface{}) {
	t.Helper()

	require.Nil(t, response.Error)
	data, err := json.Marshal(response.Result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestServer_HandleInitialize(t *testing.T) {
	server := setupTestServer(t)

	tests := []struct {
		name    string
		params  string
		version string
	}{
		{name: "supported older version", params: `{"protocolVersion":"2024-11-05","clientInfo":{"name":"host","version":"1"}}`, version: "2024-11-05"},
		{name: "unknown version", params: `{"protocolVersion":"1999-01-01"}`, version: Version},
		{name: "no params", params: ``, version: Version},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := jsonrpc.NewRequest(MethodInitialize, json.RawMessage(tt.params), 1)
			response := server.Handle(context.Background(), request)

			assert.Equal(t, "2.0", response.Version)
			assert.Equal(t, 1, response.ID.Value())

			var result InitializeResponse
			decodeResult(t, response, &result)
			assert.Equal(t, tt.version, result.ProtocolVersion)
			assert.Equal(t, "Test API", result.ServerInfo.Name)
			assert.Equal(t, "1.0.0", result.ServerInfo.Version)
			assert.Equal(t, "use the tools", result.Instructions)
			require.NotNil(t, result.Capabilities.Tools)
			assert.False(t, result.Capabilities.Tools.ListChanged)
		})
	}
}

func TestServer_HandlePing(t *testing.T) {
	server := setupTestServer(t)

	response := server.Handle(context.Background(), jsonrpc.NewRequest(MethodPing, nil, "p"))
	assert.Nil(t, response.Error)
	assert.Equal(t, "p", response.ID.Value())

	data, err := json.Marshal(response)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","result":{},"id":"p"}`, string(data))
}

func TestServer_HandleToolsList(t *testing.T) {
	var calls int
	server := setupTestServer(t, echoTool(&calls), ToolDefinition{
		Tool: Tool{Name: "noop", Description: "Does nothing"},
		Handler: func(context.Context, json.RawMessage) (*ToolCallResponse, error) {
			return NewTextResponse(""), nil
		},
	})

	response := server.Handle(context.Background(), jsonrpc.NewRequest(MethodToolsList, nil, 1))

	var result ToolsListResponse
	decodeResult(t, response, &result)
	require.Len(t, result.Tools, 2)

	assert.Equal(t, "echo", result.Tools[0].Name)
	assert.Equal(t, "Echo a message back", result.Tools[0].Description)
	require.NotNil(t, result.Tools[0].InputSchema)
	assert.Contains(t, result.Tools[0].InputSchema.Properties, "message")
	assert.Equal(t, []string{"message"}, result.Tools[0].InputSchema.Required)

	assert.Equal(t, "noop", result.Tools[1].Name)
	require.NotNil(t, result.Tools[1].InputSchema)
	assert.Equal(t, "object", result.Tools[1].InputSchema.Type)
	assert.Zero(t, calls)
}

func TestServer_HandleToolsCall(t *testing.T) {
	var calls int
	server := setupTestServer(t, echoTool(&calls), ToolDefinition{
		Tool: Tool{Name: "broken"},
		Handler: func(context.Context, json.RawMessage) (*ToolCallResponse, error) {
			return nil, errors.New("boom")
		},
	})

	tests := []struct {
		name      string
		params    string
		wantCode  jsonrpc.ErrorCode
		wantText  string
		wantCalls int
	}{
		{
			name:      "valid arguments",
			params:    `{"name":"echo","arguments":{"message":"hello","times":2}}`,
			wantText:  "hello",
			wantCalls: 1,
		},
		{
			name:     "string too short",
			params:   `{"name":"echo","arguments":{"message":"hi"}}`,
			wantCode: jsonrpc.ErrInvalidParams,
		},
		{
			name:     "below minimum",
			params:   `{"name":"echo","arguments":{"message":"hello","times":0}}`,
			wantCode: jsonrpc.ErrInvalidParams,
		},
		{
			name:     "wrong type",
			params:   `{"name":"echo","arguments":{"message":"hello","times":"2"}}`,
			wantCode: jsonrpc.ErrInvalidParams,
		},
		{
			name:     "missing required argument",
			params:   `{"name":"echo"}`,
			wantCode: jsonrpc.ErrInvalidParams,
		},
		{
			name:     "unknown tool",
			params:   `{"name":"nonexistent","arguments":{}}`,
			wantCode: jsonrpc.ErrMethodNotFound,
		},
		{
			name:     "malformed params",
			params:   `["echo"]`,
			wantCode: jsonrpc.ErrInvalidParams,
		},
		{
			name:     "handler error",
			params:   `{"name":"broken"}`,
			wantCode: jsonrpc.ErrInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls = 0
			request := jsonrpc.NewRequest(MethodToolsCall, json.RawMessage(tt.params), 7)
			response := server.Handle(context.Background(), request)

			assert.Equal(t, 7, response.ID.Value())
			assert.Equal(t, tt.wantCalls, calls)

			if tt.wantCode != 0 {
				require.NotNil(t, response.Error)
				assert.Equal(t, tt.wantCode, response.Error.Code)
				return
			}

			var result ToolCallResponse
			decodeResult(t, response, &result)
			require.Len(t, result.Content, 1)
			assert.Equal(t, "text", result.Content[0].Type)
			assert.Equal(t, tt.wantText, result.Content[0].Text)
			assert.False(t, result.IsError)
		})
	}
}

func TestServer_HandleUnknownMethod(t *testing.T) {
	server := setupTestServer(t)

	response := server.Handle(context.Background(), jsonrpc.NewRequest("resources/list", nil, 1))

	require.NotNil(t, response.Error)
	assert.Equal(t, jsonrpc.ErrMethodNotFound, response.Error.Code)
	assert.Equal(t, "Method not found", response.Error.Message)
}

func TestServer_AddTool(t *testing.T) {
	var calls int
	server := setupTestServer(t, echoTool(&calls))

	err := server.AddTool(echoTool(&calls))
	assert.ErrorContains(t, err, "duplicate tool")

	err = server.AddTool(ToolDefinition{Tool: Tool{Name: "nohandler"}})
	assert.ErrorContains(t, err, "has no handler")

	err = server.AddTool(ToolDefinition{Handler: echoTool(&calls).Handler})
	assert.ErrorContains(t, err, "name is required")

	_, err = NewServer(WithTools(echoTool(&calls), echoTool(&calls)))
	assert.Error(t, err)
}

func TestServer_LogsHandlerFailure(t *testing.T) {
	var buf bytes.Buffer
	server, err := NewServer(
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		WithTools(ToolDefinition{
			Tool: Tool{Name: "broken"},
			Handler: func(context.Context, json.RawMessage) (*ToolCallResponse, error) {
				return nil, errors.New("boom")
			},
		}),
	)
	require.NoError(t, err)

	server.Handle(context.Background(), jsonrpc.NewRequest(MethodToolsCall, json.RawMessage(`{"name":"broken"}`), 1))

	assert.Contains(t, buf.String(), "tool handler failed")
	assert.Contains(t, buf.String(), "tool=broken")
	assert.Contains(t, buf.String(), "error=boom")
}
