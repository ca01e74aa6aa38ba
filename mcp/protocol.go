package mcp

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// Version is the latest Model Context Protocol version this server speaks
const Version = "2025-06-18"

// SupportedVersions lists the protocol versions accepted during initialization, oldest first
var SupportedVersions = []string{"2024-11-05", "2025-03-26", Version}

// Role represents the sender or recipient of messages and data in a conversation
type Role string

const (
	// RoleUser represents the user
	RoleUser Role = "user"

	// RoleAssistant represents the assistant
	RoleAssistant Role = "assistant"
)

// Content types
type (
	// Annotations represents optional annotations for objects
	Annotations struct {
		// Describes who the intended customer of this object or data is
		Audience []Role `json:"audience,omitempty"`
		// Describes how important this data is for operating the server (0-1)
		Priority *float64 `json:"priority,omitempty"`
	}

	// Content represents a single content block of a tool result
	Content struct {
		Type        string       `json:"type"`
		Text        string       `json:"text"`
		Annotations *Annotations `json:"annotations,omitempty"`
	}
)

// NewTextContent creates a text content block
func NewTextContent(text string) Content {
	return Content{
		Type: "text",
		Text: text,
	}
}

// Initialize
type (
	// ToolsCapability describes the server's tool support
	ToolsCapability struct {
		ListChanged bool `json:"listChanged"`
	}

	// ServerCapabilities represents the server's supported capabilities
	ServerCapabilities struct {
		Experimental map[string]interface{} `json:"experimental,omitempty"`
		Tools        *ToolsCapability       `json:"tools,omitempty"`
	}

	// ServerInfo represents information about an MCP implementation
	ServerInfo struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}

	// InitializeRequest represents a request to initialize the server
	InitializeRequest struct {
		ProtocolVersion string                 `json:"protocolVersion"`
		Capabilities    map[string]interface{} `json:"capabilities,omitempty"`
		ClientInfo      ServerInfo             `json:"clientInfo"`
	}

	// InitializeResponse represents the server's response to an initialize request
	InitializeResponse struct {
		ProtocolVersion string             `json:"protocolVersion"`
		Capabilities    ServerCapabilities `json:"capabilities"`
		ServerInfo      ServerInfo         `json:"serverInfo"`
		Instructions    string             `json:"instructions,omitempty"`
	}
)

// Tools
type (
	// Tool represents a single tool in the tools/list response
	Tool struct {
		Name        string             `json:"name"`
		Description string             `json:"description,omitempty"`
		InputSchema *jsonschema.Schema `json:"inputSchema"`
	}

	// ToolsListRequest represents a request to list available tools
	ToolsListRequest struct {
		Cursor string `json:"cursor,omitempty"`
	}

	// ToolsListResponse represents the response for the tools/list method
	ToolsListResponse struct {
		Tools      []Tool `json:"tools"`
		NextCursor string `json:"nextCursor,omitempty"`
	}

	// ToolCallRequest represents a request to call a specific tool
	ToolCallRequest struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments,omitempty"`
	}

	// ToolCallResponse represents the response from a tool call
	ToolCallResponse struct {
		Content []Content `json:"content"`
		IsError bool      `json:"isError,omitempty"`
	}
)

// Ping
type (
	// PingResponse represents the response for ping
	PingResponse struct{}
)

// Method names
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodPing        = "ping"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"
)
