package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/loopwork-ai/sercop-mcp/jsonrpc"
)

// Server represents an MCP server that dispatches JSON-RPC requests to registered tools
type Server struct {
	info         ServerInfo
	instructions string
	logger       *slog.Logger

	tools  []*registeredTool
	byName map[string]*registeredTool
}

var _ jsonrpc.Handler = (*Server)(nil)

// ServerOption configures a Server
type ServerOption func(*Server) error

// WithLogger sets the logger used for diagnostics
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithServerInfo sets the implementation name and version reported by initialize
func WithServerInfo(name, version string) ServerOption {
	return func(s *Server) error {
		s.info = ServerInfo{Name: name, Version: version}
		return nil
	}
}

// WithInstructions sets the usage hint returned by initialize
func WithInstructions(instructions string) ServerOption {
	return func(s *Server) error {
		s.instructions = instructions
		return nil
	}
}

// WithTools registers tools in the given order
func WithTools(defs ...ToolDefinition) ServerOption {
	return func(s *Server) error {
		for _, def := range defs {
			if err := s.AddTool(def); err != nil {
				return err
			}
		}
		return nil
	}
}

// NewServer creates a new MCP server instance
func NewServer(opts ...ServerOption) (*Server, error) {
	s := &Server{
		info:   ServerInfo{Name: "mcp", Version: "dev"},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		byName: make(map[string]*registeredTool),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// AddTool registers a tool. Names must be unique.
func (s *Server) AddTool(def ToolDefinition) error {
	if _, exists := s.byName[def.Tool.Name]; exists {
		return fmt.Errorf("duplicate tool %q", def.Tool.Name)
	}

	rt, err := newRegisteredTool(def)
	if err != nil {
		return err
	}

	s.tools = append(s.tools, rt)
	s.byName[rt.tool.Name] = rt
	return nil
}

// Handle processes a single JSON-RPC request and returns a response
func (s *Server) Handle(ctx context.Context, request jsonrpc.Request) jsonrpc.Response {
	switch request.Method {
	case MethodInitialize:
		return s.handleInitialize(request)
	case MethodInitialized:
		return jsonrpc.NewResponse(request.ID, nil, nil)
	case MethodPing:
		return jsonrpc.NewResponse(request.ID, PingResponse{}, nil)
	case MethodToolsList:
		return s.handleToolsList(request)
	case MethodToolsCall:
		return s.handleToolsCall(ctx, request)
	default:
		return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewError(jsonrpc.ErrMethodNotFound, nil))
	}
}

func (s *Server) handleInitialize(request jsonrpc.Request) jsonrpc.Response {
	var params InitializeRequest
	if len(request.Params) > 0 {
		if err := json.Unmarshal(request.Params, &params); err != nil {
			return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewError(jsonrpc.ErrInvalidParams, err))
		}
	}

	version := Version
	if slices.Contains(SupportedVersions, params.ProtocolVersion) {
		version = params.ProtocolVersion
	}

	s.logger.Debug("initialize",
		"client", params.ClientInfo.Name,
		"clientVersion", params.ClientInfo.Version,
		"protocolVersion", version)

	return jsonrpc.NewResponse(request.ID, InitializeResponse{
		ProtocolVersion: version,
		Capabilities: ServerCapabilities{
			Tools: &ToolsCapability{ListChanged: false},
		},
		ServerInfo:   s.info,
		Instructions: s.instructions,
	}, nil)
}

func (s *Server) handleToolsList(request jsonrpc.Request) jsonrpc.Response {
	tools := make([]Tool, 0, len(s.tools))
	for _, rt := range s.tools {
		tools = append(tools, rt.tool)
	}

	return jsonrpc.NewResponse(request.ID, ToolsListResponse{Tools: tools}, nil)
}

func (s *Server) handleToolsCall(ctx context.Context, request jsonrpc.Request) jsonrpc.Response {
	var params ToolCallRequest
	if len(request.Params) > 0 {
		if err := json.Unmarshal(request.Params, &params); err != nil {
			return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewError(jsonrpc.ErrInvalidParams, err))
		}
	}

	rt, ok := s.byName[params.Name]
	if !ok {
		return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewError(jsonrpc.ErrMethodNotFound, nil))
	}

	arguments, err := rt.validate(params.Arguments)
	if err != nil {
		s.logger.Debug("rejected tool call", "tool", params.Name, "error", err)
		return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewError(jsonrpc.ErrInvalidParams, err))
	}

	callID := uuid.NewString()
	ctx = withCallID(ctx, callID)
	logger := s.logger.With("tool", params.Name, "call", callID)

	start := time.Now()
	logger.Debug("calling tool")

	result, err := rt.handler(ctx, arguments)
	if err != nil {
		logger.Error("tool handler failed", "error", err)
		return jsonrpc.NewResponse(request.ID, nil, jsonrpc.NewError(jsonrpc.ErrInternal, err))
	}

	logger.Debug("tool call finished", "duration", time.Since(start))
	return jsonrpc.NewResponse(request.ID, result, nil)
}

type callIDKey struct{}

func withCallID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, callIDKey{}, id)
}

// CallID returns the id assigned to the tool call running under ctx, if any
func CallID(ctx context.Context) string {
	id, _ := ctx.Value(callIDKey{}).(string)
	return id
}
