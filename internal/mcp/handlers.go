package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alucardeht/spreadsheet-agent/internal/logger"
	"github.com/alucardeht/spreadsheet-agent/internal/tools"
	"github.com/alucardeht/spreadsheet-agent/pkg/protocol"
	"github.com/alucardeht/spreadsheet-agent/pkg/version"
)

var log = logger.ForComponent("mcp")

const instructions = "Tools for exploring spreadsheets imported into a read-only SQLite database. " +
	"Start with list_tables_and_views, then inspect columns and summaries before running queries."

type Handler struct {
	registry    *tools.Registry
	toolTimeout time.Duration
	startTime   time.Time

	mu         sync.Mutex
	clientInfo ClientInfo
}

func NewHandler(registry *tools.Registry, toolTimeout time.Duration) *Handler {
	return &Handler{
		registry:    registry,
		toolTimeout: toolTimeout,
		startTime:   time.Now(),
	}
}

// Handle answers one request. It returns nil for notifications.
func (h *Handler) Handle(ctx context.Context, req *Request) *Response {
	if req.JSONRPC != "2.0" || req.Method == "" {
		return &Response{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &protocol.JSONRPCError{
				Code:    protocol.CodeInvalidRequest,
				Message: "Invalid Request",
			},
		}
	}
	if req.IsNotification() {
		h.handleNotification(req)
		return nil
	}

	resp := &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
	}

	var (
		result any
		err    error
	)
	switch req.Method {
	case "initialize":
		result, err = h.handleInitialize(req)
	case "ping":
		result = map[string]any{}
	case "tools/list":
		result = h.handleListTools()
	case "tools/call":
		result, err = h.handleCallTool(ctx, req)
	default:
		err = &protocol.JSONRPCError{
			Code:    protocol.CodeMethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
	}

	if err != nil {
		resp.Error = toRPCError(err)
		return resp
	}
	resp.Result = result
	return resp
}

func toRPCError(err error) *protocol.JSONRPCError {
	var rpcErr *protocol.JSONRPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	var toolErr *tools.ToolError
	if errors.As(err, &toolErr) {
		return &protocol.JSONRPCError{Code: toolErr.Code, Message: toolErr.Message}
	}
	return &protocol.JSONRPCError{Code: protocol.CodeInternalError, Message: err.Error()}
}

func (h *Handler) handleNotification(req *Request) {
	switch req.Method {
	case "notifications/initialized":
		log.Debug("client initialized")
	default:
		log.Debug("ignoring notification", "method", req.Method)
	}
}

func (h *Handler) handleInitialize(req *Request) (any, error) {
	var initReq InitializeRequest
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &initReq); err != nil {
			return nil, &protocol.JSONRPCError{
				Code:    protocol.CodeInvalidParams,
				Message: fmt.Sprintf("failed to parse initialize request: %v", err),
			}
		}
	}

	h.mu.Lock()
	h.clientInfo = initReq.ClientInfo
	h.mu.Unlock()

	negotiated := negotiateProtocolVersion(initReq.ProtocolVersion)
	log.Info("client connected", "client", initReq.ClientInfo.Name, "protocol", negotiated)

	return &InitializeResponse{
		ProtocolVersion: negotiated,
		Capabilities: map[string]any{
			"tools": map[string]any{},
		},
		ServerInfo: ServerInfo{
			Name:    version.ServerName,
			Version: version.Version,
		},
		Instructions: instructions,
	}, nil
}

func negotiateProtocolVersion(clientVersion string) string {
	for _, v := range version.SupportedProtocolVersions {
		if clientVersion == v {
			return v
		}
	}

	return version.ProtocolVersion
}

// DescribeTools converts registry tools to their wire form.
func DescribeTools(registry *tools.Registry) []Tool {
	list := registry.List()
	out := make([]Tool, len(list))

	for i, t := range list {
		out[i] = Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.Schema(),
		}
		if annotated, ok := t.(tools.AnnotatedTool); ok {
			out[i].Title = annotated.Title()
			out[i].Annotations = annotated.Annotations()
		}
	}
	return out
}

func (h *Handler) handleListTools() any {
	return &ListToolsResponse{Tools: DescribeTools(h.registry)}
}

// handleCallTool reports tool failures inside the result with isError set.
// Only malformed requests and unknown tools become JSON-RPC errors.
func (h *Handler) handleCallTool(ctx context.Context, req *Request) (any, error) {
	var call ToolCall
	if err := json.Unmarshal(req.Params, &call); err != nil {
		return nil, &protocol.JSONRPCError{
			Code:    protocol.CodeInvalidParams,
			Message: fmt.Sprintf("failed to parse tool call request: %v", err),
		}
	}
	if call.Name == "" {
		return nil, &protocol.JSONRPCError{Code: protocol.CodeInvalidParams, Message: "tool name is required"}
	}
	if _, ok := h.registry.Get(call.Name); !ok {
		return nil, &protocol.JSONRPCError{
			Code:    protocol.CodeInvalidParams,
			Message: fmt.Sprintf("Unknown tool: %s", call.Name),
		}
	}

	return CallTool(ctx, h.registry, call, h.toolTimeout), nil
}

// CallTool executes a tool and wraps its outcome as MCP text content.
func CallTool(ctx context.Context, registry *tools.Registry, call ToolCall, timeout time.Duration) *ToolResult {
	result, err := registry.ExecuteWithTimeout(ctx, call.Name, call.Arguments, timeout)
	if err != nil {
		log.Warn("tool call failed", "tool", call.Name, "error", err)
		return errorResult(err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return errorResult(fmt.Errorf("failed to marshal result: %w", err))
	}

	return &ToolResult{
		Content: []protocol.TextContent{{Type: "text", Text: string(data)}},
	}
}

func errorResult(err error) *ToolResult {
	data, _ := json.Marshal(map[string]string{"error": err.Error()})
	return &ToolResult{
		Content: []protocol.TextContent{{Type: "text", Text: string(data)}},
		IsError: true,
	}
}
