package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"pkt.systems/pslog"

	"github.com/WayneSimpson/clickup-mcp-server/internal/svcfields"
)

// Tool describes one callable tool as advertised by tools/list.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ToolHandler executes a tool call. Domain failures should be reported
// through an isError ToolResult; a non-nil error is reserved for faults
// the handler could not express as content.
type ToolHandler func(ctx context.Context, arguments json.RawMessage) (*ToolResult, error)

// ContentBlock is one element of a tool result.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ToolResult is the tools/call result payload.
type ToolResult struct {
	Content           []ContentBlock `json:"content"`
	StructuredContent any            `json:"structuredContent,omitempty"`
	IsError           bool           `json:"isError,omitempty"`
}

// TextResult wraps text in a single-block success result.
func TextResult(text string) *ToolResult {
	return &ToolResult{Content: []ContentBlock{{Type: "text", Text: text}}}
}

// ErrorResult wraps text in a single-block isError result.
func ErrorResult(text string) *ToolResult {
	return &ToolResult{Content: []ContentBlock{{Type: "text", Text: text}}, IsError: true}
}

// Dispatcher routes decoded JSON-RPC requests to MCP lifecycle methods
// and registered tools. Registration happens before serving starts;
// Dispatch is safe for concurrent use after that.
type Dispatcher struct {
	serverName    string
	serverVersion string
	logger        pslog.Logger

	order    []string
	tools    map[string]Tool
	handlers map[string]ToolHandler
}

// NewDispatcher constructs a Dispatcher identifying itself as
// name/version during initialize.
func NewDispatcher(name, version string, logger pslog.Logger) *Dispatcher {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return &Dispatcher{
		serverName:    name,
		serverVersion: version,
		logger:        svcfields.WithSubsystem(logger, "mcp.rpc"),
		tools:         make(map[string]Tool),
		handlers:      make(map[string]ToolHandler),
	}
}

// RegisterTool adds a tool. Re-registering a name replaces the previous
// definition without changing advertisement order.
func (d *Dispatcher) RegisterTool(tool Tool, handler ToolHandler) {
	if _, exists := d.tools[tool.Name]; !exists {
		d.order = append(d.order, tool.Name)
	}
	d.tools[tool.Name] = tool
	d.handlers[tool.Name] = handler
}

// Tools returns the registered tools in registration order.
func (d *Dispatcher) Tools() []Tool {
	out := make([]Tool, 0, len(d.order))
	for _, name := range d.order {
		out = append(out, d.tools[name])
	}
	return out
}

// Dispatch executes one request and returns the response, or nil when
// the request is a notification.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) *Response {
	if req.JSONRPC != "2.0" {
		if req.IsNotification() {
			return nil
		}
		return ErrorResponse(req.ID, NewError(CodeInvalidRequest, "Invalid Request"))
	}

	var (
		result any
		rpcErr *Error
	)
	switch req.Method {
	case "initialize":
		result = d.initializeResult()
	case "notifications/initialized", "notifications/cancelled":
		return nil
	case "ping":
		result = map[string]any{}
	case "tools/list":
		result = map[string]any{"tools": d.Tools()}
	case "tools/call":
		result, rpcErr = d.callTool(ctx, req.Params)
	default:
		rpcErr = NewError(CodeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method))
	}

	if req.IsNotification() {
		if rpcErr != nil {
			d.logger.Debug("mcp.rpc.notification_error", "method", req.Method, "code", rpcErr.Code)
		}
		return nil
	}
	if rpcErr != nil {
		return ErrorResponse(req.ID, rpcErr)
	}
	return ResultResponse(req.ID, result)
}

func (d *Dispatcher) initializeResult() map[string]any {
	return map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{"listChanged": false},
		},
		"serverInfo": map[string]any{
			"name":    d.serverName,
			"version": d.serverVersion,
		},
	}
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (d *Dispatcher) callTool(ctx context.Context, params json.RawMessage) (any, *Error) {
	var call toolCallParams
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, NewError(CodeInvalidParams, "Invalid params")
	}
	handler, ok := d.handlers[call.Name]
	if !ok {
		return nil, NewError(CodeInvalidParams, fmt.Sprintf("Unknown tool: %s", call.Name))
	}
	d.logger.Debug("mcp.rpc.tool_call", "tool", call.Name)
	result, err := handler(ctx, call.Arguments)
	if err != nil {
		d.logger.Warn("mcp.rpc.tool_failure", "tool", call.Name, "error", err)
		return ErrorResult(err.Error()), nil
	}
	if result == nil {
		result = TextResult("")
	}
	return result, nil
}
