// Package rpc implements the JSON-RPC 2.0 message layer the MCP
// transports speak. It deliberately stays wire-level: transports own
// sessions and framing, this package owns parsing, method routing and
// tool invocation.
package rpc

import (
	"bytes"
	"encoding/json"
)

// ProtocolVersion is the MCP revision this server negotiates.
const ProtocolVersion = "2024-11-05"

// JSON-RPC 2.0 error codes, plus the server-defined code the transports
// use for session protocol violations.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeServerError    = -32000
)

// Request is an incoming JSON-RPC message. A request with no id is a
// notification and never produces a response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id.
func (r *Request) IsNotification() bool {
	return len(r.ID) == 0 || bytes.Equal(r.ID, []byte("null"))
}

// Response is an outgoing JSON-RPC message. Exactly one of Result and
// Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is the JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewError builds an error object.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// ResultResponse wraps result for the request id.
func ResultResponse(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: "2.0", ID: normalizeID(id), Result: result}
}

// ErrorResponse wraps an error object for the request id.
func ErrorResponse(id json.RawMessage, rpcErr *Error) *Response {
	return &Response{JSONRPC: "2.0", ID: normalizeID(id), Error: rpcErr}
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

// DecodeRequest parses a raw JSON-RPC frame. On malformed JSON it
// returns a ready-to-send parse error response instead of a request.
func DecodeRequest(data []byte) (*Request, *Response) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, ErrorResponse(nil, NewError(CodeParseError, "Parse error"))
	}
	return &req, nil
}
