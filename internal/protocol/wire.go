// Package protocol implements the Protocol Dispatcher (spec.md §4.8): it
// parses one decoded JSON message — JSON-RPC 2.0 or the legacy STDIO-only
// envelope — routes it to the search_code, open_file, or ask_code tool, and
// shapes exactly one response value (or none, for notifications).
//
// Grounded on other_examples/53fa3b75_sxueck-codebase's hand-rolled
// JSONRPCRequest/JSONRPCResponse/RPCError types and method switch, extended
// with the legacy envelope and the tools/list schema advertising spec.md
// requires and mark3labs/mcp-go's built-in transport cannot produce.
//
// Each tool invocation is assigned a github.com/google/uuid correlation id
// (correlation.go), logged on entry and exit, so log lines from concurrent
// STDIO handlers can be grouped back into one request.
package protocol

import "encoding/json"

// Request is one JSON-RPC 2.0 request or notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is one JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *RPCError `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	errParseError     = -32700
	errInvalidRequest = -32600
	errMethodNotFound = -32601
	errInvalidParams  = -32602
)

// toolsCallParams is the decoded params of a tools/call request.
type toolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// callToolResult is the MCP-shaped result of a tools/call, whether the
// underlying tool succeeded or produced a classified error.
type callToolResult struct {
	Content []contentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func textResult(text string, isError bool) callToolResult {
	return callToolResult{Content: []contentItem{{Type: "text", Text: text}}, IsError: isError}
}

// legacyRequest is the STDIO-only, NDJSON-only {id, tool, input} envelope.
type legacyRequest struct {
	ID    any             `json:"id"`
	Tool  string           `json:"tool"`
	Input json.RawMessage `json:"input"`
}

// legacyResponse is the legacy envelope's response shape.
type legacyResponse struct {
	ID     any          `json:"id"`
	OK     bool         `json:"ok"`
	Output any          `json:"output,omitempty"`
	Error  *legacyError `json:"error,omitempty"`
}

type legacyError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
