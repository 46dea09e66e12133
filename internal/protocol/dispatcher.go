package protocol

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/jamaly87/code-compass/internal/metrics"
	"github.com/jamaly87/code-compass/internal/model"
	"github.com/jamaly87/code-compass/internal/scope"
	"github.com/jamaly87/code-compass/internal/tools/filereader"
	"github.com/jamaly87/code-compass/internal/tools/rag"
	"github.com/jamaly87/code-compass/internal/tools/search"
)

const protocolVersion = "2024-11-05"

// Dispatcher routes JSON-RPC and legacy envelope messages to the three
// tools and shapes their responses.
type Dispatcher struct {
	search           *search.Tool
	reader           *filereader.Tool
	rag              *rag.Tool
	allowGlobalScope bool
	serverName       string
	serverVersion    string
	log              zerolog.Logger
}

// New builds a Dispatcher wired to the three tools.
func New(searchTool *search.Tool, reader *filereader.Tool, ragTool *rag.Tool, allowGlobalScope bool, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		search:           searchTool,
		reader:           reader,
		rag:              ragTool,
		allowGlobalScope: allowGlobalScope,
		serverName:       "code-compass",
		serverVersion:    "1.0.0",
		log:              log,
	}
}

// Sniff reports whether raw looks like a JSON-RPC 2.0 message (carries a
// "jsonrpc" field), as opposed to the legacy {id, tool, input} envelope.
func Sniff(raw []byte) bool {
	var probe struct {
		JSONRPC string `json:"jsonrpc"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return probe.JSONRPC != ""
}

// ValidShape reports whether raw satisfies the JSON-RPC 2.0 request shape:
// a "jsonrpc":"2.0" field and a non-empty "method". The HTTP transport uses
// this to reject a malformed body with 400/-32600 before it ever reaches
// HandleJSONRPC, which instead treats a missing id as a notification.
func ValidShape(raw []byte) bool {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return false
	}
	return req.JSONRPC == "2.0" && req.Method != ""
}

// HandleJSONRPC dispatches one JSON-RPC 2.0 message. The second return
// value is false for notifications (no id), which must produce no
// response on any transport.
func (d *Dispatcher) HandleJSONRPC(ctx context.Context, raw []byte) (*Response, bool) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return &Response{JSONRPC: "2.0", ID: nil, Error: &RPCError{Code: errParseError, Message: "parse error"}}, true
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: &RPCError{Code: errInvalidRequest, Message: "invalid request"}}, req.ID != nil
	}

	hasID := req.ID != nil
	if req.Method == "notifications/initialized" || req.Method == "initialized" {
		return nil, false
	}

	var result any
	var rpcErr *RPCError

	switch req.Method {
	case "initialize":
		result = d.handleInitialize()
	case "tools/list":
		result = d.handleToolsList()
	case "tools/call":
		result, rpcErr = d.handleToolsCall(ctx, req.Params)
	default:
		rpcErr = &RPCError{Code: errMethodNotFound, Message: "method not found: " + req.Method}
	}

	if !hasID {
		return nil, false
	}
	resp := &Response{JSONRPC: "2.0", ID: req.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	return resp, true
}

func (d *Dispatcher) handleInitialize() any {
	return map[string]any{
		"protocolVersion": protocolVersion,
		"serverInfo": map[string]any{
			"name":    d.serverName,
			"version": d.serverVersion,
		},
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
	}
}

func (d *Dispatcher) handleToolsList() any {
	return map[string]any{"tools": toolDefs()}
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, params json.RawMessage) (any, *RPCError) {
	var p toolsCallParams
	if err := json.Unmarshal(params, &p); err != nil || p.Name == "" {
		return nil, &RPCError{Code: errInvalidParams, Message: "invalid params: name is required"}
	}

	ctx, corrID := withCorrelationID(ctx)
	d.log.Info().Str("correlation_id", corrID).Str("tool", p.Name).Msg("tool call started")

	output, err := d.invoke(ctx, p.Name, p.Arguments)
	if err != nil {
		ce := model.AsCodeError(err)
		metrics.RecordToolCall(p.Name, string(ce.Code))
		d.log.Warn().Str("correlation_id", corrID).Str("tool", p.Name).Str("code", string(ce.Code)).Msg("tool call failed")
		return textResult(string(ce.Code)+": "+ce.Message, true), nil
	}

	encoded, marshalErr := json.Marshal(output)
	if marshalErr != nil {
		metrics.RecordToolCall(p.Name, string(model.CodeInternal))
		d.log.Error().Str("correlation_id", corrID).Str("tool", p.Name).Err(marshalErr).Msg("tool call result encoding failed")
		return textResult("INTERNAL: failed to encode tool result", true), nil
	}
	metrics.RecordToolCall(p.Name, "ok")
	d.log.Info().Str("correlation_id", corrID).Str("tool", p.Name).Msg("tool call completed")
	return textResult(string(encoded), false), nil
}

// invoke routes one tool call by name, decoding its loosely-typed
// arguments into the appropriate tool Input.
func (d *Dispatcher) invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "search_code":
		return d.invokeSearch(ctx, args)
	case "open_file":
		return d.invokeOpenFile(args)
	case "ask_code":
		return d.invokeAskCode(ctx, args)
	default:
		return nil, model.NewError(model.CodeBadRequest, "unknown tool: "+name)
	}
}

func (d *Dispatcher) invokeSearch(ctx context.Context, args map[string]any) (any, error) {
	sc, err := scope.Resolve(args["scope"], argString(args, "repo"), d.allowGlobalScope)
	if err != nil {
		return nil, err
	}
	contentType := model.ContentType(argString(args, "contentType"))
	if contentType == "" {
		contentType = model.ContentAll
	}
	return d.search.Run(ctx, search.Input{
		Scope:       sc,
		Query:       argString(args, "query"),
		TopK:        argInt(args, "topK"),
		PathPrefix:  argString(args, "pathPrefix"),
		Vector:      argVector(args, "vector"),
		ContentType: contentType,
		Strict:      argBool(args, "strict"),
	})
}

func (d *Dispatcher) invokeOpenFile(args map[string]any) (any, error) {
	return d.reader.Read(model.FileRange{
		Repo:      argString(args, "repo"),
		Path:      argString(args, "path"),
		StartLine: argInt(args, "startLine"),
		EndLine:   argInt(args, "endLine"),
		MaxBytes:  argInt(args, "maxBytes"),
	})
}

func (d *Dispatcher) invokeAskCode(ctx context.Context, args map[string]any) (any, error) {
	sc, err := scope.Resolve(args["scope"], argString(args, "repo"), d.allowGlobalScope)
	if err != nil {
		return nil, err
	}
	contentType := model.ContentType(argString(args, "contentType"))
	if contentType == "" {
		contentType = model.ContentAll
	}
	return d.rag.Run(ctx, rag.Input{
		Scope:       sc,
		Query:       argString(args, "query"),
		TopK:        argInt(args, "topK"),
		PathPrefix:  argString(args, "pathPrefix"),
		Language:    argString(args, "language"),
		MinScore:    argFloatPtr(args, "minScore"),
		LLMModel:    argString(args, "llmModel"),
		Grounded:    argBool(args, "grounded"),
		ContentType: contentType,
		Strict:      argBool(args, "strict"),
	})
}
