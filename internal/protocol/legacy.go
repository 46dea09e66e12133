package protocol

import (
	"context"
	"encoding/json"

	"github.com/jamaly87/code-compass/internal/metrics"
	"github.com/jamaly87/code-compass/internal/model"
)

// HandleLegacy dispatches one legacy {id, tool, input} envelope message,
// valid only on the NDJSON-framed STDIO transport. It always produces a
// response.
func (d *Dispatcher) HandleLegacy(ctx context.Context, raw []byte) *legacyResponse {
	var req legacyRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return &legacyResponse{ID: "unknown", OK: false, Error: &legacyError{
			Code:    string(model.CodeBadRequest),
			Message: "malformed request envelope",
		}}
	}

	id := req.ID
	if _, ok := id.(string); !ok {
		id = "unknown"
	}

	if req.Tool == "" {
		return &legacyResponse{ID: id, OK: false, Error: &legacyError{
			Code:    string(model.CodeBadRequest),
			Message: "tool is required",
		}}
	}

	var args map[string]any
	if len(req.Input) > 0 {
		if err := json.Unmarshal(req.Input, &args); err != nil {
			return &legacyResponse{ID: req.ID, OK: false, Error: &legacyError{
				Code:    string(model.CodeBadRequest),
				Message: "input must be an object",
			}}
		}
	}

	ctx, corrID := withCorrelationID(ctx)
	d.log.Info().Str("correlation_id", corrID).Str("tool", req.Tool).Msg("tool call started")

	output, err := d.invoke(ctx, req.Tool, args)
	if err != nil {
		ce := model.AsCodeError(err)
		metrics.RecordToolCall(req.Tool, string(ce.Code))
		d.log.Warn().Str("correlation_id", corrID).Str("tool", req.Tool).Str("code", string(ce.Code)).Msg("tool call failed")
		return &legacyResponse{ID: req.ID, OK: false, Error: &legacyError{
			Code:    string(ce.Code),
			Message: ce.Message,
		}}
	}
	metrics.RecordToolCall(req.Tool, "ok")
	d.log.Info().Str("correlation_id", corrID).Str("tool", req.Tool).Msg("tool call completed")
	return &legacyResponse{ID: req.ID, OK: true, Output: output}
}
