package protocol

import (
	"context"

	"github.com/google/uuid"
)

type correlationIDKey struct{}

// withCorrelationID mints a per-request id and returns a context carrying
// it, so the dispatcher's entry and exit log lines for one tool invocation
// can be grouped even when several run concurrently on the STDIO transport.
func withCorrelationID(ctx context.Context) (context.Context, string) {
	id := uuid.New().String()
	return context.WithValue(ctx, correlationIDKey{}, id), id
}

// CorrelationID returns the id minted by withCorrelationID, or "" if ctx
// carries none.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}
