package authclient

import (
	"context"

	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request correlation ID. The retry of a
// request reuses the original ID.
const RequestIDHeader = "X-Request-ID"

type requestIDContextKey struct{}

// WithRequestID attaches a request ID to ctx. [Client.Do] uses it instead of
// generating one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// RequestIDFromContext returns the request ID attached by [WithRequestID].
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

func requestIDFor(ctx context.Context, req RequestDescriptor) string {
	if id := RequestIDFromContext(ctx); id != "" {
		return id
	}
	if id := req.Header.Get(RequestIDHeader); id != "" {
		return id
	}
	return uuid.NewString()
}
