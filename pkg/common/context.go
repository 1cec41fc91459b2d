package common

import (
	"context"
)

// ContextKey represents a context key type
type ContextKey string

// Context keys
const (
	ContextKeyRequestID    ContextKey = "request_id"
	ContextKeyInvocationID ContextKey = "invocation_id"
)

// WithRequestID adds request ID to context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// GetRequestID extracts request ID from context
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(ContextKeyRequestID).(string)
	return requestID, ok
}

// WithInvocationID adds an operation invocation ID to context
func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyInvocationID, id)
}

// GetInvocationID extracts the operation invocation ID from context
func GetInvocationID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ContextKeyInvocationID).(string)
	return id, ok
}
