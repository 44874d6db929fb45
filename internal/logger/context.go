package logger

import (
	"context"

	"github.com/google/uuid"
)

// WithInvocationID adds a pipeline invocation ID to the context.
func WithInvocationID(ctx context.Context, invocationID string) context.Context {
	return context.WithValue(ctx, ContextKeyInvocationID, invocationID)
}

// WithReportID adds a fire report ID to the context.
func WithReportID(ctx context.Context, reportID string) context.Context {
	return context.WithValue(ctx, ContextKeyReportID, reportID)
}

// WithTrigger records which trigger adapter started the invocation.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, ContextKeyTrigger, trigger)
}

// WithOperation adds an operation name to the context.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, ContextKeyOperation, operation)
}

// GenerateInvocationID generates a new invocation ID.
func GenerateInvocationID() string {
	return uuid.New().String()
}

// InvocationIDFromContext returns the invocation ID, or "" when none is set.
func InvocationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyInvocationID).(string)
	return id
}
