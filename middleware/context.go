package middleware

import (
	"context"

	"github.com/KhrystynaYelyseyeva/auth-service/auth"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// VerdictKey is the context key for the authentication verdict
	VerdictKey contextKey = "verdict"
)

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetVerdictFromContext retrieves the authentication verdict from context.
// An absent verdict reads as anonymous.
func GetVerdictFromContext(ctx context.Context) auth.Verdict {
	if val := ctx.Value(VerdictKey); val != nil {
		if verdict, ok := val.(auth.Verdict); ok {
			return verdict
		}
	}
	return auth.Verdict{}
}

// WithVerdict adds an authentication verdict to the context
func WithVerdict(ctx context.Context, verdict auth.Verdict) context.Context {
	return context.WithValue(ctx, VerdictKey, verdict)
}
