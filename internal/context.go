package internal

import (
	"context"
	"time"
)

type ctxKey string

const ContextEventIDKey ctxKey = "gatewayEventID"

func EventIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if eventID, ok := ctx.Value(ContextEventIDKey).(string); ok {
		return eventID
	}
	return ""
}

func ContextWithEventID(ctx context.Context, eventID string) context.Context {
	return context.WithValue(ctx, ContextEventIDKey, eventID)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
