package internal

import (
	"context"
	"time"
)

type ctxKey string

const ContextSubjectKey ctxKey = "subjectID"

func SubjectIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if subjectID, ok := ctx.Value(ContextSubjectKey).(string); ok {
		return subjectID
	}
	return ""
}

func ContextWithSubjectID(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, ContextSubjectKey, subjectID)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
