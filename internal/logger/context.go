package logger

import "context"

type contextKey struct{}

var logContextKey = contextKey{}

// LogContext carries request-scoped fields that the *Ctx logging functions
// attach to every line.
type LogContext struct {
	RequestID string
	Username  string
	ClientIP  string
}

// WithContext returns a context carrying lc.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext returns the LogContext carried by ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// WithUsername returns a copy of lc with the username set.
func (lc *LogContext) WithUsername(username string) *LogContext {
	if lc == nil {
		return &LogContext{Username: username}
	}
	clone := *lc
	clone.Username = username
	return &clone
}
