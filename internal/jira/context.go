package jira

import (
	"context"

	"github.com/bobmcallan/jira-mcp/internal/common"
)

type loggerContextKey struct{}

// WithLogger attaches a (typically correlation-tagged) logger to ctx.
func WithLogger(ctx context.Context, l *common.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, l)
}

// loggerFrom returns the logger attached to ctx, or fallback.
func loggerFrom(ctx context.Context, fallback *common.Logger) *common.Logger {
	if l, ok := ctx.Value(loggerContextKey{}).(*common.Logger); ok && l != nil {
		return l
	}
	return fallback
}

type correlationContextKey struct{}

// WithCorrelationID makes Dispatch reuse an inbound request id instead of minting one.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationContextKey{}, id)
}

func correlationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(correlationContextKey{}).(string)
	return id
}
