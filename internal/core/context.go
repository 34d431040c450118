package core

import "context"

type contextKey string

const (
	ctxKeySource     contextKey = "ingest_source"
	ctxKeyRemoteAddr contextKey = "ingest_remote_addr"
)

// ContextWithSource records what triggered an ingest ("http", "cli", "dir").
func ContextWithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, ctxKeySource, source)
}

// ContextWithRemoteAddr records the client address of an HTTP ingest.
func ContextWithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, ctxKeyRemoteAddr, addr)
}

// SourceFromContext returns the ingest source, or "" if unset.
func SourceFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeySource).(string); ok {
		return v
	}
	return ""
}

// RemoteAddrFromContext returns the client address, or "" if unset.
func RemoteAddrFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRemoteAddr).(string); ok {
		return v
	}
	return ""
}
