package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/railcsv/internal/core"
)

// withIngestMetadata marks the request as an HTTP ingest and records the
// client address (already resolved by TrustedRealIP).
func withIngestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithSource(ctx, "http")
	return core.ContextWithRemoteAddr(ctx, r.RemoteAddr)
}
