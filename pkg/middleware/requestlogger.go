package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/reviewregistry/pkg/logger"
)

// RequestLogger stores a logger enriched with correlation_id, principal,
// trace_id and span_id in the request context. Mount it after
// RequestLogging, Tracing and Principal so those values are present.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if p := PrincipalFromContext(ctx); p != "" {
				ctx = logger.WithPrincipal(ctx, p)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
