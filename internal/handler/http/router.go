package http

import (
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/reviewregistry/pkg/health"
	"github.com/utafrali/reviewregistry/pkg/httputil"
	"github.com/utafrali/reviewregistry/pkg/middleware"
)

// RouterConfig holds the optional pieces of the router.
type RouterConfig struct {
	ServiceName string
	// JWTSecret enables bearer-token principals; empty trusts X-Principal.
	JWTSecret string
	// WriteLimiter throttles mutating endpoints per caller when set.
	WriteLimiter *middleware.RateLimiter
	PprofCIDRs   []string
}

// NewRouter creates a chi router with all registry routes registered.
func NewRouter(svc ReviewService, healthHandler *health.Handler, logger *slog.Logger, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.Principal(cfg.JWTSecret, logger))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	h := NewRegistryHandler(svc, logger)

	write := func(r chi.Router) chi.Router {
		r = r.With(ContentTypeJSON)
		if cfg.WriteLimiter != nil {
			r = r.With(cfg.WriteLimiter.Middleware)
		}
		return r
	}

	r.Route("/api/v1/registry", func(r chi.Router) {
		write(r).Post("/authority", h.SetAuthority)
		write(r).Put("/fee", h.SetReviewFee)
		r.Get("/settings", h.GetSettings)
	})

	r.Route("/api/v1/reviews", func(r chi.Router) {
		write(r).Post("/", h.SubmitReview)
		r.Get("/count", h.GetReviewCount)
		r.Get("/{id}", h.GetReview)
		write(r).Put("/{id}", h.UpdateReview)
		r.Get("/{id}/latest-update", h.GetLatestUpdate)
	})

	r.Get("/api/v1/purchases/{tokenId}/review", h.CheckReviewExists)
	r.Get("/api/v1/businesses/{businessId}/aggregate", h.GetBusinessAggregate)
	r.Get("/api/v1/businesses/{businessId}/reviews", h.ListBusinessReviews)

	return r
}

// ContentTypeJSON rejects request bodies that are not declared as JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mt != "application/json" {
			httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
