package httptransport

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"analytics-gateway/internal/gate/auth"
	"analytics-gateway/internal/gate/policy"
	"analytics-gateway/internal/gate/ratelimit"
	"analytics-gateway/internal/platform/health"
	"analytics-gateway/internal/platform/metrics"
	"analytics-gateway/internal/platform/middleware"
)

// RouterDeps carries everything the router wires together. All fields except
// TrustedProxies and StaticDir are required.
type RouterDeps struct {
	Policy         *policy.SecurityPolicy
	Store          ratelimit.Store
	Authenticator  *auth.Authenticator
	Handler        *Handler
	Health         *health.Handler
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	TrustedProxies []netip.Prefix
	StaticDir      string
}

// allowOriginFunc admits exactly the configured origins. A wildcard entry
// admits every origin; an empty set admits none.
func allowOriginFunc(origins []string) func(r *http.Request, origin string) bool {
	allowed := make(map[string]struct{}, len(origins))
	allowAll := false
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = struct{}{}
	}
	return func(_ *http.Request, origin string) bool {
		if allowAll {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// NewRouter assembles the middleware chain and routes. The admission order
// is fixed: requests are rate limited before authentication, authenticated
// before validation, and every response carries the security headers no
// matter which stage produced it.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata(deps.TrustedProxies))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Latency(deps.Metrics))
	r.Use(middleware.InjectSecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		// go-chi/cors falls back to allow-all when the origin list is
		// empty, which would invert the production posture (no configured
		// origins = no cross-origin access). The func keeps the empty set
		// meaning deny.
		AllowOriginFunc:  allowOriginFunc(deps.Policy.AllowedOrigins()),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.ContentTypeJSON)

	limiter := ratelimit.NewMiddleware(deps.Store, deps.Logger,
		ratelimit.WithRejectionObserver(deps.Metrics))
	r.Use(limiter.Handler)

	r.With(auth.Middleware(deps.Authenticator, deps.Logger, deps.Metrics)).
		Post("/query", deps.Handler.handleQuery)

	deps.Health.Register(r)

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	if spa, ok := NewSPAHandler(deps.StaticDir); ok {
		r.NotFound(spa.ServeHTTP)
		r.Get("/", spa.ServeHTTP)
	} else {
		r.Get("/", deps.Handler.handleRoot)
	}

	return r
}
