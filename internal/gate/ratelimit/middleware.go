package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"

	platformMW "analytics-gateway/internal/platform/middleware"
	"analytics-gateway/internal/platform/privacy"
	"analytics-gateway/pkg/platform/httputil"
)

// RejectionObserver receives a count signal for every rate-limit rejection.
type RejectionObserver interface {
	IncrementRateLimitRejections()
}

// Middleware enforces the sliding-window quota for every inbound request.
type Middleware struct {
	store    Store
	logger   *slog.Logger
	observer RejectionObserver
}

// MiddlewareOption configures the middleware.
type MiddlewareOption func(*Middleware)

// WithRejectionObserver wires a metrics sink for rejections.
func WithRejectionObserver(o RejectionObserver) MiddlewareOption {
	return func(m *Middleware) {
		m.observer = o
	}
}

// NewMiddleware creates the rate limiting middleware around a store.
func NewMiddleware(store Store, logger *slog.Logger, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		store:  store,
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Handler checks the client's quota before anything downstream runs. A
// rejection short-circuits with 429 and the fixed response body; the
// downstream processor is never invoked. Store errors (a distributed store
// being unreachable) fail open and are logged; availability wins over
// strict enforcement.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity := platformMW.GetClientIP(ctx)

		result, err := m.store.Allow(ctx, identity)
		if err != nil {
			m.logger.ErrorContext(ctx, "rate limit check failed, admitting request",
				"error", err,
				"ip_prefix", privacy.AnonymizeIP(identity),
				"request_id", platformMW.GetRequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)

		if !result.Allowed {
			if m.observer != nil {
				m.observer.IncrementRateLimitRejections()
			}
			m.logger.WarnContext(ctx, "rate limit exceeded",
				"ip_prefix", privacy.AnonymizeIP(identity),
				"limit", result.Limit,
				"retry_after", result.RetryAfter,
				"request_id", platformMW.GetRequestID(ctx),
			)
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
			httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.ErrorResponse{
				Error:  "Rate limit exceeded",
				Detail: "Too many requests",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// addRateLimitHeaders adds X-RateLimit-* headers to the response.
func addRateLimitHeaders(w http.ResponseWriter, result *Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
