package middleware

import "net/http"

// securityHeaders is the fixed set attached to every outbound response,
// error paths included. Values mirror the deployed contract; do not vary
// them per route.
var securityHeaders = map[string]string{
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"X-XSS-Protection":          "1; mode=block",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
	"Content-Security-Policy":   "default-src 'self'",
	"Referrer-Policy":           "strict-origin-when-cross-origin",
}

// SecurityHeaders returns a copy of the fixed header set.
func SecurityHeaders() map[string]string {
	out := make(map[string]string, len(securityHeaders))
	for k, v := range securityHeaders {
		out[k] = v
	}
	return out
}

// InjectSecurityHeaders sets the header set before the rest of the chain
// runs, so every response carries it regardless of which layer wrote the
// status.
func InjectSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for name, value := range securityHeaders {
			w.Header().Set(name, value)
		}
		next.ServeHTTP(w, r)
	})
}
