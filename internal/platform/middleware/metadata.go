package middleware

import (
	"context"
	"net/http"
	"net/netip"
	"strings"
)

// maxForwardedHeaderLength caps forwarded-IP headers to prevent header
// injection and log pollution.
const maxForwardedHeaderLength = 500

type clientIPKey struct{}

// ClientMetadata extracts the client IP from the request and stores it in
// the context. The rate limiter buckets on this value; it is not
// authenticated and remains spoofable by clients that control their source
// address. X-Forwarded-For is honored only when the direct peer is a
// trusted proxy, otherwise RemoteAddr wins.
func ClientMetadata(trustedProxies []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := extractClientIP(r, trustedProxies)
			ctx := context.WithValue(r.Context(), clientIPKey{}, ip)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientIP retrieves the client IP from the context.
func GetClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return "unknown"
}

func extractClientIP(r *http.Request, trustedProxies []netip.Prefix) string {
	remoteIP := parseRemoteAddr(r.RemoteAddr)
	if remoteIP == "" {
		return "unknown"
	}

	if !isTrustedProxy(remoteIP, trustedProxies) {
		return remoteIP
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" || len(xff) > maxForwardedHeaderLength {
		if xri := r.Header.Get("X-Real-IP"); xri != "" && len(xri) <= maxForwardedHeaderLength {
			if _, err := netip.ParseAddr(strings.TrimSpace(xri)); err == nil {
				return strings.TrimSpace(xri)
			}
		}
		return remoteIP
	}

	// First IP in the XFF chain is the original client.
	clientIP := xff
	if before, _, ok := strings.Cut(xff, ","); ok {
		clientIP = before
	}
	clientIP = strings.TrimSpace(clientIP)

	if _, err := netip.ParseAddr(clientIP); err != nil {
		return remoteIP
	}
	return clientIP
}

func isTrustedProxy(ip string, trustedProxies []netip.Prefix) bool {
	if len(trustedProxies) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	for _, prefix := range trustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// parseRemoteAddr extracts the IP from RemoteAddr (strips port).
func parseRemoteAddr(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}

	// IPv6 with brackets: [::1]:port
	if strings.HasPrefix(remoteAddr, "[") {
		if idx := strings.LastIndex(remoteAddr, "]:"); idx != -1 {
			return remoteAddr[1:idx]
		}
		return strings.Trim(remoteAddr, "[]")
	}

	if idx := strings.LastIndex(remoteAddr, ":"); idx != -1 {
		return remoteAddr[:idx]
	}
	return remoteAddr
}
