// Package policy holds the immutable security posture the gating pipeline
// consults on every request. A SecurityPolicy is built once at startup from
// environment configuration and never mutated, so concurrent reads from
// request handlers need no locking.
package policy

import (
	"time"

	"analytics-gateway/internal/platform/config"
)

// SecurityPolicy is a read-only snapshot of the environment-derived
// security configuration.
type SecurityPolicy struct {
	mode        config.Mode
	origins     []string
	credentials map[string]struct{}
	quota       int
	window      time.Duration
}

// New builds a SecurityPolicy from the server configuration. Empty entries
// in the origin and credential lists are dropped here so every consumer
// sees the same filtered sets.
func New(cfg config.Server) *SecurityPolicy {
	creds := make(map[string]struct{}, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		if k != "" {
			creds[k] = struct{}{}
		}
	}

	origins := make([]string, 0, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		if o != "" {
			origins = append(origins, o)
		}
	}

	return &SecurityPolicy{
		mode:        cfg.Mode,
		origins:     origins,
		credentials: creds,
		quota:       cfg.RateLimitQuota,
		window:      cfg.RateLimitWindow,
	}
}

// Mode returns the deployment mode.
func (p *SecurityPolicy) Mode() config.Mode {
	return p.mode
}

// AllowedOrigins returns the CORS origins. Development mode allows all
// origins regardless of configuration; production returns the explicit
// configured set.
func (p *SecurityPolicy) AllowedOrigins() []string {
	if p.mode == config.Development {
		return []string{"*"}
	}
	out := make([]string, len(p.origins))
	copy(out, p.origins)
	return out
}

// HasCredential reports whether the given value is a member of the
// configured credential set.
func (p *SecurityPolicy) HasCredential(value string) bool {
	_, ok := p.credentials[value]
	return ok
}

// CredentialsConfigured reports whether any credentials are configured.
// An empty set means "no credential restriction configured", which enables
// the development bypass but must still reject everything in production.
func (p *SecurityPolicy) CredentialsConfigured() bool {
	return len(p.credentials) > 0
}

// Quota returns the number of requests a client may make per window.
func (p *SecurityPolicy) Quota() int {
	return p.quota
}

// Window returns the sliding-window span for rate limiting.
func (p *SecurityPolicy) Window() time.Duration {
	return p.window
}
