// Package auth validates pre-shared credentials on inbound requests.
//
// A request is admitted by the first matching rule: the development bypass
// (development mode with no credentials configured), an X-API-Key header
// whose value is a configured credential, or a bearer token whose value is
// a configured credential. Production with an empty credential set rejects
// everything; the bypass never applies there.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"analytics-gateway/internal/gate/policy"
	"analytics-gateway/internal/platform/config"
	platformMW "analytics-gateway/internal/platform/middleware"
	"analytics-gateway/internal/platform/privacy"
	dErrors "analytics-gateway/pkg/domain-errors"
	"analytics-gateway/pkg/platform/httputil"
)

// APIKeyHeader is the request header carrying the pre-shared key.
const APIKeyHeader = "X-API-Key"

const bearerPrefix = "Bearer "

// Scheme identifies how a credential was presented.
type Scheme string

const (
	// SchemeNone marks the development bypass: no credential required.
	SchemeNone Scheme = "none"
	// SchemeAPIKey marks a credential from the X-API-Key header.
	SchemeAPIKey Scheme = "api_key"
	// SchemeBearer marks a credential from the Authorization header.
	SchemeBearer Scheme = "bearer"
)

// Credential is the admitted credential, opaque beyond set membership.
type Credential struct {
	Scheme Scheme
	Value  string
}

// FailureObserver receives a count signal for every rejected request.
type FailureObserver interface {
	IncrementAuthFailures()
}

// Authenticator checks request credentials against the security policy.
// It is stateless; the policy it reads is immutable.
type Authenticator struct {
	policy *policy.SecurityPolicy
}

// New creates an Authenticator bound to the process security policy.
func New(p *policy.SecurityPolicy) *Authenticator {
	return &Authenticator{policy: p}
}

// Authenticate evaluates the three admission states in order, first match
// wins. It has no side effects beyond the returned decision.
func (a *Authenticator) Authenticate(r *http.Request) (Credential, error) {
	// Deliberate default-open posture for local development. Production
	// mode never reaches this branch, so an empty credential set there
	// rejects every request.
	if a.policy.Mode() == config.Development && !a.policy.CredentialsConfigured() {
		return Credential{Scheme: SchemeNone}, nil
	}

	if key := r.Header.Get(APIKeyHeader); key != "" && a.policy.HasCredential(key) {
		return Credential{Scheme: SchemeAPIKey, Value: key}, nil
	}

	authz := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(authz, bearerPrefix); ok && a.policy.HasCredential(token) {
		return Credential{Scheme: SchemeBearer, Value: token}, nil
	}

	return Credential{}, dErrors.New(dErrors.CodeUnauthorized, "Invalid or missing API key")
}

// Middleware rejects unauthenticated requests with 401 before the handler
// runs.
func Middleware(a *Authenticator, logger *slog.Logger, observer FailureObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if _, err := a.Authenticate(r); err != nil {
				if observer != nil {
					observer.IncrementAuthFailures()
				}
				logger.WarnContext(ctx, "authentication failed",
					"key_prefix", presentedKeyHash(r),
					"ip_prefix", privacy.AnonymizeIP(platformMW.GetClientIP(ctx)),
					"request_id", platformMW.GetRequestID(ctx),
				)
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// presentedKeyHash returns a short hash of whatever credential the request
// carried, or "none". Only the hash ever reaches the logs.
func presentedKeyHash(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return privacy.Hash(key)
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix); ok && token != "" {
		return privacy.Hash(token)
	}
	return "none"
}
