package config

import (
	"log/slog"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"
)

// Mode is the closed set of deployment modes. Keeping it an enum means the
// permissive development posture is decided in exactly one place instead of
// string comparisons scattered across components.
type Mode int

const (
	Development Mode = iota
	Production
)

// ParseMode maps the ENVIRONMENT variable to a Mode. The second return value
// reports whether the input named a known mode; unknown values fall back to
// Development, matching the historical default.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "production":
		return Production, true
	case "development", "":
		return Development, true
	default:
		return Development, false
	}
}

func (m Mode) String() string {
	if m == Production {
		return "production"
	}
	return "development"
}

// requiredEngineEnv lists the environment variables the external query
// engine needs. The health endpoint reports which of them are missing.
var requiredEngineEnv = []string{
	"OPENAI_API_KEY",
	"NEO4J_URI",
	"NEO4J_USERNAME",
	"NEO4J_PASSWORD",
}

// Server captures process-level configuration built once at startup.
type Server struct {
	Addr            string
	Mode            Mode
	ModeRecognized  bool
	RateLimitQuota  int
	RateLimitWindow time.Duration
	AllowedOrigins  []string
	APIKeys         []string
	EngineURL       string
	EngineTimeout   time.Duration
	RedisURL        string
	StaticDir       string
	LogLevel        slog.Level
	TrustedProxies  []netip.Prefix
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("GATEWAY_ADDR")
	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		} else {
			addr = ":12000"
		}
	}

	mode, recognized := ParseMode(os.Getenv("ENVIRONMENT"))

	engineTimeout := 120 * time.Second
	if v := os.Getenv("ENGINE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			engineTimeout = d
		}
	}

	staticDir := os.Getenv("STATIC_DIR")
	if staticDir == "" {
		staticDir = "/app/static"
	}

	return Server{
		Addr:            addr,
		Mode:            mode,
		ModeRecognized:  recognized,
		RateLimitQuota:  intFromEnv("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: time.Duration(intFromEnv("RATE_LIMIT_WINDOW", 3600)) * time.Second,
		AllowedOrigins:  splitList(os.Getenv("ALLOWED_ORIGINS")),
		APIKeys:         splitList(os.Getenv("API_KEYS")),
		EngineURL:       os.Getenv("ENGINE_URL"),
		EngineTimeout:   engineTimeout,
		RedisURL:        os.Getenv("REDIS_URL"),
		StaticDir:       staticDir,
		LogLevel:        levelFromEnv("LOG_LEVEL"),
		TrustedProxies:  parsePrefixes(os.Getenv("TRUSTED_PROXIES")),
	}
}

// parsePrefixes reads a comma-separated list of CIDR blocks or bare
// addresses. Entries that fail to parse are dropped; forwarded headers are
// then simply never trusted from those sources.
func parsePrefixes(v string) []netip.Prefix {
	var out []netip.Prefix
	for _, s := range splitList(v) {
		if s == "" {
			continue
		}
		if p, err := netip.ParsePrefix(s); err == nil {
			out = append(out, p)
			continue
		}
		if a, err := netip.ParseAddr(s); err == nil {
			out = append(out, netip.PrefixFrom(a, a.BitLen()))
		}
	}
	return out
}

// MissingEngineEnv returns the required engine environment variables that
// are currently unset. Read live so operators can see the effect of fixes
// without restarting probes.
func MissingEngineEnv() []string {
	var missing []string
	for _, name := range requiredEngineEnv {
		if os.Getenv(name) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// intFromEnv reads a positive integer from the environment, falling back to
// def on absence, parse failure, or non-positive values.
func intFromEnv(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// splitList splits a comma-separated value into trimmed entries.
// Empty entries survive here; SecurityPolicy filters them.
func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func levelFromEnv(name string) slog.Level {
	switch strings.ToUpper(os.Getenv(name)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
