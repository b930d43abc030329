// Package upstream contains the client for the agent-orchestration engine
// that executes analytics queries against the graph store.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"analytics-gateway/internal/platform/privacy"
	domainerrors "analytics-gateway/pkg/domain-errors"
	"analytics-gateway/pkg/platform/circuit"
)

// maxResponseBytes caps how much of an engine response we buffer. Engine
// answers are JSON documents, not bulk exports.
const maxResponseBytes = 10 << 20

// probeInterval is how often a request is let through while the circuit is
// open, so recovery can be observed.
const probeInterval = 10 * time.Second

// Processor executes a validated natural-language query and returns the
// engine's JSON answer verbatim.
type Processor interface {
	Process(ctx context.Context, query string) (json.RawMessage, error)
}

// engineRequest is the payload forwarded to the orchestration engine.
type engineRequest struct {
	Query string `json:"query"`
}

// EngineClient calls the agent-orchestration engine over HTTP.
type EngineClient struct {
	url     string
	client  *http.Client
	logger  *slog.Logger
	tracer  trace.Tracer
	breaker *circuit.Breaker

	mu        sync.Mutex
	lastProbe time.Time
}

// Option configures an EngineClient.
type Option func(*EngineClient)

// WithHTTPClient overrides the underlying HTTP client. Useful for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(e *EngineClient) {
		e.client = c
	}
}

// WithBreaker overrides the default circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(e *EngineClient) {
		e.breaker = b
	}
}

// NewEngineClient creates a client for the engine at url. Queries can run
// multi-step agent plans, so timeout should be generous (minutes, not
// seconds).
func NewEngineClient(url string, timeout time.Duration, logger *slog.Logger, opts ...Option) *EngineClient {
	e := &EngineClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
		tracer: otel.Tracer("analytics-gateway/upstream"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.breaker == nil {
		e.breaker = circuit.New("engine")
	}
	return e
}

// Process forwards the query to the engine and returns its JSON response.
// Transport failures, non-2xx statuses, and malformed engine output all
// surface as upstream domain errors; callers decide how much to reveal.
func (e *EngineClient) Process(ctx context.Context, query string) (json.RawMessage, error) {
	ctx, span := e.tracer.Start(ctx, "engine.process", trace.WithAttributes(
		attribute.String("engine.url", e.url),
		attribute.String("query.hash", privacy.Hash(query)),
		attribute.Int("query.length", len(query)),
	))
	defer span.End()

	// An open circuit fails fast with the same error class a live engine
	// failure would produce, so callers see one upstream-failure contract.
	if e.breaker.IsOpen() && !e.allowProbe() {
		err := domainerrors.New(domainerrors.CodeUpstream, "query engine temporarily unavailable")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	body, err := json.Marshal(engineRequest{Query: query})
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "encode engine request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "build engine request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		e.recordFailure(span, err)
		return nil, domainerrors.Wrap(err, domainerrors.CodeUpstream, "query engine unreachable")
	}
	defer resp.Body.Close() //nolint:errcheck // read-side close

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		e.recordFailure(span, err)
		return nil, domainerrors.Wrap(err, domainerrors.CodeUpstream, "read engine response")
	}

	span.SetAttributes(
		attribute.Int("engine.status", resp.StatusCode),
		attribute.Int64("engine.duration_ms", time.Since(start).Milliseconds()),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := domainerrors.New(domainerrors.CodeUpstream,
			fmt.Sprintf("query engine returned status %d", resp.StatusCode))
		e.recordFailure(span, err)
		e.logger.Error("engine_request_failed",
			"status", resp.StatusCode,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	if !json.Valid(raw) {
		err := domainerrors.New(domainerrors.CodeUpstream, "query engine returned malformed response")
		e.recordFailure(span, err)
		return nil, err
	}

	if change := e.breaker.RecordSuccess(); change.Closed {
		e.logger.Info("engine_circuit_closed")
	}

	return json.RawMessage(raw), nil
}

// allowProbe admits at most one request per probeInterval while the circuit
// is open, so consecutive probe successes can close it again.
func (e *EngineClient) allowProbe() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if time.Since(e.lastProbe) < probeInterval {
		return false
	}
	e.lastProbe = time.Now()
	return true
}

func (e *EngineClient) recordFailure(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if change := e.breaker.RecordFailure(); change.Opened {
		e.mu.Lock()
		e.lastProbe = time.Now()
		e.mu.Unlock()
		e.logger.Warn("engine_circuit_opened")
	}
}
