// Package httptransport is the thin HTTP layer. It delegates to the gating
// pipeline and the upstream processor without embedding business logic so
// transport concerns remain isolated.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"analytics-gateway/internal/gate/validate"
	"analytics-gateway/internal/platform/health"
	"analytics-gateway/internal/platform/metrics"
	"analytics-gateway/internal/platform/middleware"
	"analytics-gateway/internal/upstream"
	"analytics-gateway/pkg/platform/httputil"
	"analytics-gateway/pkg/validation"
)

// Handler holds the dependencies for the query endpoints.
type Handler struct {
	processor   upstream.Processor
	validator   validate.Validator
	logger      *slog.Logger
	metrics     *metrics.Metrics
	environment string
}

func NewHandler(processor upstream.Processor, validator validate.Validator, logger *slog.Logger, m *metrics.Metrics, environment string) *Handler {
	return &Handler{
		processor:   processor,
		validator:   validator,
		logger:      logger,
		metrics:     m,
		environment: environment,
	}
}

// handleQuery accepts a natural-language analytics question, runs it through
// the input validator, and forwards it to the orchestration engine. The
// engine's JSON answer is returned verbatim on success.
func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[QueryRequest](w, r, h.logger, requestID)
	if !ok {
		h.metrics.IncrementValidationFailures("decode")
		return
	}

	if err := validation.Validate(req); err != nil {
		h.metrics.IncrementValidationFailures("schema")
		httputil.WriteError(w, err)
		return
	}

	outcome := h.validator.Validate(req.Query)
	if !outcome.Valid() {
		h.metrics.IncrementValidationFailures(string(outcome.Reason))
		h.logger.WarnContext(ctx, "query_rejected",
			"reason", string(outcome.Reason),
			"request_id", requestID,
		)
		httputil.WriteError(w, outcome.Err())
		return
	}

	start := time.Now()
	result, err := h.processor.Process(ctx, outcome.Query)
	h.metrics.ObserveUpstreamLatency(time.Since(start).Seconds())

	if err != nil {
		h.metrics.IncrementQueriesProcessed("error")
		// Full cause stays server-side; the client sees a sanitized envelope.
		h.logger.ErrorContext(ctx, "query_processing_failed",
			"error", err,
			"request_id", requestID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		httputil.WriteError(w, err)
		return
	}

	h.metrics.IncrementQueriesProcessed("success")
	h.logger.InfoContext(ctx, "query_processed",
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// handleRoot describes the service when no static frontend is deployed.
func (h *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, InfoResponse{
		Service:     "analytics-gateway",
		Status:      "operational",
		Version:     health.Version,
		Environment: h.environment,
		Endpoints: map[string]string{
			"query":   "POST /query",
			"health":  "GET /health",
			"metrics": "GET /metrics",
		},
	})
}
