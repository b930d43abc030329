package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "analytics-gateway/pkg/domain-errors"
)

// ErrorResponse is the JSON envelope for every error the gateway returns.
// The 429 and 500 bodies are part of the public contract and must not change.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore encoding errors.
	// The response body may be incomplete, but headers are already sent.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError centralizes domain error translation to HTTP responses.
// Internal and upstream failures are sanitized: the caller sees a generic
// body while the full cause stays in server logs.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		WriteJSON(w, CodeToHTTPStatus(domainErr.Code), responseFor(domainErr))
		return
	}

	// Fallback for unexpected errors.
	WriteJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:  "Internal server error",
		Detail: "An unexpected error occurred",
	})
}

// CodeToHTTPStatus translates domain error codes to HTTP status codes.
func CodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation:
		return http.StatusUnprocessableEntity
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	case dErrors.CodeUpstream, dErrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// responseFor builds the error envelope for a domain error. Validation and
// auth failures carry their specific message so the client can correct the
// request; everything that maps to a 5xx is sanitized.
func responseFor(err *dErrors.Error) ErrorResponse {
	switch err.Code {
	case dErrors.CodeValidation:
		return ErrorResponse{Error: "Validation failed", Detail: err.Message}
	case dErrors.CodeUnauthorized:
		return ErrorResponse{Error: "Unauthorized", Detail: err.Message}
	case dErrors.CodeRateLimited:
		return ErrorResponse{Error: "Rate limit exceeded", Detail: "Too many requests"}
	case dErrors.CodeNotFound:
		return ErrorResponse{Error: "Not found", Detail: err.Message}
	case dErrors.CodeUnavailable:
		return ErrorResponse{Error: "Service unavailable", Detail: err.Message}
	default:
		return ErrorResponse{Error: "Internal server error", Detail: "An unexpected error occurred"}
	}
}
