package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleLiveness(t *testing.T) {
	h := New("development", nil)

	rec := httptest.NewRecorder()
	h.HandleLiveness(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
}

func TestHandleReadiness_AllHealthy(t *testing.T) {
	h := New("development", nil)
	h.RegisterCheck("redis", func() error { return nil })
	h.RegisterCheck("environment", func() error { return nil })

	rec := httptest.NewRecorder()
	h.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "up", resp.Checks["redis"])
	assert.Equal(t, "up", resp.Checks["environment"])
}

func TestHandleReadiness_UnhealthyDependency(t *testing.T) {
	h := New("development", nil)
	h.RegisterCheck("redis", func() error { return errors.New("connection refused") })
	h.RegisterCheck("environment", func() error { return nil })

	rec := httptest.NewRecorder()
	h.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "down: connection refused", resp.Checks["redis"])
	assert.Equal(t, "up", resp.Checks["environment"])
}

func TestHandleReadiness_NoChecks(t *testing.T) {
	h := New("development", nil)

	rec := httptest.NewRecorder()
	h.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleStatus_Healthy(t *testing.T) {
	h := New("production", func() []string { return nil })

	rec := httptest.NewRecorder()
	h.HandleStatus(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "production", resp.Environment)
	assert.NotEmpty(t, resp.Timestamp)
}

func TestHandleStatus_MissingEnvironment(t *testing.T) {
	h := New("production", func() []string {
		return []string{"OPENAI_API_KEY", "NEO4J_URI"}
	})

	rec := httptest.NewRecorder()
	h.HandleStatus(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Service unavailable", body["error"])
	assert.Contains(t, body["detail"], "OPENAI_API_KEY")
	assert.Contains(t, body["detail"], "NEO4J_URI")
}

func TestHandleStatus_NilMissingEnvFunc(t *testing.T) {
	h := New("development", nil)

	rec := httptest.NewRecorder()
	h.HandleStatus(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
