package upstream

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "analytics-gateway/pkg/domain-errors"
	"analytics-gateway/pkg/platform/circuit"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcess_ForwardsQueryAndReturnsResponse(t *testing.T) {
	var gotBody engineRequest
	var gotContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":"x","status":"success"}`)) //nolint:errcheck
	}))
	defer server.Close()

	client := NewEngineClient(server.URL, 5*time.Second, testLogger())

	raw, err := client.Process(context.Background(), "show me all customer relationships")
	require.NoError(t, err)

	assert.Equal(t, "show me all customer relationships", gotBody.Query)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"result":"x","status":"success"}`, string(raw))
}

func TestProcess_UpstreamErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewEngineClient(server.URL, 5*time.Second, testLogger())

	_, err := client.Process(context.Background(), "query")
	require.Error(t, err)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeUpstream))
	assert.Contains(t, err.Error(), "500")
}

func TestProcess_EngineUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := NewEngineClient(server.URL, time.Second, testLogger())

	_, err := client.Process(context.Background(), "query")
	require.Error(t, err)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeUpstream))
}

func TestProcess_MalformedEngineResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not json at all")) //nolint:errcheck
	}))
	defer server.Close()

	client := NewEngineClient(server.URL, 5*time.Second, testLogger())

	_, err := client.Process(context.Background(), "query")
	require.Error(t, err)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeUpstream))
}

func TestProcess_CircuitOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	breaker := circuit.New("engine", circuit.WithFailureThreshold(2))
	client := NewEngineClient(server.URL, 5*time.Second, testLogger(), WithBreaker(breaker))

	for range 2 {
		_, err := client.Process(context.Background(), "query")
		require.Error(t, err)
		assert.True(t, domainerrors.HasCode(err, domainerrors.CodeUpstream))
	}

	require.True(t, breaker.IsOpen())

	// Once open, requests fail fast without hitting the engine, and the
	// error keeps the same upstream-failure class as a live failure.
	_, err := client.Process(context.Background(), "query")
	require.Error(t, err)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeUpstream))
	assert.Equal(t, int64(2), hits.Load())
}

func TestProcess_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewEngineClient(server.URL, 5*time.Second, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Process(ctx, "query")
	require.Error(t, err)
	assert.True(t, domainerrors.HasCode(err, domainerrors.CodeUpstream))
}
