package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type MiddlewareSuite struct {
	suite.Suite
	logger *slog.Logger
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func (s *MiddlewareSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubStore struct {
	result *Result
	err    error
}

func (st *stubStore) Allow(context.Context, string) (*Result, error) {
	return st.result, st.err
}

type countingObserver struct {
	rejections int
}

func (c *countingObserver) IncrementRateLimitRejections() {
	c.rejections++
}

func (s *MiddlewareSuite) serve(store Store, opts ...MiddlewareOption) (*httptest.ResponseRecorder, bool) {
	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		w.WriteHeader(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/query", nil)
	NewMiddleware(store, s.logger, opts...).Handler(next).ServeHTTP(rr, req)
	return rr, nextCalled
}

func (s *MiddlewareSuite) TestAllowedRequestPassesThrough() {
	store := &stubStore{result: &Result{
		Allowed:   true,
		Limit:     100,
		Remaining: 99,
		ResetAt:   time.Now().Add(time.Hour),
	}}

	rr, nextCalled := s.serve(store)

	s.True(nextCalled)
	s.Equal(http.StatusOK, rr.Code)
	s.Equal("100", rr.Header().Get("X-RateLimit-Limit"))
	s.Equal("99", rr.Header().Get("X-RateLimit-Remaining"))
	s.NotEmpty(rr.Header().Get("X-RateLimit-Reset"))
}

func (s *MiddlewareSuite) TestRejectionShortCircuits() {
	observer := &countingObserver{}
	store := &stubStore{result: &Result{
		Allowed:    false,
		Limit:      100,
		Remaining:  0,
		ResetAt:    time.Now().Add(30 * time.Second),
		RetryAfter: 30,
	}}

	rr, nextCalled := s.serve(store, WithRejectionObserver(observer))

	s.False(nextCalled, "downstream must never run after a rejection")
	s.Equal(http.StatusTooManyRequests, rr.Code)
	s.JSONEq(`{"error":"Rate limit exceeded","detail":"Too many requests"}`, rr.Body.String())
	s.Equal("30", rr.Header().Get("Retry-After"))
	s.Equal(1, observer.rejections)
}

func (s *MiddlewareSuite) TestStoreErrorFailsOpen() {
	store := &stubStore{err: errors.New("redis unreachable")}

	rr, nextCalled := s.serve(store)

	s.True(nextCalled, "store failure admits the request")
	s.Equal(http.StatusOK, rr.Code)
}

func (s *MiddlewareSuite) TestEndToEndWithMemoryStore() {
	store := NewMemoryStore(2, time.Minute)
	mw := NewMiddleware(store, s.logger)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := mw.Handler(next)

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/query", nil)
		handler.ServeHTTP(rr, req)
		s.Equal(http.StatusOK, rr.Code)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/query", nil)
	handler.ServeHTTP(rr, req)
	s.Equal(http.StatusTooManyRequests, rr.Code)
}
