package ratelimit

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewPool_DisabledWhenRPSNotPositive(t *testing.T) {
	require.Nil(t, NewPool(0, 5))
	var p *Pool
	require.True(t, p.Allow("anyone"))
}

func TestMiddleware_RejectsAfterBurst(t *testing.T) {
	p := NewPool(0.001, 2)
	h := p.Middleware(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestMiddleware_KeysPerClient(t *testing.T) {
	p := NewPool(0.001, 1)
	h := p.Middleware(okHandler())

	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "addr=%s", addr)
	}
}

func TestMiddleware_NilPoolPassesThrough(t *testing.T) {
	var p *Pool
	rec := httptest.NewRecorder()
	p.Middleware(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:4321"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	require.Equal(t, "192.0.2.7", NewPool(1, 1).clientKey(req))
	require.Equal(t, "203.0.113.9", NewPool(1, 1, WithTrustedProxy(true)).clientKey(req))

	req.Header.Del("X-Forwarded-For")
	require.Equal(t, "192.0.2.7", NewPool(1, 1, WithTrustedProxy(true)).clientKey(req))
}

func TestMiddleware_IgnoresForwardedForByDefault(t *testing.T) {
	p := NewPool(0.001, 1)
	h := p.Middleware(okHandler())

	allowed := 0
	for i := 0; i < 100; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("1.2.3.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}
	require.Equal(t, 1, allowed)
	require.Equal(t, 1, p.Len())
}

func TestMiddleware_TrustedProxyKeysOnForwardedFor(t *testing.T) {
	p := NewPool(0.001, 1, WithTrustedProxy(true))
	h := p.Middleware(okHandler())

	for _, fwd := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		req.Header.Set("X-Forwarded-For", fwd)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "fwd=%s", fwd)
	}
	require.Equal(t, 2, p.Len())
}

func TestPool_EvictsIdleEntries(t *testing.T) {
	p := NewPool(1, 1, WithTTL(time.Minute))
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	p.Allow("old")
	now = now.Add(45 * time.Second)
	p.Allow("recent")
	now = now.Add(30 * time.Second)

	p.evictIdle()
	require.Equal(t, 1, p.Len())

	p.mu.Lock()
	_, ok := p.m["recent"]
	p.mu.Unlock()
	require.True(t, ok)
}
