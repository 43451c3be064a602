package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-relay/handler"
	"chat-relay/internal/ratelimit"
	"chat-relay/internal/usecase"
)

type echoUseCase struct{}

func (echoUseCase) Reply(_ context.Context, in usecase.ChatInput) (usecase.ChatOutput, error) {
	return usecase.ChatOutput{Response: "echo: " + in.Message}, nil
}

func TestRouter(t *testing.T) {
	h, err := handler.NewHandler(echoUseCase{})
	require.NoError(t, err)
	r := newRouter(h, ratelimit.NewPool(0.001, 1))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"hi"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"response":"echo: hi"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message":"again"}`)))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_MethodPolicyFromHandler(t *testing.T) {
	h, err := handler.NewHandler(echoUseCase{})
	require.NoError(t, err)
	r := newRouter(h, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.JSONEq(t, `{"error":"Method not allowed"}`, rec.Body.String())
	require.Equal(t, "POST, OPTIONS", rec.Header().Get("Allow"))
	require.NotEmpty(t, rec.Header().Get("X-Correlation-Id"))
	require.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/chat", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
}
