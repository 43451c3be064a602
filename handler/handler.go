package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"chat-relay/internal/metrics"
	"chat-relay/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"

	msgInvalidBody      = "Invalid request body"
	msgMissingMessage   = "Message is required"
	msgMessageTooLong   = "Message is too long"
	msgMethodNotAllowed = "Method not allowed"
	msgUpstreamFailure  = "Failed to generate response from OpenAI"
)

type ChatUseCase interface {
	Reply(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the chat endpoint, either as an API Gateway proxy
// integration or, through ServeHTTP, as a plain net/http handler.
type Handler struct {
	uc      ChatUseCase
	metrics *metrics.Collector
	now     func() time.Time
}

type Option func(*Handler)

func WithMetrics(m *metrics.Collector) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

func NewHandler(uc ChatUseCase, opts ...Option) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	h := &Handler{uc: uc, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := h.now()
	corrID := correlationID(req.Headers)
	resp := h.handle(ctx, req, corrID)
	resp.Headers = responseHeaders(corrID)
	if resp.StatusCode == http.StatusMethodNotAllowed {
		resp.Headers["Allow"] = "POST, OPTIONS"
	}
	h.metrics.ObserveRequest(resp.StatusCode, h.now().Sub(start))
	return resp, nil
}

func (h *Handler) handle(ctx context.Context, req events.APIGatewayProxyRequest, corrID string) events.APIGatewayProxyResponse {
	switch req.HTTPMethod {
	case http.MethodPost:
	case http.MethodOptions:
		return events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}
	default:
		return jsonResponse(http.StatusMethodNotAllowed, errorResponse{Error: msgMethodNotAllowed})
	}

	body := req.Body
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			slog.Warn("chat request body is not valid base64", "correlation_id", corrID, "err", err)
			return jsonResponse(http.StatusBadRequest, errorResponse{Error: msgInvalidBody})
		}
		body = string(decoded)
	}

	var in chatRequest
	if err := json.Unmarshal([]byte(body), &in); err != nil {
		slog.Warn("chat request body is not valid JSON", "correlation_id", corrID, "err", err)
		return jsonResponse(http.StatusBadRequest, errorResponse{Error: msgInvalidBody})
	}

	out, err := h.uc.Reply(ctx, usecase.ChatInput{Message: in.Message})
	if err != nil {
		return h.failure(err, corrID)
	}
	return jsonResponse(http.StatusOK, chatResponse{Response: out.Response})
}

// failure maps use case errors to a status and a fixed message. Upstream
// failure detail is logged, never returned.
func (h *Handler) failure(err error, corrID string) events.APIGatewayProxyResponse {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		slog.Error("chat request failed", "correlation_id", corrID, "code", usecase.ErrorInternal, "err", err)
		return jsonResponse(http.StatusInternalServerError, errorResponse{Error: msgUpstreamFailure})
	}

	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		slog.Warn("chat request rejected", "correlation_id", corrID, "reason", ucErr.Reason)
		msg := msgMissingMessage
		if ucErr.Reason == "message_too_long" {
			msg = msgMessageTooLong
		}
		return jsonResponse(http.StatusBadRequest, errorResponse{Error: msg})
	case usecase.ErrorUpstream:
		h.metrics.ObserveUpstreamFailure(ucErr.Reason)
	}
	slog.Error("Error processing OpenAI API request", "correlation_id", corrID, "code", ucErr.Code, "reason", ucErr.Reason, "err", ucErr.Err)
	return jsonResponse(http.StatusInternalServerError, errorResponse{Error: msgUpstreamFailure})
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal response", "err", err)
		return events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: `{"error":"` + msgUpstreamFailure + `"}`}
	}
	return events.APIGatewayProxyResponse{StatusCode: status, Body: string(b)}
}

func responseHeaders(corrID string) map[string]string {
	return map[string]string{
		"Content-Type":                 "application/json",
		correlationHeader:              corrID,
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type, X-Correlation-Id",
		"Access-Control-Allow-Methods": "POST, OPTIONS",
	}
}

func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, correlationHeader) && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return newUUID()
}

var newUUID = func() string {
	return uuid.NewString()
}
