package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

const maxBodyBytes = 1 << 20

// ServeHTTP adapts a net/http request to the API Gateway shape so the local
// server and Lambda share one code path.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		slog.Warn("failed to read request body", "err", err)
		body = nil
	}

	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}

	resp, _ := h.Handle(r.Context(), events.APIGatewayProxyRequest{
		HTTPMethod: r.Method,
		Path:       r.URL.Path,
		Headers:    headers,
		Body:       string(body),
	})

	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		_, _ = io.WriteString(w, resp.Body)
	}
}
