// Package client talks to the relay's chat endpoint the way the browser page
// does.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// PlaceholderInvalid replaces a body that is not JSON.
	PlaceholderInvalid = "Failed to get a valid response"
	// PlaceholderEmpty replaces a JSON body without a response field.
	PlaceholderEmpty = "No response"
)

type sendRequest struct {
	Message string `json:"message"`
}

type sendResponse struct {
	Response string `json:"response"`
	Error    string `json:"error"`
}

// Reply is what the page shows for one request.
type Reply struct {
	Text       string
	StatusCode int
	// ServerError is the endpoint's error field, if any.
	ServerError string
}

type Client struct {
	endpoint   string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func New(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("client: endpoint must not be empty")
	}
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Send posts message and turns whatever comes back into display text. Only
// transport failures are returned as errors; a malformed body degrades to a
// placeholder.
func (c *Client) Send(ctx context.Context, message string) (Reply, error) {
	body, err := json.Marshal(sendRequest{Message: message})
	if err != nil {
		return Reply{}, fmt.Errorf("client: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("client: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("client: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Reply{}, fmt.Errorf("client: read response body: %w", err)
	}
	slog.Debug("raw response", "status", res.StatusCode, "body", string(raw))

	return decodeReply(res.StatusCode, raw), nil
}

func decodeReply(status int, raw []byte) Reply {
	var payload sendResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		slog.Warn("failed to parse response JSON", "status", status, "err", err)
		return Reply{Text: PlaceholderInvalid, StatusCode: status}
	}
	text := payload.Response
	if text == "" {
		text = PlaceholderEmpty
	}
	return Reply{Text: text, StatusCode: status, ServerError: payload.Error}
}
