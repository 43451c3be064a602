package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/api/chat", WithHTTPClient(&http.Client{Timeout: 2 * time.Second}))
	require.NoError(t, err)
	return c
}

func TestNew_EmptyEndpoint(t *testing.T) {
	_, err := New("  ")
	require.Error(t, err)
}

func TestSend_HappyPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/chat", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in sendRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		require.Equal(t, "hello", in.Message)
		_, _ = w.Write([]byte(`{"response":"hi there"}`))
	})

	reply, err := c.Send(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, Reply{Text: "hi there", StatusCode: http.StatusOK}, reply)
}

func TestSend_Fallbacks(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   Reply
	}{
		{name: "not json", status: http.StatusBadGateway, body: "<html>bad gateway</html>", want: Reply{Text: PlaceholderInvalid, StatusCode: http.StatusBadGateway}},
		{name: "empty body", status: http.StatusOK, body: "", want: Reply{Text: PlaceholderInvalid, StatusCode: http.StatusOK}},
		{name: "missing response", status: http.StatusOK, body: `{}`, want: Reply{Text: PlaceholderEmpty, StatusCode: http.StatusOK}},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `{"error":"Failed to generate response from OpenAI"}`,
			want:   Reply{Text: PlaceholderEmpty, StatusCode: http.StatusInternalServerError, ServerError: "Failed to generate response from OpenAI"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			reply, err := c.Send(context.Background(), "hello")
			require.NoError(t, err)
			require.Equal(t, tc.want, reply)
		})
	}
}

func TestSend_TransportError(t *testing.T) {
	c, err := New("http://127.0.0.1:1/api/chat", WithHTTPClient(&http.Client{Timeout: 100 * time.Millisecond}))
	require.NoError(t, err)
	_, err = c.Send(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "request failed")
}
