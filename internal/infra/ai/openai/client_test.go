package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	gopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"

	domai "github.com/bryanwahyu/plateguard/internal/domain/ai"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := gopenai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return &Client{Client: gopenai.NewClientWithConfig(cfg), Model: "gpt-4o-mini"}
}

func TestAnalyzeReturnsContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion",
			"choices":[{"index":0,"finish_reason":"stop",
			"message":{"role":"assistant","content":"{\"advice\":\"ok\"}"}}]}`))
	})

	out, err := c.Analyze(context.Background(), "https://store/r.json", "{}")
	require.NoError(t, err)
	require.Equal(t, `{"advice":"ok"}`, out)
}

func TestAnalyzeEmptyChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cmpl-1","object":"chat.completion","choices":[]}`))
	})

	_, err := c.Analyze(context.Background(), "https://store/r.json", "{}")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no completion choices")
}

func TestAnalyzeQuotaExceeded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit exceeded","type":"requests"}}`))
	})

	_, err := c.Analyze(context.Background(), "https://store/r.json", "{}")
	require.ErrorIs(t, err, domai.ErrQuotaExceeded)
}
