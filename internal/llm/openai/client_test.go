package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coverletter-backend/internal/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{APIKey: "test-key", Model: "gpt-test", BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)
	return c
}

func TestCompleteSendsRequestAndReturnsContent(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" {\"a\":1} "}}],"usage":{"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}}`))
	})

	out, err := c.Complete(context.Background(), llm.Prompt{System: "sys", User: "usr"}, llm.Params{Temperature: 0.7, MaxTokens: 200, JSON: true})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, out)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "usr", got.Messages[1].Content)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.7, *got.Temperature, 1e-9)
	assert.Equal(t, 200, got.MaxTokens)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestCompleteClassifiesFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{name: "server error is transient", status: 503, body: `{"error":{"message":"overloaded"}}`, check: llm.IsTransient},
		{name: "rate limit is quota", status: 429, body: `{"error":{"message":"slow down","type":"requests"}}`, check: llm.IsQuota},
		{name: "insufficient quota", status: 429, body: `{"error":{"message":"no credit","code":"insufficient_quota"}}`, check: llm.IsQuota},
		{name: "non json body", status: 200, body: `<html>`, check: llm.IsMalformed},
		{name: "missing choices", status: 200, body: `{"choices":[]}`, check: llm.IsMalformed},
		{name: "empty content", status: 200, body: `{"choices":[{"message":{"content":"  "}}]}`, check: llm.IsMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.Complete(context.Background(), llm.Prompt{User: "x"}, llm.Params{})
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error type: %v", err)
		})
	}
}

func TestCompleteBadRequestIsNotRetryable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad model"}}`))
	})
	_, err := c.Complete(context.Background(), llm.Prompt{User: "x"}, llm.Params{})
	require.Error(t, err)
	assert.Equal(t, "error", llm.Outcome(err))
}

func TestCompleteTimeoutIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	c, err := NewClient(Options{APIKey: "k", Model: "m", BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), llm.Prompt{User: "x"}, llm.Params{})
	require.Error(t, err)
	assert.True(t, llm.IsTransient(err))
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(Options{Model: "m"})
	require.Error(t, err)
	_, err = NewClient(Options{APIKey: "k"})
	require.Error(t, err)
}

func TestEmbedOrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()
	e, err := NewEmbedder(Options{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}
