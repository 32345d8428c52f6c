package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completion(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   GroqDefaultModel,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	})
	return string(body)
}

func newTestServer(t *testing.T, status int, body string, seen *chatRequest, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIOptions{Model: GroqDefaultModel})
	assert.Error(t, err)
}

func TestOpenAIClientGenerate(t *testing.T) {
	var seen chatRequest
	var calls atomic.Int32
	srv := newTestServer(t, http.StatusOK, completion("Answer: 42"), &seen, &calls)

	c, err := NewOpenAIClient(OpenAIOptions{
		APIKey:  "test-key",
		Model:   GroqDefaultModel,
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, GroqDefaultModel, c.Model())

	got, err := c.Generate(context.Background(), "What is the answer?")
	require.NoError(t, err)
	assert.Equal(t, "Answer: 42", got)

	assert.Equal(t, GroqDefaultModel, seen.Model)
	require.Len(t, seen.Messages, 1)
	assert.Equal(t, "user", seen.Messages[0].Role)
	assert.Equal(t, "What is the answer?", seen.Messages[0].Content)
}

func TestOpenAIClientEmptyContentIsValid(t *testing.T) {
	var calls atomic.Int32
	srv := newTestServer(t, http.StatusOK, completion(""), nil, &calls)

	c, err := NewOpenAIClient(OpenAIOptions{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	got, err := c.Generate(context.Background(), "irrelevant chunk")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestOpenAIClientNoChoices(t *testing.T) {
	var calls atomic.Int32
	body := `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`
	srv := newTestServer(t, http.StatusOK, body, nil, &calls)

	c, err := NewOpenAIClient(OpenAIOptions{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestOpenAIClientDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	body := `{"error":{"message":"rate limit reached","type":"rate_limit_exceeded"}}`
	srv := newTestServer(t, http.StatusTooManyRequests, body, nil, &calls)

	c, err := NewOpenAIClient(OpenAIOptions{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Generate(context.Background(), "prompt")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "baseline makes exactly one attempt")
}

func TestNilOpenAIClient(t *testing.T) {
	var c *OpenAIClient
	_, err := c.Generate(context.Background(), "prompt")
	assert.Error(t, err)
}
