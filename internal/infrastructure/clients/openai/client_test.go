package openai_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/clinconsult/internal/domain/providers"
	"github.com/carebridge/clinconsult/internal/infrastructure/clients/openai"
	"github.com/carebridge/clinconsult/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *openai.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := openai.NewClient(&config.LLMConfig{
		APIKey:       "test-key",
		Model:        "gpt-4o-mini",
		BaseURL:      server.URL,
		RateLimitRPM: -1,
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := openai.NewClient(&config.LLMConfig{})
	require.Error(t, err)
}

func TestComplete_ReturnsContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"model":"gpt-4o-mini","choices":[{"message":{"content":"hello there"}}],"usage":{"prompt_tokens":10,"completion_tokens":3}}`)
	})

	resp, err := client.Complete(context.Background(), providers.ChatRequest{
		Messages: []providers.ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Content)
	assert.Equal(t, 10, resp.InputTokens)
	assert.Equal(t, 3, resp.OutputTokens)
}

func TestComplete_UpstreamErrorIsModelUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Complete(context.Background(), providers.ChatRequest{
		Messages: []providers.ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, providers.ErrModelUnavailable)
}

func TestStream_ConcatenatedDeltasEqualMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, delta := range []string{"Good ", "morning, ", "how can I help?"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", delta)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	chunks, err := client.Stream(context.Background(), providers.ChatRequest{
		Messages: []providers.ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	var sb strings.Builder
	done := false
	for chunk := range chunks {
		require.NoError(t, chunk.Err)
		if chunk.Done {
			done = true
			continue
		}
		sb.WriteString(chunk.Delta)
	}

	assert.True(t, done)
	assert.Equal(t, "Good morning, how can I help?", sb.String())
}

func TestStream_SystemPromptPrepended(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, r.ContentLength)
		_, _ = r.Body.Read(body)
		assert.Contains(t, string(body), `"role":"system"`)
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	chunks, err := client.Stream(context.Background(), providers.ChatRequest{
		System:   "You are a clinician.",
		Messages: []providers.ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	for range chunks {
	}
}
