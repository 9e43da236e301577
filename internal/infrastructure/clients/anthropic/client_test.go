package anthropic_test

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
	"github.com/carebridge/clinconsult/internal/infrastructure/clients/anthropic"
	"github.com/carebridge/clinconsult/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *anthropic.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := anthropic.NewClient(&config.LLMConfig{
		APIKey:       "test-key",
		Model:        "claude-sonnet-4-20250514",
		BaseURL:      server.URL,
		RateLimitRPM: -1,
	})
	require.NoError(t, err)
	return client
}

func TestComplete_ReturnsFirstTextBlock(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))
		fmt.Fprint(w, `{"model":"claude-sonnet-4-20250514","content":[{"type":"text","text":"assessment complete"}],"usage":{"input_tokens":12,"output_tokens":4}}`)
	})

	resp, err := client.Complete(context.Background(), providers.ChatRequest{
		Messages: []providers.ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "assessment complete", resp.Content)
	assert.Equal(t, 12, resp.InputTokens)
}

func TestStream_RelaysTextDeltas(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message_start\ndata: {\"type\":\"message_start\"}\n\n")
		for _, delta := range []string{"Take ", "care."} {
			fmt.Fprintf(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":%q}}\n\n", delta)
		}
		fmt.Fprint(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	})

	chunks, err := client.Stream(context.Background(), providers.ChatRequest{
		Messages: []providers.ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	var sb strings.Builder
	for chunk := range chunks {
		require.NoError(t, chunk.Err)
		sb.WriteString(chunk.Delta)
	}
	assert.Equal(t, "Take care.", sb.String())
}

func TestStream_UpstreamErrorSurfacesOnChannel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: error\ndata: {\"type\":\"error\",\"error\":{\"message\":\"overloaded\"}}\n\n")
	})

	chunks, err := client.Stream(context.Background(), providers.ChatRequest{
		Messages: []providers.ChatMessage{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	var streamErr error
	for chunk := range chunks {
		if chunk.Err != nil {
			streamErr = chunk.Err
		}
	}
	require.Error(t, streamErr)
	assert.Contains(t, streamErr.Error(), "overloaded")
}
