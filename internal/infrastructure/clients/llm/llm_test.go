package llm_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/clinconsult/internal/infrastructure/clients/llm"
)

func TestTokenBucket_NilMeansUnlimited(t *testing.T) {
	var b *llm.TokenBucket
	require.NoError(t, b.Wait(context.Background()))
}

func TestTokenBucket_BurstThenBlock(t *testing.T) {
	b := llm.NewTokenBucket(60, 2)

	require.NoError(t, b.Wait(context.Background()))
	require.NoError(t, b.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := b.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, llm.StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, llm.StripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, llm.StripFences(`{"a":1}`))
}

func TestReadSSE_DecodesEvents(t *testing.T) {
	raw := strings.Join([]string{
		"event: token",
		"data: hello",
		"",
		"data: [DONE]",
		"",
	}, "\n")

	var events []llm.SSEEvent
	err := llm.ReadSSE(context.Background(), strings.NewReader(raw), func(e llm.SSEEvent) error {
		events = append(events, e)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, "token", events[0].Event)
	assert.Equal(t, "hello", events[0].Data)
	assert.Equal(t, "[DONE]", events[1].Data)
}

func TestReadSSE_MultilineData(t *testing.T) {
	raw := "data: line1\ndata: line2\n\n"

	var got string
	err := llm.ReadSSE(context.Background(), strings.NewReader(raw), func(e llm.SSEEvent) error {
		got = e.Data
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2", got)
}
