// Package llm holds the pieces shared by the upstream model clients:
// per-vendor rate limiting, request metrics, and SSE stream decoding.
package llm

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"
)

// TokenBucket is a simple refill-on-tick rate limiter. A nil bucket means
// unlimited.
type TokenBucket struct {
	tokens chan struct{}
}

// NewTokenBucket creates a limiter allowing rpm requests per minute with the
// given burst. Non-positive rpm disables limiting.
func NewTokenBucket(rpm int, burst int) *TokenBucket {
	if rpm <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}

	bucket := &TokenBucket{
		tokens: make(chan struct{}, burst),
	}
	for i := 0; i < burst; i++ {
		bucket.tokens <- struct{}{}
	}

	interval := time.Minute / time.Duration(rpm)
	if interval <= 0 {
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			select {
			case bucket.tokens <- struct{}{}:
			default:
			}
		}
	}()

	return bucket
}

// Wait blocks until a token is available or the context is done.
func (b *TokenBucket) Wait(ctx context.Context) error {
	if b == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.tokens:
		return nil
	}
}

// StripFences removes a surrounding Markdown code fence from model output
// that was asked for JSON but wrapped it anyway.
func StripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	return strings.TrimSpace(cleaned)
}

// SSEEvent is one decoded server-sent event from an upstream stream.
type SSEEvent struct {
	Event string
	Data  string
}

// ReadSSE decodes server-sent events from r and calls fn for each one.
// It stops on EOF, on a handler error, or when the context is done.
func ReadSSE(ctx context.Context, r io.Reader, fn func(SSEEvent) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var event SSEEvent
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Text()
		if line == "" {
			if event.Data != "" {
				if err := fn(event); err != nil {
					return err
				}
			}
			event = SSEEvent{}
			continue
		}
		if strings.HasPrefix(line, "event:") {
			event.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}
		if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if event.Data != "" {
				event.Data += "\n"
			}
			event.Data += data
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if event.Data != "" {
		return fn(event)
	}
	return nil
}
