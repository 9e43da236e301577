package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/carebridge/clinconsult/internal/domain/providers"
	"github.com/carebridge/clinconsult/internal/infrastructure/clients/llm"
	"github.com/carebridge/clinconsult/pkg/config"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
	vendorName     = "anthropic"
)

// Client implements the ChatModel provider against the Anthropic Messages API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *llm.TokenBucket
}

// NewClient creates a new Anthropic client.
func NewClient(cfg *config.LLMConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("anthropic api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		limiter: llm.NewTokenBucket(cfg.RateLimitRPM, cfg.RateLimitBurst),
	}, nil
}

// Name returns the vendor identifier.
func (c *Client) Name() string { return vendorName }

// Models lists the model names this client serves.
func (c *Client) Models() []string { return []string{c.model} }

type messagesRequest struct {
	Model       string                  `json:"model"`
	MaxTokens   int                     `json:"max_tokens"`
	System      string                  `json:"system,omitempty"`
	Messages    []providers.ChatMessage `json:"messages"`
	Temperature float64                 `json:"temperature,omitempty"`
	Stream      bool                    `json:"stream,omitempty"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model string `json:"model"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) buildRequest(req providers.ChatRequest, stream bool) messagesRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return messagesRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		Stream:      stream,
	}
}

func (c *Client) do(ctx context.Context, payload messagesRequest) (*http.Response, error) {
	if err := c.waitLimiter(ctx, payload.Model); err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}

func (c *Client) waitLimiter(ctx context.Context, model string) error {
	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		llm.RecordRequest(ctx, vendorName, model, 0, 0, err)
		return err
	}
	llm.RecordRateLimitWait(ctx, vendorName, model, time.Since(waitStart))
	return nil
}

// Complete runs a blocking completion.
func (c *Client) Complete(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	payload := c.buildRequest(req, false)

	start := time.Now()
	resp, err := c.do(ctx, payload)
	if err != nil {
		llm.RecordRequest(ctx, vendorName, payload.Model, 0, time.Since(start), err)
		return nil, fmt.Errorf("%w: %v", providers.ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		llm.RecordRequest(ctx, vendorName, payload.Model, resp.StatusCode, time.Since(start), fmt.Errorf("status %d", resp.StatusCode))
		return nil, fmt.Errorf("%w: anthropic request failed with status %d", providers.ErrModelUnavailable, resp.StatusCode)
	}

	var envelope messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		llm.RecordRequest(ctx, vendorName, payload.Model, resp.StatusCode, time.Since(start), err)
		return nil, err
	}

	var text string
	for _, block := range envelope.Content {
		if block.Type == "text" && block.Text != "" {
			text = block.Text
			break
		}
	}
	if text == "" {
		err := errors.New("anthropic response missing text content")
		llm.RecordRequest(ctx, vendorName, payload.Model, resp.StatusCode, time.Since(start), err)
		return nil, err
	}

	llm.RecordRequest(ctx, vendorName, payload.Model, resp.StatusCode, time.Since(start), nil)
	return &providers.ChatResponse{
		Content:      text,
		Model:        envelope.Model,
		InputTokens:  envelope.Usage.InputTokens,
		OutputTokens: envelope.Usage.OutputTokens,
	}, nil
}

// Stream runs a streaming completion, relaying text deltas as chunks.
func (c *Client) Stream(ctx context.Context, req providers.ChatRequest) (<-chan providers.ChatChunk, error) {
	payload := c.buildRequest(req, true)

	start := time.Now()
	resp, err := c.do(ctx, payload)
	if err != nil {
		llm.RecordRequest(ctx, vendorName, payload.Model, 0, time.Since(start), err)
		return nil, fmt.Errorf("%w: %v", providers.ErrModelUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		llm.RecordRequest(ctx, vendorName, payload.Model, resp.StatusCode, time.Since(start), fmt.Errorf("status %d", resp.StatusCode))
		return nil, fmt.Errorf("%w: anthropic request failed with status %d", providers.ErrModelUnavailable, resp.StatusCode)
	}

	chunks := make(chan providers.ChatChunk, 16)
	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		var relayed int64
		err := llm.ReadSSE(ctx, resp.Body, func(event llm.SSEEvent) error {
			var decoded streamEvent
			if err := json.Unmarshal([]byte(event.Data), &decoded); err != nil {
				return nil // skip undecodable keepalive frames
			}
			switch decoded.Type {
			case "content_block_delta":
				if decoded.Delta.Text != "" {
					relayed++
					select {
					case chunks <- providers.ChatChunk{Delta: decoded.Delta.Text}:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
			case "error":
				return fmt.Errorf("anthropic stream error: %s", decoded.Error.Message)
			}
			return nil
		})

		llm.RecordStreamChunks(ctx, vendorName, payload.Model, relayed)
		llm.RecordRequest(ctx, vendorName, payload.Model, resp.StatusCode, time.Since(start), err)
		if err != nil {
			chunks <- providers.ChatChunk{Err: err}
			return
		}
		chunks <- providers.ChatChunk{Done: true}
	}()

	return chunks, nil
}
