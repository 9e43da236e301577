package openai

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
	defaultBaseURL = "https://api.openai.com/v1"
	vendorName     = "openai"
)

// Client implements the ChatModel provider against the OpenAI chat
// completions API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *llm.TokenBucket
}

// NewClient creates a new OpenAI client.
func NewClient(cfg *config.LLMConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
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

type chatCompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []providers.ChatMessage `json:"messages"`
	MaxTokens   int                     `json:"max_completion_tokens,omitempty"`
	Temperature float64                 `json:"temperature,omitempty"`
	Stream      bool                    `json:"stream,omitempty"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (c *Client) buildRequest(req providers.ChatRequest, stream bool) chatCompletionRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]providers.ChatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, providers.ChatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, req.Messages...)

	return chatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
}

func (c *Client) do(ctx context.Context, payload chatCompletionRequest) (*http.Response, error) {
	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		llm.RecordRequest(ctx, vendorName, payload.Model, 0, 0, err)
		return nil, err
	}
	llm.RecordRateLimitWait(ctx, vendorName, payload.Model, time.Since(waitStart))

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
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
		return nil, fmt.Errorf("%w: openai request failed with status %d", providers.ErrModelUnavailable, resp.StatusCode)
	}

	var envelope chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		llm.RecordRequest(ctx, vendorName, payload.Model, resp.StatusCode, time.Since(start), err)
		return nil, err
	}
	if len(envelope.Choices) == 0 || envelope.Choices[0].Message.Content == "" {
		err := errors.New("openai response missing message content")
		llm.RecordRequest(ctx, vendorName, payload.Model, resp.StatusCode, time.Since(start), err)
		return nil, err
	}

	llm.RecordRequest(ctx, vendorName, payload.Model, resp.StatusCode, time.Since(start), nil)
	return &providers.ChatResponse{
		Content:      envelope.Choices[0].Message.Content,
		Model:        envelope.Model,
		InputTokens:  envelope.Usage.PromptTokens,
		OutputTokens: envelope.Usage.CompletionTokens,
	}, nil
}

// Stream runs a streaming completion, relaying content deltas as chunks.
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
		return nil, fmt.Errorf("%w: openai request failed with status %d", providers.ErrModelUnavailable, resp.StatusCode)
	}

	chunks := make(chan providers.ChatChunk, 16)
	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		var relayed int64
		err := llm.ReadSSE(ctx, resp.Body, func(event llm.SSEEvent) error {
			if event.Data == "[DONE]" {
				return nil
			}
			var decoded chatCompletionChunk
			if err := json.Unmarshal([]byte(event.Data), &decoded); err != nil {
				return nil
			}
			if len(decoded.Choices) == 0 {
				return nil
			}
			if delta := decoded.Choices[0].Delta.Content; delta != "" {
				relayed++
				select {
				case chunks <- providers.ChatChunk{Delta: delta}:
				case <-ctx.Done():
					return ctx.Err()
				}
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
