package gemini

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
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	vendorName     = "gemini"
)

// Client implements the ChatModel provider against the Gemini generateContent API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *llm.TokenBucket
}

// NewClient creates a new Gemini client.
func NewClient(cfg *config.LLMConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
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

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

func (c *Client) buildRequest(req providers.ChatRequest) (string, generateRequest) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	payload := generateRequest{}
	if req.System != "" {
		payload.SystemInstruction = &content{Parts: []part{{Text: req.System}}}
	}
	for _, m := range req.Messages {
		role := m.Role
		// Gemini uses "model" for assistant turns.
		if role == "assistant" {
			role = "model"
		}
		payload.Contents = append(payload.Contents, content{Role: role, Parts: []part{{Text: m.Content}}})
	}
	if req.MaxTokens > 0 || req.Temperature > 0 {
		payload.GenerationConfig = &generationConfig{
			MaxOutputTokens: req.MaxTokens,
			Temperature:     req.Temperature,
		}
	}
	return model, payload
}

func (c *Client) do(ctx context.Context, model string, payload generateRequest, stream bool) (*http.Response, error) {
	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		llm.RecordRequest(ctx, vendorName, model, 0, 0, err)
		return nil, err
	}
	llm.RecordRateLimitWait(ctx, vendorName, model, time.Since(waitStart))

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	verb := "generateContent"
	if stream {
		verb = "streamGenerateContent?alt=sse"
	}
	url := fmt.Sprintf("%s/models/%s:%s", c.baseURL, model, verb)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}

func firstCandidateText(envelope generateResponse) string {
	for _, cand := range envelope.Candidates {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				return p.Text
			}
		}
	}
	return ""
}

// Complete runs a blocking completion.
func (c *Client) Complete(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	model, payload := c.buildRequest(req)

	start := time.Now()
	resp, err := c.do(ctx, model, payload, false)
	if err != nil {
		llm.RecordRequest(ctx, vendorName, model, 0, time.Since(start), err)
		return nil, fmt.Errorf("%w: %v", providers.ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		llm.RecordRequest(ctx, vendorName, model, resp.StatusCode, time.Since(start), fmt.Errorf("status %d", resp.StatusCode))
		return nil, fmt.Errorf("%w: gemini request failed with status %d", providers.ErrModelUnavailable, resp.StatusCode)
	}

	var envelope generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		llm.RecordRequest(ctx, vendorName, model, resp.StatusCode, time.Since(start), err)
		return nil, err
	}

	text := firstCandidateText(envelope)
	if text == "" {
		err := errors.New("gemini response missing candidate text")
		llm.RecordRequest(ctx, vendorName, model, resp.StatusCode, time.Since(start), err)
		return nil, err
	}

	llm.RecordRequest(ctx, vendorName, model, resp.StatusCode, time.Since(start), nil)
	return &providers.ChatResponse{
		Content:      text,
		Model:        envelope.ModelVersion,
		InputTokens:  envelope.UsageMetadata.PromptTokenCount,
		OutputTokens: envelope.UsageMetadata.CandidatesTokenCount,
	}, nil
}

// Stream runs a streaming completion, relaying candidate text as chunks.
func (c *Client) Stream(ctx context.Context, req providers.ChatRequest) (<-chan providers.ChatChunk, error) {
	model, payload := c.buildRequest(req)

	start := time.Now()
	resp, err := c.do(ctx, model, payload, true)
	if err != nil {
		llm.RecordRequest(ctx, vendorName, model, 0, time.Since(start), err)
		return nil, fmt.Errorf("%w: %v", providers.ErrModelUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		llm.RecordRequest(ctx, vendorName, model, resp.StatusCode, time.Since(start), fmt.Errorf("status %d", resp.StatusCode))
		return nil, fmt.Errorf("%w: gemini request failed with status %d", providers.ErrModelUnavailable, resp.StatusCode)
	}

	chunks := make(chan providers.ChatChunk, 16)
	go func() {
		defer close(chunks)
		defer resp.Body.Close()

		var relayed int64
		err := llm.ReadSSE(ctx, resp.Body, func(event llm.SSEEvent) error {
			var decoded generateResponse
			if err := json.Unmarshal([]byte(event.Data), &decoded); err != nil {
				return nil
			}
			if text := firstCandidateText(decoded); text != "" {
				relayed++
				select {
				case chunks <- providers.ChatChunk{Delta: text}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})

		llm.RecordStreamChunks(ctx, vendorName, model, relayed)
		llm.RecordRequest(ctx, vendorName, model, resp.StatusCode, time.Since(start), err)
		if err != nil {
			chunks <- providers.ChatChunk{Err: err}
			return
		}
		chunks <- providers.ChatChunk{Done: true}
	}()

	return chunks, nil
}
