package providers

import (
	"context"
	"errors"
)

// ErrModelUnavailable is returned when an upstream model cannot be reached or
// refuses the request. The pipeline converts it into a canned apology rather
// than surfacing it to the patient.
var ErrModelUnavailable = errors.New("model unavailable")

// ChatMessage is one message in an upstream model request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a vendor-neutral completion request.
type ChatRequest struct {
	Model       string
	System      string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
}

// ChatResponse is a completed (non-streamed) model reply.
type ChatResponse struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
}

// ChatChunk is one streamed fragment of a model reply. Err is set on the
// final chunk when the stream ended abnormally; Done marks normal completion.
type ChatChunk struct {
	Delta string
	Done  bool
	Err   error
}

// ChatModel is implemented by each upstream LLM client.
type ChatModel interface {
	// Name returns the vendor identifier, e.g. "anthropic".
	Name() string

	// Models lists the model names this client serves.
	Models() []string

	// Complete runs a blocking completion.
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Stream runs a streaming completion. The returned channel is closed
	// after the Done (or Err) chunk.
	Stream(ctx context.Context, req ChatRequest) (<-chan ChatChunk, error)
}
