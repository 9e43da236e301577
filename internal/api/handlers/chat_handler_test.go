package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/clinconsult/internal/adapters/store"
	"github.com/carebridge/clinconsult/internal/application/agents"
	"github.com/carebridge/clinconsult/internal/application/services"
	"github.com/carebridge/clinconsult/internal/domain/providers"
)

// cannedModel feeds the pipeline deterministic responses.
type cannedModel struct {
	completes []string
	streamed  []string
}

func (m *cannedModel) Name() string     { return "canned" }
func (m *cannedModel) Models() []string { return []string{"canned-1"} }

func (m *cannedModel) Complete(ctx context.Context, req providers.ChatRequest) (*providers.ChatResponse, error) {
	if len(m.completes) == 0 {
		return nil, errors.New("no canned completion")
	}
	next := m.completes[0]
	m.completes = m.completes[1:]
	return &providers.ChatResponse{Content: next, Model: "canned-1"}, nil
}

func (m *cannedModel) Stream(ctx context.Context, req providers.ChatRequest) (<-chan providers.ChatChunk, error) {
	chunks := make(chan providers.ChatChunk, len(m.streamed)+1)
	for _, delta := range m.streamed {
		chunks <- providers.ChatChunk{Delta: delta}
	}
	chunks <- providers.ChatChunk{Done: true}
	close(chunks)
	return chunks, nil
}

func newChatHandler(t *testing.T) *ChatHandler {
	return newChatHandlerWithStream(t, []string{"Rest and ", "fluids."})
}

func newChatHandlerWithStream(t *testing.T, streamed []string) *ChatHandler {
	t.Helper()

	patients, err := store.NewPatientStore(t.TempDir() + "/patients.json")
	require.NoError(t, err)

	registry := services.NewModelRegistry("canned-1")
	registry.Register(&cannedModel{
		completes: []string{
			"History summary.",
			`{"urgency": "routine", "rationale": "Nothing acute."}`,
			`["headache"]`,
			`{"status": "ok", "notes": "Fine."}`,
		},
		streamed: streamed,
	})

	chatService := services.NewChatService(
		store.NewConversationStore(),
		patients,
		registry,
		agents.NewPipeline(nil, nil),
		nil,
	)

	handler := NewChatHandler(chatService)
	handler.heartbeatInterval = time.Hour
	return handler
}

func TestSendMessage_ReturnsTurnResult(t *testing.T) {
	handler := newChatHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message": "I have a headache"}`))
	recorder := httptest.NewRecorder()
	handler.SendMessage(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var result services.TurnResult
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
	assert.NotEmpty(t, result.ConversationID)
	assert.Contains(t, result.Reply, "fluids")
	assert.Len(t, result.Agents, 5)
}

func TestSendMessage_InvalidBody(t *testing.T) {
	handler := newChatHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{`))
	recorder := httptest.NewRecorder()
	handler.SendMessage(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestSendMessage_EmptyMessage(t *testing.T) {
	handler := newChatHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message": ""}`))
	recorder := httptest.NewRecorder()
	handler.SendMessage(recorder, req)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

// sseFrame is one decoded event from the response body.
type sseFrame struct {
	event string
	data  string
}

func parseSSE(body string) []sseFrame {
	var frames []sseFrame
	for _, block := range strings.Split(body, "\n\n") {
		var frame sseFrame
		for _, line := range strings.Split(block, "\n") {
			if after, ok := strings.CutPrefix(line, "event: "); ok {
				frame.event = after
			}
			if after, ok := strings.CutPrefix(line, "data: "); ok {
				frame.data = after
			}
		}
		if frame.event != "" || frame.data != "" {
			frames = append(frames, frame)
		}
	}
	return frames
}

func TestStreamMessage_TokensConcatenateToDoneReply(t *testing.T) {
	handler := newChatHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/stream", strings.NewReader(`{"message": "I have a headache"}`))
	recorder := httptest.NewRecorder()
	handler.StreamMessage(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "text/event-stream", recorder.Header().Get("Content-Type"))

	frames := parseSSE(recorder.Body.String())

	var agentEvents int
	var tokens strings.Builder
	var doneReply string
	for _, frame := range frames {
		switch frame.event {
		case "agent":
			agentEvents++
		case "token":
			var payload map[string]string
			require.NoError(t, json.Unmarshal([]byte(frame.data), &payload))
			tokens.WriteString(payload["delta"])
		case "done":
			var result services.TurnResult
			require.NoError(t, json.Unmarshal([]byte(frame.data), &result))
			doneReply = result.Reply
		}
	}

	assert.Equal(t, 5, agentEvents)
	require.NotEmpty(t, doneReply)
	assert.Equal(t, doneReply, tokens.String())
}

func TestStreamMessage_TrailingWhitespaceTokensStillConcatenate(t *testing.T) {
	handler := newChatHandlerWithStream(t, []string{"Rest and ", "fluids.\n\n\n"})

	req := httptest.NewRequest(http.MethodPost, "/api/chat/stream", strings.NewReader(`{"message": "I have a headache"}`))
	recorder := httptest.NewRecorder()
	handler.StreamMessage(recorder, req)

	frames := parseSSE(recorder.Body.String())

	var tokens strings.Builder
	var doneReply string
	for _, frame := range frames {
		switch frame.event {
		case "token":
			var payload map[string]string
			require.NoError(t, json.Unmarshal([]byte(frame.data), &payload))
			tokens.WriteString(payload["delta"])
		case "done":
			var result services.TurnResult
			require.NoError(t, json.Unmarshal([]byte(frame.data), &result))
			doneReply = result.Reply
		}
	}

	require.NotEmpty(t, doneReply)
	assert.Equal(t, doneReply, tokens.String())
	assert.Contains(t, doneReply, "Rest and fluids.\n\n\n")
}

func TestStreamMessage_UnknownModelFallsBackToDefault(t *testing.T) {
	handler := newChatHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/stream", strings.NewReader(`{"message": "hi", "model": "gpt-99"}`))
	recorder := httptest.NewRecorder()
	handler.StreamMessage(recorder, req)

	frames := parseSSE(recorder.Body.String())
	require.NotEmpty(t, frames)
	last := frames[len(frames)-1]
	require.Equal(t, "done", last.event)

	var result services.TurnResult
	require.NoError(t, json.Unmarshal([]byte(last.data), &result))
	assert.Equal(t, "canned-1", result.Model)
}

func TestStreamMessage_ErrorEventOnEmptyMessage(t *testing.T) {
	handler := newChatHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/stream", strings.NewReader(`{"message": "   "}`))
	recorder := httptest.NewRecorder()
	handler.StreamMessage(recorder, req)

	frames := parseSSE(recorder.Body.String())
	require.NotEmpty(t, frames)
	last := frames[len(frames)-1]
	assert.Equal(t, "error", last.event)
	assert.Contains(t, last.data, "message is required")
}

func TestConversationLifecycle(t *testing.T) {
	handler := newChatHandler(t)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", handler.SendMessage)
	mux.HandleFunc("GET /api/conversations", handler.ListConversations)
	mux.HandleFunc("GET /api/conversations/{id}", handler.GetConversation)
	mux.HandleFunc("DELETE /api/conversations/{id}", handler.DeleteConversation)

	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message": "hello"}`)))
	require.Equal(t, http.StatusOK, recorder.Code)

	var result services.TurnResult
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))

	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/conversations/"+result.ConversationID, nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodDelete, "/api/conversations/"+result.ConversationID, nil))
	require.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/conversations/"+result.ConversationID, nil))
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestListModels(t *testing.T) {
	handler := newChatHandler(t)

	recorder := httptest.NewRecorder()
	handler.ListModels(recorder, httptest.NewRequest(http.MethodGet, "/api/models", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "canned-1")
}
