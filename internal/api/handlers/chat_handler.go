package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/carebridge/clinconsult/internal/application/agents"
	"github.com/carebridge/clinconsult/internal/application/services"
	"github.com/carebridge/clinconsult/internal/domain/entities"
	apperrors "github.com/carebridge/clinconsult/pkg/errors"
)

// ChatHandler handles consultation chat requests, streaming and not.
type ChatHandler struct {
	chatService *services.ChatService

	// heartbeatInterval is overridable so tests don't wait 15 seconds.
	heartbeatInterval time.Duration
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService:       chatService,
		heartbeatInterval: 15 * time.Second,
	}
}

// SendMessage handles POST /api/chat
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req services.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.chatService.SendTurn(r.Context(), req)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// streamEvent is one SSE frame queued for delivery.
type streamEvent struct {
	name string
	data interface{}
}

// StreamMessage handles POST /api/chat/stream. It emits:
//   - an `agent` event as each pipeline stage completes,
//   - a `token` event per streamed reply chunk,
//   - periodic `heartbeat` events,
//   - a final `done` event with the complete reply.
//
// The concatenation of token payloads equals the done event's message.
func (h *ChatHandler) StreamMessage(w http.ResponseWriter, r *http.Request) {
	var req services.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sse := &sseWriter{w: w}
	events := make(chan streamEvent, 64)
	turnDone := make(chan struct{})

	hooks := agents.Hooks{
		OnAgentDone: func(result entities.AgentResult) {
			events <- streamEvent{name: "agent", data: result}
		},
		OnToken: func(delta string) {
			events <- streamEvent{name: "token", data: map[string]string{"delta": delta}}
		},
	}

	var result *services.TurnResult
	var turnErr error
	go func() {
		defer close(turnDone)
		// The request context cancels the turn when the client disconnects.
		result, turnErr = h.chatService.StreamTurn(r.Context(), req, hooks)
	}()

	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug().Msg("Chat stream client disconnected")
			return
		case <-ticker.C:
			sse.send("heartbeat", map[string]interface{}{"timestamp": time.Now()})
			flusher.Flush()
		case event := <-events:
			sse.send(event.name, event.data)
			flusher.Flush()
		case <-turnDone:
			// Drain events queued before the turn finished.
			for {
				select {
				case event := <-events:
					sse.send(event.name, event.data)
				default:
					h.finishStream(sse, result, turnErr)
					flusher.Flush()
					return
				}
			}
		}
	}
}

func (h *ChatHandler) finishStream(sse *sseWriter, result *services.TurnResult, turnErr error) {
	if turnErr != nil {
		sse.send("error", map[string]string{"error": apperrors.Message(turnErr)})
		return
	}

	// The safety footer is appended after the model stream, so it goes out
	// as one last token and concatenated tokens still equal the reply.
	if result.Footer != "" {
		sse.send("token", map[string]string{"delta": result.Footer})
	}

	sse.send("done", result)
}

// GetConversation handles GET /api/conversations/{id}
func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	conversation, err := h.chatService.GetConversation(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, conversation)
}

// ListConversations handles GET /api/conversations
func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.chatService.ListConversations(r.Context())
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": conversations,
		"count":         len(conversations),
	})
}

// DeleteConversation handles DELETE /api/conversations/{id}
func (h *ChatHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := h.chatService.DeleteConversation(r.Context(), r.PathValue("id")); err != nil {
		respondWithAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListModels handles GET /api/models
func (h *ChatHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"models": h.chatService.ListModels(),
	})
}
