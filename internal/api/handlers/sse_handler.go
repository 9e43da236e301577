package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/carebridge/clinconsult/internal/domain/entities"
	"github.com/carebridge/clinconsult/internal/domain/providers"
)

// SSEHandler relays record events (patient, prompt, and conversation changes)
// to monitoring clients over Server-Sent Events.
type SSEHandler struct {
	eventBus providers.EventBus
	clients  map[chan *entities.RecordEvent]bool
	mu       sync.RWMutex

	heartbeatInterval time.Duration
}

// NewSSEHandler creates a new SSE handler.
func NewSSEHandler(eventBus providers.EventBus) *SSEHandler {
	return &SSEHandler{
		eventBus:          eventBus,
		clients:           make(map[chan *entities.RecordEvent]bool),
		heartbeatInterval: 30 * time.Second,
	}
}

// StreamRecordUpdates handles SSE connections for record change monitoring.
// GET /api/stream/records
func (h *SSEHandler) StreamRecordUpdates(w http.ResponseWriter, r *http.Request) {
	if h.eventBus == nil {
		respondWithError(w, http.StatusServiceUnavailable, "event streaming is disabled")
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

	clientChan := make(chan *entities.RecordEvent, 10)
	h.registerClient(clientChan)
	defer h.unregisterClient(clientChan)

	eventChan, err := h.eventBus.Subscribe(r.Context(), providers.EventChannelRecordUpdates)
	if err != nil {
		log.Error().Err(err).Msg("Failed to subscribe to record updates")
		respondWithError(w, http.StatusInternalServerError, "failed to subscribe to events")
		return
	}

	sse := &sseWriter{w: w}
	sse.send("connected", map[string]interface{}{"timestamp": time.Now()})
	flusher.Flush()

	go h.forwardEvents(r, eventChan, clientChan)

	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug().Msg("Record stream client disconnected")
			return
		case <-ticker.C:
			sse.send("heartbeat", map[string]interface{}{"timestamp": time.Now()})
			flusher.Flush()
		case event := <-clientChan:
			if event == nil {
				continue
			}
			sse.send(string(event.EventType), event)
			flusher.Flush()
		}
	}
}

func (h *SSEHandler) forwardEvents(r *http.Request, eventChan <-chan *entities.RecordEvent, clientChan chan *entities.RecordEvent) {
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			select {
			case clientChan <- event:
			default:
				log.Warn().Str("event_id", event.ID).Msg("Dropping record event, client too slow")
			}
		}
	}
}

func (h *SSEHandler) registerClient(client chan *entities.RecordEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

func (h *SSEHandler) unregisterClient(client chan *entities.RecordEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
	close(client)
}

// ClientCount returns the number of connected monitoring clients.
func (h *SSEHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
