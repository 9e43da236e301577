package handlers

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/clinconsult/internal/domain/entities"
	"github.com/carebridge/clinconsult/internal/domain/providers"
)

// memoryBus is an in-process event bus for handler tests.
type memoryBus struct {
	mu          sync.Mutex
	subscribers map[string][]chan *entities.RecordEvent
}

func newMemoryBus() *memoryBus {
	return &memoryBus{subscribers: make(map[string][]chan *entities.RecordEvent)}
}

func (b *memoryBus) Publish(ctx context.Context, channel string, event *entities.RecordEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, subscriber := range b.subscribers[channel] {
		subscriber <- event
	}
	return nil
}

func (b *memoryBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.RecordEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subscriber := make(chan *entities.RecordEvent, 10)
	b.subscribers[channel] = append(b.subscribers[channel], subscriber)
	return subscriber, nil
}

func (b *memoryBus) Unsubscribe(ctx context.Context, channel string) error { return nil }
func (b *memoryBus) Close() error                                          { return nil }

func TestStreamRecordUpdates_RelaysEvents(t *testing.T) {
	bus := newMemoryBus()
	handler := NewSSEHandler(bus)
	handler.heartbeatInterval = time.Hour

	server := httptest.NewServer(http.HandlerFunc(handler.StreamRecordUpdates))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)

	// First frame announces the connection.
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected", strings.TrimSpace(line))

	// Wait for the subscription to register before publishing.
	require.Eventually(t, func() bool {
		bus.mu.Lock()
		defer bus.mu.Unlock()
		return len(bus.subscribers[providers.EventChannelRecordUpdates]) == 1
	}, time.Second, 10*time.Millisecond)

	err = bus.Publish(context.Background(), providers.EventChannelRecordUpdates, &entities.RecordEvent{
		ID:         "evt-1",
		EventType:  entities.EventPatientCreated,
		ResourceID: "p1",
		Timestamp:  time.Now(),
	})
	require.NoError(t, err)

	var sawEvent bool
	for !sawEvent {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.TrimSpace(line) == "event: patient_created" {
			sawEvent = true
		}
	}
	cancel()
}

func TestStreamRecordUpdates_DisabledWithoutBus(t *testing.T) {
	handler := NewSSEHandler(nil)

	recorder := httptest.NewRecorder()
	handler.StreamRecordUpdates(recorder, httptest.NewRequest(http.MethodGet, "/api/stream/records", nil))

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}
