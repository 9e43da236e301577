package providers

import (
	"context"

	"github.com/carebridge/clinconsult/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to record events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.RecordEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.RecordEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannel constants for different event streams
const (
	// EventChannelRecordUpdates carries all patient/prompt record events
	EventChannelRecordUpdates = "records:updates"

	// EventChannelConversationPrefix is the prefix for conversation-specific channels
	EventChannelConversationPrefix = "conversation:"
)

// GetConversationChannel returns the channel name for a specific conversation
func GetConversationChannel(conversationID string) string {
	return EventChannelConversationPrefix + conversationID
}
