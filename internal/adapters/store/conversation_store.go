package store

import (
	"context"
	"sort"
	"sync"

	"github.com/carebridge/clinconsult/internal/domain/entities"
	apperrors "github.com/carebridge/clinconsult/pkg/errors"
)

// ConversationStore keeps conversation state in process memory, keyed by
// conversation id. Contents are lost on restart; the prototype has no durable
// conversation persistence.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*entities.Conversation
}

// NewConversationStore creates an empty in-memory conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]*entities.Conversation),
	}
}

// GetByID returns a copy of the conversation with the given id.
func (s *ConversationStore) GetByID(ctx context.Context, id string) (*entities.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("conversation not found")
	}
	return cloneConversation(c), nil
}

// List returns all conversations, most recently updated first.
func (s *ConversationStore) List(ctx context.Context) ([]*entities.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		out = append(out, cloneConversation(c))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Save inserts or replaces a conversation.
func (s *ConversationStore) Save(ctx context.Context, conversation *entities.Conversation) error {
	if conversation.ID == "" {
		return apperrors.NewValidationError("conversation id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[conversation.ID] = cloneConversation(conversation)
	return nil
}

// Delete removes a conversation.
func (s *ConversationStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return apperrors.NewNotFoundError("conversation not found")
	}
	delete(s.conversations, id)
	return nil
}

func cloneConversation(c *entities.Conversation) *entities.Conversation {
	cp := *c
	cp.Turns = make([]entities.Turn, len(c.Turns))
	copy(cp.Turns, c.Turns)
	return &cp
}
