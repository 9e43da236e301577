package repositories

import (
	"context"

	"github.com/carebridge/clinconsult/internal/domain/entities"
)

// ConversationRepository defines the interface for conversation state.
// The prototype backs this with process memory, so contents are lost on restart.
type ConversationRepository interface {
	GetByID(ctx context.Context, id string) (*entities.Conversation, error)
	List(ctx context.Context) ([]*entities.Conversation, error)
	Save(ctx context.Context, conversation *entities.Conversation) error
	Delete(ctx context.Context, id string) error
}
