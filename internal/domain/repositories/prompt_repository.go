package repositories

import (
	"context"

	"github.com/carebridge/clinconsult/internal/domain/entities"
)

// PromptRepository defines the interface for prompt template operations.
type PromptRepository interface {
	GetByID(ctx context.Context, id string) (*entities.Prompt, error)
	GetActiveByCategory(ctx context.Context, category string) (*entities.Prompt, error)
	List(ctx context.Context) ([]*entities.Prompt, error)
	Create(ctx context.Context, prompt *entities.Prompt) error
	Update(ctx context.Context, prompt *entities.Prompt) error
	Delete(ctx context.Context, id string) error
}
