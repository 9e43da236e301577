package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/carebridge/clinconsult/internal/domain/entities"
	"github.com/carebridge/clinconsult/internal/domain/providers"
	"github.com/carebridge/clinconsult/internal/domain/repositories"
	"github.com/carebridge/clinconsult/pkg/errors"
)

// PromptService wraps the prompt template store with validation and event
// publication.
type PromptService struct {
	prompts  repositories.PromptRepository
	eventBus providers.EventBus
}

// NewPromptService creates a prompt service. eventBus may be nil.
func NewPromptService(prompts repositories.PromptRepository, eventBus providers.EventBus) *PromptService {
	return &PromptService{prompts: prompts, eventBus: eventBus}
}

// GetPrompt fetches one prompt template.
func (s *PromptService) GetPrompt(ctx context.Context, id string) (*entities.Prompt, error) {
	if id == "" {
		return nil, errors.NewValidationError("prompt id is required")
	}
	return s.prompts.GetByID(ctx, id)
}

// ListPrompts lists all prompt templates.
func (s *PromptService) ListPrompts(ctx context.Context) ([]*entities.Prompt, error) {
	return s.prompts.List(ctx)
}

// CreatePrompt validates and stores a new prompt template.
func (s *PromptService) CreatePrompt(ctx context.Context, prompt *entities.Prompt) (*entities.Prompt, error) {
	if err := validatePrompt(prompt); err != nil {
		return nil, err
	}
	if prompt.ID == "" {
		prompt.ID = uuid.New().String()
	}

	if err := s.prompts.Create(ctx, prompt); err != nil {
		return nil, err
	}
	s.publish(ctx, prompt)
	return s.prompts.GetByID(ctx, prompt.ID)
}

// UpdatePrompt replaces an existing template, bumping its version.
func (s *PromptService) UpdatePrompt(ctx context.Context, prompt *entities.Prompt) (*entities.Prompt, error) {
	if prompt.ID == "" {
		return nil, errors.NewValidationError("prompt id is required")
	}
	if err := validatePrompt(prompt); err != nil {
		return nil, err
	}

	if err := s.prompts.Update(ctx, prompt); err != nil {
		return nil, err
	}
	s.publish(ctx, prompt)
	return s.prompts.GetByID(ctx, prompt.ID)
}

// DeletePrompt removes a prompt template.
func (s *PromptService) DeletePrompt(ctx context.Context, id string) error {
	if id == "" {
		return errors.NewValidationError("prompt id is required")
	}
	return s.prompts.Delete(ctx, id)
}

func validatePrompt(prompt *entities.Prompt) error {
	if prompt == nil {
		return errors.NewValidationError("prompt body is required")
	}
	if prompt.Name == "" {
		return errors.NewValidationError("prompt name is required")
	}
	if prompt.Category == "" {
		return errors.NewValidationError("prompt category is required")
	}
	if prompt.Template == "" {
		return errors.NewValidationError("prompt template is required")
	}
	return nil
}

func (s *PromptService) publish(ctx context.Context, prompt *entities.Prompt) {
	if s.eventBus == nil {
		return
	}
	event := &entities.RecordEvent{
		ID:         uuid.New().String(),
		EventType:  entities.EventPromptUpdated,
		ResourceID: prompt.ID,
		Summary:    fmt.Sprintf("prompt %s v%d", prompt.Name, prompt.Version),
		Timestamp:  time.Now(),
	}
	if err := s.eventBus.Publish(ctx, providers.EventChannelRecordUpdates, event); err != nil {
		log.Warn().Err(err).Str("prompt_id", prompt.ID).Msg("Failed to publish prompt event")
	}
}
