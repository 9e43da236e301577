package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/carebridge/clinconsult/internal/domain/entities"
	apperrors "github.com/carebridge/clinconsult/pkg/errors"
)

// PromptStore is the JSON-file store for prompt templates. Same persistence
// model as the patient store: full load at startup, wholesale atomic rewrite
// on mutation, guarded by a store-level RWMutex.
type PromptStore struct {
	path    string
	mu      sync.RWMutex
	prompts []*entities.Prompt
}

type promptFile struct {
	Prompts []*entities.Prompt `json:"prompts"`
}

// NewPromptStore loads the store from path, treating a missing file as empty.
func NewPromptStore(path string) (*PromptStore, error) {
	s := &PromptStore{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PromptStore) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.prompts = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read prompt store: %w", err)
	}

	var file promptFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse prompt store %s: %w", s.path, err)
	}
	s.prompts = file.Prompts
	return nil
}

func (s *PromptStore) save() error {
	data, err := json.MarshalIndent(promptFile{Prompts: s.prompts}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal prompt store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write prompt store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace prompt store: %w", err)
	}
	return nil
}

// GetByID returns the prompt with the given id.
func (s *PromptStore) GetByID(ctx context.Context, id string) (*entities.Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.prompts {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFoundError("prompt not found")
}

// GetActiveByCategory returns the first active prompt in a category.
// Inactive prompts are skipped.
func (s *PromptStore) GetActiveByCategory(ctx context.Context, category string) (*entities.Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.prompts {
		if p.Category == category && p.Active {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperrors.NewNotFoundError("no active prompt for category " + category)
}

// List returns all prompts in file order.
func (s *PromptStore) List(ctx context.Context) ([]*entities.Prompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.Prompt, 0, len(s.prompts))
	for _, p := range s.prompts {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

// Create adds a prompt at version 1 and persists the file.
func (s *PromptStore) Create(ctx context.Context, prompt *entities.Prompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.prompts {
		if p.ID == prompt.ID {
			return apperrors.NewConflictError("prompt already exists")
		}
	}

	now := time.Now().UTC()
	prompt.Version = 1
	if prompt.CreatedAt.IsZero() {
		prompt.CreatedAt = now
	}
	prompt.UpdatedAt = now

	cp := *prompt
	s.prompts = append(s.prompts, &cp)
	if err := s.save(); err != nil {
		s.prompts = s.prompts[:len(s.prompts)-1]
		return apperrors.NewInternalError("failed to persist prompt", err)
	}
	return nil
}

// Update replaces a prompt, bumping its version counter.
func (s *PromptStore) Update(ctx context.Context, prompt *entities.Prompt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.prompts {
		if p.ID == prompt.ID {
			prompt.Version = p.Version + 1
			prompt.CreatedAt = p.CreatedAt
			prompt.UpdatedAt = time.Now().UTC()
			cp := *prompt
			prev := s.prompts[i]
			s.prompts[i] = &cp
			if err := s.save(); err != nil {
				s.prompts[i] = prev
				return apperrors.NewInternalError("failed to persist prompt", err)
			}
			return nil
		}
	}
	return apperrors.NewNotFoundError("prompt not found")
}

// Delete removes a prompt and persists the file.
func (s *PromptStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.prompts {
		if p.ID == id {
			prev := s.prompts
			s.prompts = append(append([]*entities.Prompt{}, s.prompts[:i]...), s.prompts[i+1:]...)
			if err := s.save(); err != nil {
				s.prompts = prev
				return apperrors.NewInternalError("failed to persist prompt store", err)
			}
			return nil
		}
	}
	return apperrors.NewNotFoundError("prompt not found")
}
