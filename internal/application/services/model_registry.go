package services

import (
	"fmt"
	"sort"
	"sync"

	"github.com/carebridge/clinconsult/internal/domain/providers"
	"github.com/carebridge/clinconsult/pkg/errors"
)

// ModelInfo describes one selectable model for the API surface.
type ModelInfo struct {
	Vendor  string `json:"vendor"`
	Model   string `json:"model"`
	Default bool   `json:"default"`
}

// ModelRegistry holds the configured chat model clients keyed by model name.
// Registration happens at startup; lookups are concurrent.
type ModelRegistry struct {
	mu           sync.RWMutex
	byModel      map[string]providers.ChatModel
	defaultModel string
}

// NewModelRegistry creates a registry with the given default model name.
func NewModelRegistry(defaultModel string) *ModelRegistry {
	return &ModelRegistry{
		byModel:      make(map[string]providers.ChatModel),
		defaultModel: defaultModel,
	}
}

// Register adds a client under every model name it serves.
func (r *ModelRegistry) Register(client providers.ChatModel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, model := range client.Models() {
		r.byModel[model] = client
	}
}

// Resolve returns the client for a model name. An empty or unregistered name
// falls back to the configured default; the returned name is the model that
// will actually serve the request.
func (r *ModelRegistry) Resolve(model string) (providers.ChatModel, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if model == "" {
		model = r.defaultModel
	}
	client, ok := r.byModel[model]
	if !ok {
		model = r.defaultModel
		client, ok = r.byModel[model]
	}
	if !ok {
		return nil, "", errors.NewInternalError(fmt.Sprintf("default model %q has no registered client", model), nil)
	}
	return client, model, nil
}

// List returns the registered models sorted by name.
func (r *ModelRegistry) List() []ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ModelInfo, 0, len(r.byModel))
	for model, client := range r.byModel {
		infos = append(infos, ModelInfo{
			Vendor:  client.Name(),
			Model:   model,
			Default: model == r.defaultModel,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Model < infos[j].Model })
	return infos
}
