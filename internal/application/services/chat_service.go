package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/carebridge/clinconsult/internal/application/agents"
	"github.com/carebridge/clinconsult/internal/domain/entities"
	"github.com/carebridge/clinconsult/internal/domain/providers"
	"github.com/carebridge/clinconsult/internal/domain/repositories"
	"github.com/carebridge/clinconsult/pkg/errors"
)

// TurnRequest is one inbound chat message. An empty ConversationID starts a
// new conversation.
type TurnRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	PatientID      string `json:"patient_id,omitempty"`
	Model          string `json:"model,omitempty"`
	Message        string `json:"message"`
}

// TurnResult is the completed pipeline output for one turn. Footer is the
// safety text appended after the streamed tokens; Reply already includes it.
type TurnResult struct {
	ConversationID string                 `json:"conversation_id"`
	Model          string                 `json:"model"`
	Reply          string                 `json:"reply"`
	Footer         string                 `json:"footer,omitempty"`
	Agents         []entities.AgentResult `json:"agents"`
}

// ChatService coordinates conversations: it resolves the model and patient,
// appends turns, runs the agent pipeline, and publishes completion events.
type ChatService struct {
	conversations repositories.ConversationRepository
	patients      repositories.PatientRepository
	registry      *ModelRegistry
	pipeline      *agents.Pipeline
	eventBus      providers.EventBus
}

// NewChatService creates a chat service. eventBus may be nil, in which case
// turn events are not published.
func NewChatService(
	conversations repositories.ConversationRepository,
	patients repositories.PatientRepository,
	registry *ModelRegistry,
	pipeline *agents.Pipeline,
	eventBus providers.EventBus,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		patients:      patients,
		registry:      registry,
		pipeline:      pipeline,
		eventBus:      eventBus,
	}
}

// SendTurn runs a complete turn without streaming.
func (s *ChatService) SendTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	return s.runTurn(ctx, req, agents.Hooks{})
}

// StreamTurn runs a complete turn, reporting progress through hooks. The
// concatenated OnToken deltas followed by the result's Footer equal the reply.
func (s *ChatService) StreamTurn(ctx context.Context, req TurnRequest, hooks agents.Hooks) (*TurnResult, error) {
	return s.runTurn(ctx, req, hooks)
}

func (s *ChatService) runTurn(ctx context.Context, req TurnRequest, hooks agents.Hooks) (*TurnResult, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, errors.NewValidationError("message is required")
	}

	conversation, err := s.resolveConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	model, modelName, err := s.registry.Resolve(firstNonEmpty(req.Model, conversation.Model))
	if err != nil {
		return nil, err
	}
	conversation.Model = modelName

	var patient *entities.Patient
	if conversation.PatientID != "" {
		patient, err = s.patients.GetByID(ctx, conversation.PatientID)
		if err != nil {
			return nil, err
		}
	}

	output, err := s.pipeline.RunTurn(ctx, model, agents.TurnInput{
		Conversation: conversation,
		Patient:      patient,
		Message:      message,
	}, hooks)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	conversation.Turns = append(conversation.Turns,
		entities.Turn{Role: entities.RoleUser, Content: message, Timestamp: now},
		entities.Turn{Role: entities.RoleAssistant, Content: output.Reply, Timestamp: time.Now(), Agents: output.Results},
	)
	conversation.UpdatedAt = time.Now()

	if err := s.conversations.Save(ctx, conversation); err != nil {
		return nil, err
	}

	s.publishTurnCompleted(ctx, conversation)

	return &TurnResult{
		ConversationID: conversation.ID,
		Model:          modelName,
		Reply:          output.Reply,
		Footer:         output.Footer,
		Agents:         output.Results,
	}, nil
}

func (s *ChatService) resolveConversation(ctx context.Context, req TurnRequest) (*entities.Conversation, error) {
	if req.ConversationID != "" {
		conversation, err := s.conversations.GetByID(ctx, req.ConversationID)
		if err != nil {
			return nil, err
		}
		if req.PatientID != "" && conversation.PatientID == "" {
			conversation.PatientID = req.PatientID
		}
		return conversation, nil
	}

	if req.PatientID != "" {
		if _, err := s.patients.GetByID(ctx, req.PatientID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	return &entities.Conversation{
		ID:        uuid.New().String(),
		PatientID: req.PatientID,
		Model:     req.Model,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *ChatService) publishTurnCompleted(ctx context.Context, conversation *entities.Conversation) {
	if s.eventBus == nil {
		return
	}
	event := &entities.RecordEvent{
		ID:         uuid.New().String(),
		EventType:  entities.EventTurnCompleted,
		ResourceID: conversation.ID,
		Summary:    "conversation turn completed",
		Timestamp:  time.Now(),
	}
	if err := s.eventBus.Publish(ctx, providers.EventChannelRecordUpdates, event); err != nil {
		log.Warn().Err(err).Str("conversation_id", conversation.ID).Msg("Failed to publish turn event")
	}
}

// GetConversation fetches one conversation with its full turn history.
func (s *ChatService) GetConversation(ctx context.Context, id string) (*entities.Conversation, error) {
	if id == "" {
		return nil, errors.NewValidationError("conversation id is required")
	}
	return s.conversations.GetByID(ctx, id)
}

// ListConversations lists all conversations, newest first.
func (s *ChatService) ListConversations(ctx context.Context) ([]*entities.Conversation, error) {
	return s.conversations.List(ctx)
}

// DeleteConversation discards a conversation.
func (s *ChatService) DeleteConversation(ctx context.Context, id string) error {
	if id == "" {
		return errors.NewValidationError("conversation id is required")
	}
	return s.conversations.Delete(ctx, id)
}

// ListModels lists the models available for selection.
func (s *ChatService) ListModels() []ModelInfo {
	return s.registry.List()
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
