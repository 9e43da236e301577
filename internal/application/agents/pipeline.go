package agents

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/carebridge/clinconsult/internal/domain/entities"
	"github.com/carebridge/clinconsult/internal/domain/providers"
)

// Disclaimer appended to every patient-facing reply that does not already
// carry one.
const safetyDisclaimer = "This is not a medical diagnosis. If your symptoms worsen or you feel seriously unwell, contact your GP or call 111 (999 in an emergency)."

// apologyReply is returned when the language model cannot produce the
// patient-facing reply.
const apologyReply = "I'm sorry, I wasn't able to process your message just now. Please try again in a moment, and contact your GP or call 111 if you need advice urgently."

// TurnInput is everything the pipeline needs to process one user turn.
type TurnInput struct {
	Conversation *entities.Conversation
	Patient      *entities.Patient
	Message      string
}

// TurnOutput is the pipeline's result for one turn. Footer is the safety text
// appended after the streamed reply, empty when the reply already signposts
// urgent care. Reply is always the streamed content followed by Footer.
type TurnOutput struct {
	Reply   string
	Footer  string
	Results []entities.AgentResult
}

// Hooks lets callers observe pipeline progress. All fields are optional.
type Hooks struct {
	// OnAgentStart fires before an agent runs.
	OnAgentStart func(agent string)
	// OnAgentDone fires after an agent completes, failed or not.
	OnAgentDone func(result entities.AgentResult)
	// OnToken fires for every streamed token of the patient-facing reply.
	// The concatenation of all deltas plus TurnOutput.Footer equals
	// TurnOutput.Reply, byte for byte.
	OnToken func(delta string)
}

// Pipeline runs the fixed agent sequence for a consultation turn: history,
// triage, coding, synthesis, compliance. Turns for the same conversation are
// serialized; different conversations proceed concurrently.
type Pipeline struct {
	prompts     PromptSource
	terminology providers.TerminologyProvider

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPipeline creates an agent pipeline.
func NewPipeline(prompts PromptSource, terminology providers.TerminologyProvider) *Pipeline {
	return &Pipeline{
		prompts:     prompts,
		terminology: terminology,
		locks:       make(map[string]*sync.Mutex),
	}
}

func (p *Pipeline) conversationLock(conversationID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[conversationID] = lock
	}
	return lock
}

// turnState accumulates results as the sequence advances so later agents see
// earlier output.
type turnState struct {
	input   TurnInput
	model   providers.ChatModel
	hooks   Hooks
	results []entities.AgentResult
}

func (s *turnState) vars() map[string]string {
	return map[string]string{
		"patient_summary": patientSummary(s.input.Patient),
		"history":         transcript(s.input.Conversation),
		"message":         s.input.Message,
		"prior_results":   priorResults(s.results),
	}
}

// RunTurn executes the full agent sequence against the given model. At most
// one turn per conversation id is in flight; a concurrent caller blocks until
// the earlier turn finishes.
func (p *Pipeline) RunTurn(ctx context.Context, model providers.ChatModel, input TurnInput, hooks Hooks) (*TurnOutput, error) {
	if input.Conversation == nil {
		return nil, fmt.Errorf("conversation is required")
	}

	lock := p.conversationLock(input.Conversation.ID)
	lock.Lock()
	defer lock.Unlock()

	state := &turnState{input: input, model: model, hooks: hooks}

	type agentFn func(context.Context, *turnState) entities.AgentResult
	sequence := []struct {
		name string
		run  agentFn
	}{
		{entities.AgentHistory, p.runHistory},
		{entities.AgentTriage, p.runTriage},
		{entities.AgentCoding, p.runCoding},
		{entities.AgentSynthesis, p.runSynthesis},
		{entities.AgentCompliance, p.runCompliance},
	}

	for _, agent := range sequence {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if hooks.OnAgentStart != nil {
			hooks.OnAgentStart(agent.name)
		}

		started := time.Now()
		result := agent.run(ctx, state)
		result.Agent = agent.name
		result.StartedAt = started
		result.DurationMS = time.Since(started).Milliseconds()
		if result.Model == "" {
			result.Model = model.Name()
		}

		state.results = append(state.results, result)
		if hooks.OnAgentDone != nil {
			hooks.OnAgentDone(result)
		}
	}

	reply := ""
	for _, result := range state.results {
		if result.Agent == entities.AgentSynthesis {
			reply = result.Content
		}
	}

	output := &TurnOutput{Reply: reply, Results: state.results}
	if !hasSafetyNetting(reply) {
		output.Footer = "\n\n" + safetyDisclaimer
		output.Reply += output.Footer
	}
	return output, nil
}

// hasSafetyNetting reports whether the reply already tells the patient how to
// escalate. A bare "111" substring is not enough, it also shows up in clinical
// values such as a 111/70 blood pressure reading.
func hasSafetyNetting(reply string) bool {
	return strings.Contains(reply, "call 111") || strings.Contains(reply, "call 999")
}

func failedResult(err error) entities.AgentResult {
	log.Warn().Err(err).Msg("Agent step failed")
	return entities.AgentResult{
		Metadata: map[string]string{"error": err.Error()},
	}
}

// patientSummary flattens the record into prompt-sized text.
func patientSummary(patient *entities.Patient) string {
	if patient == nil {
		return "No patient record attached to this conversation."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Name: %s\n", patient.FullName())
	fmt.Fprintf(&sb, "Date of birth: %s, gender: %s\n", patient.DateOfBirth, patient.Gender)
	if patient.NHSNumber != "" {
		fmt.Fprintf(&sb, "NHS number: %s\n", patient.NHSNumber)
	}

	if len(patient.Conditions) > 0 {
		sb.WriteString("Conditions:\n")
		for _, condition := range patient.Conditions {
			fmt.Fprintf(&sb, "- %s", condition.Display)
			if condition.Status != "" {
				fmt.Fprintf(&sb, " (%s)", condition.Status)
			}
			sb.WriteString("\n")
		}
	}
	if len(patient.Medications) > 0 {
		sb.WriteString("Medications:\n")
		for _, medication := range patient.Medications {
			fmt.Fprintf(&sb, "- %s", medication.Display)
			if medication.Dosage != "" {
				fmt.Fprintf(&sb, ", %s", medication.Dosage)
			}
			sb.WriteString("\n")
		}
	}
	if len(patient.Allergies) > 0 {
		sb.WriteString("Allergies:\n")
		for _, allergy := range patient.Allergies {
			fmt.Fprintf(&sb, "- %s", allergy.Substance)
			if allergy.Reaction != "" {
				fmt.Fprintf(&sb, " (%s)", allergy.Reaction)
			}
			sb.WriteString("\n")
		}
	}
	if len(patient.Observations) > 0 {
		sb.WriteString("Recent observations:\n")
		for _, observation := range patient.Observations {
			fmt.Fprintf(&sb, "- %s: %g %s\n", observation.Display, observation.Value, observation.Unit)
		}
	}
	return sb.String()
}

// transcript renders prior user and assistant turns. System turns and the
// in-flight user message are excluded.
func transcript(conversation *entities.Conversation) string {
	if conversation == nil || len(conversation.Turns) == 0 {
		return "(no previous messages)"
	}
	var sb strings.Builder
	for _, turn := range conversation.Turns {
		switch turn.Role {
		case entities.RoleUser:
			fmt.Fprintf(&sb, "Patient: %s\n", turn.Content)
		case entities.RoleAssistant:
			fmt.Fprintf(&sb, "Assistant: %s\n", turn.Content)
		}
	}
	if sb.Len() == 0 {
		return "(no previous messages)"
	}
	return sb.String()
}

func priorResults(results []entities.AgentResult) string {
	if len(results) == 0 {
		return "(none yet)"
	}
	var sb strings.Builder
	for _, result := range results {
		if result.Content == "" {
			continue
		}
		fmt.Fprintf(&sb, "[%s]\n%s\n", result.Agent, result.Content)
		if len(result.Codes) > 0 {
			sb.WriteString("Codes: ")
			for i, code := range result.Codes {
				if i > 0 {
					sb.WriteString(", ")
				}
				fmt.Fprintf(&sb, "%s (%s)", code.Display, code.Code)
			}
			sb.WriteString("\n")
		}
	}
	if sb.Len() == 0 {
		return "(none yet)"
	}
	return sb.String()
}
