package agents

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/carebridge/clinconsult/internal/domain/entities"
)

// PromptSource supplies the active template for an agent category. The prompt
// store implements it; tests supply stubs.
type PromptSource interface {
	GetActiveByCategory(ctx context.Context, category string) (*entities.Prompt, error)
}

// Built-in templates used when no active stored prompt exists for a category.
// Placeholders follow the store's {name} convention.
var defaultTemplates = map[string]string{
	entities.AgentHistory: `You are a clinical history assistant reviewing a consultation.

Patient record:
{patient_summary}

Conversation so far:
{history}

Latest patient message:
{message}

Summarise the presenting complaint in the context of the patient's record.
Note relevant conditions, medications, and allergies. Be concise and factual.`,

	entities.AgentTriage: `You are a triage assistant assessing urgency.

Patient record:
{patient_summary}

Findings so far:
{prior_results}

Latest patient message:
{message}

Respond with JSON only, no prose:
{"urgency": "routine|urgent|emergency", "rationale": "<one sentence>"}`,

	entities.AgentCoding: `You are a clinical coding assistant.

Findings so far:
{prior_results}

Latest patient message:
{message}

Extract the distinct clinical concepts (symptoms, conditions, medications)
mentioned above. Respond with a JSON array of search terms only, no prose:
["term1", "term2"]`,

	entities.AgentSynthesis: `You are a careful clinical assistant replying to a patient.

Patient record:
{patient_summary}

Assessment notes from colleagues:
{prior_results}

Conversation so far:
{history}

Latest patient message:
{message}

Write a clear, empathetic reply for the patient. Reference their record where
relevant. Do not diagnose definitively; recommend appropriate next steps.`,

	entities.AgentCompliance: `You are a clinical safety reviewer.

Draft reply to the patient:
{draft}

Check the draft for unsafe advice, definitive diagnoses, or missing safety
netting. Respond with JSON only:
{"status": "ok|concerns", "notes": "<short note>"}`,
}

// renderPrompt resolves the template for a category, preferring an active
// stored prompt over the built-in default, and substitutes vars.
func (p *Pipeline) renderPrompt(ctx context.Context, category string, vars map[string]string) string {
	if p.prompts != nil {
		stored, err := p.prompts.GetActiveByCategory(ctx, category)
		if err == nil && stored != nil {
			return stored.Render(vars)
		}
		if err != nil {
			log.Debug().Err(err).Str("category", category).Msg("No stored prompt, using default template")
		}
	}
	fallback := entities.Prompt{Template: defaultTemplates[category]}
	return fallback.Render(vars)
}
