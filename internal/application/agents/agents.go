package agents

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/carebridge/clinconsult/internal/domain/entities"
	"github.com/carebridge/clinconsult/internal/domain/providers"
	"github.com/carebridge/clinconsult/internal/infrastructure/clients/llm"
)

func (p *Pipeline) complete(ctx context.Context, state *turnState, category string) (string, error) {
	prompt := p.renderPrompt(ctx, category, state.vars())
	resp, err := state.model.Complete(ctx, providers.ChatRequest{
		Model: state.input.Conversation.Model,
		Messages: []providers.ChatMessage{
			{Role: entities.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (p *Pipeline) runHistory(ctx context.Context, state *turnState) entities.AgentResult {
	content, err := p.complete(ctx, state, entities.AgentHistory)
	if err != nil {
		return failedResult(err)
	}
	return entities.AgentResult{Content: content}
}

type triageVerdict struct {
	Urgency   string `json:"urgency"`
	Rationale string `json:"rationale"`
}

func (p *Pipeline) runTriage(ctx context.Context, state *turnState) entities.AgentResult {
	content, err := p.complete(ctx, state, entities.AgentTriage)
	if err != nil {
		return failedResult(err)
	}

	var verdict triageVerdict
	if err := json.Unmarshal([]byte(llm.StripFences(content)), &verdict); err != nil || verdict.Urgency == "" {
		log.Debug().Str("content", content).Msg("Triage verdict was not valid JSON")
		return entities.AgentResult{
			Content:  content,
			Metadata: map[string]string{"urgency": "unknown"},
		}
	}
	return entities.AgentResult{
		Content:  verdict.Rationale,
		Metadata: map[string]string{"urgency": verdict.Urgency},
	}
}

func (p *Pipeline) runCoding(ctx context.Context, state *turnState) entities.AgentResult {
	content, err := p.complete(ctx, state, entities.AgentCoding)
	if err != nil {
		return failedResult(err)
	}

	var terms []string
	if err := json.Unmarshal([]byte(llm.StripFences(content)), &terms); err != nil {
		log.Debug().Str("content", content).Msg("Coding terms were not valid JSON")
		return entities.AgentResult{Content: content}
	}

	result := entities.AgentResult{
		Content:  "Extracted terms: " + strings.Join(terms, ", "),
		Metadata: map[string]string{"term_count": strconv.Itoa(len(terms))},
	}
	if p.terminology == nil {
		return result
	}

	for _, term := range terms {
		expansion, err := p.terminology.Expand(ctx, entities.SystemSNOMED+"?fhir_vs", term, 1)
		if err != nil || len(expansion.Concepts) == 0 {
			log.Debug().Err(err).Str("term", term).Msg("No terminology match for term")
			continue
		}
		concept := expansion.Concepts[0]
		result.Codes = append(result.Codes, concept)

		translation, err := p.terminology.Translate(ctx, entities.SystemSNOMED, concept.Code, entities.SystemICD10)
		if err != nil || !translation.Matched {
			continue
		}
		result.Codes = append(result.Codes, translation.Targets...)
	}
	return result
}

func (p *Pipeline) runSynthesis(ctx context.Context, state *turnState) entities.AgentResult {
	prompt := p.renderPrompt(ctx, entities.AgentSynthesis, state.vars())
	chunks, err := state.model.Stream(ctx, providers.ChatRequest{
		Model: state.input.Conversation.Model,
		Messages: []providers.ChatMessage{
			{Role: entities.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		log.Warn().Err(err).Msg("Reply generation failed, sending apology")
		p.emitApology(state)
		return entities.AgentResult{
			Content:  apologyReply,
			Metadata: map[string]string{"degraded": "true"},
		}
	}

	var sb strings.Builder
	for chunk := range chunks {
		if chunk.Err != nil {
			log.Warn().Err(chunk.Err).Msg("Reply stream broke, sending apology")
			p.emitApology(state)
			return entities.AgentResult{
				Content:  apologyReply,
				Metadata: map[string]string{"degraded": "true"},
			}
		}
		if chunk.Done {
			break
		}
		sb.WriteString(chunk.Delta)
		if state.hooks.OnToken != nil {
			state.hooks.OnToken(chunk.Delta)
		}
	}
	return entities.AgentResult{Content: sb.String()}
}

// emitApology streams the apology so clients that only watch tokens still see
// the reply.
func (p *Pipeline) emitApology(state *turnState) {
	if state.hooks.OnToken != nil {
		state.hooks.OnToken(apologyReply)
	}
}

type complianceVerdict struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (p *Pipeline) runCompliance(ctx context.Context, state *turnState) entities.AgentResult {
	draft := ""
	for _, result := range state.results {
		if result.Agent == entities.AgentSynthesis {
			draft = result.Content
		}
	}

	vars := state.vars()
	vars["draft"] = draft
	prompt := p.renderPrompt(ctx, entities.AgentCompliance, vars)

	resp, err := state.model.Complete(ctx, providers.ChatRequest{
		Model: state.input.Conversation.Model,
		Messages: []providers.ChatMessage{
			{Role: entities.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		return failedResult(err)
	}

	var verdict complianceVerdict
	if err := json.Unmarshal([]byte(llm.StripFences(resp.Content)), &verdict); err != nil || verdict.Status == "" {
		return entities.AgentResult{
			Content:  resp.Content,
			Metadata: map[string]string{"status": "unknown"},
		}
	}
	return entities.AgentResult{
		Content:  verdict.Notes,
		Metadata: map[string]string{"status": verdict.Status},
	}
}
