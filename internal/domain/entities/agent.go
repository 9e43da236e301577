package entities

import "time"

// Agent names, in pipeline order.
const (
	AgentHistory    = "history"
	AgentTriage     = "triage"
	AgentCoding     = "coding"
	AgentSynthesis  = "synthesis"
	AgentCompliance = "compliance"
)

// AgentResult is the output of one pipeline agent: free text plus whatever
// structured metadata the agent extracted (assigned codes, urgency, flags).
type AgentResult struct {
	Agent      string            `json:"agent"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Codes      []CodedConcept    `json:"codes,omitempty"`
	Model      string            `json:"model,omitempty"`
	DurationMS int64             `json:"duration_ms,omitempty"`
	StartedAt  time.Time         `json:"started_at,omitempty"`
}
