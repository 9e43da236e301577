package entities

import "time"

// Turn roles. The assistant role covers pipeline output; system turns are
// never returned to clients.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is one message in a conversation.
type Turn struct {
	Role      string        `json:"role"`
	Content   string        `json:"content"`
	Timestamp time.Time     `json:"timestamp"`
	Agents    []AgentResult `json:"agents,omitempty"`
}

// Conversation holds the ordered history of a consultation chat. It lives in
// process memory keyed by id and is lost on restart.
type Conversation struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patient_id,omitempty"`
	Model     string    `json:"model"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LastUserMessage returns the content of the most recent user turn.
func (c *Conversation) LastUserMessage() string {
	for i := len(c.Turns) - 1; i >= 0; i-- {
		if c.Turns[i].Role == RoleUser {
			return c.Turns[i].Content
		}
	}
	return ""
}
