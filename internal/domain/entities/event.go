package entities

import "time"

// RecordEventType identifies what happened to a record.
type RecordEventType string

const (
	EventPatientCreated    RecordEventType = "patient_created"
	EventPatientUpdated    RecordEventType = "patient_updated"
	EventPatientDeleted    RecordEventType = "patient_deleted"
	EventTurnCompleted     RecordEventType = "turn_completed"
	EventPromptUpdated     RecordEventType = "prompt_updated"
)

// RecordEvent is published on the event bus whenever a patient record, prompt,
// or conversation changes, and relayed to monitoring clients over SSE.
type RecordEvent struct {
	ID         string          `json:"id"`
	EventType  RecordEventType `json:"event_type"`
	ResourceID string          `json:"resource_id"`
	Summary    string          `json:"summary,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}
