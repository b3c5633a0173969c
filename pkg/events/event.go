package events

import "time"

// Audit topics.
const (
	TopicTurnCompleted    = "loan.turn.completed"
	TopicDocumentAnalyzed = "loan.document.analyzed"
)

// Event type codes.
const (
	TypeTurnCompleted    = "TURN_COMPLETED"
	TypeDocumentAnalyzed = "DOCUMENT_ANALYZED"
)

// Event defines the contract for all audit events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "TURN_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the common implementation used by the constructors below.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewTurnCompleted records a finished conversation turn. decision is
// empty when the turn produced no verdict.
func NewTurnCompleted(sessionID, phase, intentName, decision string, toolCount int, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeTurnCompleted,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"phase":      phase,
			"intent":     intentName,
			"decision":   decision,
			"tool_calls": toolCount,
		},
		OccurredAt: at,
	}
}

// NewDocumentAnalyzed records a successful document extraction.
func NewDocumentAnalyzed(sessionID, category, filename string, fieldCount int, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeDocumentAnalyzed,
		Data: map[string]interface{}{
			"session_id":  sessionID,
			"category":    category,
			"filename":    filename,
			"field_count": fieldCount,
		},
		OccurredAt: at,
	}
}
