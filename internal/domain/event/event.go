package event

import (
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/spend-approval/internal/domain/entity"
)

// Event is a domain event published after a routing or decision transaction commits
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	Subject       entity.SubjectRef      `json:"subject"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates an event that starts its own correlation chain
func NewEvent(eventType Type, subject entity.SubjectRef, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, subject, payload, uuid.NewString())
}

// NewEventWithCorrelation creates an event linked to an existing correlation chain
func NewEventWithCorrelation(eventType Type, subject entity.SubjectRef, payload map[string]interface{}, correlationID string) *Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		Subject:       subject,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
	}
}

// Follow creates a new event in the same correlation chain as e
func (e *Event) Follow(eventType Type, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, e.Subject, payload, e.CorrelationID)
}

// WithPayload returns a copy of the event with key set in its payload
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	cp := *e
	cp.Payload = newPayload
	return &cp
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if s, ok := e.Payload[key].(string); ok {
		return s
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	switch v := e.Payload[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// GetPayloadBool retrieves a bool value from the payload
func (e *Event) GetPayloadBool(key string) bool {
	b, _ := e.Payload[key].(bool)
	return b
}
