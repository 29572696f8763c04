package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is an outbound domain event. State transitions return the events
// they produced; the caller collects them and dispatches after the
// transaction commits, so observers never see partial state.
type Event struct {
	ID            uuid.UUID      `json:"id"`
	Type          Type           `json:"type"`
	Fodselsnummer string         `json:"fodselsnummer"`
	HendelseID    uuid.UUID      `json:"hendelse_id"`
	Payload       map[string]any `json:"payload"`
	Timestamp     time.Time      `json:"timestamp"`
}

// New creates a domain event correlated to the inbound hendelse that caused it.
func New(eventType Type, hendelseID uuid.UUID, fodselsnummer string, payload map[string]any) Event {
	return Event{
		ID:            uuid.New(),
		Type:          eventType,
		Fodselsnummer: fodselsnummer,
		HendelseID:    hendelseID,
		Payload:       payload,
		Timestamp:     time.Now(),
	}
}

// PayloadString retrieves a string value from the payload.
func (e Event) PayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// PayloadInt retrieves an int64 value from the payload.
func (e Event) PayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}
