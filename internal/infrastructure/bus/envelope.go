// Package bus holds the message-bus edge: the wire envelope, the parser
// from raw JSON to typed hendelser, the consume loop and the publisher.
package bus

import (
	"time"

	"github.com/google/uuid"
)

// Envelope is the shared shape every message on the bus carries. Kind
// specific fields live beside it in the same JSON object and are decoded by
// the parser per event name.
type Envelope struct {
	ID            uuid.UUID `json:"@id"`
	EventName     string    `json:"@event_name"`
	Opprettet     time.Time `json:"@opprettet"`
	Fodselsnummer string    `json:"fødselsnummer"`
}
