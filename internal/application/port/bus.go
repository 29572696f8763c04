package port

import (
	"context"

	"github.com/google/uuid"
)

// UtgaaendeBehov is a named question to an external system, correlated by
// context id and event id so the answer can resume the right context.
type UtgaaendeBehov struct {
	Navn       string
	Parametre  map[string]any
	KontekstID uuid.UUID
	HendelseID uuid.UUID
}

// UtgaaendeMelding is any other outbound envelope (task notifications,
// adjudication outcomes).
type UtgaaendeMelding struct {
	EventName     string
	Fodselsnummer string
	Payload       map[string]any
}

// MeldingPublisher sends envelopes to the message bus. The transport itself
// is an external collaborator.
type MeldingPublisher interface {
	PubliserBehov(ctx context.Context, fodselsnummer string, behov []UtgaaendeBehov) error
	Publiser(ctx context.Context, melding UtgaaendeMelding) error
}
