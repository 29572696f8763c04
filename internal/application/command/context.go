package command

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/karl-run/spesialist/internal/domain/entity"
)

// Behov is a named question to an external system collected during a run.
type Behov struct {
	Navn      string
	Parametre map[string]any
}

// CommandContext binds one inbound hendelse to its in-flight command tree.
// It collects outbound behov during execution and holds the correlated
// løsninger on resume.
type CommandContext struct {
	kontekst *entity.Kontekst

	// behov registered during the current run, in registration order.
	nyeBehov []Behov
}

// NewContext creates a fresh context owned by the given hendelse.
func NewContext(hendelseID uuid.UUID) *CommandContext {
	return &CommandContext{kontekst: entity.NyKontekst(hendelseID)}
}

// Wrap restores a context from its persisted record for resuming.
func Wrap(kontekst *entity.Kontekst) *CommandContext {
	return &CommandContext{kontekst: kontekst}
}

// ID returns the context identity.
func (cc *CommandContext) ID() uuid.UUID {
	return cc.kontekst.ID
}

// HendelseID returns the owning event identity.
func (cc *CommandContext) HendelseID() uuid.UUID {
	return cc.kontekst.HendelseID
}

// Opprettet returns the creation timestamp.
func (cc *CommandContext) Opprettet() time.Time {
	return cc.kontekst.Opprettet
}

// LeggTilBehov registers a behov. Registering the same behov again on resume
// is harmless; it is only published when no answer is present yet.
func (cc *CommandContext) LeggTilBehov(navn string, parametre map[string]any) {
	if _, besvart := cc.kontekst.Losninger[navn]; besvart {
		return
	}
	cc.kontekst.Behov[navn] = parametre
	cc.nyeBehov = append(cc.nyeBehov, Behov{Navn: navn, Parametre: parametre})
}

// Losning returns the answer to a behov if it has arrived.
func (cc *CommandContext) Losning(navn string) (json.RawMessage, bool) {
	l, ok := cc.kontekst.Losninger[navn]
	return l, ok
}

// LosningInto unmarshals the answer to a behov into out.
func (cc *CommandContext) LosningInto(navn string, out any) (bool, error) {
	l, ok := cc.kontekst.Losninger[navn]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(l, out); err != nil {
		return false, err
	}
	return true, nil
}

// MottaLosning correlates an inbound answer with a collected behov. Answers
// to behov this context never asked are rejected by the caller.
func (cc *CommandContext) MottaLosning(navn string, losning json.RawMessage) bool {
	if _, spurt := cc.kontekst.Behov[navn]; !spurt {
		return false
	}
	cc.kontekst.Losninger[navn] = losning
	return true
}

// HarUbesvarteBehov reports whether any collected behov still lacks an answer.
func (cc *CommandContext) HarUbesvarteBehov() bool {
	for navn := range cc.kontekst.Behov {
		if _, ok := cc.kontekst.Losninger[navn]; !ok {
			return true
		}
	}
	return false
}

// NyeBehov returns the behov registered during the current run, in order.
func (cc *CommandContext) NyeBehov() []Behov {
	return cc.nyeBehov
}

// MarkerFerdig marks the context terminal; it becomes immutable history.
func (cc *CommandContext) MarkerFerdig() {
	cc.kontekst.Terminal = true
}

// ErFerdig reports whether the context is terminal.
func (cc *CommandContext) ErFerdig() bool {
	return cc.kontekst.Terminal
}

// Kontekst returns the persistable record.
func (cc *CommandContext) Kontekst() *entity.Kontekst {
	return cc.kontekst
}
