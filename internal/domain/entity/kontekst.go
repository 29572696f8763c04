package entity

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Kontekst is the persisted record binding one inbound hendelse to its
// in-flight command tree. It collects outbound behov and correlates inbound
// løsninger. A kontekst is resumable only while Terminal is false; once
// terminal it is immutable history and is never physically deleted.
type Kontekst struct {
	ID         uuid.UUID
	HendelseID uuid.UUID
	Behov      map[string]map[string]any
	Losninger  map[string]json.RawMessage
	Terminal   bool
	Opprettet  time.Time
}

// UbesvarteBehov lists the collected behov that still lack an answer,
// sorted by name.
func (k *Kontekst) UbesvarteBehov() []string {
	var navn []string
	for behov := range k.Behov {
		if _, ok := k.Losninger[behov]; !ok {
			navn = append(navn, behov)
		}
	}
	sort.Strings(navn)
	return navn
}

// NyKontekst creates a fresh context owned by the given hendelse.
func NyKontekst(hendelseID uuid.UUID) *Kontekst {
	return &Kontekst{
		ID:         uuid.New(),
		HendelseID: hendelseID,
		Behov:      make(map[string]map[string]any),
		Losninger:  make(map[string]json.RawMessage),
		Opprettet:  time.Now(),
	}
}
