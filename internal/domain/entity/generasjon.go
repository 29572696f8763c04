package entity

import (
	"time"

	"github.com/google/uuid"
)

// GenerasjonTilstand is the lifecycle state of one adjudication attempt.
type GenerasjonTilstand string

const (
	GenerasjonUlast                    GenerasjonTilstand = "ULÅST"
	GenerasjonLast                     GenerasjonTilstand = "LÅST"
	GenerasjonAvsluttetUtenUtbetaling  GenerasjonTilstand = "AVSLUTTET_UTEN_UTBETALING"
	GenerasjonUtenUtbetalingMaVurderes GenerasjonTilstand = "UTEN_UTBETALING_MÅ_VURDERES"
)

// ErTerminal reports whether the state admits no further transitions.
func (t GenerasjonTilstand) ErTerminal() bool {
	return t == GenerasjonAvsluttetUtenUtbetaling
}

// ErApen reports whether facts may still change in this state.
func (t GenerasjonTilstand) ErApen() bool {
	return t == GenerasjonUlast || t == GenerasjonUtenUtbetalingMaVurderes
}

// Generasjon is one adjudication attempt for a vedtaksperiode. A period has
// exactly one generation in an open state at a time.
type Generasjon struct {
	ID                  uuid.UUID
	VedtaksperiodeID    uuid.UUID
	Fom                 time.Time
	Tom                 time.Time
	Skjaeringstidspunkt time.Time
	Tilstand            GenerasjonTilstand
	UtbetalingID        *uuid.UUID
	SpleisBehandlingID  *uuid.UUID
	Opprettet           time.Time
}
