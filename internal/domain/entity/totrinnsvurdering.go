package entity

import (
	"time"

	"github.com/google/uuid"
)

// Totrinnsvurdering is the two-person control attached to a task whose
// beslutter tag is set. The acting caseworker and the reviewing beslutter
// must be different identities.
type Totrinnsvurdering struct {
	OppgaveID        int64
	VedtaksperiodeID uuid.UUID
	Saksbehandler    *uuid.UUID
	Beslutter        *uuid.UUID
	ErRetur          bool
	Opprettet        time.Time
	Oppdatert        time.Time
}
