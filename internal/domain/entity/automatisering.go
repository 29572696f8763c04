package entity

import (
	"time"

	"github.com/google/uuid"
)

// AutomatiseringUtfall is the verdict of the automation decision chain.
type AutomatiseringUtfall string

const (
	UtfallAutomatisert AutomatiseringUtfall = "AUTOMATISERT"
	UtfallManuell      AutomatiseringUtfall = "MANUELL"
	UtfallStikkprove   AutomatiseringUtfall = "STIKKPRØVE"
)

// AutomatiseringResultat is an append-only audit record of one automation
// verdict. Keyed by (vedtaksperiode, hendelse, utbetaling) so that replaying
// the same event reproduces rather than duplicates the row.
type AutomatiseringResultat struct {
	VedtaksperiodeID uuid.UUID
	HendelseID       uuid.UUID
	UtbetalingID     uuid.UUID
	Utfall           AutomatiseringUtfall
	Begrunnelser     []string
	Vurdert          time.Time
}
