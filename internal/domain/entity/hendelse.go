package entity

import (
	"time"

	"github.com/google/uuid"
)

// Hendelse is an inbound domain event from the message bus. Implementations
// form a closed set; the mediator's command factory switches exhaustively
// over them. A hendelse is immutable after creation and carries its raw
// payload for replay and audit.
type Hendelse interface {
	HendelseID() uuid.UUID
	Fodselsnummer() string
	Navn() string
	Melding() []byte
}

// HendelseBase carries the fields every inbound event shares.
type HendelseBase struct {
	ID  uuid.UUID
	Fnr string
	Raw []byte
}

func (h HendelseBase) HendelseID() uuid.UUID { return h.ID }
func (h HendelseBase) Fodselsnummer() string { return h.Fnr }
func (h HendelseBase) Melding() []byte       { return h.Raw }

// Godkjenningsbehov asks for approval of a payout. It triggers the
// automation chain and, when automation declines, task creation.
type Godkjenningsbehov struct {
	HendelseBase
	VedtaksperiodeID    uuid.UUID
	UtbetalingID        uuid.UUID
	SpleisBehandlingID  uuid.UUID
	Periodetype         Periodetype
	Inntektskilde       Inntektskilde
	Utbetalingtype      string
	Mottaker            Mottaker
	Skjaeringstidspunkt time.Time
	PeriodeFom          time.Time
	PeriodeTom          time.Time
	ForsteSoknadMottatt time.Time
	AntallKorrigeringer int
}

func (Godkjenningsbehov) Navn() string { return "godkjenningsbehov" }

// Saksbehandlerlosning is the human decision on an open task.
type Saksbehandlerlosning struct {
	HendelseBase
	OppgaveID           int64
	GodkjenningsbehovID uuid.UUID
	Godkjent            bool
	SaksbehandlerOID    uuid.UUID
	Ident               string
	Epost               string
	Arsak               string
	Kommentar           string
}

func (Saksbehandlerlosning) Navn() string { return "saksbehandler_løsning" }

// Losninger carries answers to previously published behov and resumes the
// suspended command context they belong to.
type Losninger struct {
	HendelseBase
	KontekstID uuid.UUID
	BehovID    uuid.UUID
	Besvarte   map[string][]byte
}

func (Losninger) Navn() string { return "behov_løsning" }

// VedtaksperiodeEndret signals that a period was (re)computed upstream.
type VedtaksperiodeEndret struct {
	HendelseBase
	VedtaksperiodeID    uuid.UUID
	Fom                 time.Time
	Tom                 time.Time
	Skjaeringstidspunkt time.Time
}

func (VedtaksperiodeEndret) Navn() string { return "vedtaksperiode_endret" }

// VedtaksperiodeForkastet signals that a period was discarded upstream.
type VedtaksperiodeForkastet struct {
	HendelseBase
	VedtaksperiodeID uuid.UUID
}

func (VedtaksperiodeForkastet) Navn() string { return "vedtaksperiode_forkastet" }

// AktivitetsloggNyAktivitet carries new warnings raised against a period.
type AktivitetsloggNyAktivitet struct {
	HendelseBase
	VedtaksperiodeID uuid.UUID
	Varselkoder      []string
}

func (AktivitetsloggNyAktivitet) Navn() string { return "aktivitetslogg_ny_aktivitet" }

// UtbetalingEndret signals a payout lifecycle change.
type UtbetalingEndret struct {
	HendelseBase
	VedtaksperiodeID uuid.UUID
	UtbetalingID     uuid.UUID
	Status           string
}

func (UtbetalingEndret) Navn() string { return "utbetaling_endret" }

// UtbetalingAnnullert signals that a payout was annulled.
type UtbetalingAnnullert struct {
	HendelseBase
	UtbetalingID uuid.UUID
}

func (UtbetalingAnnullert) Navn() string { return "utbetaling_annullert" }

// VedtakFattet records that a decision was made for a period.
type VedtakFattet struct {
	HendelseBase
	VedtaksperiodeID   uuid.UUID
	SpleisBehandlingID uuid.UUID
}

func (VedtakFattet) Navn() string { return "vedtak_fattet" }

// OverstyringIgangsatt signals that a caseworker started a manual override
// of a fact; the period will be re-adjudicated.
type OverstyringIgangsatt struct {
	HendelseBase
	VedtaksperiodeID uuid.UUID
	SaksbehandlerOID uuid.UUID
	Arsak            string
}

func (OverstyringIgangsatt) Navn() string { return "overstyring_igangsatt" }
