package entity

import (
	"time"

	"github.com/google/uuid"
)

// OppgaveStatus is the lifecycle state of a caseworker task.
type OppgaveStatus string

const (
	OppgaveAvventerSaksbehandler OppgaveStatus = "AVVENTER_SAKSBEHANDLER"
	OppgaveAvventerSystem        OppgaveStatus = "AVVENTER_SYSTEM"
	OppgaveFerdigstilt           OppgaveStatus = "FERDIGSTILT"
	OppgaveInvalidert            OppgaveStatus = "INVALIDERT"
)

// ErAktiv reports whether the task still awaits resolution.
func (s OppgaveStatus) ErAktiv() bool {
	return s == OppgaveAvventerSaksbehandler || s == OppgaveAvventerSystem
}

// Egenskap is a feature tag used for task routing. Tags are computed once at
// creation from the facts available at that instant and are immutable
// thereafter, except EgenskapBeslutter which the two-step-review flow may add.
type Egenskap string

const (
	EgenskapRiskQA                    Egenskap = "RISK_QA"
	EgenskapStikkprove                Egenskap = "STIKKPRØVE"
	EgenskapBeslutter                 Egenskap = "BESLUTTER"
	EgenskapRetur                     Egenskap = "RETUR"
	EgenskapHaster                    Egenskap = "HASTER"
	EgenskapFortroligAdresse          Egenskap = "FORTROLIG_ADRESSE"
	EgenskapVergemal                  Egenskap = "VERGEMÅL"
	EgenskapFlereArbeidsgivere        Egenskap = "FLERE_ARBEIDSGIVERE"
	EgenskapSoknad                    Egenskap = "SØKNAD"
	EgenskapRevurdering               Egenskap = "REVURDERING"
	EgenskapForstegangsbehandling     Egenskap = "FORSTEGANGSBEHANDLING"
	EgenskapForlengelse               Egenskap = "FORLENGELSE"
	EgenskapUtbetalingTilSykmeldt     Egenskap = "UTBETALING_TIL_SYKMELDT"
	EgenskapUtbetalingTilArbeidsgiver Egenskap = "UTBETALING_TIL_ARBEIDSGIVER"
	EgenskapDelvisRefusjon            Egenskap = "DELVIS_REFUSJON"
)

// klareringskrevende tags require special clearance before a standing
// reservation may auto-assign the task.
var klareringskrevende = map[Egenskap]bool{
	EgenskapRiskQA:           true,
	EgenskapFortroligAdresse: true,
}

// KreverKlarering reports whether the tag blocks reservation auto-assignment
// for caseworkers without the matching clearance.
func (e Egenskap) KreverKlarering() bool {
	return klareringskrevende[e]
}

// Saksbehandler identifies a caseworker.
type Saksbehandler struct {
	OID   uuid.UUID
	Navn  string
	Epost string
	Ident string
}

// Tilganger is the clearance set a caseworker holds.
type Tilganger struct {
	Risk             bool
	FortroligAdresse bool
	Beslutter        bool
}

// Har reports whether the clearance set covers the given tag.
func (t Tilganger) Har(e Egenskap) bool {
	switch e {
	case EgenskapRiskQA:
		return t.Risk
	case EgenskapFortroligAdresse:
		return t.FortroligAdresse
	default:
		return true
	}
}

// Oppgave is a caseworker task, created at most once per payout attempt.
type Oppgave struct {
	ID               int64
	VedtaksperiodeID uuid.UUID
	UtbetalingID     uuid.UUID
	HendelseID       uuid.UUID
	Fodselsnummer    string
	Status           OppgaveStatus
	Egenskaper       []Egenskap
	Tildelt          *Saksbehandler
	PaVent           bool
	Opprettet        time.Time
	Oppdatert        time.Time
}

// HarEgenskap reports whether the task carries the given tag.
func (o *Oppgave) HarEgenskap(e Egenskap) bool {
	for _, eg := range o.Egenskaper {
		if eg == e {
			return true
		}
	}
	return false
}

// Reservasjon is a standing reservation of a subject to a caseworker; new
// tasks for the subject are auto-assigned to the same caseworker.
type Reservasjon struct {
	Fodselsnummer    string
	SaksbehandlerOID uuid.UUID
	GyldigTil        time.Time
}

// Gyldig reports whether the reservation is still in effect at t.
func (r Reservasjon) Gyldig(t time.Time) bool {
	return t.Before(r.GyldigTil)
}
