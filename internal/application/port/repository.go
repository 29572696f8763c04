package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/karl-run/spesialist/internal/domain/entity"
)

// HendelseRepository persists inbound events with their raw payload for
// replay and audit. Events are immutable after insertion.
type HendelseRepository interface {
	Lagre(ctx context.Context, id uuid.UUID, navn, fodselsnummer string, melding []byte) error
	Hent(ctx context.Context, id uuid.UUID) (navn string, fodselsnummer string, melding []byte, err error)
}

// KontekstRepository persists execution contexts. Contexts are never
// physically deleted; terminal contexts are retained for audit and timing.
type KontekstRepository interface {
	Lagre(ctx context.Context, kontekst *entity.Kontekst) error
	Hent(ctx context.Context, id uuid.UUID) (*entity.Kontekst, error)
	HentApenForHendelse(ctx context.Context, hendelseID uuid.UUID) (*entity.Kontekst, error)
	LagreLosning(ctx context.Context, kontekstID uuid.UUID, behov string, losning []byte) error
	MarkerFerdig(ctx context.Context, id uuid.UUID) error
	FinnStuck(ctx context.Context, eldreEnn time.Time, limit int) ([]*entity.Kontekst, error)
	TellStuck(ctx context.Context, eldreEnn time.Time) (int, error)
}

// GenerasjonRepository persists adjudication attempts. State changes are
// conditional updates keyed on the expected current state so replayed and
// re-ordered deliveries are absorbed.
type GenerasjonRepository interface {
	Opprett(ctx context.Context, generasjon *entity.Generasjon) error
	HentAktiv(ctx context.Context, vedtaksperiodeID uuid.UUID) (*entity.Generasjon, error)
	HentSiste(ctx context.Context, vedtaksperiodeID uuid.UUID) (*entity.Generasjon, error)
	OppdaterTilstand(ctx context.Context, id uuid.UUID, fra, til entity.GenerasjonTilstand) (bool, error)
	SettUtbetaling(ctx context.Context, id uuid.UUID, utbetalingID uuid.UUID) (bool, error)
	OppdaterPeriode(ctx context.Context, id uuid.UUID, fom, tom, skjaeringstidspunkt time.Time) error
}

// VarselRepository persists warnings attached to generations.
type VarselRepository interface {
	Opprett(ctx context.Context, varsel *entity.Varsel) error
	HentForGenerasjon(ctx context.Context, generasjonID uuid.UUID) ([]*entity.Varsel, error)
	HentAktiveForGenerasjon(ctx context.Context, generasjonID uuid.UUID) ([]*entity.Varsel, error)
	FinnesForGenerasjon(ctx context.Context, generasjonID uuid.UUID, kode string) (bool, error)
	OppdaterStatus(ctx context.Context, id uuid.UUID, fra []entity.VarselStatus, til entity.VarselStatus, av string) (bool, error)
}

// OppgaveRepository persists caseworker tasks. Creation is guarded so that
// at most one non-terminal task exists per payout id; assignment is a
// conditional update, never a blind write.
type OppgaveRepository interface {
	Opprett(ctx context.Context, oppgave *entity.Oppgave) error
	Hent(ctx context.Context, id int64) (*entity.Oppgave, error)
	HentAktivForUtbetaling(ctx context.Context, utbetalingID uuid.UUID) (*entity.Oppgave, error)
	HentAktivForVedtaksperiode(ctx context.Context, vedtaksperiodeID uuid.UUID) (*entity.Oppgave, error)
	OppdaterStatus(ctx context.Context, id int64, fra []entity.OppgaveStatus, til entity.OppgaveStatus) (bool, error)
	Tildel(ctx context.Context, id int64, saksbehandler entity.Saksbehandler) (bool, error)
	AvmeldTildeling(ctx context.Context, id int64) error
	LeggTilEgenskap(ctx context.Context, id int64, egenskap entity.Egenskap) error
	List(ctx context.Context, limit, offset int) ([]*entity.Oppgave, error)
	LagreHistorikk(ctx context.Context, id int64, fra, til entity.OppgaveStatus, av string) error
}

// ReservasjonRepository persists standing reservations of subjects to
// caseworkers.
type ReservasjonRepository interface {
	Hent(ctx context.Context, fodselsnummer string) (*entity.Reservasjon, error)
	Opprett(ctx context.Context, reservasjon *entity.Reservasjon) error
}

// TotrinnsvurderingRepository persists two-step reviews.
type TotrinnsvurderingRepository interface {
	OpprettEllerHent(ctx context.Context, oppgaveID int64, vedtaksperiodeID uuid.UUID) (*entity.Totrinnsvurdering, error)
	Hent(ctx context.Context, oppgaveID int64) (*entity.Totrinnsvurdering, error)
	Oppdater(ctx context.Context, vurdering *entity.Totrinnsvurdering) error
}

// AutomatiseringRepository persists automation verdicts append-only.
type AutomatiseringRepository interface {
	Lagre(ctx context.Context, resultat *entity.AutomatiseringResultat) error
	Hent(ctx context.Context, vedtaksperiodeID, hendelseID, utbetalingID uuid.UUID) (*entity.AutomatiseringResultat, error)
}

// PersonRepository answers whether a subject is known to this system.
// Events for unknown subjects are benign no-ops.
type PersonRepository interface {
	Finnes(ctx context.Context, fodselsnummer string) (bool, error)
	Opprett(ctx context.Context, fodselsnummer string) error
}

// OverstyringRepository records that a caseworker override is pending for a
// period; pending overrides force manual adjudication.
type OverstyringRepository interface {
	Opprett(ctx context.Context, vedtaksperiodeID, saksbehandlerOID uuid.UUID, arsak string) error
	HarVentende(ctx context.Context, vedtaksperiodeID uuid.UUID) (bool, error)
	Ferdigstill(ctx context.Context, vedtaksperiodeID uuid.UUID) error
}

// SaksbehandlerRepository persists known caseworkers and their clearances.
// Caseworkers are upserted from the identities seen on inbound decisions.
type SaksbehandlerRepository interface {
	Hent(ctx context.Context, oid uuid.UUID) (*entity.Saksbehandler, entity.Tilganger, error)
	Lagre(ctx context.Context, saksbehandler entity.Saksbehandler) error
}

// TransactionManager handles database transactions.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
