package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/karl-run/spesialist/internal/application/port"
	"github.com/karl-run/spesialist/internal/domain/entity"
	"github.com/karl-run/spesialist/internal/domain/event"
)

// Logger is the minimal logging dependency of the services.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// EgenskapFakta are the facts available at task creation from which feature
// tags are computed. Tags are immutable afterwards except Beslutter.
type EgenskapFakta struct {
	Utfall           entity.AutomatiseringUtfall
	HarRiskVarsel    bool
	FortroligAdresse bool
	Vergemal         bool
	Mottaker         entity.Mottaker
	Inntektskilde    entity.Inntektskilde
	Periodetype      entity.Periodetype
	ErRevurdering    bool
	Haster           bool
}

// OppgaveService owns the caseworker task lifecycle: guarded creation,
// assignment, reservation auto-assignment and resolution.
type OppgaveService struct {
	oppgaveRepo     port.OppgaveRepository
	reservasjonRepo port.ReservasjonRepository
	txManager       port.TransactionManager
	logger          Logger
	now             func() time.Time
}

// NewOppgaveService creates the task service.
func NewOppgaveService(
	oppgaveRepo port.OppgaveRepository,
	reservasjonRepo port.ReservasjonRepository,
	txManager port.TransactionManager,
	logger Logger,
) *OppgaveService {
	return &OppgaveService{
		oppgaveRepo:     oppgaveRepo,
		reservasjonRepo: reservasjonRepo,
		txManager:       txManager,
		logger:          logger,
		now:             time.Now,
	}
}

// BeregnEgenskaper computes the routing tags from the facts at hand.
func BeregnEgenskaper(fakta EgenskapFakta) []entity.Egenskap {
	var egenskaper []entity.Egenskap

	if fakta.Utfall == entity.UtfallStikkprove {
		egenskaper = append(egenskaper, entity.EgenskapStikkprove)
	}
	if fakta.HarRiskVarsel {
		egenskaper = append(egenskaper, entity.EgenskapRiskQA)
	}
	if fakta.FortroligAdresse {
		egenskaper = append(egenskaper, entity.EgenskapFortroligAdresse)
	}
	if fakta.Vergemal {
		egenskaper = append(egenskaper, entity.EgenskapVergemal)
	}
	switch fakta.Mottaker {
	case entity.MottakerSykmeldt:
		egenskaper = append(egenskaper, entity.EgenskapUtbetalingTilSykmeldt)
	case entity.MottakerArbeidsgiver:
		egenskaper = append(egenskaper, entity.EgenskapUtbetalingTilArbeidsgiver)
	case entity.MottakerBegge:
		egenskaper = append(egenskaper, entity.EgenskapDelvisRefusjon)
	}
	if fakta.Inntektskilde == entity.FlereArbeidsgivere {
		egenskaper = append(egenskaper, entity.EgenskapFlereArbeidsgivere)
	}
	if fakta.ErRevurdering {
		egenskaper = append(egenskaper, entity.EgenskapRevurdering)
	} else {
		egenskaper = append(egenskaper, entity.EgenskapSoknad)
	}
	switch fakta.Periodetype {
	case entity.Forstegangsbehandling:
		egenskaper = append(egenskaper, entity.EgenskapForstegangsbehandling)
	case entity.Forlengelse:
		egenskaper = append(egenskaper, entity.EgenskapForlengelse)
	}
	if fakta.Haster {
		egenskaper = append(egenskaper, entity.EgenskapHaster)
	}

	return egenskaper
}

// Opprett creates a task for a payout attempt. Creation is idempotent on the
// payout id: if a non-terminal task already exists, it is returned unchanged
// and no events are emitted. A valid standing reservation on the subject
// auto-assigns the task unless a clearance-restricted tag blocks it.
func (s *OppgaveService) Opprett(
	ctx context.Context,
	hendelse entity.Hendelse,
	vedtaksperiodeID, utbetalingID uuid.UUID,
	egenskaper []entity.Egenskap,
	hentSaksbehandler func(ctx context.Context, oid uuid.UUID) (*entity.Saksbehandler, entity.Tilganger, error),
) (*entity.Oppgave, []event.Event, error) {
	eksisterende, err := s.oppgaveRepo.HentAktivForUtbetaling(ctx, utbetalingID)
	if err != nil {
		return nil, nil, fmt.Errorf("hent aktiv oppgave: %w", err)
	}
	if eksisterende != nil {
		s.logger.Info("Oppgave finnes allerede for utbetaling",
			"oppgave_id", eksisterende.ID,
			"utbetaling_id", utbetalingID)
		return eksisterende, nil, nil
	}

	oppgave := &entity.Oppgave{
		VedtaksperiodeID: vedtaksperiodeID,
		UtbetalingID:     utbetalingID,
		HendelseID:       hendelse.HendelseID(),
		Fodselsnummer:    hendelse.Fodselsnummer(),
		Status:           entity.OppgaveAvventerSaksbehandler,
		Egenskaper:       egenskaper,
		Opprettet:        s.now(),
		Oppdatert:        s.now(),
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.oppgaveRepo.Opprett(txCtx, oppgave); err != nil {
			return fmt.Errorf("opprett oppgave: %w", err)
		}
		return s.oppgaveRepo.LagreHistorikk(txCtx, oppgave.ID, "", oppgave.Status, "system")
	})
	if err != nil {
		return nil, nil, err
	}

	events := []event.Event{event.New(event.TypeOppgaveOpprettet, hendelse.HendelseID(), hendelse.Fodselsnummer(), map[string]any{
		"oppgave_id":        oppgave.ID,
		"vedtaksperiode_id": vedtaksperiodeID.String(),
	})}

	if tildelt, err := s.tildelFraReservasjon(ctx, oppgave, hentSaksbehandler); err != nil {
		s.logger.Error("Tildeling fra reservasjon feilet", "error", err, "oppgave_id", oppgave.ID)
	} else if tildelt {
		events = append(events, event.New(event.TypeOppgaveOppdatert, hendelse.HendelseID(), hendelse.Fodselsnummer(), map[string]any{
			"oppgave_id": oppgave.ID,
			"tildelt":    oppgave.Tildelt.OID.String(),
		}))
	}

	s.logger.Info("Oppgave opprettet",
		"oppgave_id", oppgave.ID,
		"utbetaling_id", utbetalingID,
		"egenskaper", len(egenskaper))
	return oppgave, events, nil
}

// tildelFraReservasjon applies a standing reservation unless a
// clearance-restricted tag the caseworker lacks blocks it.
func (s *OppgaveService) tildelFraReservasjon(
	ctx context.Context,
	oppgave *entity.Oppgave,
	hentSaksbehandler func(ctx context.Context, oid uuid.UUID) (*entity.Saksbehandler, entity.Tilganger, error),
) (bool, error) {
	reservasjon, err := s.reservasjonRepo.Hent(ctx, oppgave.Fodselsnummer)
	if err != nil {
		return false, fmt.Errorf("hent reservasjon: %w", err)
	}
	if reservasjon == nil || !reservasjon.Gyldig(s.now()) {
		return false, nil
	}

	saksbehandler, tilganger, err := hentSaksbehandler(ctx, reservasjon.SaksbehandlerOID)
	if err != nil {
		return false, fmt.Errorf("hent saksbehandler: %w", err)
	}
	for _, e := range oppgave.Egenskaper {
		if e.KreverKlarering() && !tilganger.Har(e) {
			s.logger.Info("Reservasjon ignorert, saksbehandler mangler tilgang",
				"oppgave_id", oppgave.ID,
				"egenskap", string(e))
			return false, nil
		}
	}

	return s.tildel(ctx, oppgave, *saksbehandler)
}

// Hent returns the task with the given id, or nil.
func (s *OppgaveService) Hent(ctx context.Context, oppgaveID int64) (*entity.Oppgave, error) {
	return s.oppgaveRepo.Hent(ctx, oppgaveID)
}

// List returns tasks ordered by creation time, newest first.
func (s *OppgaveService) List(ctx context.Context, limit, offset int) ([]*entity.Oppgave, error) {
	return s.oppgaveRepo.List(ctx, limit, offset)
}

// HentAktivForUtbetaling returns the open task for a payout, if any.
func (s *OppgaveService) HentAktivForUtbetaling(ctx context.Context, utbetalingID uuid.UUID) (*entity.Oppgave, error) {
	return s.oppgaveRepo.HentAktivForUtbetaling(ctx, utbetalingID)
}

// Tildel assigns a task to a caseworker. The write is conditional: it
// succeeds only when the task is unassigned or already assigned to the same
// caseworker.
func (s *OppgaveService) Tildel(ctx context.Context, oppgaveID int64, saksbehandler entity.Saksbehandler) (*entity.Oppgave, error) {
	oppgave, err := s.oppgaveRepo.Hent(ctx, oppgaveID)
	if err != nil {
		return nil, fmt.Errorf("hent oppgave: %w", err)
	}
	if oppgave == nil || !oppgave.Status.ErAktiv() {
		return nil, ErrOppgaveIkkeAktiv
	}

	if _, err := s.tildel(ctx, oppgave, saksbehandler); err != nil {
		return nil, err
	}
	return oppgave, nil
}

func (s *OppgaveService) tildel(ctx context.Context, oppgave *entity.Oppgave, saksbehandler entity.Saksbehandler) (bool, error) {
	ok, err := s.oppgaveRepo.Tildel(ctx, oppgave.ID, saksbehandler)
	if err != nil {
		return false, fmt.Errorf("tildel oppgave: %w", err)
	}
	if !ok {
		return false, ErrAlleredeTildelt
	}
	oppgave.Tildelt = &saksbehandler
	s.logger.Info("Oppgave tildelt", "oppgave_id", oppgave.ID, "saksbehandler", saksbehandler.Ident)
	return true, nil
}

// AvventSystem parks the task while a bus round-trip completes.
func (s *OppgaveService) AvventSystem(ctx context.Context, oppgaveID int64, av string) error {
	return s.oppdaterStatus(ctx, oppgaveID,
		[]entity.OppgaveStatus{entity.OppgaveAvventerSaksbehandler},
		entity.OppgaveAvventerSystem, av)
}

// Ferdigstill resolves the task.
func (s *OppgaveService) Ferdigstill(ctx context.Context, oppgaveID int64, av string) error {
	return s.oppdaterStatus(ctx, oppgaveID,
		[]entity.OppgaveStatus{entity.OppgaveAvventerSaksbehandler, entity.OppgaveAvventerSystem},
		entity.OppgaveFerdigstilt, av)
}

// Invalider cancels a superseded task. Invalidating an already terminal task
// is a no-op so replays are absorbed.
func (s *OppgaveService) Invalider(ctx context.Context, oppgaveID int64) error {
	err := s.oppdaterStatus(ctx, oppgaveID,
		[]entity.OppgaveStatus{entity.OppgaveAvventerSaksbehandler, entity.OppgaveAvventerSystem},
		entity.OppgaveInvalidert, "system")
	if err == ErrOppgaveIkkeAktiv {
		return nil
	}
	return err
}

// GjenapneTilSaksbehandler re-opens a task sent back from review.
func (s *OppgaveService) GjenapneTilSaksbehandler(ctx context.Context, oppgaveID int64, av string) error {
	return s.oppdaterStatus(ctx, oppgaveID,
		[]entity.OppgaveStatus{entity.OppgaveAvventerSystem},
		entity.OppgaveAvventerSaksbehandler, av)
}

func (s *OppgaveService) oppdaterStatus(ctx context.Context, oppgaveID int64, fra []entity.OppgaveStatus, til entity.OppgaveStatus, av string) error {
	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		oppgave, err := s.oppgaveRepo.Hent(txCtx, oppgaveID)
		if err != nil {
			return fmt.Errorf("hent oppgave: %w", err)
		}
		if oppgave == nil {
			return ErrOppgaveIkkeAktiv
		}
		ok, err := s.oppgaveRepo.OppdaterStatus(txCtx, oppgaveID, fra, til)
		if err != nil {
			return fmt.Errorf("oppdater oppgavestatus: %w", err)
		}
		if !ok {
			return ErrOppgaveIkkeAktiv
		}
		if err := s.oppgaveRepo.LagreHistorikk(txCtx, oppgaveID, oppgave.Status, til, av); err != nil {
			return fmt.Errorf("lagre oppgavehistorikk: %w", err)
		}
		return nil
	})
}

// Reserver creates a standing reservation of the subject to a caseworker.
func (s *OppgaveService) Reserver(ctx context.Context, fodselsnummer string, saksbehandlerOID uuid.UUID, varighet time.Duration) error {
	return s.reservasjonRepo.Opprett(ctx, &entity.Reservasjon{
		Fodselsnummer:    fodselsnummer,
		SaksbehandlerOID: saksbehandlerOID,
		GyldigTil:        s.now().Add(varighet),
	})
}
