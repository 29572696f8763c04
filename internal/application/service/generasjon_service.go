package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/karl-run/spesialist/internal/application/port"
	"github.com/karl-run/spesialist/internal/domain/entity"
	"github.com/karl-run/spesialist/internal/domain/event"
	"github.com/karl-run/spesialist/internal/domain/generasjon"
	"github.com/karl-run/spesialist/internal/domain/varsel"
)

// GenerasjonService orchestrates generation lifecycle persistence: the pure
// transitions live in the domain package, this service performs them as
// conditional writes and collects the events to dispatch after commit.
type GenerasjonService struct {
	generasjonRepo port.GenerasjonRepository
	varselRepo     port.VarselRepository
	txManager      port.TransactionManager
	logger         Logger
}

// NewGenerasjonService creates the generation service.
func NewGenerasjonService(
	generasjonRepo port.GenerasjonRepository,
	varselRepo port.VarselRepository,
	txManager port.TransactionManager,
	logger Logger,
) *GenerasjonService {
	return &GenerasjonService{
		generasjonRepo: generasjonRepo,
		varselRepo:     varselRepo,
		txManager:      txManager,
		logger:         logger,
	}
}

// HandterEndret ensures the period has an open generation reflecting the
// latest window. First contact creates the first generation; a locked
// predecessor opens the next one with still-active warnings migrated
// forward; an already open generation just has its window refreshed.
func (s *GenerasjonService) HandterEndret(ctx context.Context, h entity.VedtaksperiodeEndret) ([]event.Event, error) {
	siste, err := s.generasjonRepo.HentSiste(ctx, h.VedtaksperiodeID)
	if err != nil {
		return nil, fmt.Errorf("hent siste generasjon: %w", err)
	}

	if siste == nil {
		ny := generasjon.Ny(h.VedtaksperiodeID, h.Fom, h.Tom, h.Skjaeringstidspunkt)
		if err := s.generasjonRepo.Opprett(ctx, &ny); err != nil {
			return nil, fmt.Errorf("opprett første generasjon: %w", err)
		}
		s.logger.Info("Første generasjon opprettet", "vedtaksperiode_id", h.VedtaksperiodeID)
		return nil, nil
	}

	if siste.Tilstand.ErApen() {
		if err := s.generasjonRepo.OppdaterPeriode(ctx, siste.ID, h.Fom, h.Tom, h.Skjaeringstidspunkt); err != nil {
			return nil, fmt.Errorf("oppdater periode: %w", err)
		}
		return nil, nil
	}

	if !generasjon.KanOppretteNeste(siste) {
		// Discarded history; the period is gone.
		return nil, nil
	}

	ny := generasjon.Neste(siste)
	ny.Fom, ny.Tom, ny.Skjaeringstidspunkt = h.Fom, h.Tom, h.Skjaeringstidspunkt
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.generasjonRepo.Opprett(txCtx, &ny); err != nil {
			return fmt.Errorf("opprett neste generasjon: %w", err)
		}
		// Still-active warnings migrate forward so nothing vetted is lost.
		aktive, err := s.varselRepo.HentAktiveForGenerasjon(txCtx, siste.ID)
		if err != nil {
			return fmt.Errorf("hent aktive varsler: %w", err)
		}
		for _, v := range aktive {
			kopi := varsel.Nytt(ny.ID, v.Kode)
			if err := s.varselRepo.Opprett(txCtx, &kopi); err != nil {
				return fmt.Errorf("kopier varsel %s: %w", v.Kode, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Ny generasjon opprettet",
		"vedtaksperiode_id", h.VedtaksperiodeID,
		"generasjon_id", ny.ID)
	return []event.Event{event.New(event.TypeGenerasjonEndret, h.HendelseID(), h.Fodselsnummer(), map[string]any{
		"generasjon_id":     ny.ID.String(),
		"vedtaksperiode_id": h.VedtaksperiodeID.String(),
		"tilstand":          string(ny.Tilstand),
	})}, nil
}

// HandterVedtakFattet locks the open generation. Repeats are no-ops.
func (s *GenerasjonService) HandterVedtakFattet(ctx context.Context, h entity.VedtakFattet) ([]event.Event, error) {
	aktiv, err := s.generasjonRepo.HentAktiv(ctx, h.VedtaksperiodeID)
	if err != nil {
		return nil, fmt.Errorf("hent aktiv generasjon: %w", err)
	}
	if aktiv == nil {
		// Already locked by an earlier delivery.
		return nil, nil
	}

	endret, events := generasjon.VedtakFattet(ctx, aktiv, h.HendelseID(), h.Fodselsnummer())
	if !endret {
		return nil, nil
	}
	ok, err := s.generasjonRepo.OppdaterTilstand(ctx, aktiv.ID, entity.GenerasjonUlast, entity.GenerasjonLast)
	if err != nil {
		return nil, fmt.Errorf("lås generasjon: %w", err)
	}
	if !ok {
		// Lost the race to a concurrent delivery; the outcome is the same.
		return nil, nil
	}
	return events, nil
}

// HandterNyUtbetaling attaches a payout id to the active generation.
func (s *GenerasjonService) HandterNyUtbetaling(ctx context.Context, vedtaksperiodeID, utbetalingID uuid.UUID) error {
	siste, err := s.generasjonRepo.HentSiste(ctx, vedtaksperiodeID)
	if err != nil {
		return fmt.Errorf("hent siste generasjon: %w", err)
	}
	if siste == nil {
		return ErrIngenGenerasjon
	}
	if err := generasjon.NyUtbetaling(siste, utbetalingID); err != nil {
		return err
	}
	ok, err := s.generasjonRepo.SettUtbetaling(ctx, siste.ID, utbetalingID)
	if err != nil {
		return fmt.Errorf("sett utbetaling: %w", err)
	}
	if !ok {
		return generasjon.ErrHarUtbetaling
	}
	return nil
}

// HandterForkastet discards the open generation.
func (s *GenerasjonService) HandterForkastet(ctx context.Context, h entity.VedtaksperiodeForkastet) ([]event.Event, error) {
	aktiv, err := s.generasjonRepo.HentAktiv(ctx, h.VedtaksperiodeID)
	if err != nil {
		return nil, fmt.Errorf("hent aktiv generasjon: %w", err)
	}
	if aktiv == nil {
		return nil, nil
	}

	fra := aktiv.Tilstand
	endret, events := generasjon.Forkast(ctx, aktiv, h.HendelseID(), h.Fodselsnummer())
	if !endret {
		return nil, nil
	}
	ok, err := s.generasjonRepo.OppdaterTilstand(ctx, aktiv.ID, fra, entity.GenerasjonAvsluttetUtenUtbetaling)
	if err != nil {
		return nil, fmt.Errorf("forkast generasjon: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return events, nil
}
