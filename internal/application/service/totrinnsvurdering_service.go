package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/karl-run/spesialist/internal/application/port"
	"github.com/karl-run/spesialist/internal/domain/entity"
)

// TotrinnsvurderingService implements the two-person control: the acting
// caseworker hands the task to a beslutter, who must be a different
// identity; a return re-opens the task to the original caseworker.
type TotrinnsvurderingService struct {
	totrinnsRepo      port.TotrinnsvurderingRepository
	oppgaveRepo       port.OppgaveRepository
	saksbehandlerRepo port.SaksbehandlerRepository
	oppgaver          *OppgaveService
	txManager         port.TransactionManager
	logger            Logger
}

// NewTotrinnsvurderingService creates the two-step-review service.
func NewTotrinnsvurderingService(
	totrinnsRepo port.TotrinnsvurderingRepository,
	oppgaveRepo port.OppgaveRepository,
	saksbehandlerRepo port.SaksbehandlerRepository,
	oppgaver *OppgaveService,
	txManager port.TransactionManager,
	logger Logger,
) *TotrinnsvurderingService {
	return &TotrinnsvurderingService{
		totrinnsRepo:      totrinnsRepo,
		oppgaveRepo:       oppgaveRepo,
		saksbehandlerRepo: saksbehandlerRepo,
		oppgaver:          oppgaver,
		txManager:         txManager,
		logger:            logger,
	}
}

// SendTilBeslutter records the acting caseworker, adds the beslutter tag to
// the task and parks it while the second reviewer has it.
func (s *TotrinnsvurderingService) SendTilBeslutter(ctx context.Context, oppgaveID int64, saksbehandlerOID uuid.UUID) error {
	oppgave, err := s.oppgaveRepo.Hent(ctx, oppgaveID)
	if err != nil {
		return fmt.Errorf("hent oppgave: %w", err)
	}
	if oppgave == nil || !oppgave.Status.ErAktiv() {
		return ErrOppgaveIkkeAktiv
	}

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		vurdering, err := s.totrinnsRepo.OpprettEllerHent(txCtx, oppgaveID, oppgave.VedtaksperiodeID)
		if err != nil {
			return fmt.Errorf("opprett totrinnsvurdering: %w", err)
		}
		vurdering.Saksbehandler = &saksbehandlerOID
		if err := s.totrinnsRepo.Oppdater(txCtx, vurdering); err != nil {
			return fmt.Errorf("oppdater totrinnsvurdering: %w", err)
		}
		if !oppgave.HarEgenskap(entity.EgenskapBeslutter) {
			if err := s.oppgaveRepo.LeggTilEgenskap(txCtx, oppgaveID, entity.EgenskapBeslutter); err != nil {
				return fmt.Errorf("legg til beslutter-egenskap: %w", err)
			}
		}
		if err := s.oppgaveRepo.AvmeldTildeling(txCtx, oppgaveID); err != nil {
			return fmt.Errorf("avmeld tildeling: %w", err)
		}
		if oppgave.Status == entity.OppgaveAvventerSaksbehandler {
			if err := s.oppgaver.AvventSystem(txCtx, oppgaveID, saksbehandlerOID.String()); err != nil {
				return err
			}
		}
		s.logger.Info("Oppgave sendt til beslutter", "oppgave_id", oppgaveID)
		return nil
	})
}

// Attester records the beslutter's approval. The acting caseworker and the
// beslutter must be different identities. The task stays parked; it resolves
// when the beslutter's decision arrives on the bus.
func (s *TotrinnsvurderingService) Attester(ctx context.Context, oppgaveID int64, beslutterOID uuid.UUID) error {
	vurdering, err := s.totrinnsRepo.Hent(ctx, oppgaveID)
	if err != nil {
		return fmt.Errorf("hent totrinnsvurdering: %w", err)
	}
	if vurdering == nil {
		return fmt.Errorf("ingen totrinnsvurdering for oppgave %d", oppgaveID)
	}
	if vurdering.Saksbehandler != nil && *vurdering.Saksbehandler == beslutterOID {
		return ErrKreverToBesluttere
	}

	vurdering.Beslutter = &beslutterOID
	if err := s.totrinnsRepo.Oppdater(ctx, vurdering); err != nil {
		return fmt.Errorf("oppdater totrinnsvurdering: %w", err)
	}
	s.logger.Info("Totrinnsvurdering attestert", "oppgave_id", oppgaveID)
	return nil
}

// Retur sends the task back for correction: it is re-opened and assigned to
// the original caseworker, and the review is flagged as a return so the
// corrected re-approval needs only a single step.
func (s *TotrinnsvurderingService) Retur(ctx context.Context, oppgaveID int64, beslutterOID uuid.UUID) error {
	vurdering, err := s.totrinnsRepo.Hent(ctx, oppgaveID)
	if err != nil {
		return fmt.Errorf("hent totrinnsvurdering: %w", err)
	}
	if vurdering == nil {
		return fmt.Errorf("ingen totrinnsvurdering for oppgave %d", oppgaveID)
	}
	if vurdering.Saksbehandler != nil && *vurdering.Saksbehandler == beslutterOID {
		return ErrKreverToBesluttere
	}
	if vurdering.ErRetur {
		// Replayed return; the task is already back with the caseworker.
		return nil
	}

	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		vurdering.Beslutter = &beslutterOID
		vurdering.ErRetur = true
		if err := s.totrinnsRepo.Oppdater(txCtx, vurdering); err != nil {
			return fmt.Errorf("oppdater totrinnsvurdering: %w", err)
		}
		if err := s.oppgaveRepo.LeggTilEgenskap(txCtx, oppgaveID, entity.EgenskapRetur); err != nil {
			return fmt.Errorf("legg til retur-egenskap: %w", err)
		}
		if err := s.oppgaver.GjenapneTilSaksbehandler(txCtx, oppgaveID, beslutterOID.String()); err != nil {
			return err
		}
		if vurdering.Saksbehandler != nil {
			saksbehandler, _, err := s.saksbehandlerRepo.Hent(txCtx, *vurdering.Saksbehandler)
			if err != nil {
				return fmt.Errorf("hent saksbehandler: %w", err)
			}
			if saksbehandler != nil {
				if _, err := s.oppgaveRepo.Tildel(txCtx, oppgaveID, *saksbehandler); err != nil {
					return fmt.Errorf("tildel oppgave: %w", err)
				}
			}
		}
		s.logger.Info("Oppgave returnert til saksbehandler", "oppgave_id", oppgaveID)
		return nil
	})
}
