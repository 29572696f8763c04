package automatisering

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/karl-run/spesialist/internal/application/port"
	"github.com/karl-run/spesialist/internal/domain/entity"
)

// Logger is the minimal logging dependency of the service.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Service runs the decision chain and persists the verdict append-only.
type Service struct {
	repo        port.AutomatiseringRepository
	stikkprover Stikkprover
	logger      Logger
	now         func() time.Time
}

// NewService creates the automation service.
func NewService(repo port.AutomatiseringRepository, stikkprover Stikkprover, logger Logger) *Service {
	return &Service{repo: repo, stikkprover: stikkprover, logger: logger, now: time.Now}
}

// Vurder evaluates the facts and records the verdict. Re-running the same
// hendelse against the same payout reproduces the stored verdict instead of
// duplicating or re-sampling it.
func (s *Service) Vurder(ctx context.Context, fakta Fakta, vedtaksperiodeID, hendelseID, utbetalingID uuid.UUID) (*entity.AutomatiseringResultat, error) {
	eksisterende, err := s.repo.Hent(ctx, vedtaksperiodeID, hendelseID, utbetalingID)
	if err != nil {
		return nil, fmt.Errorf("hent automatiseringresultat: %w", err)
	}
	if eksisterende != nil {
		s.logger.Info("Automatisering allerede vurdert",
			"vedtaksperiode_id", vedtaksperiodeID,
			"utfall", string(eksisterende.Utfall))
		return eksisterende, nil
	}

	begrunnelser := Vurder(fakta, s.now())
	utfall := entity.UtfallAutomatisert
	switch {
	case len(begrunnelser) > 0:
		utfall = entity.UtfallManuell
	case s.stikkprover.SkalStikkproves(fakta):
		utfall = entity.UtfallStikkprove
		begrunnelser = []string{"tilfeldig utvalgt til stikkprøve"}
	}

	resultat := &entity.AutomatiseringResultat{
		VedtaksperiodeID: vedtaksperiodeID,
		HendelseID:       hendelseID,
		UtbetalingID:     utbetalingID,
		Utfall:           utfall,
		Begrunnelser:     begrunnelser,
		Vurdert:          s.now(),
	}
	if err := s.repo.Lagre(ctx, resultat); err != nil {
		return nil, fmt.Errorf("lagre automatiseringresultat: %w", err)
	}

	s.logger.Info("Automatisering vurdert",
		"vedtaksperiode_id", vedtaksperiodeID,
		"utfall", string(utfall),
		"antall_begrunnelser", len(begrunnelser))
	return resultat, nil
}
