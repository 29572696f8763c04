package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/karl-run/spesialist/internal/application/port"
	"github.com/karl-run/spesialist/internal/infrastructure/persistence/sqlite"
)

// OverstyringRepository implements port.OverstyringRepository.
type OverstyringRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOverstyringRepository creates a new overstyring repository
func NewOverstyringRepository(db *sql.DB, logger *zap.Logger) port.OverstyringRepository {
	return &OverstyringRepository{db: db, logger: logger}
}

func (r *OverstyringRepository) Opprett(ctx context.Context, vedtaksperiodeID, saksbehandlerOID uuid.UUID, arsak string) error {
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO overstyring (vedtaksperiode_id, saksbehandler_oid, arsak, ferdigstilt, opprettet)
		 VALUES (?, ?, ?, 0, ?)`,
		vedtaksperiodeID.String(), saksbehandlerOID.String(), arsak, time.Now())
	if err != nil {
		r.logger.Error("Kunne ikke opprette overstyring", zap.Error(err))
		return fmt.Errorf("opprett overstyring: %w", err)
	}
	return nil
}

func (r *OverstyringRepository) HarVentende(ctx context.Context, vedtaksperiodeID uuid.UUID) (bool, error) {
	var antall int
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(1) FROM overstyring WHERE vedtaksperiode_id = ? AND ferdigstilt = 0`,
		vedtaksperiodeID.String()).Scan(&antall)
	if err != nil {
		return false, fmt.Errorf("sjekk ventende overstyring: %w", err)
	}
	return antall > 0, nil
}

func (r *OverstyringRepository) Ferdigstill(ctx context.Context, vedtaksperiodeID uuid.UUID) error {
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`UPDATE overstyring SET ferdigstilt = 1 WHERE vedtaksperiode_id = ? AND ferdigstilt = 0`,
		vedtaksperiodeID.String())
	if err != nil {
		return fmt.Errorf("ferdigstill overstyring: %w", err)
	}
	return nil
}

var _ port.OverstyringRepository = (*OverstyringRepository)(nil)
