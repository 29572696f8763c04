package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/karl-run/spesialist/internal/application/port"
	"github.com/karl-run/spesialist/internal/domain/entity"
	"github.com/karl-run/spesialist/internal/infrastructure/persistence/sqlite"
)

// SaksbehandlerRepository implements port.SaksbehandlerRepository. Rows are
// upserted from the identities seen on inbound decisions; clearances are
// administered out of band and default to none.
type SaksbehandlerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSaksbehandlerRepository creates a new saksbehandler repository
func NewSaksbehandlerRepository(db *sql.DB, logger *zap.Logger) port.SaksbehandlerRepository {
	return &SaksbehandlerRepository{db: db, logger: logger}
}

func (r *SaksbehandlerRepository) Hent(ctx context.Context, oid uuid.UUID) (*entity.Saksbehandler, entity.Tilganger, error) {
	var (
		s entity.Saksbehandler
		t entity.Tilganger
	)
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT navn, epost, ident, tilgang_risk, tilgang_fortrolig, tilgang_beslutter
		 FROM saksbehandler WHERE oid = ?`, oid.String()).
		Scan(&s.Navn, &s.Epost, &s.Ident, &t.Risk, &t.FortroligAdresse, &t.Beslutter)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.Tilganger{}, nil
	}
	if err != nil {
		return nil, entity.Tilganger{}, fmt.Errorf("hent saksbehandler: %w", err)
	}
	s.OID = oid
	return &s, t, nil
}

func (r *SaksbehandlerRepository) Lagre(ctx context.Context, saksbehandler entity.Saksbehandler) error {
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO saksbehandler (oid, navn, epost, ident)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (oid) DO UPDATE SET
		   navn = excluded.navn,
		   epost = excluded.epost,
		   ident = excluded.ident`,
		saksbehandler.OID.String(), saksbehandler.Navn, saksbehandler.Epost, saksbehandler.Ident)
	if err != nil {
		r.logger.Error("Kunne ikke lagre saksbehandler", zap.Error(err))
		return fmt.Errorf("lagre saksbehandler: %w", err)
	}
	return nil
}

var _ port.SaksbehandlerRepository = (*SaksbehandlerRepository)(nil)
