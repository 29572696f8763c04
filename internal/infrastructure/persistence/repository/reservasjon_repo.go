package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/karl-run/spesialist/internal/application/port"
	"github.com/karl-run/spesialist/internal/domain/entity"
	"github.com/karl-run/spesialist/internal/infrastructure/persistence/sqlite"
)

// ReservasjonRepository implements port.ReservasjonRepository. A subject holds
// at most one reservation; re-reserving replaces the previous one.
type ReservasjonRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReservasjonRepository creates a new reservasjon repository
func NewReservasjonRepository(db *sql.DB, logger *zap.Logger) port.ReservasjonRepository {
	return &ReservasjonRepository{db: db, logger: logger}
}

func (r *ReservasjonRepository) Hent(ctx context.Context, fodselsnummer string) (*entity.Reservasjon, error) {
	var (
		res entity.Reservasjon
		oid string
	)
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT fodselsnummer, saksbehandler_oid, gyldig_til FROM reservasjon
		 WHERE fodselsnummer = ? AND gyldig_til > ?`,
		fodselsnummer, time.Now()).Scan(&res.Fodselsnummer, &oid, &res.GyldigTil)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hent reservasjon: %w", err)
	}
	if res.SaksbehandlerOID, err = uuid.Parse(oid); err != nil {
		return nil, fmt.Errorf("ugyldig saksbehandler-oid: %w", err)
	}
	return &res, nil
}

func (r *ReservasjonRepository) Opprett(ctx context.Context, reservasjon *entity.Reservasjon) error {
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO reservasjon (fodselsnummer, saksbehandler_oid, gyldig_til)
		 VALUES (?, ?, ?)
		 ON CONFLICT (fodselsnummer) DO UPDATE SET
		   saksbehandler_oid = excluded.saksbehandler_oid,
		   gyldig_til = excluded.gyldig_til`,
		reservasjon.Fodselsnummer, reservasjon.SaksbehandlerOID.String(), reservasjon.GyldigTil)
	if err != nil {
		r.logger.Error("Kunne ikke opprette reservasjon", zap.Error(err))
		return fmt.Errorf("opprett reservasjon: %w", err)
	}
	return nil
}

var _ port.ReservasjonRepository = (*ReservasjonRepository)(nil)
