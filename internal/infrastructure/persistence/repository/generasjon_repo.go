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

// GenerasjonRepository implements port.GenerasjonRepository. State changes
// are UPDATE ... WHERE tilstand = expected so a replayed transition loses
// cleanly instead of overwriting a newer state.
type GenerasjonRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewGenerasjonRepository creates a new generasjon repository
func NewGenerasjonRepository(db *sql.DB, logger *zap.Logger) port.GenerasjonRepository {
	return &GenerasjonRepository{db: db, logger: logger}
}

func (r *GenerasjonRepository) Opprett(ctx context.Context, g *entity.Generasjon) error {
	var utbetalingID, behandlingID any
	if g.UtbetalingID != nil {
		utbetalingID = g.UtbetalingID.String()
	}
	if g.SpleisBehandlingID != nil {
		behandlingID = g.SpleisBehandlingID.String()
	}

	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO generasjon (id, vedtaksperiode_id, fom, tom, skjaeringstidspunkt,
		   tilstand, utbetaling_id, spleis_behandling_id, opprettet)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID.String(), g.VedtaksperiodeID.String(), g.Fom, g.Tom, g.Skjaeringstidspunkt,
		string(g.Tilstand), utbetalingID, behandlingID, g.Opprettet)
	if err != nil {
		r.logger.Error("Kunne ikke opprette generasjon", zap.Error(err))
		return fmt.Errorf("opprett generasjon: %w", err)
	}
	return nil
}

func (r *GenerasjonRepository) HentAktiv(ctx context.Context, vedtaksperiodeID uuid.UUID) (*entity.Generasjon, error) {
	row := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, vedtaksperiode_id, fom, tom, skjaeringstidspunkt,
		   tilstand, utbetaling_id, spleis_behandling_id, opprettet
		 FROM generasjon
		 WHERE vedtaksperiode_id = ? AND tilstand IN (?, ?)
		 ORDER BY opprettet DESC LIMIT 1`,
		vedtaksperiodeID.String(),
		string(entity.GenerasjonUlast), string(entity.GenerasjonUtenUtbetalingMaVurderes))
	return skannGenerasjon(row)
}

func (r *GenerasjonRepository) HentSiste(ctx context.Context, vedtaksperiodeID uuid.UUID) (*entity.Generasjon, error) {
	row := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, vedtaksperiode_id, fom, tom, skjaeringstidspunkt,
		   tilstand, utbetaling_id, spleis_behandling_id, opprettet
		 FROM generasjon
		 WHERE vedtaksperiode_id = ?
		 ORDER BY opprettet DESC LIMIT 1`,
		vedtaksperiodeID.String())
	return skannGenerasjon(row)
}

func (r *GenerasjonRepository) OppdaterTilstand(ctx context.Context, id uuid.UUID, fra, til entity.GenerasjonTilstand) (bool, error) {
	res, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`UPDATE generasjon SET tilstand = ? WHERE id = ? AND tilstand = ?`,
		string(til), id.String(), string(fra))
	if err != nil {
		return false, fmt.Errorf("oppdater generasjontilstand: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *GenerasjonRepository) SettUtbetaling(ctx context.Context, id, utbetalingID uuid.UUID) (bool, error) {
	res, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`UPDATE generasjon SET utbetaling_id = ?
		 WHERE id = ? AND (utbetaling_id IS NULL OR utbetaling_id = ?)`,
		utbetalingID.String(), id.String(), utbetalingID.String())
	if err != nil {
		return false, fmt.Errorf("sett utbetaling: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *GenerasjonRepository) OppdaterPeriode(ctx context.Context, id uuid.UUID, fom, tom, skjaeringstidspunkt time.Time) error {
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`UPDATE generasjon SET fom = ?, tom = ?, skjaeringstidspunkt = ? WHERE id = ?`,
		fom, tom, skjaeringstidspunkt, id.String())
	if err != nil {
		return fmt.Errorf("oppdater periode: %w", err)
	}
	return nil
}

func skannGenerasjon(row *sql.Row) (*entity.Generasjon, error) {
	var (
		id, vedtaksperiodeID       string
		tilstand                   string
		utbetalingID, behandlingID sql.NullString
		g                          entity.Generasjon
	)
	err := row.Scan(&id, &vedtaksperiodeID, &g.Fom, &g.Tom, &g.Skjaeringstidspunkt,
		&tilstand, &utbetalingID, &behandlingID, &g.Opprettet)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("skann generasjon: %w", err)
	}

	if g.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("ugyldig generasjon-id: %w", err)
	}
	if g.VedtaksperiodeID, err = uuid.Parse(vedtaksperiodeID); err != nil {
		return nil, fmt.Errorf("ugyldig vedtaksperiode-id: %w", err)
	}
	g.Tilstand = entity.GenerasjonTilstand(tilstand)
	if utbetalingID.Valid {
		u, err := uuid.Parse(utbetalingID.String)
		if err != nil {
			return nil, fmt.Errorf("ugyldig utbetaling-id: %w", err)
		}
		g.UtbetalingID = &u
	}
	if behandlingID.Valid {
		b, err := uuid.Parse(behandlingID.String)
		if err != nil {
			return nil, fmt.Errorf("ugyldig behandling-id: %w", err)
		}
		g.SpleisBehandlingID = &b
	}
	return &g, nil
}

var _ port.GenerasjonRepository = (*GenerasjonRepository)(nil)
