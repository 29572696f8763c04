package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/karl-run/spesialist/internal/application/port"
	"github.com/karl-run/spesialist/internal/domain/entity"
	"github.com/karl-run/spesialist/internal/infrastructure/persistence/sqlite"
)

// VarselRepository implements port.VarselRepository.
type VarselRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVarselRepository creates a new varsel repository
func NewVarselRepository(db *sql.DB, logger *zap.Logger) port.VarselRepository {
	return &VarselRepository{db: db, logger: logger}
}

func (r *VarselRepository) Opprett(ctx context.Context, v *entity.Varsel) error {
	_, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO varsel (id, generasjon_id, kode, status, vurdert_av, opprettet)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (generasjon_id, kode) DO NOTHING`,
		v.ID.String(), v.GenerasjonID.String(), v.Kode, string(v.Status), v.VurdertAv, v.Opprettet)
	if err != nil {
		r.logger.Error("Kunne ikke opprette varsel", zap.Error(err))
		return fmt.Errorf("opprett varsel: %w", err)
	}
	return nil
}

func (r *VarselRepository) HentForGenerasjon(ctx context.Context, generasjonID uuid.UUID) ([]*entity.Varsel, error) {
	return r.hent(ctx,
		`SELECT id, generasjon_id, kode, status, vurdert_av, opprettet
		 FROM varsel WHERE generasjon_id = ? ORDER BY opprettet ASC`,
		generasjonID.String())
}

func (r *VarselRepository) HentAktiveForGenerasjon(ctx context.Context, generasjonID uuid.UUID) ([]*entity.Varsel, error) {
	return r.hent(ctx,
		`SELECT id, generasjon_id, kode, status, vurdert_av, opprettet
		 FROM varsel WHERE generasjon_id = ? AND status = ? ORDER BY opprettet ASC`,
		generasjonID.String(), string(entity.VarselAktiv))
}

func (r *VarselRepository) FinnesForGenerasjon(ctx context.Context, generasjonID uuid.UUID, kode string) (bool, error) {
	var n int
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COUNT(1) FROM varsel WHERE generasjon_id = ? AND kode = ?`,
		generasjonID.String(), kode).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sjekk varsel: %w", err)
	}
	return n > 0, nil
}

func (r *VarselRepository) OppdaterStatus(ctx context.Context, id uuid.UUID, fra []entity.VarselStatus, til entity.VarselStatus, av string) (bool, error) {
	if len(fra) == 0 {
		return false, nil
	}
	plasser := strings.TrimSuffix(strings.Repeat("?, ", len(fra)), ", ")
	args := []any{string(til), av, id.String()}
	for _, f := range fra {
		args = append(args, string(f))
	}

	res, err := sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		fmt.Sprintf(`UPDATE varsel SET status = ?, vurdert_av = ?
		 WHERE id = ? AND status IN (%s)`, plasser), args...)
	if err != nil {
		return false, fmt.Errorf("oppdater varselstatus: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *VarselRepository) hent(ctx context.Context, query string, args ...any) ([]*entity.Varsel, error) {
	rows, err := sqlite.ExecutorFor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("hent varsler: %w", err)
	}
	defer rows.Close()

	var varsler []*entity.Varsel
	for rows.Next() {
		var (
			id, generasjonID, status string
			v                        entity.Varsel
		)
		if err := rows.Scan(&id, &generasjonID, &v.Kode, &status, &v.VurdertAv, &v.Opprettet); err != nil {
			return nil, fmt.Errorf("skann varsel: %w", err)
		}
		if v.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("ugyldig varsel-id: %w", err)
		}
		if v.GenerasjonID, err = uuid.Parse(generasjonID); err != nil {
			return nil, fmt.Errorf("ugyldig generasjon-id: %w", err)
		}
		v.Status = entity.VarselStatus(status)
		varsler = append(varsler, &v)
	}
	return varsler, rows.Err()
}

var _ port.VarselRepository = (*VarselRepository)(nil)
