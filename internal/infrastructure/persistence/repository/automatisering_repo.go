package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/karl-run/spesialist/internal/application/port"
	"github.com/karl-run/spesialist/internal/domain/entity"
	"github.com/karl-run/spesialist/internal/infrastructure/persistence/sqlite"
)

// AutomatiseringRepository implements port.AutomatiseringRepository. Verdicts
// are append-only, keyed on (vedtaksperiode, hendelse, utbetaling); replays
// are absorbed by the primary key.
type AutomatiseringRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAutomatiseringRepository creates a new automatisering repository
func NewAutomatiseringRepository(db *sql.DB, logger *zap.Logger) port.AutomatiseringRepository {
	return &AutomatiseringRepository{db: db, logger: logger}
}

func (r *AutomatiseringRepository) Lagre(ctx context.Context, resultat *entity.AutomatiseringResultat) error {
	begrunnelser, err := json.Marshal(resultat.Begrunnelser)
	if err != nil {
		return fmt.Errorf("serialiser begrunnelser: %w", err)
	}

	_, err = sqlite.ExecutorFor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO automatisering (vedtaksperiode_id, hendelse_id, utbetaling_id, utfall, begrunnelser, vurdert)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (vedtaksperiode_id, hendelse_id, utbetaling_id) DO NOTHING`,
		resultat.VedtaksperiodeID.String(), resultat.HendelseID.String(), resultat.UtbetalingID.String(),
		string(resultat.Utfall), string(begrunnelser), resultat.Vurdert)
	if err != nil {
		r.logger.Error("Kunne ikke lagre automatiseringsresultat", zap.Error(err))
		return fmt.Errorf("lagre automatiseringsresultat: %w", err)
	}
	return nil
}

func (r *AutomatiseringRepository) Hent(ctx context.Context, vedtaksperiodeID, hendelseID, utbetalingID uuid.UUID) (*entity.AutomatiseringResultat, error) {
	var (
		res                  entity.AutomatiseringResultat
		utfall, begrunnelser string
	)
	err := sqlite.ExecutorFor(ctx, r.db).QueryRowContext(ctx,
		`SELECT utfall, begrunnelser, vurdert FROM automatisering
		 WHERE vedtaksperiode_id = ? AND hendelse_id = ? AND utbetaling_id = ?`,
		vedtaksperiodeID.String(), hendelseID.String(), utbetalingID.String()).
		Scan(&utfall, &begrunnelser, &res.Vurdert)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hent automatiseringsresultat: %w", err)
	}

	res.VedtaksperiodeID = vedtaksperiodeID
	res.HendelseID = hendelseID
	res.UtbetalingID = utbetalingID
	res.Utfall = entity.AutomatiseringUtfall(utfall)
	if err := json.Unmarshal([]byte(begrunnelser), &res.Begrunnelser); err != nil {
		return nil, fmt.Errorf("dekod begrunnelser: %w", err)
	}
	return &res, nil
}

var _ port.AutomatiseringRepository = (*AutomatiseringRepository)(nil)
